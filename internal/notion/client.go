package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultBaseURL = "https://api.notion.com/v1"
	apiVersion     = "2022-06-28"
)

// Machine-readable error codes the source API returns. The fetcher maps
// these to pipeline error classes.
const (
	CodeObjectNotFound  = "object_not_found"
	CodeUnauthorized    = "unauthorized"
	CodeValidationError = "validation_error"
	CodeRateLimited     = "rate_limited"
)

// APIError is a non-2xx response from the source API.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("notion api error %d: %s: %s", e.Status, e.Code, e.Message)
}

type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// NewClientWithBaseURL is used by tests to point the client at a stub server.
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	c := NewClient(apiKey)
	c.baseURL = baseURL
	return c
}

// QueryRequest is the body of a database query call.
type QueryRequest struct {
	Filter      *Filter `json:"filter,omitempty"`
	Sorts       []Sort  `json:"sorts,omitempty"`
	PageSize    int     `json:"page_size,omitempty"`
	StartCursor string  `json:"start_cursor,omitempty"`
}

// Filter is a conjunctive property filter.
type Filter struct {
	And []Condition `json:"and,omitempty"`
}

type Condition struct {
	Property string      `json:"property"`
	Date     *DateFilter `json:"date,omitempty"`
}

type DateFilter struct {
	OnOrAfter  string `json:"on_or_after,omitempty"`
	OnOrBefore string `json:"on_or_before,omitempty"`
}

type Sort struct {
	Property  string `json:"property"`
	Direction string `json:"direction"`
}

// Sort directions accepted by the source API.
const (
	SortAscending  = "ascending"
	SortDescending = "descending"
)

// QueryResponse is one page of query results. NextCursor is only valid
// when HasMore is true.
type QueryResponse struct {
	Results    []Page  `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

// QueryDatabase executes one page of a database query. Pagination is the
// caller's responsibility: pass the previous response's NextCursor as
// StartCursor to fetch the next page.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, query QueryRequest) (*QueryResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	url := fmt.Sprintf("%s/databases/%s/query", c.baseURL, databaseID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Notion-Version", apiVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(respBody, apiErr) != nil || apiErr.Code == "" {
			apiErr.Code = codeForStatus(resp.StatusCode)
			apiErr.Message = string(respBody)
		}
		apiErr.Status = resp.StatusCode
		return nil, apiErr
	}

	var out QueryResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &out, nil
}

// codeForStatus fills in a code when the error body was not parseable,
// so callers can still classify the failure.
func codeForStatus(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusNotFound:
		return CodeObjectNotFound
	case http.StatusBadRequest:
		return CodeValidationError
	case http.StatusTooManyRequests:
		return CodeRateLimited
	default:
		return "internal_server_error"
	}
}
