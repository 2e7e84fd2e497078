package notion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestQueryDatabase_RequestShape(t *testing.T) {
	var gotPath, gotAuth, gotVersion string
	var gotBody QueryRequest

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotVersion = r.Header.Get("Notion-Version")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		json.NewEncoder(w).Encode(QueryResponse{})
	}))
	defer ts.Close()

	c := NewClientWithBaseURL("secret-key", ts.URL)
	_, err := c.QueryDatabase(context.Background(), "db123", QueryRequest{
		Filter: &Filter{And: []Condition{
			{Property: "Date", Date: &DateFilter{OnOrAfter: "2024-01-01"}},
		}},
		Sorts:    []Sort{{Property: "Date", Direction: SortAscending}},
		PageSize: 50,
	})
	if err != nil {
		t.Fatalf("QueryDatabase failed: %v", err)
	}

	if gotPath != "/databases/db123/query" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer secret-key" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotVersion == "" {
		t.Error("expected Notion-Version header")
	}
	if gotBody.PageSize != 50 || len(gotBody.Sorts) != 1 {
		t.Errorf("request body wrong: %+v", gotBody)
	}
}

func TestQueryDatabase_Pagination(t *testing.T) {
	cursor := "next-1"
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req QueryRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.StartCursor == "" {
			json.NewEncoder(w).Encode(QueryResponse{
				Results:    []Page{{ID: "a"}},
				HasMore:    true,
				NextCursor: &cursor,
			})
			return
		}
		json.NewEncoder(w).Encode(QueryResponse{Results: []Page{{ID: "b"}}})
	}))
	defer ts.Close()

	c := NewClientWithBaseURL("k", ts.URL)

	first, err := c.QueryDatabase(context.Background(), "db", QueryRequest{PageSize: 1})
	if err != nil {
		t.Fatalf("first page failed: %v", err)
	}
	if !first.HasMore || first.NextCursor == nil {
		t.Fatalf("expected more pages: %+v", first)
	}

	second, err := c.QueryDatabase(context.Background(), "db", QueryRequest{PageSize: 1, StartCursor: *first.NextCursor})
	if err != nil {
		t.Fatalf("second page failed: %v", err)
	}
	if second.HasMore {
		t.Error("expected final page")
	}
	if len(second.Results) != 1 || second.Results[0].ID != "b" {
		t.Errorf("second page wrong: %+v", second.Results)
	}
}

func TestQueryDatabase_APIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"code":    "rate_limited",
			"message": "slow down",
		})
	}))
	defer ts.Close()

	c := NewClientWithBaseURL("k", ts.URL)
	_, err := c.QueryDatabase(context.Background(), "db", QueryRequest{})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != CodeRateLimited {
		t.Errorf("code = %q", apiErr.Code)
	}
	if apiErr.Status != http.StatusTooManyRequests {
		t.Errorf("status = %d", apiErr.Status)
	}
}

func TestQueryDatabase_UnparseableErrorBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("nope"))
	}))
	defer ts.Close()

	c := NewClientWithBaseURL("k", ts.URL)
	_, err := c.QueryDatabase(context.Background(), "db", QueryRequest{})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != CodeUnauthorized {
		t.Errorf("expected status-derived code, got %q", apiErr.Code)
	}
}

func TestQueryDatabase_PropertyDecoding(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"results": [{
				"id": "page-1",
				"url": "https://notion.so/page-1",
				"properties": {
					"Name": {"type": "title", "title": [{"type": "text", "plain_text": "Standup", "annotations": {"bold": true}}]},
					"Date": {"type": "date", "date": {"start": "2024-03-01T09:00:00Z", "end": null}}
				}
			}],
			"has_more": false,
			"next_cursor": null
		}`))
	}))
	defer ts.Close()

	c := NewClientWithBaseURL("k", ts.URL)
	resp, err := c.QueryDatabase(context.Background(), "db", QueryRequest{})
	if err != nil {
		t.Fatalf("QueryDatabase failed: %v", err)
	}

	page := resp.Results[0]
	name := page.Properties["Name"]
	if name.Type != TypeTitle || len(name.Title) != 1 {
		t.Fatalf("title property wrong: %+v", name)
	}
	if !name.Title[0].Annotations.Bold {
		t.Error("expected bold annotation decoded")
	}
	date := page.Properties["Date"]
	if date.Type != TypeDate || date.Date == nil || date.Date.Start != "2024-03-01T09:00:00Z" {
		t.Fatalf("date property wrong: %+v", date)
	}
	if date.Date.End != nil {
		t.Error("expected nil end for null")
	}
}
