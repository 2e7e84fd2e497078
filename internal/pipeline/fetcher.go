package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"notical/internal/notion"
)

// maxSourcePageSize is the source API's documented hard limit.
const maxSourcePageSize = 100

// Querier is the slice of the source client the fetcher needs.
type Querier interface {
	QueryDatabase(ctx context.Context, databaseID string, query notion.QueryRequest) (*notion.QueryResponse, error)
}

// FetchPolicy bounds the pagination loop.
type FetchPolicy struct {
	// PageSize per request. Kept below the source's hard limit by
	// default to reduce throttling risk.
	PageSize int
	// MaxRecords and MaxRequests are safety caps. Hitting either stops
	// the loop early with a log line; it is not an error.
	MaxRecords  int
	MaxRequests int
	// MaxRetries bounds consecutive rate-limit retries of one page.
	MaxRetries int
	// RateLimitBackoff is the fixed pause before retrying a rate-limited
	// page.
	RateLimitBackoff time.Duration
	// PageDelay is the pause between successful pages. It doubles each
	// time a page comes back short, a sign the data is running out.
	PageDelay time.Duration
}

func (p FetchPolicy) withDefaults() FetchPolicy {
	if p.PageSize <= 0 || p.PageSize > maxSourcePageSize {
		p.PageSize = 50
	}
	if p.MaxRecords <= 0 {
		p.MaxRecords = 5000
	}
	if p.MaxRequests <= 0 {
		p.MaxRequests = 100
	}
	if p.MaxRetries <= 0 {
		p.MaxRetries = 3
	}
	if p.RateLimitBackoff <= 0 {
		p.RateLimitBackoff = 5 * time.Second
	}
	if p.PageDelay < 0 {
		p.PageDelay = 0
	}
	return p
}

// Fetcher retrieves all records matching a date window, page by page.
// Pagination is strictly sequential: each request's cursor comes from the
// previous response, so no requests overlap.
type Fetcher struct {
	source     Querier
	databaseID string
	policy     FetchPolicy
	logger     *slog.Logger
}

func NewFetcher(source Querier, databaseID string, policy FetchPolicy, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		source:     source,
		databaseID: databaseID,
		policy:     policy.withDefaults(),
		logger:     logger,
	}
}

// FetchAll pages through every record whose date falls inside the window,
// in source sort order. Rate-limit responses are retried in place within
// bounds; any other upstream failure aborts immediately with a classified
// error. A fresh call re-fetches everything, so the operation is
// retryable from the caller's side.
func (f *Fetcher) FetchAll(ctx context.Context, mapping FieldMapping, window DateWindow) ([]notion.Page, error) {
	query := notion.QueryRequest{
		Filter: &notion.Filter{And: []notion.Condition{
			{Property: mapping.DateField, Date: &notion.DateFilter{OnOrAfter: window.StartLiteral()}},
			{Property: mapping.DateField, Date: &notion.DateFilter{OnOrBefore: window.EndLiteral()}},
		}},
		Sorts:    []notion.Sort{{Property: mapping.SortField, Direction: mapping.SortDirection}},
		PageSize: f.policy.PageSize,
	}

	var records []notion.Page
	requests := 0
	retries := 0
	delay := f.policy.PageDelay

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("fetch aborted: %w", err)
		}
		if requests >= f.policy.MaxRequests {
			f.logger.Warn("request cap reached, stopping early",
				"requests", requests, "records", len(records))
			break
		}

		resp, err := f.source.QueryDatabase(ctx, f.databaseID, query)
		if err != nil {
			var apiErr *notion.APIError
			if errors.As(err, &apiErr) && apiErr.Code == notion.CodeRateLimited {
				retries++
				if retries > f.policy.MaxRetries {
					return nil, fmt.Errorf("%w: rate limit retries exhausted after %d attempts",
						ErrSourceUnavailable, retries-1)
				}
				f.logger.Warn("rate limited, backing off",
					"attempt", retries, "backoff", f.policy.RateLimitBackoff)
				if err := sleep(ctx, f.policy.RateLimitBackoff); err != nil {
					return nil, fmt.Errorf("fetch aborted: %w", err)
				}
				// Retry the same page; the request counter only moves on
				// success.
				continue
			}
			return nil, classifyQueryError(err)
		}

		retries = 0
		requests++
		records = append(records, resp.Results...)

		if len(records) >= f.policy.MaxRecords {
			f.logger.Warn("record cap reached, stopping early",
				"requests", requests, "records", len(records))
			records = records[:f.policy.MaxRecords]
			break
		}
		if !resp.HasMore || resp.NextCursor == nil {
			break
		}
		query.StartCursor = *resp.NextCursor

		// A short page usually means we are near the end of the data;
		// slow down to stay clear of the rate limiter.
		if len(resp.Results) < query.PageSize {
			delay *= 2
		}
		if err := sleep(ctx, delay); err != nil {
			return nil, fmt.Errorf("fetch aborted: %w", err)
		}
	}

	f.logger.Info("fetch complete", "records", len(records), "requests", requests)
	return records, nil
}

// sleep waits for d or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
