package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"notical/internal/feed"
)

// defaultFeedKey identifies the single mirrored feed. Kept as a column so
// multi-feed support stays a data change, not a schema change.
const defaultFeedKey = "default"

// SaveFeed upserts the latest document and appends a sync-run row.
func (s *Store) SaveFeed(ctx context.Context, doc feed.Document) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO feed_cache (feed_key, body, generated_at, event_count, error_count)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (feed_key) DO UPDATE SET
			body = EXCLUDED.body,
			generated_at = EXCLUDED.generated_at,
			event_count = EXCLUDED.event_count,
			error_count = EXCLUDED.error_count`,
		defaultFeedKey, doc.Body, doc.GeneratedAt, doc.EventCount, doc.ErrorCount,
	)
	if err != nil {
		return fmt.Errorf("upsert feed: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO sync_runs (id, ran_at, event_count, error_count)
		VALUES ($1, $2, $3, $4)`,
		uuid.New(), doc.GeneratedAt, doc.EventCount, doc.ErrorCount,
	)
	if err != nil {
		return fmt.Errorf("insert sync run: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LatestFeed returns the persisted document, or nil when none was saved.
func (s *Store) LatestFeed(ctx context.Context) (*feed.Document, error) {
	var doc feed.Document
	err := s.pool.QueryRow(ctx, `
		SELECT body, generated_at, event_count, error_count
		FROM feed_cache WHERE feed_key = $1`,
		defaultFeedKey,
	).Scan(&doc.Body, &doc.GeneratedAt, &doc.EventCount, &doc.ErrorCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select feed: %w", err)
	}
	return &doc, nil
}
