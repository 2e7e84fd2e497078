package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// EnsureSchema creates the feed tables when they do not exist yet, so the
// service can run against an empty database without a migration step.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS feed_cache (
			feed_key     text PRIMARY KEY,
			body         text NOT NULL,
			generated_at timestamptz NOT NULL,
			event_count  int NOT NULL,
			error_count  int NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("create feed_cache: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS sync_runs (
			id          uuid PRIMARY KEY,
			ran_at      timestamptz NOT NULL,
			event_count int NOT NULL,
			error_count int NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("create sync_runs: %w", err)
	}
	return nil
}
