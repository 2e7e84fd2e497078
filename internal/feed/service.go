package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"notical/internal/pipeline"
)

// Document is one generated feed plus its provenance.
type Document struct {
	Body        string
	GeneratedAt time.Time
	EventCount  int
	ErrorCount  int
}

// Syncer runs the pipeline. Satisfied by *pipeline.Pipeline.
type Syncer interface {
	Sync(ctx context.Context) (*pipeline.SyncResult, error)
}

// Store persists the last good document across restarts. Optional.
type Store interface {
	SaveFeed(ctx context.Context, doc Document) error
	LatestFeed(ctx context.Context) (*Document, error)
}

// Notifier announces completed syncs. Optional.
type Notifier interface {
	SyncCompleted(eventCount, errorCount int, generatedAt time.Time)
}

// Status is the externally visible sync state.
type Status struct {
	LastSync   *time.Time `json:"last_sync"`
	EventCount int        `json:"event_count"`
	ErrorCount int        `json:"error_count"`
	Fresh      bool       `json:"fresh"`
}

// Service caches the generated feed and regenerates it when stale. The
// mutex serializes concurrent regenerations of the single feed key so two
// simultaneous requests trigger one upstream fetch; the waiter reuses the
// fresh result.
type Service struct {
	syncer   Syncer
	info     CalendarInfo
	ttl      time.Duration
	store    Store
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.Mutex
	cached *Document
}

func NewService(syncer Syncer, info CalendarInfo, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Service{
		syncer: syncer,
		info:   info,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// WithStore attaches an optional persistence layer.
func (s *Service) WithStore(store Store) *Service {
	s.store = store
	return s
}

// WithNotifier attaches an optional sync announcer.
func (s *Service) WithNotifier(n Notifier) *Service {
	s.notifier = n
	return s
}

// Restore loads the last persisted document so a restart can serve a feed
// before the first sync completes. Missing store or empty cache is fine.
func (s *Service) Restore(ctx context.Context) {
	if s.store == nil {
		return
	}
	doc, err := s.store.LatestFeed(ctx)
	if err != nil {
		s.logger.Warn("failed to restore cached feed", "error", err)
		return
	}
	if doc == nil {
		return
	}
	s.mu.Lock()
	s.cached = doc
	s.mu.Unlock()
	s.logger.Info("cached feed restored", "generated_at", doc.GeneratedAt, "events", doc.EventCount)
}

// Feed returns the current document, regenerating when the cache is
// stale. When regeneration fails but an older document exists, the stale
// copy is served and the failure logged, so a transient source outage
// does not blank subscribers' calendars.
func (s *Service) Feed(ctx context.Context) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && s.now().Sub(s.cached.GeneratedAt) < s.ttl {
		return s.cached, nil
	}

	doc, err := s.regenerate(ctx)
	if err != nil {
		if s.cached != nil {
			s.logger.Warn("sync failed, serving stale feed", "error", err, "generated_at", s.cached.GeneratedAt)
			return s.cached, nil
		}
		return nil, err
	}
	return doc, nil
}

// Refresh regenerates the feed regardless of cache freshness. Used by the
// manual sync endpoint, the cron schedule, and bus triggers.
func (s *Service) Refresh(ctx context.Context) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regenerate(ctx)
}

// Status reports the current cache state without triggering a sync.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached == nil {
		return Status{}
	}
	at := s.cached.GeneratedAt
	return Status{
		LastSync:   &at,
		EventCount: s.cached.EventCount,
		ErrorCount: s.cached.ErrorCount,
		Fresh:      s.now().Sub(at) < s.ttl,
	}
}

// regenerate runs the pipeline and serializer under the held lock.
func (s *Service) regenerate(ctx context.Context) (*Document, error) {
	result, err := s.syncer.Sync(ctx)
	if err != nil {
		return nil, err
	}

	generatedAt := s.now().UTC()
	body, err := Assemble(result.Events, s.info, generatedAt)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Body:        body,
		GeneratedAt: generatedAt,
		EventCount:  len(result.Events),
		ErrorCount:  len(result.Errors),
	}
	s.cached = doc

	if s.store != nil {
		if err := s.store.SaveFeed(ctx, *doc); err != nil {
			s.logger.Warn("failed to persist feed", "error", err)
		}
	}
	if s.notifier != nil {
		s.notifier.SyncCompleted(doc.EventCount, doc.ErrorCount, doc.GeneratedAt)
	}

	s.logger.Info("feed regenerated", "events", doc.EventCount, "skipped", doc.ErrorCount)
	return doc, nil
}
