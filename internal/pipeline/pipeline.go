package pipeline

import (
	"context"
	"log/slog"
	"time"
)

// Config carries the resolved per-run settings for every stage. It is
// threaded explicitly; the pipeline holds no hidden global state.
type Config struct {
	Mapping        FieldMapping
	WindowPolicy   WindowPolicy
	MonthRadius    int
	Epoch          time.Time // only used under WindowEpoch
	Fetch          FetchPolicy
	UTCOffsetHours int
}

// SyncResult is the terminal value of one run: the surviving events plus
// the per-record failures that were recovered along the way.
type SyncResult struct {
	Events []CalendarEvent
	Errors []ConversionError
}

// Pipeline runs the full sync: plan the window, fetch all pages,
// normalize each record, aggregate failures. Stateless across calls;
// concurrent runs are independent.
type Pipeline struct {
	source     Querier
	databaseID string
	cfg        Config
	logger     *slog.Logger
	now        func() time.Time
}

func New(source Querier, databaseID string, cfg Config, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		source:     source,
		databaseID: databaseID,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// Sync executes one run. Per-record conversion errors never fail the
// batch; the run only fails upstream errors, cancellation, or when zero
// records survive normalization.
func (p *Pipeline) Sync(ctx context.Context) (*SyncResult, error) {
	window := PlanWindow(p.now().UTC(), p.cfg.WindowPolicy, p.cfg.MonthRadius, p.cfg.Epoch)
	p.logger.Info("sync starting",
		"window_start", window.StartLiteral(),
		"window_end", window.EndLiteral(),
		"date_field", p.cfg.Mapping.DateField,
	)

	fetcher := NewFetcher(p.source, p.databaseID, p.cfg.Fetch, p.logger)
	records, err := fetcher.FetchAll(ctx, p.cfg.Mapping, window)
	if err != nil {
		return nil, err
	}

	opts := NormalizeOptions{UTCOffsetHours: p.cfg.UTCOffsetHours}
	result := &SyncResult{}
	for _, record := range records {
		ev, cerr := Normalize(record, p.cfg.Mapping, opts)
		if cerr != nil {
			p.logger.Warn("record skipped", "record_id", cerr.RecordID, "reason", cerr.Reason)
			result.Errors = append(result.Errors, *cerr)
			continue
		}
		result.Events = append(result.Events, ev)
	}

	if len(result.Events) == 0 && len(result.Errors) > 0 {
		return nil, &AllRecordsInvalidError{
			FirstReason: result.Errors[0].Reason,
			Additional:  len(result.Errors) - 1,
		}
	}

	p.logger.Info("sync complete", "events", len(result.Events), "skipped", len(result.Errors))
	return result, nil
}
