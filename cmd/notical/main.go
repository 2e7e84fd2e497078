package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"notical/internal/api"
	"notical/internal/bus"
	"notical/internal/config"
	"notical/internal/feed"
	"notical/internal/notion"
	"notical/internal/pipeline"
	"notical/internal/store"
)

func main() {
	// A local .env is convenient in development; absence is fine.
	_ = godotenv.Load()

	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("notical starting", "port", cfg.Port)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Source client
	source := notion.NewClient(cfg.NotionAPIKey)

	// Pipeline
	pipe := pipeline.New(source, cfg.NotionDatabaseID, pipelineConfig(cfg), slog.Default())

	// Feed service
	feeds := feed.NewService(pipe, feed.CalendarInfo{
		Name:        cfg.CalendarName,
		Description: cfg.CalendarDescription,
		Timezone:    cfg.CalendarTimezone,
	}, cfg.CacheTTL, slog.Default())

	// Database is optional; without it the cache is in-memory only.
	var db *store.Store
	if cfg.DatabaseURL != "" {
		var err error
		db, err = store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.EnsureSchema(ctx); err != nil {
			slog.Error("failed to ensure schema", "error", err)
			os.Exit(1)
		}
		feeds.WithStore(db)
		slog.Info("database connected")
	} else {
		slog.Warn("DATABASE_URL not set, feed cache will not survive restarts")
	}

	// NATS is optional; without it there are no sync announcements or
	// remote triggers.
	var busClient *bus.Client
	if cfg.NatsURL != "" {
		var err error
		busClient, err = bus.NewClient(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer busClient.Close()
		feeds.WithNotifier(busClient)
		slog.Info("NATS connected", "url", cfg.NatsURL)

		if err := busClient.Subscribe(bus.SubjectSyncTrigger, func(subject string, data []byte) {
			slog.Info("sync trigger received", "subject", subject)
			if _, err := feeds.Refresh(ctx); err != nil {
				slog.Error("triggered sync failed", "error", err)
			}
		}); err != nil {
			slog.Error("failed to subscribe to sync trigger", "error", err)
			os.Exit(1)
		}
	}

	// Serve the last persisted feed until the first sync completes.
	feeds.Restore(ctx)

	// Background sync schedule
	var scheduler *cron.Cron
	if cfg.SyncCron != "" {
		scheduler = cron.New()
		_, err := scheduler.AddFunc(cfg.SyncCron, func() {
			if _, err := feeds.Refresh(ctx); err != nil {
				slog.Error("scheduled sync failed", "error", err)
			}
		})
		if err != nil {
			slog.Error("invalid SYNC_CRON expression", "cron", cfg.SyncCron, "error", err)
			os.Exit(1)
		}
		scheduler.Start()
		slog.Info("sync schedule active", "cron", cfg.SyncCron)
	}

	// HTTP API
	srv := api.NewServer(cfg.Port, feeds, cfg.FeedToken, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("notical ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	if scheduler != nil {
		scheduler.Stop()
	}
	cancel()
	slog.Info("notical stopped")
}

// pipelineConfig maps the flat env config onto the pipeline's explicit
// per-run configuration.
func pipelineConfig(cfg config.Config) pipeline.Config {
	epoch, err := time.Parse("2006-01-02", cfg.WindowEpoch)
	if err != nil {
		slog.Warn("invalid WINDOW_EPOCH, using default", "value", cfg.WindowEpoch)
		epoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	}

	policy := pipeline.WindowRolling
	if cfg.WindowMode == string(pipeline.WindowEpoch) {
		policy = pipeline.WindowEpoch
	}

	return pipeline.Config{
		Mapping: pipeline.ResolveMapping(pipeline.MappingOverrides{
			Title:         cfg.TitleProperty,
			Date:          cfg.DateProperty,
			Description:   cfg.DescriptionProperty,
			Location:      cfg.LocationProperty,
			Plan:          cfg.PlanProperty,
			Sort:          cfg.SortProperty,
			SortDirection: cfg.SortDirection,
		}),
		WindowPolicy: policy,
		MonthRadius:  cfg.WindowMonths,
		Epoch:        epoch,
		Fetch: pipeline.FetchPolicy{
			PageSize:         cfg.PageSize,
			MaxRecords:       cfg.MaxRecords,
			MaxRequests:      cfg.MaxRequests,
			MaxRetries:       cfg.MaxRetries,
			RateLimitBackoff: cfg.RateLimitBackoff,
			PageDelay:        cfg.PageDelay,
		},
		UTCOffsetHours: cfg.TZOffsetHours,
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
