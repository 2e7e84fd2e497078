package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port     int
	LogLevel string

	NotionAPIKey     string
	NotionDatabaseID string

	TitleProperty       string
	DateProperty        string
	DescriptionProperty string
	LocationProperty    string
	PlanProperty        string
	SortProperty        string
	SortDirection       string

	WindowMode   string
	WindowMonths int
	WindowEpoch  string

	PageSize         int
	MaxRecords       int
	MaxRequests      int
	MaxRetries       int
	RateLimitBackoff time.Duration
	PageDelay        time.Duration

	TZOffsetHours int

	CalendarName        string
	CalendarDescription string
	CalendarTimezone    string
	FeedToken           string
	CacheTTL            time.Duration
	SyncCron            string

	DatabaseURL string
	NatsURL     string
	NatsToken   string
}

func Load() Config {
	return Config{
		Port:     envInt("NOTICAL_PORT", 8760),
		LogLevel: envStr("LOG_LEVEL", "info"),

		NotionAPIKey:     envStr("NOTION_API_KEY", ""),
		NotionDatabaseID: envStr("NOTION_DATABASE_ID", ""),

		TitleProperty:       envStr("TITLE_PROPERTY", ""),
		DateProperty:        envStr("DATE_PROPERTY", ""),
		DescriptionProperty: envStr("DESCRIPTION_PROPERTY", ""),
		LocationProperty:    envStr("LOCATION_PROPERTY", ""),
		PlanProperty:        envStr("PLAN_PROPERTY", ""),
		SortProperty:        envStr("SORT_PROPERTY", ""),
		SortDirection:       envStr("SORT_DIRECTION", ""),

		WindowMode:   envStr("WINDOW_MODE", "rolling"),
		WindowMonths: envInt("WINDOW_MONTHS", 2),
		WindowEpoch:  envStr("WINDOW_EPOCH", "2020-01-01"),

		PageSize:         envInt("PAGE_SIZE", 50),
		MaxRecords:       envInt("MAX_RECORDS", 5000),
		MaxRequests:      envInt("MAX_REQUESTS", 100),
		MaxRetries:       envInt("MAX_RETRIES", 3),
		RateLimitBackoff: envDuration("RATE_LIMIT_BACKOFF", 5*time.Second),
		PageDelay:        envDuration("PAGE_DELAY", 300*time.Millisecond),

		TZOffsetHours: envInt("TZ_OFFSET_HOURS", 0),

		CalendarName:        envStr("CALENDAR_NAME", "Notion Calendar"),
		CalendarDescription: envStr("CALENDAR_DESCRIPTION", "Events mirrored from a Notion database"),
		CalendarTimezone:    envStr("CALENDAR_TIMEZONE", ""),
		FeedToken:           envStr("FEED_TOKEN", ""),
		CacheTTL:            envDuration("CACHE_TTL", 30*time.Minute),
		SyncCron:            envStr("SYNC_CRON", "*/30 * * * *"),

		DatabaseURL: envStr("DATABASE_URL", ""),
		NatsURL:     envStr("NATS_URL", ""),
		NatsToken:   envStr("NATS_TOKEN", ""),
	}
}

// Validate reports the missing required identifiers. Everything else has
// a workable default.
func (c Config) Validate() error {
	if c.NotionAPIKey == "" {
		return errors.New("NOTION_API_KEY is required")
	}
	if c.NotionDatabaseID == "" {
		return errors.New("NOTION_DATABASE_ID is required")
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
