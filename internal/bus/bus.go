package bus

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Subjects used on the bus.
const (
	// SubjectFeedSynced announces a completed feed regeneration.
	SubjectFeedSynced = "notical.feed.synced"
	// SubjectSyncTrigger asks the service to regenerate the feed now.
	SubjectSyncTrigger = "notical.sync.trigger"
)

// SyncedEvent is the payload published on SubjectFeedSynced.
type SyncedEvent struct {
	SyncID      string    `json:"sync_id"`
	GeneratedAt time.Time `json:"generated_at"`
	EventCount  int       `json:"event_count"`
	ErrorCount  int       `json:"error_count"`
}

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

func NewClient(url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) Subscribe(subject string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject)
	return nil
}

// SyncCompleted publishes a SyncedEvent. Publish failures are logged, not
// returned: the bus is an announcement channel, never on the sync path.
func (c *Client) SyncCompleted(eventCount, errorCount int, generatedAt time.Time) {
	evt := SyncedEvent{
		SyncID:      uuid.NewString(),
		GeneratedAt: generatedAt,
		EventCount:  eventCount,
		ErrorCount:  errorCount,
	}
	if err := c.Publish(SubjectFeedSynced, evt); err != nil {
		c.logger.Warn("failed to publish sync event", "error", err)
	}
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}
