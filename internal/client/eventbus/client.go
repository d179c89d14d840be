package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/cornjacket/fruit-storage/internal/services/outbox"
)

// Header keys attached to every relayed message.
const (
	HeaderEventID    = "event_id"
	HeaderEventType  = "event_type"
	HeaderOccurredAt = "occurred_at"
)

var errNoRecord = errors.New("no event record in context")

// Publisher publishes messages to the message bus.
// This interface is satisfied by redpanda.Producer.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte, headers map[string]string) error
}

// Client relays delivered outbox records to the message bus.
// It wraps the underlying bus (Redpanda) behind an outbox.Handler.
type Client struct {
	publisher Publisher
	topic     string
	logger    *slog.Logger
}

// New creates a new bus relay client publishing to topic.
func New(publisher Publisher, topic string, logger *slog.Logger) *Client {
	return &Client{
		publisher: publisher,
		topic:     topic,
		logger:    logger.With("client", "eventbus"),
	}
}

// Handle publishes the record being dispatched. The payload is the message
// value and the aggregate id is the partition key. W3C trace context from
// ctx is carried in the headers.
func (c *Client) Handle(ctx context.Context, payload json.RawMessage) error {
	record, ok := outbox.RecordFromContext(ctx)
	if !ok {
		return errNoRecord
	}

	headers := map[string]string{
		HeaderEventID:    record.ID.String(),
		HeaderEventType:  record.EventType,
		HeaderOccurredAt: record.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(headers))

	if err := c.publisher.Publish(ctx, c.topic, record.AggregateID, payload, headers); err != nil {
		c.logger.Error("failed to relay event",
			"event_id", record.ID,
			"event_type", record.EventType,
			"topic", c.topic,
			"error", err,
		)
		return fmt.Errorf("relay %s to %s: %w", record.EventType, c.topic, err)
	}

	c.logger.Debug("event relayed to bus",
		"event_id", record.ID,
		"event_type", record.EventType,
		"topic", c.topic,
	)
	return nil
}

// Subscribe registers the relay for each event type.
func (c *Client) Subscribe(dispatcher *outbox.Dispatcher, eventTypes ...string) error {
	for _, eventType := range eventTypes {
		if err := dispatcher.Register(eventType, c); err != nil {
			return fmt.Errorf("subscribe %q: %w", eventType, err)
		}
	}
	return nil
}

var _ outbox.Handler = (*Client)(nil)
