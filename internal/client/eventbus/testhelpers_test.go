package eventbus

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/cornjacket/fruit-storage/internal/services/outbox"
	"github.com/cornjacket/fruit-storage/internal/shared/domain/events"
)

// mockPublisher implements Publisher for testing.
type mockPublisher struct {
	PublishFn func(ctx context.Context, topic, key string, value []byte, headers map[string]string) error
}

func (m *mockPublisher) Publish(ctx context.Context, topic, key string, value []byte, headers map[string]string) error {
	return m.PublishFn(ctx, topic, key, value, headers)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRecord() *outbox.EventRecord {
	return &outbox.EventRecord{
		ID:          uuid.Must(uuid.NewV7()),
		AggregateID: "f1",
		EventType:   "FruitCreated",
		Payload:     json.RawMessage(`{"name":"lemon"}`),
		OccurredAt:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func envelope(eventType, aggregateID string) *events.Envelope {
	return &events.Envelope{
		EventType:   eventType,
		AggregateID: aggregateID,
		OccurredAt:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Payload:     json.RawMessage(`{}`),
	}
}
