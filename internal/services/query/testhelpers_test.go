package query

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/cornjacket/fruit-storage/internal/services/outbox"
)

// mockRecordReader implements RecordReader for testing.
type mockRecordReader struct {
	GetRecordFn   func(ctx context.Context, id uuid.UUID) (*outbox.EventRecord, error)
	ListRecordsFn func(ctx context.Context, filter outbox.RecordFilter, limit, offset int) ([]outbox.EventRecord, int, error)
}

func (m *mockRecordReader) GetRecord(ctx context.Context, id uuid.UUID) (*outbox.EventRecord, error) {
	return m.GetRecordFn(ctx, id)
}

func (m *mockRecordReader) ListRecords(ctx context.Context, filter outbox.RecordFilter, limit, offset int) ([]outbox.EventRecord, int, error) {
	return m.ListRecordsFn(ctx, filter, limit, offset)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRecord() *outbox.EventRecord {
	return &outbox.EventRecord{
		ID:          uuid.Must(uuid.NewV7()),
		AggregateID: "f1",
		EventType:   "FruitCreated",
		Payload:     json.RawMessage(`{"fruit":{"name":"lemon"}}`),
		OccurredAt:  time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}
