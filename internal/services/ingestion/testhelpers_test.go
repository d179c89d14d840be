package ingestion

import (
	"context"
	"io"
	"log/slog"

	"github.com/gofrs/uuid/v5"

	"github.com/cornjacket/fruit-storage/internal/services/outbox"
	"github.com/cornjacket/fruit-storage/internal/shared/domain/events"
)

// mockEventRecorder implements EventRecorder for testing.
type mockEventRecorder struct {
	RecordEnvelopeFn func(ctx context.Context, envelope *events.Envelope) (*outbox.EventRecord, error)
}

func (m *mockEventRecorder) RecordEnvelope(ctx context.Context, envelope *events.Envelope) (*outbox.EventRecord, error) {
	return m.RecordEnvelopeFn(ctx, envelope)
}

// acceptingRecorder returns a recorder that captures the envelope and
// echoes it back as a record.
func acceptingRecorder(captured **events.Envelope) *mockEventRecorder {
	return &mockEventRecorder{
		RecordEnvelopeFn: func(ctx context.Context, envelope *events.Envelope) (*outbox.EventRecord, error) {
			*captured = envelope
			return &outbox.EventRecord{
				ID:          uuid.Must(uuid.NewV7()),
				AggregateID: envelope.AggregateID,
				EventType:   envelope.EventType,
				Payload:     envelope.Payload,
				OccurredAt:  envelope.OccurredAt,
			}, nil
		},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
