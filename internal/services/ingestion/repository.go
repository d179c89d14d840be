package ingestion

import (
	"context"

	"github.com/cornjacket/fruit-storage/internal/services/outbox"
	"github.com/cornjacket/fruit-storage/internal/shared/domain/events"
)

// EventRecorder durably records an event envelope.
// This interface is satisfied by outbox.Recorder.
type EventRecorder interface {
	RecordEnvelope(ctx context.Context, envelope *events.Envelope) (*outbox.EventRecord, error)
}
