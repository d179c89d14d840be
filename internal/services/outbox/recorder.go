package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gofrs/uuid/v5"

	"github.com/cornjacket/fruit-storage/internal/shared/domain/events"
)

// Recorder appends domain events to the store. Application code calls it
// right after the aggregate's own write has committed.
type Recorder struct {
	store   Store
	metrics *Metrics
	logger  *slog.Logger
}

// NewRecorder creates a new recorder. metrics may be nil.
func NewRecorder(store Store, metrics *Metrics, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:   store,
		metrics: metrics,
		logger:  logger.With("component", "outbox-recorder"),
	}
}

// Record captures one domain event. The event type comes from the event's
// concrete kind and the payload is the serialized event.
func (r *Recorder) Record(ctx context.Context, event events.DomainEvent) (*EventRecord, error) {
	envelope, err := events.NewEnvelope(event)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	return r.RecordEnvelope(ctx, envelope)
}

// RecordAll records each event in order. A failure does not stop the
// remaining events; all failures are returned joined.
func (r *Recorder) RecordAll(ctx context.Context, evts ...events.DomainEvent) error {
	var errs []error
	for _, event := range evts {
		if _, err := r.Record(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordEnvelope validates an envelope and appends it as a new record.
// A store failure is returned as a *StorageError and the event must be
// treated as not recorded.
func (r *Recorder) RecordEnvelope(ctx context.Context, envelope *events.Envelope) (*EventRecord, error) {
	if err := validateEnvelope(envelope); err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate record id: %w", err)
	}

	record := &EventRecord{
		ID:          id,
		AggregateID: envelope.AggregateID,
		EventType:   envelope.EventType,
		Payload:     envelope.Payload,
		OccurredAt:  envelope.OccurredAt.UTC(),
	}

	if err := r.store.Append(ctx, record); err != nil {
		r.logger.Error("failed to record event",
			"event_id", record.ID,
			"event_type", record.EventType,
			"aggregate_id", record.AggregateID,
			"error", err,
		)
		return nil, storageError("append", err)
	}

	r.metrics.recorded(record.EventType)
	r.logger.Info("event recorded",
		"event_id", record.ID,
		"event_type", record.EventType,
		"aggregate_id", record.AggregateID,
	)
	return record, nil
}

func validateEnvelope(envelope *events.Envelope) error {
	if envelope == nil {
		return fmt.Errorf("%w: envelope is nil", ErrInvalidEvent)
	}
	if strings.TrimSpace(envelope.EventType) == "" {
		return fmt.Errorf("%w: event_type is required", ErrInvalidEvent)
	}
	if strings.TrimSpace(envelope.AggregateID) == "" {
		return fmt.Errorf("%w: aggregate_id is required", ErrInvalidEvent)
	}
	if len(envelope.Payload) == 0 {
		return fmt.Errorf("%w: payload is required", ErrInvalidEvent)
	}
	if !json.Valid(envelope.Payload) {
		return fmt.Errorf("%w: payload must be valid JSON", ErrInvalidEvent)
	}
	if envelope.OccurredAt.IsZero() {
		return fmt.Errorf("%w: occurred_at is required", ErrInvalidEvent)
	}
	return nil
}
