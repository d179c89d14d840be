package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cornjacket/fruit-storage/internal/shared/domain/clock"
	"github.com/cornjacket/fruit-storage/internal/shared/domain/events"
)

// ErrValidation marks a request the caller must fix.
var ErrValidation = errors.New("validation failed")

// Service handles event ingestion business logic.
type Service struct {
	recorder EventRecorder
	logger   *slog.Logger
}

// NewService creates a new ingestion service.
func NewService(recorder EventRecorder, logger *slog.Logger) *Service {
	return &Service{
		recorder: recorder,
		logger:   logger.With("service", "ingestion"),
	}
}

// IngestRequest represents an incoming event ingestion request.
type IngestRequest struct {
	EventType   string          `json:"event_type"`
	AggregateID string          `json:"aggregate_id"`
	OccurredAt  *time.Time      `json:"occurred_at,omitempty"`
	Payload     json.RawMessage `json:"payload"`
}

// IngestResponse is returned after successful ingestion.
type IngestResponse struct {
	EventID string `json:"event_id"`
	Status  string `json:"status"`
}

// Ingest validates a request and records it in the outbox.
// occurred_at defaults to the current time.
func (s *Service) Ingest(ctx context.Context, req *IngestRequest) (*IngestResponse, error) {
	if err := s.validate(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	occurredAt := clock.Now()
	if req.OccurredAt != nil {
		occurredAt = req.OccurredAt.UTC()
	}

	record, err := s.recorder.RecordEnvelope(ctx, &events.Envelope{
		EventType:   req.EventType,
		AggregateID: req.AggregateID,
		OccurredAt:  occurredAt,
		Payload:     req.Payload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record event: %w", err)
	}

	s.logger.Info("event ingested",
		"event_id", record.ID,
		"event_type", record.EventType,
		"aggregate_id", record.AggregateID,
	)

	return &IngestResponse{
		EventID: record.ID.String(),
		Status:  "accepted",
	}, nil
}

func (s *Service) validate(req *IngestRequest) error {
	if req.EventType == "" {
		return fmt.Errorf("event_type is required")
	}
	if req.AggregateID == "" {
		return fmt.Errorf("aggregate_id is required")
	}
	if len(req.Payload) == 0 {
		return fmt.Errorf("payload is required")
	}
	if !json.Valid(req.Payload) {
		return fmt.Errorf("payload must be valid JSON")
	}
	if req.OccurredAt != nil && req.OccurredAt.IsZero() {
		return fmt.Errorf("occurred_at must not be zero")
	}
	return nil
}
