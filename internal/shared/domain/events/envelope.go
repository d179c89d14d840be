package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// DomainEvent is implemented by every event an aggregate raises.
type DomainEvent interface {
	// EventType names the concrete kind of event (e.g., "FruitCreated").
	EventType() string

	// AggregateID identifies the aggregate that raised the event.
	AggregateID() string

	// OccurredAt is when the producer constructed the event.
	OccurredAt() time.Time
}

// Envelope is a domain event flattened for the outbox: the discriminator,
// correlation fields and the serialized event as payload.
type Envelope struct {
	// EventType is the discriminator (e.g., "FruitCreated")
	EventType string `json:"event_type"`

	// AggregateID correlates the event with its aggregate
	AggregateID string `json:"aggregate_id"`

	// OccurredAt is the producer-supplied event time
	OccurredAt time.Time `json:"occurred_at"`

	// Payload is the serialized event
	Payload json.RawMessage `json:"payload"`
}

// NewEnvelope serializes a domain event into an envelope.
// The whole event value becomes the payload.
func NewEnvelope(event DomainEvent) (*Envelope, error) {
	if event == nil {
		return nil, fmt.Errorf("domain event is nil")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", event.EventType(), err)
	}

	return &Envelope{
		EventType:   event.EventType(),
		AggregateID: event.AggregateID(),
		OccurredAt:  event.OccurredAt().UTC(),
		Payload:     payload,
	}, nil
}

// ParsePayload unmarshals the payload into the provided value.
func (e *Envelope) ParsePayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}
