package outbox

import (
	"encoding/json"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Defaults for the processing cadence and dead-letter threshold.
const (
	DefaultInterval   = 10 * time.Second
	DefaultMaxRetries = 3
)

// EventRecord is one captured event plus its processing metadata.
// Only Processed, ProcessedAt and RetryCount change after insertion.
type EventRecord struct {
	ID          uuid.UUID       `json:"id"`
	AggregateID string          `json:"aggregate_id"`
	EventType   string          `json:"event_type"`
	Payload     json.RawMessage `json:"payload"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Processed   bool            `json:"processed"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
	RetryCount  int             `json:"retry_count"`
}

// RecordState is the lifecycle state derived from a record's metadata.
type RecordState string

const (
	StatePending      RecordState = "pending"
	StateProcessed    RecordState = "processed"
	StateDeadLettered RecordState = "dead_lettered"
)

// ParseRecordState validates a raw state filter. The empty string means "any".
func ParseRecordState(raw string) (RecordState, bool) {
	switch s := RecordState(raw); s {
	case "", StatePending, StateProcessed, StateDeadLettered:
		return s, true
	default:
		return "", false
	}
}

// State classifies the record against the dead-letter threshold.
func (r EventRecord) State(maxRetries int) RecordState {
	switch {
	case r.Processed:
		return StateProcessed
	case r.RetryCount >= maxRetries:
		return StateDeadLettered
	default:
		return StatePending
	}
}

// Eligible reports whether the record should be picked up by the next pass.
func (r EventRecord) Eligible(maxRetries int) bool {
	return r.State(maxRetries) == StatePending
}

// RecordFilter selects records for inspection.
type RecordFilter struct {
	State      RecordState
	MaxRetries int
}

// Matches reports whether the record passes the filter.
func (f RecordFilter) Matches(r EventRecord) bool {
	return f.State == "" || r.State(f.MaxRetries) == f.State
}
