package outbox

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Store is the durable event record table.
// This interface is owned by the outbox package.
// Infrastructure adapters (e.g., postgres) implement this interface.
type Store interface {
	// Append persists a new record with Processed=false and RetryCount=0.
	Append(ctx context.Context, record *EventRecord) error

	// BeginPass opens the atomic unit of work for one processing pass.
	BeginPass(ctx context.Context) (Pass, error)
}

// Pass is one processing pass's view of the store. Mutations are invisible
// to other readers until Commit succeeds; Rollback discards them and is safe
// to call after Commit.
type Pass interface {
	// FetchEligible returns unprocessed records with RetryCount below
	// retryCeiling, in insertion order, from a snapshot taken for this pass.
	FetchEligible(ctx context.Context, retryCeiling int) ([]EventRecord, error)

	// MarkProcessed sets Processed and ProcessedAt. Repeated calls are no-ops.
	MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) error

	// IncrementRetry adds one to RetryCount of an unprocessed record.
	IncrementRetry(ctx context.Context, id uuid.UUID) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// RecordReader reads committed records for inspection.
type RecordReader interface {
	GetRecord(ctx context.Context, id uuid.UUID) (*EventRecord, error)
	ListRecords(ctx context.Context, filter RecordFilter, limit, offset int) ([]EventRecord, int, error)
}
