package query

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/cornjacket/fruit-storage/internal/services/outbox"
)

// RecordReader defines the read operations the query service needs.
// Satisfied by postgres.EventRecordRepo and outbox.MemoryStore.
type RecordReader interface {
	GetRecord(ctx context.Context, id uuid.UUID) (*outbox.EventRecord, error)
	ListRecords(ctx context.Context, filter outbox.RecordFilter, limit, offset int) ([]outbox.EventRecord, int, error)
}

// RecordView is an event record as returned by the query API.
type RecordView struct {
	outbox.EventRecord
	State outbox.RecordState `json:"state"`
}

// RecordList represents a paginated list of event records.
type RecordList struct {
	Records []RecordView `json:"records"`
	Total   int          `json:"total"`
	Limit   int          `json:"limit"`
	Offset  int          `json:"offset"`
}

func newRecordView(record outbox.EventRecord, maxRetries int) RecordView {
	if record.ProcessedAt != nil {
		at := record.ProcessedAt.UTC()
		record.ProcessedAt = &at
	}
	record.OccurredAt = record.OccurredAt.UTC()
	return RecordView{EventRecord: record, State: record.State(maxRetries)}
}
