package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cornjacket/fruit-storage/internal/services/outbox"
)

const recordColumns = `id, aggregate_id, event_type, payload, occurred_at, processed, processed_at, retry_count`

// EventRecordRepo implements outbox.Store and outbox.RecordReader using
// PostgreSQL. Each pass runs in one REPEATABLE READ transaction, so its
// snapshot ignores rows appended after the pass's first query.
type EventRecordRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewEventRecordRepo creates a new EventRecordRepo.
func NewEventRecordRepo(pool *pgxpool.Pool, logger *slog.Logger) *EventRecordRepo {
	return &EventRecordRepo{
		pool:   pool,
		logger: logger.With("repository", "event_records"),
	}
}

// Append inserts a new unprocessed record.
func (r *EventRecordRepo) Append(ctx context.Context, record *outbox.EventRecord) error {
	query := `
		INSERT INTO event_records (id, aggregate_id, event_type, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		record.ID,
		record.AggregateID,
		record.EventType,
		[]byte(record.Payload),
		record.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert into event_records: %w", err)
	}

	r.logger.Debug("event record inserted",
		"event_id", record.ID,
		"event_type", record.EventType,
	)
	return nil
}

// BeginPass opens the transaction that backs one processing pass.
func (r *EventRecordRepo) BeginPass(ctx context.Context) (outbox.Pass, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return nil, fmt.Errorf("failed to begin pass transaction: %w", err)
	}
	return &eventRecordPass{tx: tx, logger: r.logger}, nil
}

// GetRecord retrieves a committed record by id.
func (r *EventRecordRepo) GetRecord(ctx context.Context, id uuid.UUID) (*outbox.EventRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM event_records WHERE id = $1`

	record, err := scanRecord(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, outbox.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event record: %w", err)
	}
	return &record, nil
}

// ListRecords retrieves records matching filter in insertion order, with the
// total count of matches.
func (r *EventRecordRepo) ListRecords(ctx context.Context, filter outbox.RecordFilter, limit, offset int) ([]outbox.EventRecord, int, error) {
	where, args := stateCondition(filter)

	countSQL := `SELECT COUNT(*) FROM event_records WHERE ` + where
	var total int
	if err := r.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count event records: %w", err)
	}

	listSQL := fmt.Sprintf(`
		SELECT %s
		FROM event_records
		WHERE %s
		ORDER BY seq ASC
		LIMIT $%d OFFSET $%d
	`, recordColumns, where, len(args)+1, len(args)+2)

	rows, err := r.pool.Query(ctx, listSQL, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list event records: %w", err)
	}
	defer rows.Close()

	records, err := collectRecords(rows)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// stateCondition translates a state filter into a WHERE clause.
func stateCondition(filter outbox.RecordFilter) (string, []any) {
	switch filter.State {
	case outbox.StatePending:
		return `processed = FALSE AND retry_count < $1`, []any{filter.MaxRetries}
	case outbox.StateDeadLettered:
		return `processed = FALSE AND retry_count >= $1`, []any{filter.MaxRetries}
	case outbox.StateProcessed:
		return `processed = TRUE`, nil
	default:
		return `TRUE`, nil
	}
}

// eventRecordPass implements outbox.Pass over a pgx transaction.
type eventRecordPass struct {
	tx     pgx.Tx
	logger *slog.Logger
}

// FetchEligible locks the eligible rows for this pass. Rows locked by another
// pass are skipped rather than waited on.
func (p *eventRecordPass) FetchEligible(ctx context.Context, retryCeiling int) ([]outbox.EventRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM event_records
		WHERE processed = FALSE AND retry_count < $1
		ORDER BY seq ASC
		FOR UPDATE SKIP LOCKED
	`

	rows, err := p.tx.Query(ctx, query, retryCeiling)
	if err != nil {
		return nil, fmt.Errorf("failed to query eligible records: %w", err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

func (p *eventRecordPass) MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE event_records
		SET processed = TRUE, processed_at = $2
		WHERE id = $1 AND processed = FALSE
	`

	result, err := p.tx.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark record processed: %w", err)
	}
	if result.RowsAffected() == 0 {
		p.logger.Debug("record already processed", "event_id", id)
	}
	return nil
}

func (p *eventRecordPass) IncrementRetry(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE event_records
		SET retry_count = retry_count + 1
		WHERE id = $1 AND processed = FALSE
	`

	_, err := p.tx.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to increment retry count: %w", err)
	}
	return nil
}

func (p *eventRecordPass) Commit(ctx context.Context) error {
	if err := p.tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit pass: %w", err)
	}
	return nil
}

func (p *eventRecordPass) Rollback(ctx context.Context) error {
	err := p.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to roll back pass: %w", err)
	}
	return nil
}

func collectRecords(rows pgx.Rows) ([]outbox.EventRecord, error) {
	records := []outbox.EventRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event records: %w", err)
	}
	return records, nil
}

func scanRecord(row pgx.Row) (outbox.EventRecord, error) {
	var (
		record  outbox.EventRecord
		payload []byte
	)
	err := row.Scan(
		&record.ID,
		&record.AggregateID,
		&record.EventType,
		&payload,
		&record.OccurredAt,
		&record.Processed,
		&record.ProcessedAt,
		&record.RetryCount,
	)
	if err != nil {
		return outbox.EventRecord{}, err
	}
	record.Payload = payload
	record.OccurredAt = record.OccurredAt.UTC()
	if record.ProcessedAt != nil {
		at := record.ProcessedAt.UTC()
		record.ProcessedAt = &at
	}
	return record, nil
}

var (
	_ outbox.Store        = (*EventRecordRepo)(nil)
	_ outbox.RecordReader = (*EventRecordRepo)(nil)
)
