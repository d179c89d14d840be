package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/gofrs/uuid/v5"
)

// mockStore implements Store for testing.
type mockStore struct {
	AppendFn    func(ctx context.Context, record *EventRecord) error
	BeginPassFn func(ctx context.Context) (Pass, error)
}

func (m *mockStore) Append(ctx context.Context, record *EventRecord) error {
	return m.AppendFn(ctx, record)
}

func (m *mockStore) BeginPass(ctx context.Context) (Pass, error) {
	return m.BeginPassFn(ctx)
}

// mockPass implements Pass for testing.
type mockPass struct {
	FetchEligibleFn  func(ctx context.Context, retryCeiling int) ([]EventRecord, error)
	MarkProcessedFn  func(ctx context.Context, id uuid.UUID, at time.Time) error
	IncrementRetryFn func(ctx context.Context, id uuid.UUID) error
	CommitFn         func(ctx context.Context) error
	RollbackFn       func(ctx context.Context) error
}

func (m *mockPass) FetchEligible(ctx context.Context, retryCeiling int) ([]EventRecord, error) {
	return m.FetchEligibleFn(ctx, retryCeiling)
}

func (m *mockPass) MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) error {
	return m.MarkProcessedFn(ctx, id, at)
}

func (m *mockPass) IncrementRetry(ctx context.Context, id uuid.UUID) error {
	return m.IncrementRetryFn(ctx, id)
}

func (m *mockPass) Commit(ctx context.Context) error {
	return m.CommitFn(ctx)
}

func (m *mockPass) Rollback(ctx context.Context) error {
	if m.RollbackFn == nil {
		return nil
	}
	return m.RollbackFn(ctx)
}

// failingCommitStore wraps a MemoryStore and fails the next N commits.
type failingCommitStore struct {
	*MemoryStore
	failCommits int
}

func (s *failingCommitStore) BeginPass(ctx context.Context) (Pass, error) {
	pass, err := s.MemoryStore.BeginPass(ctx)
	if err != nil {
		return nil, err
	}
	if s.failCommits > 0 {
		s.failCommits--
		return &failingCommitPass{Pass: pass}, nil
	}
	return pass, nil
}

type failingCommitPass struct {
	Pass
}

func (p *failingCommitPass) Commit(ctx context.Context) error {
	_ = p.Pass.Rollback(ctx)
	return errCommitFailed
}

var errCommitFailed = errors.New("commit failed")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testEvent is a minimal DomainEvent.
type testEvent struct {
	Type      string    `json:"-"`
	Aggregate string    `json:"aggregateId"`
	Name      string    `json:"name"`
	At        time.Time `json:"dateTimeOccurred"`
}

func (e testEvent) EventType() string     { return e.Type }
func (e testEvent) AggregateID() string   { return e.Aggregate }
func (e testEvent) OccurredAt() time.Time { return e.At }

func appendRecord(s *MemoryStore, eventType, aggregateID, payload string) EventRecord {
	record := EventRecord{
		ID:          uuid.Must(uuid.NewV7()),
		AggregateID: aggregateID,
		EventType:   eventType,
		Payload:     json.RawMessage(payload),
		OccurredAt:  time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := s.Append(context.Background(), &record); err != nil {
		panic(err)
	}
	return record
}
