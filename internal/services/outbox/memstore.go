package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
)

var errPassClosed = errors.New("pass already closed")

// MemoryStore is an in-process Store and RecordReader. A pass works on a
// snapshot and stages its mutations, which Commit applies under the lock.
// Records do not survive a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records []EventRecord
	index   map[uuid.UUID]int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{index: make(map[uuid.UUID]int)}
}

// Append adds a new unprocessed record.
func (s *MemoryStore) Append(ctx context.Context, record *EventRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("record is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[record.ID]; exists {
		return fmt.Errorf("duplicate record id %s", record.ID)
	}

	stored := cloneRecord(*record)
	stored.Processed = false
	stored.ProcessedAt = nil
	stored.RetryCount = 0

	s.index[stored.ID] = len(s.records)
	s.records = append(s.records, stored)
	return nil
}

// BeginPass opens a pass over the current records.
func (s *MemoryStore) BeginPass(ctx context.Context) (Pass, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memoryPass{store: s}, nil
}

// GetRecord returns a committed record by id.
func (s *MemoryStore) GetRecord(ctx context.Context, id uuid.UUID) (*EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	record := cloneRecord(s.records[i])
	return &record, nil
}

// ListRecords returns matching records in insertion order plus the total
// number of matches.
func (s *MemoryStore) ListRecords(ctx context.Context, filter RecordFilter, limit, offset int) ([]EventRecord, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		page  []EventRecord
		total int
	)
	for _, r := range s.records {
		if !filter.Matches(r) {
			continue
		}
		if total >= offset && len(page) < limit {
			page = append(page, cloneRecord(r))
		}
		total++
	}
	return page, total, nil
}

type stagedOp struct {
	id        uuid.UUID
	processed bool
	at        time.Time
}

type memoryPass struct {
	store  *MemoryStore
	staged []stagedOp
	closed bool
}

func (p *memoryPass) FetchEligible(ctx context.Context, retryCeiling int) ([]EventRecord, error) {
	if p.closed {
		return nil, errPassClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.store.mu.RLock()
	defer p.store.mu.RUnlock()

	var eligible []EventRecord
	for _, r := range p.store.records {
		if r.Eligible(retryCeiling) {
			eligible = append(eligible, cloneRecord(r))
		}
	}
	return eligible, nil
}

func (p *memoryPass) MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) error {
	return p.stage(id, stagedOp{id: id, processed: true, at: at})
}

func (p *memoryPass) IncrementRetry(ctx context.Context, id uuid.UUID) error {
	return p.stage(id, stagedOp{id: id})
}

func (p *memoryPass) stage(id uuid.UUID, op stagedOp) error {
	if p.closed {
		return errPassClosed
	}

	p.store.mu.RLock()
	_, ok := p.store.index[id]
	p.store.mu.RUnlock()
	if !ok {
		return ErrRecordNotFound
	}

	p.staged = append(p.staged, op)
	return nil
}

func (p *memoryPass) Commit(ctx context.Context) error {
	if p.closed {
		return errPassClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p.closed = true

	p.store.mu.Lock()
	defer p.store.mu.Unlock()

	for _, op := range p.staged {
		r := &p.store.records[p.store.index[op.id]]
		if r.Processed {
			continue
		}
		if op.processed {
			at := op.at
			r.Processed = true
			r.ProcessedAt = &at
			continue
		}
		r.RetryCount++
	}
	p.staged = nil
	return nil
}

func (p *memoryPass) Rollback(ctx context.Context) error {
	p.closed = true
	p.staged = nil
	return nil
}

func cloneRecord(r EventRecord) EventRecord {
	if r.Payload != nil {
		r.Payload = append([]byte(nil), r.Payload...)
	}
	if r.ProcessedAt != nil {
		at := *r.ProcessedAt
		r.ProcessedAt = &at
	}
	return r
}
