package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofrs/uuid/v5"

	"github.com/cornjacket/fruit-storage/internal/services/outbox"
)

// Pagination bounds for ListRecords.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

var ErrInvalidState = errors.New("invalid state")

// Service handles query business logic.
type Service struct {
	reader     RecordReader
	maxRetries int
	logger     *slog.Logger
}

// NewService creates a new query service. maxRetries must match the
// processor's dead-letter threshold so derived states agree with it.
func NewService(reader RecordReader, maxRetries int, logger *slog.Logger) *Service {
	if maxRetries <= 0 {
		maxRetries = outbox.DefaultMaxRetries
	}
	return &Service{
		reader:     reader,
		maxRetries: maxRetries,
		logger:     logger.With("service", "query"),
	}
}

// GetRecord retrieves one event record by id.
func (s *Service) GetRecord(ctx context.Context, id uuid.UUID) (*RecordView, error) {
	record, err := s.reader.GetRecord(ctx, id)
	if err != nil {
		if !errors.Is(err, outbox.ErrRecordNotFound) {
			s.logger.Error("failed to get event record", "event_id", id, "error", err)
		}
		return nil, err
	}

	view := newRecordView(*record, s.maxRetries)
	return &view, nil
}

// ListRecords retrieves event records in insertion order, optionally
// filtered by state.
func (s *Service) ListRecords(ctx context.Context, state string, limit, offset int) (*RecordList, error) {
	parsed, ok := outbox.ParseRecordState(state)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidState, state)
	}

	// Apply defaults and limits
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}

	filter := outbox.RecordFilter{State: parsed, MaxRetries: s.maxRetries}
	records, total, err := s.reader.ListRecords(ctx, filter, limit, offset)
	if err != nil {
		s.logger.Error("failed to list event records",
			"state", state,
			"limit", limit,
			"offset", offset,
			"error", err,
		)
		return nil, err
	}

	views := make([]RecordView, 0, len(records))
	for _, record := range records {
		views = append(views, newRecordView(record, s.maxRetries))
	}

	return &RecordList{
		Records: views,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	}, nil
}
