package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cornjacket/fruit-storage/internal/services/outbox"
)

func TestService_GetRecord_DerivesState(t *testing.T) {
	processedAt := time.Date(2024, 3, 1, 9, 0, 10, 0, time.UTC)

	tests := []struct {
		name   string
		modify func(r *outbox.EventRecord)
		want   outbox.RecordState
	}{
		{"pending", func(r *outbox.EventRecord) {}, outbox.StatePending},
		{"retrying", func(r *outbox.EventRecord) { r.RetryCount = 2 }, outbox.StatePending},
		{"processed", func(r *outbox.EventRecord) { r.Processed, r.ProcessedAt = true, &processedAt }, outbox.StateProcessed},
		{"dead lettered", func(r *outbox.EventRecord) { r.RetryCount = 3 }, outbox.StateDeadLettered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := newTestRecord()
			tt.modify(record)
			reader := &mockRecordReader{
				GetRecordFn: func(ctx context.Context, id uuid.UUID) (*outbox.EventRecord, error) {
					assert.Equal(t, record.ID, id)
					return record, nil
				},
			}
			svc := NewService(reader, 3, testLogger())

			view, err := svc.GetRecord(context.Background(), record.ID)

			require.NoError(t, err)
			assert.Equal(t, tt.want, view.State)
			assert.Equal(t, record.ID, view.ID)
		})
	}
}

func TestService_GetRecord_NotFound(t *testing.T) {
	reader := &mockRecordReader{
		GetRecordFn: func(ctx context.Context, id uuid.UUID) (*outbox.EventRecord, error) {
			return nil, outbox.ErrRecordNotFound
		},
	}
	svc := NewService(reader, 3, testLogger())

	_, err := svc.GetRecord(context.Background(), uuid.Must(uuid.NewV7()))

	assert.ErrorIs(t, err, outbox.ErrRecordNotFound)
}

func TestService_ListRecords_Pagination(t *testing.T) {
	tests := []struct {
		name       string
		limit      int
		offset     int
		wantLimit  int
		wantOffset int
	}{
		{"defaults", 0, 0, DefaultLimit, 0},
		{"explicit", 5, 10, 5, 10},
		{"clamped limit", 500, 0, MaxLimit, 0},
		{"negative offset", 10, -3, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := &mockRecordReader{
				ListRecordsFn: func(ctx context.Context, filter outbox.RecordFilter, limit, offset int) ([]outbox.EventRecord, int, error) {
					assert.Equal(t, tt.wantLimit, limit)
					assert.Equal(t, tt.wantOffset, offset)
					return []outbox.EventRecord{*newTestRecord()}, 42, nil
				},
			}
			svc := NewService(reader, 3, testLogger())

			list, err := svc.ListRecords(context.Background(), "", tt.limit, tt.offset)

			require.NoError(t, err)
			assert.Equal(t, tt.wantLimit, list.Limit)
			assert.Equal(t, tt.wantOffset, list.Offset)
			assert.Equal(t, 42, list.Total)
			require.Len(t, list.Records, 1)
			assert.Equal(t, outbox.StatePending, list.Records[0].State)
		})
	}
}

func TestService_ListRecords_PassesStateFilter(t *testing.T) {
	var got outbox.RecordFilter
	reader := &mockRecordReader{
		ListRecordsFn: func(ctx context.Context, filter outbox.RecordFilter, limit, offset int) ([]outbox.EventRecord, int, error) {
			got = filter
			return nil, 0, nil
		},
	}
	svc := NewService(reader, 5, testLogger())

	list, err := svc.ListRecords(context.Background(), "dead_lettered", 10, 0)

	require.NoError(t, err)
	assert.Equal(t, outbox.RecordFilter{State: outbox.StateDeadLettered, MaxRetries: 5}, got)
	assert.NotNil(t, list.Records)
	assert.Empty(t, list.Records)
}

func TestService_ListRecords_InvalidState(t *testing.T) {
	reader := &mockRecordReader{
		ListRecordsFn: func(ctx context.Context, filter outbox.RecordFilter, limit, offset int) ([]outbox.EventRecord, int, error) {
			t.Fatal("reader should not be called for an invalid state")
			return nil, 0, nil
		},
	}
	svc := NewService(reader, 3, testLogger())

	_, err := svc.ListRecords(context.Background(), "failed", 10, 0)

	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestService_ListRecords_ReaderError(t *testing.T) {
	reader := &mockRecordReader{
		ListRecordsFn: func(ctx context.Context, filter outbox.RecordFilter, limit, offset int) ([]outbox.EventRecord, int, error) {
			return nil, 0, errors.New("connection refused")
		},
	}
	svc := NewService(reader, 3, testLogger())

	_, err := svc.ListRecords(context.Background(), "", 10, 0)

	assert.EqualError(t, err, "connection refused")
}

func TestNewService_DefaultsMaxRetries(t *testing.T) {
	svc := NewService(&mockRecordReader{}, 0, testLogger())

	assert.Equal(t, outbox.DefaultMaxRetries, svc.maxRetries)
}
