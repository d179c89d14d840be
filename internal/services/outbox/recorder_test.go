package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cornjacket/fruit-storage/internal/shared/domain/events"
)

func TestRecorder_Record(t *testing.T) {
	store := NewMemoryStore()
	metrics := NewMetrics(prometheus.NewRegistry())
	r := NewRecorder(store, metrics, testLogger())

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	record, err := r.Record(context.Background(), testEvent{Type: "FruitCreated", Aggregate: "f1", Name: "lemon", At: at})

	require.NoError(t, err)
	assert.False(t, record.ID.IsNil())
	assert.Equal(t, "FruitCreated", record.EventType)
	assert.Equal(t, "f1", record.AggregateID)
	assert.Equal(t, at, record.OccurredAt)
	assert.JSONEq(t, `{"aggregateId":"f1","name":"lemon","dateTimeOccurred":"2024-01-02T03:04:05Z"}`, string(record.Payload))

	stored, err := store.GetRecord(context.Background(), record.ID)
	require.NoError(t, err)
	assert.False(t, stored.Processed)
	assert.Nil(t, stored.ProcessedAt)
	assert.Equal(t, 0, stored.RetryCount)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RecordedTotal.WithLabelValues("FruitCreated")))
}

func TestRecorder_RecordEnvelope_Validation(t *testing.T) {
	valid := func() *events.Envelope {
		return &events.Envelope{
			EventType:   "FruitCreated",
			AggregateID: "f1",
			OccurredAt:  time.Now(),
			Payload:     json.RawMessage(`{"name":"lemon"}`),
		}
	}

	tests := []struct {
		name   string
		modify func(e *events.Envelope)
		errMsg string
	}{
		{"missing event type", func(e *events.Envelope) { e.EventType = "" }, "event_type is required"},
		{"blank event type", func(e *events.Envelope) { e.EventType = "  " }, "event_type is required"},
		{"missing aggregate id", func(e *events.Envelope) { e.AggregateID = "" }, "aggregate_id is required"},
		{"missing payload", func(e *events.Envelope) { e.Payload = nil }, "payload is required"},
		{"invalid payload", func(e *events.Envelope) { e.Payload = json.RawMessage(`{bad`) }, "payload must be valid JSON"},
		{"zero occurred at", func(e *events.Envelope) { e.OccurredAt = time.Time{} }, "occurred_at is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStore{
				AppendFn: func(ctx context.Context, record *EventRecord) error {
					t.Fatal("Append should not be called for invalid input")
					return nil
				},
			}
			r := NewRecorder(store, nil, testLogger())

			envelope := valid()
			tt.modify(envelope)
			_, err := r.RecordEnvelope(context.Background(), envelope)

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidEvent)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestRecorder_RecordEnvelope_NilEnvelope(t *testing.T) {
	r := NewRecorder(NewMemoryStore(), nil, testLogger())

	_, err := r.RecordEnvelope(context.Background(), nil)

	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestRecorder_Record_StorageError(t *testing.T) {
	store := &mockStore{
		AppendFn: func(ctx context.Context, record *EventRecord) error {
			return errors.New("disk full")
		},
	}
	metrics := NewMetrics(prometheus.NewRegistry())
	r := NewRecorder(store, metrics, testLogger())

	record, err := r.Record(context.Background(), testEvent{Type: "FruitDeleted", Aggregate: "f1", At: time.Now()})

	assert.Nil(t, record)
	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "append", storageErr.Op)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.RecordedTotal.WithLabelValues("FruitDeleted")))
}

func TestRecorder_Record_NilEvent(t *testing.T) {
	r := NewRecorder(NewMemoryStore(), nil, testLogger())

	_, err := r.Record(context.Background(), nil)

	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestRecorder_RecordAll_ContinuesAfterFailure(t *testing.T) {
	var appended []string
	store := &mockStore{
		AppendFn: func(ctx context.Context, record *EventRecord) error {
			if record.AggregateID == "f2" {
				return errors.New("timeout")
			}
			appended = append(appended, record.AggregateID)
			return nil
		},
	}
	r := NewRecorder(store, nil, testLogger())

	err := r.RecordAll(context.Background(),
		testEvent{Type: "FruitCreated", Aggregate: "f1", At: time.Now()},
		testEvent{Type: "FruitCreated", Aggregate: "f2", At: time.Now()},
		testEvent{Type: "FruitCreated", Aggregate: "f3", At: time.Now()},
	)

	require.Error(t, err)
	var storageErr *StorageError
	assert.ErrorAs(t, err, &storageErr)
	assert.Equal(t, []string{"f1", "f3"}, appended)
}

func TestRecorder_RecordAll_Empty(t *testing.T) {
	r := NewRecorder(NewMemoryStore(), nil, testLogger())

	assert.NoError(t, r.RecordAll(context.Background()))
}
