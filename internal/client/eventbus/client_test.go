package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cornjacket/fruit-storage/internal/services/outbox"
)

func TestHandle_PublishesRecord(t *testing.T) {
	record := testRecord()
	var gotTopic, gotKey string
	var gotValue []byte
	var gotHeaders map[string]string

	pub := &mockPublisher{
		PublishFn: func(ctx context.Context, topic, key string, value []byte, headers map[string]string) error {
			gotTopic, gotKey, gotValue, gotHeaders = topic, key, value, headers
			return nil
		},
	}
	client := New(pub, "fruit-events", testLogger())

	err := client.Handle(outbox.WithRecord(context.Background(), record), record.Payload)

	require.NoError(t, err)
	assert.Equal(t, "fruit-events", gotTopic)
	assert.Equal(t, "f1", gotKey)
	assert.JSONEq(t, `{"name":"lemon"}`, string(gotValue))
	assert.Equal(t, map[string]string{
		HeaderEventID:    record.ID.String(),
		HeaderEventType:  "FruitCreated",
		HeaderOccurredAt: "2024-01-02T03:04:05Z",
	}, gotHeaders)
}

func TestHandle_PublishError(t *testing.T) {
	record := testRecord()
	broker := errors.New("broker unavailable")
	pub := &mockPublisher{
		PublishFn: func(ctx context.Context, topic, key string, value []byte, headers map[string]string) error {
			return broker
		},
	}
	client := New(pub, "fruit-events", testLogger())

	err := client.Handle(outbox.WithRecord(context.Background(), record), record.Payload)

	assert.ErrorIs(t, err, broker)
}

func TestHandle_NoRecordInContext(t *testing.T) {
	pub := &mockPublisher{
		PublishFn: func(ctx context.Context, topic, key string, value []byte, headers map[string]string) error {
			t.Fatal("Publish should not be called without a record")
			return nil
		},
	}
	client := New(pub, "fruit-events", testLogger())

	err := client.Handle(context.Background(), json.RawMessage(`{}`))

	assert.ErrorIs(t, err, errNoRecord)
}

func TestSubscribe_RelaysThroughProcessor(t *testing.T) {
	var published []string
	pub := &mockPublisher{
		PublishFn: func(ctx context.Context, topic, key string, value []byte, headers map[string]string) error {
			published = append(published, headers[HeaderEventType]+":"+key)
			return nil
		},
	}
	client := New(pub, "fruit-events", testLogger())

	dispatcher := outbox.NewDispatcher(testLogger())
	require.NoError(t, client.Subscribe(dispatcher, "FruitCreated", "FruitDeleted"))
	assert.Equal(t, 1, dispatcher.HandlerCount("FruitCreated"))
	assert.Equal(t, 0, dispatcher.HandlerCount("FruitUpdated"))

	store := outbox.NewMemoryStore()
	recorder := outbox.NewRecorder(store, nil, testLogger())
	for _, eventType := range []string{"FruitCreated", "FruitUpdated", "FruitDeleted"} {
		_, err := recorder.RecordEnvelope(context.Background(), envelope(eventType, "f1"))
		require.NoError(t, err)
	}

	proc := outbox.NewProcessor(store, dispatcher, outbox.ProcessorConfig{MaxRetries: 3}, nil, testLogger())
	result, err := proc.RunPass(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, []string{"FruitCreated:f1", "FruitDeleted:f1"}, published)
}

func TestSubscribe_EmptyEventType(t *testing.T) {
	client := New(&mockPublisher{}, "fruit-events", testLogger())

	err := client.Subscribe(outbox.NewDispatcher(testLogger()), "")

	assert.ErrorIs(t, err, outbox.ErrEventTypeRequired)
}
