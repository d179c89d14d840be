package fruits

import (
	"context"
	"io"
	"log/slog"

	"github.com/cornjacket/fruit-storage/internal/shared/domain/events"
)

// mockRecorder implements Recorder for testing.
type mockRecorder struct {
	RecordAllFn func(ctx context.Context, evts ...events.DomainEvent) error
}

func (m *mockRecorder) RecordAll(ctx context.Context, evts ...events.DomainEvent) error {
	return m.RecordAllFn(ctx, evts...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func lemon() Snapshot {
	return Snapshot{
		FruitID:                "f1",
		Name:                   "lemon",
		Description:            "sour and yellow",
		LimitOfFruitToBeStored: 10,
		CurrentAmount:          0,
	}
}
