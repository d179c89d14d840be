package outbox

import (
	"context"
	"log/slog"
	"time"
)

// Config holds configuration for the outbox service.
type Config struct {
	Interval   time.Duration
	MaxRetries int
}

// RunningService represents a started outbox processor.
type RunningService struct {
	// Shutdown stops future triggers and waits for an in-flight pass to exit.
	// That pass sees a cancelled context and is abandoned, not drained: its
	// staged outcomes roll back and the records are redelivered next start.
	Shutdown func(ctx context.Context) error
}

// Start starts the background processor over store.
// Handlers must already be registered on dispatcher.
func Start(ctx context.Context, cfg Config, store Store, dispatcher *Dispatcher, metrics *Metrics, logger *slog.Logger) (*RunningService, error) {
	logger = logger.With("service", "outbox")

	proc := NewProcessor(
		store,
		dispatcher,
		ProcessorConfig{
			Interval:   cfg.Interval,
			MaxRetries: cfg.MaxRetries,
		},
		metrics,
		logger,
	)

	procCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		if err := proc.Start(procCtx); err != nil {
			logger.Error("outbox processor error", "error", err)
		}
	}()

	return &RunningService{
		Shutdown: func(shutdownCtx context.Context) error {
			logger.Info("shutting down outbox service")
			cancel()
			select {
			case <-done:
				return nil
			case <-shutdownCtx.Done():
				return shutdownCtx.Err()
			}
		},
	}, nil
}
