package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Config holds configuration for the ingestion service.
type Config struct {
	Port int
}

// RunningService represents a started ingestion service.
type RunningService struct {
	// Shutdown stops the HTTP server gracefully.
	Shutdown func(ctx context.Context) error
}

// Start starts the ingestion HTTP server in front of recorder.
// Server failures after startup are reported on errorCh.
func Start(ctx context.Context, cfg Config, recorder EventRecorder, logger *slog.Logger, errorCh chan<- error) (*RunningService, error) {
	logger = logger.With("service", "ingestion")

	// Wire service → handler → routes → HTTP server
	svc := NewService(recorder, logger)
	handler := NewHandler(svc, logger)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      otelhttp.NewHandler(mux, "ingestion"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting ingestion server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("ingestion server error", "error", err)
			errorCh <- fmt.Errorf("ingestion server failed: %w", err)
		}
	}()

	return &RunningService{
		Shutdown: func(shutdownCtx context.Context) error {
			logger.Info("shutting down ingestion service")
			return server.Shutdown(shutdownCtx)
		},
	}, nil
}
