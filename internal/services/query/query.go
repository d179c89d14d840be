package query

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Config holds configuration for the query service.
type Config struct {
	Port int
	// MaxRetries is the dead-letter threshold used to derive record states.
	MaxRetries int
}

// RunningService represents a started query service.
type RunningService struct {
	// Shutdown stops the HTTP server gracefully.
	Shutdown func(ctx context.Context) error
}

// Start starts the query HTTP server over reader.
func Start(ctx context.Context, cfg Config, reader RecordReader, logger *slog.Logger, errorCh chan<- error) (*RunningService, error) {
	logger = logger.With("service", "query")

	// Wire service → handler → routes → HTTP server
	svc := NewService(reader, cfg.MaxRetries, logger)
	handler := NewHandler(svc, logger)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      otelhttp.NewHandler(mux, "query"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting query server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("query server error", "error", err)
			errorCh <- fmt.Errorf("query server failed: %w", err)
		}
	}()

	return &RunningService{
		Shutdown: func(shutdownCtx context.Context) error {
			logger.Info("shutting down query service")
			return server.Shutdown(shutdownCtx)
		},
	}, nil
}
