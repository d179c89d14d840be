package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cornjacket/fruit-storage/internal/client/eventbus"
	"github.com/cornjacket/fruit-storage/internal/fruits"
	"github.com/cornjacket/fruit-storage/internal/services/ingestion"
	"github.com/cornjacket/fruit-storage/internal/services/outbox"
	"github.com/cornjacket/fruit-storage/internal/services/query"
	"github.com/cornjacket/fruit-storage/internal/shared/config"
	"github.com/cornjacket/fruit-storage/internal/shared/infra/postgres"
	"github.com/cornjacket/fruit-storage/internal/shared/infra/redpanda"
	"github.com/cornjacket/fruit-storage/internal/shared/infra/telemetry"
)

// eventStore is what the process needs from the event record table.
type eventStore interface {
	outbox.Store
	outbox.RecordReader
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("starting fruitstore",
		"ingestion_port", cfg.PortIngestion,
		"query_port", cfg.PortQuery,
		"metrics_port", cfg.PortMetrics,
		"store_driver", cfg.StoreDriver,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:      cfg.OtelEnabled,
		ServiceName:  "fruitstore",
		OTLPEndpoint: cfg.OtelEndpoint,
		SampleRatio:  cfg.OtelSampleRatio,
	})
	if err != nil {
		slog.Error("failed to set up tracing", "error", err)
		os.Exit(1)
	}

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		slog.Error("failed to open event record store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := outbox.NewMetrics(registry)

	// Register handlers before the processor starts
	dispatcher := outbox.NewDispatcher(logger)
	if err := fruits.NewAuditHandler(logger).Subscribe(dispatcher); err != nil {
		slog.Error("failed to register audit handler", "error", err)
		os.Exit(1)
	}

	if brokers := cfg.Brokers(); len(brokers) > 0 {
		producer, err := redpanda.NewProducer(brokers, logger)
		if err != nil {
			slog.Error("failed to create Redpanda producer", "error", err)
			os.Exit(1)
		}
		defer producer.Close()

		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		if err := producer.Ping(pingCtx); err != nil {
			slog.Warn("Redpanda brokers unreachable, relayed events will retry", "brokers", brokers, "error", err)
		}
		pingCancel()

		relay := eventbus.New(producer, cfg.RedpandaTopic, logger)
		if err := relay.Subscribe(dispatcher, fruits.EventTypes()...); err != nil {
			slog.Error("failed to register event bus relay", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Info("event bus relay disabled, no brokers configured")
	}

	errorCh := make(chan error, 3)

	// Start services
	outboxSvc, err := outbox.Start(ctx, outbox.Config{
		Interval:   cfg.OutboxInterval(),
		MaxRetries: cfg.OutboxMaxRetries,
	}, store, dispatcher, metrics, logger)
	if err != nil {
		slog.Error("failed to start outbox processor", "error", err)
		os.Exit(1)
	}

	recorder := outbox.NewRecorder(store, metrics, logger)
	ingestionSvc, err := ingestion.Start(ctx, ingestion.Config{
		Port: cfg.PortIngestion,
	}, recorder, logger, errorCh)
	if err != nil {
		slog.Error("failed to start ingestion service", "error", err)
		os.Exit(1)
	}

	querySvc, err := query.Start(ctx, query.Config{
		Port:       cfg.PortQuery,
		MaxRetries: cfg.OutboxMaxRetries,
	}, store, logger, errorCh)
	if err != nil {
		slog.Error("failed to start query service", "error", err)
		os.Exit(1)
	}

	metricsServer := startMetricsServer(cfg.PortMetrics, registry, errorCh)

	// Wait for shutdown signal or a server failure
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig)
	case err := <-errorCh:
		slog.Error("server failed", "error", err)
		exitCode = 1
	}

	// Graceful shutdown (reverse order)
	slog.Info("shutting down services...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics server shutdown error", "error", err)
	}
	if err := querySvc.Shutdown(shutdownCtx); err != nil {
		slog.Error("query service shutdown error", "error", err)
	}
	if err := ingestionSvc.Shutdown(shutdownCtx); err != nil {
		slog.Error("ingestion service shutdown error", "error", err)
	}
	if err := outboxSvc.Shutdown(shutdownCtx); err != nil {
		slog.Error("outbox processor shutdown error", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		slog.Error("tracer shutdown error", "error", err)
	}

	slog.Info("fruitstore stopped")
	if exitCode != 0 {
		closeStore()
		os.Exit(exitCode)
	}
}

// openStore opens the configured event record store. The returned func
// releases its resources.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (eventStore, func(), error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		slog.Warn("using in-memory event record store, records are lost on exit")
		return outbox.NewMemoryStore(), func() {}, nil
	}

	if err := postgres.RunMigrations(cfg.DatabaseURL, outbox.Migrations, "migrations", outbox.MigrationsTable, logger); err != nil {
		return nil, nil, err
	}

	client, err := postgres.NewClient(ctx, cfg.DatabaseURL, postgres.DefaultPoolConfig(), logger)
	if err != nil {
		return nil, nil, err
	}

	return postgres.NewEventRecordRepo(client.Pool(), logger), client.Close, nil
}

// startMetricsServer serves the Prometheus registry on /metrics.
func startMetricsServer(port int, registry *prometheus.Registry, errorCh chan<- error) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("starting metrics server", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errorCh <- fmt.Errorf("metrics server failed: %w", err)
		}
	}()

	return server
}

// newLogger creates a structured logger based on configuration.
func newLogger(level, format string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
