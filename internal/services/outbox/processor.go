package outbox

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cornjacket/fruit-storage/internal/shared/domain/clock"
)

const tracerName = "github.com/cornjacket/fruit-storage/internal/services/outbox"

// ProcessorConfig holds configuration for the outbox processor.
type ProcessorConfig struct {
	Interval   time.Duration
	MaxRetries int
}

func (c ProcessorConfig) withDefaults() ProcessorConfig {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	return c
}

// PassResult summarizes one committed pass.
type PassResult struct {
	Eligible     int
	Processed    int
	Failed       int
	DeadLettered int
}

// outcome is a staged per-record result awaiting commit.
type outcome struct {
	record EventRecord
	err    error
}

func (o outcome) deadLettered(maxRetries int) bool {
	return o.err != nil && o.record.RetryCount+1 >= maxRetries
}

// Processor drains eligible records from the store and dispatches them.
type Processor struct {
	store      Store
	dispatcher *Dispatcher
	config     ProcessorConfig
	metrics    *Metrics
	tracer     trace.Tracer
	logger     *slog.Logger

	running atomic.Bool
	wg      sync.WaitGroup
}

// NewProcessor creates a new outbox processor. metrics may be nil.
func NewProcessor(
	store Store,
	dispatcher *Dispatcher,
	config ProcessorConfig,
	metrics *Metrics,
	logger *slog.Logger,
) *Processor {
	return &Processor{
		store:      store,
		dispatcher: dispatcher,
		config:     config.withDefaults(),
		metrics:    metrics,
		tracer:     otel.Tracer(tracerName),
		logger:     logger.With("component", "outbox-processor"),
	}
}

// Start triggers a pass every interval until ctx is cancelled.
// A trigger that fires while a pass is still running is skipped.
// On cancellation it waits for the in-flight pass before returning.
func (p *Processor) Start(ctx context.Context) error {
	p.logger.Info("starting outbox processor",
		"interval", p.config.Interval,
		"max_retries", p.config.MaxRetries,
	)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.wg.Wait()
			p.logger.Info("outbox processor stopped")
			return nil

		case <-ticker.C:
			p.trigger(ctx)
		}
	}
}

func (p *Processor) trigger(ctx context.Context) {
	if p.running.Load() {
		p.logger.Debug("previous pass still running, skipping trigger")
		p.metrics.skipped()
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if _, err := p.RunPass(ctx); err != nil {
			if errors.Is(err, ErrPassInProgress) {
				p.logger.Debug("previous pass still running, skipping trigger")
				p.metrics.skipped()
				return
			}
			p.logger.Error("outbox pass rolled back", "error", err)
		}
	}()
}

// RunPass executes one processing pass: snapshot the eligible records,
// dispatch each in insertion order, then commit every outcome at once.
// Handler failures are contained per record. A storage failure rolls the
// whole pass back and is returned.
func (p *Processor) RunPass(ctx context.Context) (PassResult, error) {
	if !p.running.CompareAndSwap(false, true) {
		return PassResult{}, ErrPassInProgress
	}
	defer p.running.Store(false)

	ctx, span := p.tracer.Start(ctx, "outbox.pass")
	defer span.End()

	started := time.Now()
	result, err := p.runPass(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "pass rolled back")
		p.metrics.passFinished("rolled_back", time.Since(started))
		return PassResult{}, err
	}

	span.SetAttributes(
		attribute.Int("outbox.eligible", result.Eligible),
		attribute.Int("outbox.processed", result.Processed),
		attribute.Int("outbox.failed", result.Failed),
	)
	p.metrics.passFinished("committed", time.Since(started))
	return result, nil
}

func (p *Processor) runPass(ctx context.Context) (PassResult, error) {
	pass, err := p.store.BeginPass(ctx)
	if err != nil {
		return PassResult{}, storageError("begin pass", err)
	}
	defer func() {
		// No-op once committed.
		_ = pass.Rollback(context.WithoutCancel(ctx))
	}()

	records, err := pass.FetchEligible(ctx, p.config.MaxRetries)
	if err != nil {
		return PassResult{}, storageError("fetch eligible", err)
	}
	p.metrics.passStarted(len(records))

	if len(records) == 0 {
		if err := pass.Commit(ctx); err != nil {
			return PassResult{}, storageError("commit", err)
		}
		return PassResult{}, nil
	}

	p.logger.Debug("fetched eligible records", "count", len(records))

	outcomes := make([]outcome, 0, len(records))
	for i := range records {
		outcomes = append(outcomes, outcome{
			record: records[i],
			err:    p.dispatch(ctx, &records[i]),
		})
	}

	now := clock.Now()
	for _, o := range outcomes {
		if o.err == nil {
			if err := pass.MarkProcessed(ctx, o.record.ID, now); err != nil {
				return PassResult{}, storageError("mark processed", err)
			}
			continue
		}
		if err := pass.IncrementRetry(ctx, o.record.ID); err != nil {
			return PassResult{}, storageError("increment retry", err)
		}
	}

	if err := pass.Commit(ctx); err != nil {
		return PassResult{}, storageError("commit", err)
	}

	result := PassResult{Eligible: len(records)}
	for _, o := range outcomes {
		if o.err == nil {
			result.Processed++
			continue
		}
		result.Failed++
		if o.deadLettered(p.config.MaxRetries) {
			result.DeadLettered++
			p.logger.Warn("event dead-lettered",
				"event_id", o.record.ID,
				"event_type", o.record.EventType,
				"aggregate_id", o.record.AggregateID,
				"retry_count", o.record.RetryCount+1,
			)
		}
	}
	p.metrics.committed(outcomes, p.config.MaxRetries)

	p.logger.Info("outbox pass committed",
		"eligible", result.Eligible,
		"processed", result.Processed,
		"failed", result.Failed,
		"dead_lettered", result.DeadLettered,
	)
	return result, nil
}

// dispatch delivers one record and logs a handler failure. The returned
// error only decides which mutation gets staged.
func (p *Processor) dispatch(ctx context.Context, record *EventRecord) error {
	ctx, span := p.tracer.Start(ctx, "outbox.dispatch", trace.WithAttributes(
		attribute.String("event.id", record.ID.String()),
		attribute.String("event.type", record.EventType),
		attribute.String("event.aggregate_id", record.AggregateID),
	))
	defer span.End()

	err := p.dispatcher.Dispatch(WithRecord(ctx, record), record.EventType, record.Payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "handler failed")
		p.logger.Error("failed to handle event",
			"event_id", record.ID,
			"event_type", record.EventType,
			"aggregate_id", record.AggregateID,
			"retry_count", record.RetryCount,
			"error", err,
		)
	}
	return err
}
