package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Handler reacts to one delivered event payload.
type Handler interface {
	Handle(ctx context.Context, payload json.RawMessage) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) error

// Handle calls f(ctx, payload).
func (f HandlerFunc) Handle(ctx context.Context, payload json.RawMessage) error {
	return f(ctx, payload)
}

type recordKey struct{}

// WithRecord attaches the record being dispatched to ctx.
func WithRecord(ctx context.Context, record *EventRecord) context.Context {
	return context.WithValue(ctx, recordKey{}, record)
}

// RecordFromContext returns the record being dispatched, if any.
// Handlers use it to read correlation fields the payload does not carry.
func RecordFromContext(ctx context.Context) (*EventRecord, bool) {
	record, ok := ctx.Value(recordKey{}).(*EventRecord)
	return record, ok && record != nil
}

// Dispatcher maps event types to ordered handler lists.
// Handlers are registered at startup, before the processor starts.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   *slog.Logger
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string][]Handler),
		logger:   logger.With("component", "outbox-dispatcher"),
	}
}

// Register appends handler to the list for eventType.
func (d *Dispatcher) Register(eventType string, handler Handler) error {
	eventType = strings.TrimSpace(eventType)
	if eventType == "" {
		return ErrEventTypeRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}

	d.mu.Lock()
	d.handlers[eventType] = append(d.handlers[eventType], handler)
	count := len(d.handlers[eventType])
	d.mu.Unlock()

	d.logger.Info("registered handler", "event_type", eventType, "handlers", count)
	return nil
}

// RegisterFunc registers a plain function as a handler.
func (d *Dispatcher) RegisterFunc(eventType string, fn func(ctx context.Context, payload json.RawMessage) error) error {
	if fn == nil {
		return ErrHandlerRequired
	}
	return d.Register(eventType, HandlerFunc(fn))
}

// HandlerCount returns how many handlers are registered for eventType.
func (d *Dispatcher) HandlerCount(eventType string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers[eventType])
}

// Dispatch invokes every handler for eventType in registration order.
// The first failure stops the remaining handlers and is returned as a
// *HandlerError. An event type with no handlers succeeds without work.
func (d *Dispatcher) Dispatch(ctx context.Context, eventType string, payload json.RawMessage) error {
	d.mu.RLock()
	handlers := d.handlers[eventType]
	d.mu.RUnlock()

	if len(handlers) == 0 {
		d.logger.Debug("no handler for event type", "event_type", eventType)
		return nil
	}

	for i, handler := range handlers {
		if err := invoke(ctx, handler, payload); err != nil {
			return &HandlerError{EventType: eventType, Handler: i, Err: err}
		}
	}
	return nil
}

func invoke(ctx context.Context, handler Handler, payload json.RawMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler.Handle(ctx, payload)
}
