package fruits

import (
	"context"
	"sync"

	"github.com/cornjacket/fruit-storage/internal/shared/domain/events"
)

// Recorder durably records domain events.
// This interface is satisfied by outbox.Recorder.
type Recorder interface {
	RecordAll(ctx context.Context, evts ...events.DomainEvent) error
}

// PendingEvents buffers the events an aggregate raised during a mutation.
// They are recorded by Flush once the aggregate write has committed.
type PendingEvents struct {
	mu     sync.Mutex
	events []events.DomainEvent
}

// Raise appends an event to the buffer.
func (p *PendingEvents) Raise(event events.DomainEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

// Events returns a copy of the buffered events in raise order.
func (p *PendingEvents) Events() []events.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.DomainEvent(nil), p.events...)
}

// Len returns the number of buffered events.
func (p *PendingEvents) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

// Clear drops the buffered events without recording them.
func (p *PendingEvents) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

// Flush is the save/delete completion signal: it records every buffered
// event through recorder and empties the buffer, even when recording fails.
func (p *PendingEvents) Flush(ctx context.Context, recorder Recorder) error {
	p.mu.Lock()
	pending := p.events
	p.events = nil
	p.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}
	return recorder.RecordAll(ctx, pending...)
}
