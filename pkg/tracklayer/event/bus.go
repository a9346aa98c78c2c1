package event

import (
	"fmt"
	"log/slog"
	"sync"
)

// Handler receives committed events.
type Handler func(evt *Event)

// BusConfig configures bus behavior.
type BusConfig struct {
	// OnHandlerError is called when a handler panics during dispatch.
	// The fan-out continues with the remaining handlers.
	OnHandlerError func(evt *Event, pattern string, err error)

	// Logger, if set, records handler faults when OnHandlerError is nil.
	Logger *slog.Logger
}

// Bus is a synchronous pattern-keyed publish/subscribe fan-out.
//
// Handlers run on the publisher's goroutine, strictly in registration
// order. A panicking handler is isolated: the panic is converted to an
// error, reported, and the remaining handlers still run.
type Bus struct {
	config BusConfig

	mu     sync.RWMutex
	subs   []*subscription
	nextID int64
}

type subscription struct {
	id      int64
	pattern string
	handler Handler
}

// NewBus creates a bus.
func NewBus(config BusConfig) *Bus {
	return &Bus{config: config}
}

// On registers handler for events whose name matches pattern (see
// MatchPattern for the grammar). Handlers fire in registration order.
//
// The returned function removes exactly this registration and is
// idempotent: calling it more than once is safe.
func (b *Bus) On(pattern string, handler Handler) func() {
	b.mu.Lock()
	b.nextID++
	sub := &subscription{
		id:      b.nextID,
		pattern: pattern,
		handler: handler,
	}
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.remove(sub.id)
		})
	}
}

// Emit synchronously invokes every currently-registered matching
// handler, in registration order.
//
// Dispatch iterates a snapshot of the registration list: handlers
// registered during dispatch do not receive the in-flight event, and
// unsubscribing during dispatch does not disturb the fan-out.
func (b *Bus) Emit(evt *Event) {
	if evt == nil {
		return
	}

	b.mu.RLock()
	matched := make([]*subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		if MatchPattern(sub.pattern, evt.Name) {
			matched = append(matched, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range matched {
		b.dispatch(sub, evt)
	}
}

// SubscriberCount returns the number of active registrations.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// dispatch invokes one handler, containing any panic.
func (b *Bus) dispatch(sub *subscription, evt *Event) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("handler panic: %v", r)
			b.reportHandlerError(evt, sub.pattern, err)
		}
	}()
	sub.handler(evt)
}

func (b *Bus) reportHandlerError(evt *Event, pattern string, err error) {
	if b.config.OnHandlerError != nil {
		b.config.OnHandlerError(evt, pattern, err)
		return
	}
	if b.config.Logger != nil {
		b.config.Logger.Error("event handler failed",
			slog.String("event", evt.Name),
			slog.String("event_id", evt.ID),
			slog.String("pattern", pattern),
			slog.String("error", err.Error()),
		)
	}
}

func (b *Bus) remove(id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subs {
		if sub.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}
