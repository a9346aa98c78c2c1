// Package tracklayer is an in-process event-instrumentation core.
//
// A Layer turns ad-hoc application signals into structurally uniform,
// context-enriched event records, runs them through a cancellable
// middleware pipeline, stores a session-local history, and fans them
// out to pattern-matched subscribers.
//
// The layer is the substrate analytics adapters, persistence plugins,
// debug loggers, and validators build on: its only obligations to them
// are the Emit/On/Use entry points and the context/history accessors.
package tracklayer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/randalmurphal/tracklayer/pkg/tracklayer/ctxstate"
	"github.com/randalmurphal/tracklayer/pkg/tracklayer/event"
	"github.com/randalmurphal/tracklayer/pkg/tracklayer/observability"
	"github.com/randalmurphal/tracklayer/pkg/tracklayer/pipeline"
)

// Layer is the data-layer façade composing the context store, the
// middleware pipeline, and the event bus.
//
// Emit calls are serialized internally through the pipeline and
// commit, which preserves the per-emission ordering invariants even
// when callers are concurrent. Ordering across concurrent Emit
// callers is unspecified.
type Layer struct {
	source  *event.Source
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager

	bus   *event.Bus
	pipe  *pipeline.Pipeline
	state *ctxstate.Store

	mu      sync.Mutex
	history []*event.Event
	lastTS  time.Time
}

// New creates a layer.
func New(opts ...Option) *Layer {
	cfg := defaultLayerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	l := &Layer{
		source:  cfg.source,
		logger:  cfg.logger,
		metrics: cfg.metrics,
		spans:   cfg.spans,
		pipe:    pipeline.New(),
		state:   ctxstate.New(),
	}

	l.bus = event.NewBus(event.BusConfig{
		Logger: cfg.logger,
		OnHandlerError: func(evt *event.Event, pattern string, err error) {
			l.metrics.RecordHandlerError(context.Background(), evt.Name)
			if cfg.onHandlerError != nil {
				cfg.onHandlerError(evt, pattern, err)
				return
			}
			if cfg.logger != nil {
				cfg.logger.Error("event handler failed",
					slog.String("event", evt.Name),
					slog.String("event_id", evt.ID),
					slog.String("pattern", pattern),
					slog.String("error", err.Error()),
				)
			}
		},
	})

	return l
}

// Emit builds an event, drives it through the middleware pipeline and,
// if no stage cancels it, appends it to history and publishes it on
// the bus.
//
// The event is returned in both the committed and the cancelled case;
// cancellation is not an error. Whether an event committed is
// observable through Events, LastEvent, or a subscription. A stage
// panic fails Emit with a *pipeline.StageError.
//
// Bus handlers run after the internal lock is released, so a handler
// may call back into the layer (including Emit). Middleware runs under
// the lock and must not call Emit.
//
// data and dims may be nil.
func (l *Layer) Emit(name string, data, dims map[string]any) (*event.Event, error) {
	l.mu.Lock()

	evt := event.New(name,
		event.WithTimestamp(l.nextTimestamp()),
		event.WithContext(l.state.Snapshot()),
		event.WithData(data),
		event.WithCustomDimensions(dims),
		event.WithSource(l.source),
	)

	ctx, span := l.spans.StartEmitSpan(context.Background(), evt.Name, evt.ID)
	observability.LogEmit(l.logger, evt.Name, evt.ID)

	start := time.Now()
	final, ok, err := l.pipe.Execute(evt)
	elapsed := time.Since(start)

	if err != nil {
		l.mu.Unlock()
		observability.LogPipelineError(l.logger, evt.Name, evt.ID, err)
		l.metrics.RecordEmit(ctx, evt.Name, false, elapsed)
		l.spans.EndSpanWithError(span, err)
		return evt, err
	}

	if !ok {
		l.mu.Unlock()
		observability.LogDrop(l.logger, evt.Name, evt.ID)
		l.metrics.RecordEmit(ctx, evt.Name, false, elapsed)
		l.metrics.RecordDrop(ctx, evt.Name)
		l.spans.EndSpanWithError(span, nil)
		return evt, nil
	}

	l.history = append(l.history, final)
	l.mu.Unlock()

	l.bus.Emit(final)

	observability.LogCommit(l.logger, final.Name, final.ID,
		float64(elapsed.Microseconds())/1000.0, l.bus.SubscriberCount())
	l.metrics.RecordEmit(ctx, final.Name, true, elapsed)
	l.spans.EndSpanWithError(span, nil)

	return final, nil
}

// On registers handler for committed events whose name matches pattern
// (see event.MatchPattern for the grammar). The returned function
// unsubscribes and is idempotent.
func (l *Layer) On(pattern string, handler event.Handler) func() {
	return l.bus.On(pattern, handler)
}

// Use appends a middleware stage to the pipeline. Membership is
// structural for the life of the layer; Reset does not remove it.
func (l *Layer) Use(m pipeline.Middleware) {
	l.pipe.Use(m)
}

// Context returns the live ambient-context mapping.
// Callers must not rely on mutation isolation.
func (l *Layer) Context() map[string]any {
	return l.state.Get()
}

// SetContext replaces the ambient value at key wholesale.
func (l *Layer) SetContext(key string, value any) {
	l.state.Set(key, value)
}

// UpdateContext deep-merges partial into the ambient value at key.
func (l *Layer) UpdateContext(key string, partial map[string]any) {
	l.state.Update(key, partial)
}

// RemoveContext deletes the ambient value at key.
func (l *Layer) RemoveContext(key string) {
	l.state.Remove(key)
}

// Events returns the committed history in insertion order.
// The returned slice is a copy; the events are the stored values.
func (l *Layer) Events() []*event.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*event.Event, len(l.history))
	copy(out, l.history)
	return out
}

// LastEvent returns the most recently committed event, or false when
// history is empty.
func (l *Layer) LastEvent() (*event.Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.history) == 0 {
		return nil, false
	}
	return l.history[len(l.history)-1], true
}

// Reset clears history and ambient context. Middleware and
// subscriptions are structural, not session state, and survive.
func (l *Layer) Reset() {
	l.mu.Lock()
	l.history = nil
	l.mu.Unlock()
	l.state.Reset()
}

// Source returns the configured producing integration, if any.
func (l *Layer) Source() *event.Source {
	return l.source
}

// nextTimestamp returns the creation time for a new event, clamped so
// event timestamps never decrease relative to creation order even if
// the wall clock steps backwards. Caller holds l.mu.
func (l *Layer) nextTimestamp() time.Time {
	now := time.Now()
	if now.Before(l.lastTS) {
		now = l.lastTS
	}
	l.lastTS = now
	return now
}
