// Package pipeline implements the ordered, cancellable transformation
// chain an event passes through before it is committed.
//
// Each stage returns an explicit Result instead of invoking a
// continuation callback: Continue advances the chain with a (possibly
// transformed) event, Stop halts it. Making the verdict a return value
// forces every stage to decide before it returns, so Execute is
// synchronous by construction and there is no deferred-completion
// ambiguity for callers of Execute.
package pipeline

import (
	"fmt"
	"sync"

	"github.com/randalmurphal/tracklayer/pkg/tracklayer/event"
)

// Result is a stage's verdict on an event.
type Result struct {
	evt  *event.Event
	stop bool
}

// Continue advances the chain with evt, which may be the stage's input
// or a transformed copy.
func Continue(evt *event.Event) Result {
	return Result{evt: evt}
}

// Stop halts the chain. The event is dropped silently: it will not be
// committed, and no further stage runs.
func Stop() Result {
	return Result{stop: true}
}

// Middleware is one stage of the chain. It must return before the
// chain advances; asynchronous work belongs before the return.
type Middleware func(evt *event.Event) Result

// StageError reports a stage that panicked or returned an invalid result.
type StageError struct {
	Index int
	Err   error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline stage %d: %v", e.Index, e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error {
	return e.Err
}

// Pipeline is an append-only ordered chain of middleware.
// Membership is structural: there is no removal primitive.
type Pipeline struct {
	mu     sync.RWMutex
	stages []Middleware
}

// New creates an empty pipeline.
func New() *Pipeline {
	return &Pipeline{}
}

// Use appends a stage to the chain.
func (p *Pipeline) Use(m Middleware) {
	if m == nil {
		return
	}
	p.mu.Lock()
	p.stages = append(p.stages, m)
	p.mu.Unlock()
}

// Len returns the number of registered stages.
func (p *Pipeline) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.stages)
}

// Execute runs the chain in registration order.
//
// Returns (final, true, nil) when every stage continued, and
// (nil, false, nil) when a stage stopped the chain. A stage panic or an
// invalid result (Continue with a nil event) halts the chain with a
// *StageError.
func (p *Pipeline) Execute(evt *event.Event) (*event.Event, bool, error) {
	p.mu.RLock()
	stages := p.stages
	p.mu.RUnlock()

	current := evt
	for i, stage := range stages {
		res, err := runStage(i, stage, current)
		if err != nil {
			return nil, false, err
		}
		if res.stop {
			return nil, false, nil
		}
		if res.evt == nil {
			return nil, false, &StageError{
				Index: i,
				Err:   fmt.Errorf("continued with nil event"),
			}
		}
		current = res.evt
	}

	return current, true, nil
}

// runStage invokes one stage, converting a panic into a *StageError.
func runStage(index int, stage Middleware, evt *event.Event) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &StageError{
				Index: index,
				Err:   fmt.Errorf("panic: %v", r),
			}
		}
	}()
	return stage(evt), nil
}
