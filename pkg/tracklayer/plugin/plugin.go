// Package plugin defines the plugin capability implemented by
// persistence, debug, and adapter collaborators, and a registry that
// manages their lifecycle against one layer instance.
//
// Hooks are optional: a plugin declares a capability by implementing
// the corresponding interface, and the registry invokes a hook only on
// plugins that declare it. Hook faults are contained; they never
// propagate to emitters.
package plugin

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/randalmurphal/tracklayer/pkg/tracklayer"
	"github.com/randalmurphal/tracklayer/pkg/tracklayer/event"
)

// Plugin is a named unit of external behavior.
type Plugin interface {
	Name() string
}

// Initializer is implemented by plugins that need setup at
// registration, such as restoring prior state by replaying stored
// events through the layer.
type Initializer interface {
	Initialize(layer *tracklayer.Layer) error
}

// Observer is implemented by plugins that watch committed events.
// AfterEvent is called once per commit, after storage and publication.
type Observer interface {
	AfterEvent(evt *event.Event)
}

// Destroyer is implemented by plugins that hold resources needing
// cleanup at teardown.
type Destroyer interface {
	Destroy() error
}

// Registry holds plugins registered against one layer.
type Registry struct {
	layer  *tracklayer.Layer
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]*entry
	order   []string
}

type entry struct {
	plugin      Plugin
	unsubscribe func()
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used to report hook faults.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates a registry bound to layer.
func NewRegistry(layer *tracklayer.Layer, opts ...RegistryOption) *Registry {
	r := &Registry{
		layer:   layer,
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a plugin. Initialize (if declared) runs once, before
// any event observation; if it fails the plugin is not registered.
// Observers are wired to the layer through a catch-all subscription.
//
// Duplicate names are rejected.
func (r *Registry) Register(p Plugin) error {
	if p == nil {
		return fmt.Errorf("nil plugin")
	}
	name := p.Name()
	if name == "" {
		return fmt.Errorf("plugin has empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("plugin %q already registered", name)
	}

	if init, ok := p.(Initializer); ok {
		if err := init.Initialize(r.layer); err != nil {
			return fmt.Errorf("initialize plugin %q: %w", name, err)
		}
	}

	e := &entry{plugin: p}
	if obs, ok := p.(Observer); ok {
		e.unsubscribe = r.layer.On("*", func(evt *event.Event) {
			r.observe(name, obs, evt)
		})
	}

	r.entries[name] = e
	r.order = append(r.order, name)
	return nil
}

// Unregister removes a plugin by name, unsubscribing its observer and
// running Destroy if declared. Unknown names are a no-op.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	e, ok := r.entries[name]
	if ok {
		delete(r.entries, name)
		for i, n := range r.order {
			if n == name {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
	}
	r.mu.Unlock()

	if !ok {
		return nil
	}
	return r.teardown(name, e)
}

// Plugins returns the registered plugin names in registration order.
func (r *Registry) Plugins() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Close unregisters every plugin in reverse registration order.
// The first teardown error is returned; teardown continues regardless.
func (r *Registry) Close() error {
	r.mu.Lock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	entries := make(map[string]*entry, len(r.entries))
	for n, e := range r.entries {
		entries[n] = e
	}
	r.entries = make(map[string]*entry)
	r.order = nil
	r.mu.Unlock()

	var firstErr error
	for i := len(names) - 1; i >= 0; i-- {
		if err := r.teardown(names[i], entries[names[i]]); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// observe invokes one AfterEvent hook, containing any panic.
func (r *Registry) observe(name string, obs Observer, evt *event.Event) {
	defer func() {
		if rec := recover(); rec != nil && r.logger != nil {
			r.logger.Error("plugin hook panicked",
				slog.String("plugin", name),
				slog.String("hook", "afterEvent"),
				slog.String("event", evt.Name),
				slog.Any("panic", rec),
			)
		}
	}()
	obs.AfterEvent(evt)
}

func (r *Registry) teardown(name string, e *entry) error {
	if e.unsubscribe != nil {
		e.unsubscribe()
	}
	if d, ok := e.plugin.(Destroyer); ok {
		if err := d.Destroy(); err != nil {
			if r.logger != nil {
				r.logger.Error("plugin destroy failed",
					slog.String("plugin", name),
					slog.String("error", err.Error()),
				)
			}
			return fmt.Errorf("destroy plugin %q: %w", name, err)
		}
	}
	return nil
}
