// Package debug provides a console debugging plugin that logs every
// committed event through slog.
package debug

import (
	"encoding/json"
	"log/slog"

	"github.com/randalmurphal/tracklayer/pkg/tracklayer/event"
)

// Plugin logs committed events. Register it with a plugin.Registry or
// wire it straight onto a layer with layer.On("*", p.AfterEvent).
type Plugin struct {
	logger  *slog.Logger
	verbose bool
}

// Option configures the debug plugin.
type Option func(*Plugin)

// Verbose includes the event payload, dimensions, and context snapshot
// in each log record.
func Verbose() Option {
	return func(p *Plugin) {
		p.verbose = true
	}
}

// New creates a debug plugin writing to logger.
func New(logger *slog.Logger, opts ...Option) *Plugin {
	p := &Plugin{logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements the plugin contract.
func (p *Plugin) Name() string {
	return "debug"
}

// AfterEvent logs one committed event.
func (p *Plugin) AfterEvent(evt *event.Event) {
	if p.logger == nil {
		return
	}

	attrs := []any{
		slog.String("event", evt.Name),
		slog.String("event_id", evt.ID),
		slog.String("timestamp", evt.Timestamp),
	}
	if evt.Source != nil {
		attrs = append(attrs, slog.String("source", evt.Source.Name))
	}
	if p.verbose {
		attrs = append(attrs,
			slog.String("data", compact(evt.Data)),
			slog.String("customDimensions", compact(evt.CustomDimensions)),
			slog.String("context", compact(evt.Context)),
		)
	}

	p.logger.Info("event", attrs...)
}

func compact(m map[string]any) string {
	if len(m) == 0 {
		return "{}"
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(raw)
}
