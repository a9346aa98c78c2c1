package tracklayer

import (
	"log/slog"

	"github.com/randalmurphal/tracklayer/pkg/tracklayer/config"
	"github.com/randalmurphal/tracklayer/pkg/tracklayer/event"
	"github.com/randalmurphal/tracklayer/pkg/tracklayer/observability"
)

// layerConfig holds construction-time configuration.
type layerConfig struct {
	source         *event.Source
	logger         *slog.Logger
	metrics        observability.MetricsRecorder
	spans          observability.SpanManager
	onHandlerError func(evt *event.Event, pattern string, err error)
}

func defaultLayerConfig() layerConfig {
	return layerConfig{
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
}

// Option configures a Layer at construction.
type Option func(*layerConfig)

// WithSource fixes the producing integration stamped on every event.
func WithSource(name, version string) Option {
	return func(c *layerConfig) {
		c.source = &event.Source{Name: name, Version: version}
	}
}

// WithLogger enables structured logging.
func WithLogger(logger *slog.Logger) Option {
	return func(c *layerConfig) {
		c.logger = logger
	}
}

// WithMetrics enables metrics recording.
// Pass observability.NewMetricsRecorder() for OpenTelemetry metrics.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(c *layerConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithTracing enables trace spans around Emit.
// Pass observability.NewSpanManager() for OpenTelemetry tracing.
func WithTracing(s observability.SpanManager) Option {
	return func(c *layerConfig) {
		if s != nil {
			c.spans = s
		}
	}
}

// WithHandlerErrorFunc overrides how subscriber handler faults are
// reported. The default logs them through the configured logger.
func WithHandlerErrorFunc(fn func(evt *event.Event, pattern string, err error)) Option {
	return func(c *layerConfig) {
		c.onHandlerError = fn
	}
}

// FromConfig derives layer options from a loaded configuration.
//
// Recognized keys:
//
//	source:
//	  name: checkout-web
//	  version: 2.4.0
//	observability:
//	  metrics: true
//	  tracing: true
func FromConfig(cfg config.Config) []Option {
	var opts []Option

	src := cfg.Sub("source")
	if name := src.String("name", ""); name != "" {
		opts = append(opts, WithSource(name, src.String("version", "")))
	}

	obs := cfg.Sub("observability")
	if obs.Bool("metrics", false) {
		opts = append(opts, WithMetrics(observability.NewMetricsRecorder()))
	}
	if obs.Bool("tracing", false) {
		opts = append(opts, WithTracing(observability.NewSpanManager()))
	}

	return opts
}
