package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records event-layer metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordEmit records an emit attempt with its pipeline outcome.
	RecordEmit(ctx context.Context, eventName string, committed bool, duration time.Duration)

	// RecordDrop records an event cancelled by the pipeline.
	RecordDrop(ctx context.Context, eventName string)

	// RecordHandlerError records a subscriber handler fault.
	RecordHandlerError(ctx context.Context, eventName string)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	emits           metric.Int64Counter
	drops           metric.Int64Counter
	handlerErrors   metric.Int64Counter
	pipelineLatency metric.Float64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("tracklayer")

	emits, err := meter.Int64Counter("tracklayer.events.emitted",
		metric.WithDescription("Number of emit calls"),
	)
	if err != nil {
		return nil, err
	}

	drops, err := meter.Int64Counter("tracklayer.events.dropped",
		metric.WithDescription("Number of events cancelled by the pipeline"),
	)
	if err != nil {
		return nil, err
	}

	handlerErrors, err := meter.Int64Counter("tracklayer.handler.errors",
		metric.WithDescription("Number of subscriber handler faults"),
	)
	if err != nil {
		return nil, err
	}

	pipelineLatency, err := meter.Float64Histogram("tracklayer.pipeline.latency_ms",
		metric.WithDescription("Pipeline execution latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		emits:           emits,
		drops:           drops,
		handlerErrors:   handlerErrors,
		pipelineLatency: pipelineLatency,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the
// provider before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordEmit records an emit attempt.
func (m *otelMetrics) RecordEmit(ctx context.Context, eventName string, committed bool, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("event.name", eventName),
		attribute.Bool("event.committed", committed),
	)
	m.emits.Add(ctx, 1, attrs)
	m.pipelineLatency.Record(ctx, float64(duration.Microseconds())/1000.0, attrs)
}

// RecordDrop records a pipeline cancellation.
func (m *otelMetrics) RecordDrop(ctx context.Context, eventName string) {
	m.drops.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event.name", eventName),
	))
}

// RecordHandlerError records a subscriber handler fault.
func (m *otelMetrics) RecordHandlerError(ctx context.Context, eventName string) {
	m.handlerErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event.name", eventName),
	))
}
