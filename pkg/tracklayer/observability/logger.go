// Package observability provides structured logging, metrics, and
// tracing for the event layer.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import "log/slog"

// EnrichLogger adds layer identity to a logger.
// Returns a new logger with source and source_version fields.
func EnrichLogger(logger *slog.Logger, source, version string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("source", source),
		slog.String("source_version", version),
	)
}

// LogEmit logs the start of an emit.
func LogEmit(logger *slog.Logger, name, id string) {
	if logger == nil {
		return
	}
	logger.Debug("event emitted",
		slog.String("event", name),
		slog.String("event_id", id),
	)
}

// LogCommit logs a committed event.
func LogCommit(logger *slog.Logger, name, id string, durationMs float64, subscribers int) {
	if logger == nil {
		return
	}
	logger.Debug("event committed",
		slog.String("event", name),
		slog.String("event_id", id),
		slog.Float64("duration_ms", durationMs),
		slog.Int("subscribers", subscribers),
	)
}

// LogDrop logs an event cancelled by the pipeline.
func LogDrop(logger *slog.Logger, name, id string) {
	if logger == nil {
		return
	}
	logger.Debug("event dropped by pipeline",
		slog.String("event", name),
		slog.String("event_id", id),
	)
}

// LogPipelineError logs a pipeline stage failure.
func LogPipelineError(logger *slog.Logger, name, id string, err error) {
	if logger == nil {
		return
	}
	logger.Error("pipeline failed",
		slog.String("event", name),
		slog.String("event_id", id),
		slog.String("error", err.Error()),
	)
}
