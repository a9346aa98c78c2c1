package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTracingTest creates a test tracer provider with an in-memory
// span recorder.
func setupTracingTest(t *testing.T) (*tracetest.InMemoryExporter, func()) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
	)

	originalProvider := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	// Update the package-level tracer
	tracer = otel.Tracer("tracklayer")

	cleanup := func() {
		otel.SetTracerProvider(originalProvider)
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down tracer provider: %v", err)
		}
	}

	return exporter, cleanup
}

func TestStartEmitSpan(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	sm := NewSpanManager()

	ctx := context.Background()
	_, span := sm.StartEmitSpan(ctx, "page.view", "id-1")
	require.NotNil(t, span)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	s := spans[0]
	assert.Equal(t, "tracklayer.emit", s.Name)

	var eventName, eventID string
	for _, attr := range s.Attributes {
		switch attr.Key {
		case "event.name":
			eventName = attr.Value.AsString()
		case "event.id":
			eventID = attr.Value.AsString()
		}
	}
	assert.Equal(t, "page.view", eventName)
	assert.Equal(t, "id-1", eventID)
}

func TestEndSpanWithError(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	sm := NewSpanManager()

	t.Run("success sets ok status", func(t *testing.T) {
		exporter.Reset()
		_, span := sm.StartEmitSpan(context.Background(), "t.test", "id")
		sm.EndSpanWithError(span, nil)

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Ok, spans[0].Status.Code)
	})

	t.Run("error records status and event", func(t *testing.T) {
		exporter.Reset()
		_, span := sm.StartEmitSpan(context.Background(), "t.test", "id")
		sm.EndSpanWithError(span, errors.New("stage failed"))

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Error, spans[0].Status.Code)
		assert.Equal(t, "stage failed", spans[0].Status.Description)
	})

	t.Run("nil span is tolerated", func(t *testing.T) {
		sm.EndSpanWithError(nil, errors.New("x"))
	})
}

func TestAddSpanEvent(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	sm := NewSpanManager()

	ctx, span := sm.StartEmitSpan(context.Background(), "t.test", "id")
	sm.AddSpanEvent(ctx, "pipeline.stop", attribute.Int("stage", 2))
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "pipeline.stop", spans[0].Events[0].Name)
}
