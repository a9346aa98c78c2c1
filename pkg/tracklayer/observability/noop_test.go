package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// The no-op implementations must be safe to call with zero setup.
func TestNoopMetrics(t *testing.T) {
	m := NoopMetrics{}
	ctx := context.Background()

	m.RecordEmit(ctx, "page.view", true, time.Millisecond)
	m.RecordDrop(ctx, "page.view")
	m.RecordHandlerError(ctx, "page.*")
}

func TestNoopSpanManager(t *testing.T) {
	sm := NoopSpanManager{}

	ctx, span := sm.StartEmitSpan(context.Background(), "t.test", "id")
	assert.NotNil(t, ctx)
	assert.NotNil(t, span)

	sm.EndSpanWithError(span, nil)
	sm.AddSpanEvent(ctx, "anything")
}
