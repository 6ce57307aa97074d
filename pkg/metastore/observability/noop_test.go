package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoopMetrics(t *testing.T) {
	var m MetricsRecorder = NoopMetrics{}
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordStatement(ctx, "insert", "t", time.Second, errors.New("x"))
		m.RecordPrune(ctx, "t", 4)
		m.RecordCheckpoint(ctx, "t", 10)
	})
}

func TestNoopSpanManager(t *testing.T) {
	var sm SpanManager = NoopSpanManager{}
	ctx := context.Background()

	newCtx, span := sm.StartStatementSpan(ctx, "select", "t")
	assert.Equal(t, ctx, newCtx)
	assert.False(t, span.IsRecording())

	newCtx, span = sm.StartRetentionSpan(ctx, "job")
	assert.Equal(t, ctx, newCtx)
	assert.False(t, span.SpanContext().IsValid())

	assert.NotPanics(t, func() {
		sm.AddSpanEvent(ctx, "event")
		sm.EndSpanWithError(span, errors.New("x"))
	})
}
