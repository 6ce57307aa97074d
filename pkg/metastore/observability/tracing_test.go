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
	"go.opentelemetry.io/otel/trace"
)

// setupTracingTest installs an in-memory tracer provider for the test.
func setupTracingTest(t *testing.T) (*tracetest.InMemoryExporter, func()) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	originalProvider := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	tracer = otel.Tracer("metastore")

	cleanup := func() {
		otel.SetTracerProvider(originalProvider)
		tracer = otel.Tracer("metastore")
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down tracer provider: %v", err)
		}
	}
	return exporter, cleanup
}

func attrValue(attrs []attribute.KeyValue, key string) string {
	for _, a := range attrs {
		if string(a.Key) == key {
			return a.Value.AsString()
		}
	}
	return ""
}

func TestStartStatementSpan(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	sm := NewSpanManager()
	ctx, span := sm.StartStatementSpan(context.Background(), "insert", "ks.tbl")
	require.NotNil(t, span)
	assert.True(t, trace.SpanFromContext(ctx).SpanContext().IsValid())
	sm.EndSpanWithError(span, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	s := spans[0]
	assert.Equal(t, "metastore.statement.insert", s.Name)
	assert.Equal(t, trace.SpanKindClient, s.SpanKind)
	assert.Equal(t, "insert", attrValue(s.Attributes, "db.operation"))
	assert.Equal(t, "ks.tbl", attrValue(s.Attributes, "db.table"))
	assert.Equal(t, codes.Ok, s.Status.Code)
}

func TestStartRetentionSpan(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	sm := NewSpanManager()
	ctx, span := sm.StartRetentionSpan(context.Background(), "job-1")
	sm.AddSpanEvent(ctx, "pruned", attribute.Int("count", 2))
	sm.EndSpanWithError(span, errors.New("delete failed"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	s := spans[0]
	assert.Equal(t, "metastore.retention", s.Name)
	assert.Equal(t, "job-1", attrValue(s.Attributes, "job"))
	assert.Equal(t, codes.Error, s.Status.Code)
	assert.Equal(t, "delete failed", s.Status.Description)

	names := make([]string, 0, len(s.Events))
	for _, e := range s.Events {
		names = append(names, e.Name)
	}
	assert.Contains(t, names, "pruned")
	assert.Contains(t, names, "exception")
}

func TestEndSpanWithErrorNilSpan(t *testing.T) {
	assert.NotPanics(t, func() { EndSpanWithError(nil, errors.New("x")) })
}

func TestAddSpanEventWithoutSpan(t *testing.T) {
	assert.NotPanics(t, func() { AddSpanEvent(context.Background(), "orphan") })
}
