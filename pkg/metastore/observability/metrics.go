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

// MetricsRecorder records metastore metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordStatement records one executed statement with its latency and outcome.
	RecordStatement(ctx context.Context, kind, table string, duration time.Duration, err error)

	// RecordPrune records checkpoints removed by a retention pass.
	RecordPrune(ctx context.Context, table string, pruned int64)

	// RecordCheckpoint records the payload size of a saved checkpoint.
	RecordCheckpoint(ctx context.Context, table string, sizeBytes int64)
}

type otelMetrics struct {
	executions     metric.Int64Counter
	latency        metric.Float64Histogram
	errors         metric.Int64Counter
	pruned         metric.Int64Counter
	checkpointSize metric.Int64Histogram
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
	meter := otel.Meter("metastore")

	executions, err := meter.Int64Counter("metastore.statement.executions",
		metric.WithDescription("Number of executed statements"),
	)
	if err != nil {
		return nil, err
	}

	latency, err := meter.Float64Histogram("metastore.statement.latency_ms",
		metric.WithDescription("Statement execution latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	errs, err := meter.Int64Counter("metastore.statement.errors",
		metric.WithDescription("Number of failed statements"),
	)
	if err != nil {
		return nil, err
	}

	pruned, err := meter.Int64Counter("metastore.retention.pruned",
		metric.WithDescription("Number of checkpoints removed by retention"),
	)
	if err != nil {
		return nil, err
	}

	checkpointSize, err := meter.Int64Histogram("metastore.checkpoint.size_bytes",
		metric.WithDescription("Checkpoint payload size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		executions:     executions,
		latency:        latency,
		errors:         errs,
		pruned:         pruned,
		checkpointSize: checkpointSize,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
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

// RecordStatement records an executed statement.
func (m *otelMetrics) RecordStatement(ctx context.Context, kind, table string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("table", table),
	)

	m.executions.Add(ctx, 1, attrs)
	m.latency.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	if err != nil {
		m.errors.Add(ctx, 1, attrs)
	}
}

// RecordPrune records a retention pass.
func (m *otelMetrics) RecordPrune(ctx context.Context, table string, pruned int64) {
	if pruned <= 0 {
		return
	}
	m.pruned.Add(ctx, pruned, metric.WithAttributes(attribute.String("table", table)))
}

// RecordCheckpoint records a checkpoint save.
func (m *otelMetrics) RecordCheckpoint(ctx context.Context, table string, sizeBytes int64) {
	m.checkpointSize.Record(ctx, sizeBytes, metric.WithAttributes(attribute.String("table", table)))
}
