package metastore

import (
	"log/slog"

	"github.com/randalmurphal/metastore/pkg/metastore/observability"
)

// openConfig holds the observability settings applied to every component.
type openConfig struct {
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
}

func defaultOpenConfig() openConfig {
	return openConfig{
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
}

// Option configures Open.
type Option func(*openConfig)

// WithLogger sets the structured logger. Default: no logging.
func WithLogger(logger *slog.Logger) Option {
	return func(c *openConfig) {
		c.logger = logger
	}
}

// WithMetrics enables OpenTelemetry metrics through the global meter provider.
// Default: disabled.
//
// Example:
//
//	ms, err := metastore.Open(ctx, sc, metastore.WithMetrics(true))
func WithMetrics(enabled bool) Option {
	return func(c *openConfig) {
		if enabled {
			c.metrics = observability.NewMetricsRecorder()
		} else {
			c.metrics = observability.NoopMetrics{}
		}
	}
}

// WithTracing enables OpenTelemetry tracing through the global tracer provider.
// Default: disabled.
func WithTracing(enabled bool) Option {
	return func(c *openConfig) {
		if enabled {
			c.spans = observability.NewSpanManager()
		} else {
			c.spans = observability.NoopSpanManager{}
		}
	}
}
