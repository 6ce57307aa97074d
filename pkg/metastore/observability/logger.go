// Package observability provides logging, metrics and tracing for statement
// execution and checkpoint retention.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
// Every helper accepts a nil logger.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger returns a logger carrying table and job fields.
//
// Example:
//
//	logger = EnrichLogger(logger, "ks.checkpoints", "ingest-orders")
//	logger.Info("resuming") // includes table, job
func EnrichLogger(logger *slog.Logger, table, job string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("table", table),
		slog.String("job", job),
	)
}

// LogStatement logs a successfully executed statement.
func LogStatement(logger *slog.Logger, kind, table string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("statement executed",
		slog.String("kind", kind),
		slog.String("table", table),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogStatementError logs a statement the transport could not execute.
func LogStatementError(logger *slog.Logger, kind, table string, attempts int, err error) {
	if logger == nil {
		return
	}
	logger.Error("statement failed",
		slog.String("kind", kind),
		slog.String("table", table),
		slog.Int("attempts", attempts),
		slog.String("error", err.Error()),
	)
}

// LogCheckpoint logs a saved checkpoint.
func LogCheckpoint(logger *slog.Logger, job, timestamp string, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Debug("checkpoint saved",
		slog.String("job", job),
		slog.String("time_stamp", timestamp),
		slog.Int("size_bytes", sizeBytes),
	)
}

// LogPrune logs the outcome of a retention pass.
func LogPrune(logger *slog.Logger, job string, pruned, keep int) {
	if logger == nil {
		return
	}
	if pruned == 0 {
		logger.Debug("retention satisfied",
			slog.String("job", job),
			slog.Int("keep", keep),
		)
		return
	}
	logger.Info("pruned old checkpoints",
		slog.String("job", job),
		slog.Int("pruned", pruned),
		slog.Int("keep", keep),
	)
}

// LogRetentionError logs a failed retention pass (non-fatal to the writer).
func LogRetentionError(logger *slog.Logger, job string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("retention failed",
		slog.String("job", job),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Microseconds()) / 1000
	}
}
