package errors

import (
	"context"
	"math/rand"
	"time"
)

// RetryConfig is the policy a session applies when a statement fails with a
// transient error.
type RetryConfig struct {
	// MaxAttempts bounds the executions of one statement, the first included.
	// Values below 1 mean a single execution.
	MaxAttempts int

	// InitialBackoff is the wait before the second execution.
	InitialBackoff time.Duration

	// MaxBackoff caps the wait between executions. Zero means no cap.
	MaxBackoff time.Duration

	// BackoffFactor grows the wait after each failed execution.
	BackoffFactor float64

	// Jitter spreads each wait by up to this fraction in either direction,
	// so clients retrying against the same overloaded coordinator drift apart.
	Jitter float64

	// RetryableFunc replaces IsRetryable when set.
	RetryableFunc func(error) bool
}

// DefaultRetry retries unavailable, overloaded and timed-out statements
// twice before giving up.
var DefaultRetry = RetryConfig{
	MaxAttempts:    3,
	InitialBackoff: 100 * time.Millisecond,
	MaxBackoff:     5 * time.Second,
	BackoffFactor:  2.0,
	Jitter:         0.1,
}

// NoRetry executes each statement once.
var NoRetry = RetryConfig{
	MaxAttempts: 1,
}

// RetryResult is the outcome of executing one statement under a RetryConfig.
type RetryResult[T any] struct {
	// Value holds the rows or result of the successful execution.
	Value T

	// Err is a *CategorizedError when the statement did not succeed.
	Err error

	// Attempts counts executions actually started.
	Attempts int

	// Duration spans every execution and wait.
	Duration time.Duration
}

// WithRetryContext executes fn until it succeeds or fails permanently, the
// attempt budget runs out, or ctx ends. A cancelled ctx is reported as a
// permanent failure without another execution.
func WithRetryContext[T any](
	ctx context.Context,
	cfg RetryConfig,
	fn func(context.Context) (T, error),
) RetryResult[T] {
	start := time.Now()
	finish := func(err error, attempts int) RetryResult[T] {
		return RetryResult[T]{Err: err, Attempts: attempts, Duration: time.Since(start)}
	}

	retryable := cfg.RetryableFunc
	if retryable == nil {
		retryable = IsRetryable
	}
	budget := max(cfg.MaxAttempts, 1)
	wait := cfg.InitialBackoff

	var lastErr error
	for attempt := 1; attempt <= budget; attempt++ {
		if err := ctx.Err(); err != nil {
			return finish(&CategorizedError{Err: err, Category: CategoryPermanent, Retries: attempt - 1, Context: "context cancelled"}, attempt-1)
		}

		value, err := fn(ctx)
		if err == nil {
			return RetryResult[T]{Value: value, Attempts: attempt, Duration: time.Since(start)}
		}
		if !retryable(err) {
			return finish(&CategorizedError{Err: err, Category: CategoryPermanent, Retries: attempt}, attempt)
		}
		lastErr = err

		if attempt == budget {
			break
		}
		timer := time.NewTimer(calculateBackoff(wait, cfg.Jitter))
		select {
		case <-ctx.Done():
			timer.Stop()
			return finish(&CategorizedError{Err: ctx.Err(), Category: CategoryPermanent, Retries: attempt, Context: "context cancelled during backoff"}, attempt)
		case <-timer.C:
		}
		wait = nextBackoff(wait, cfg)
	}

	return finish(&CategorizedError{Err: lastErr, Category: CategoryTransient, Retries: budget, Context: "max retries exceeded"}, budget)
}

func nextBackoff(wait time.Duration, cfg RetryConfig) time.Duration {
	wait = time.Duration(float64(wait) * cfg.BackoffFactor)
	if cfg.MaxBackoff > 0 && wait > cfg.MaxBackoff {
		return cfg.MaxBackoff
	}
	return wait
}

// calculateBackoff applies jitter: base +/- base*jitter*rand.
func calculateBackoff(base time.Duration, jitter float64) time.Duration {
	if jitter <= 0 {
		return base
	}
	spread := float64(base) * jitter * (rand.Float64()*2 - 1)
	return time.Duration(float64(base) + spread)
}

// RetryOption adjusts a RetryConfig.
type RetryOption func(*RetryConfig)

// WithMaxAttempts bounds the executions of one statement.
func WithMaxAttempts(n int) RetryOption {
	return func(cfg *RetryConfig) {
		cfg.MaxAttempts = n
	}
}

// WithInitialBackoff sets the wait before the first retry.
func WithInitialBackoff(d time.Duration) RetryOption {
	return func(cfg *RetryConfig) {
		cfg.InitialBackoff = d
	}
}

// WithMaxBackoff caps the wait between retries.
func WithMaxBackoff(d time.Duration) RetryOption {
	return func(cfg *RetryConfig) {
		cfg.MaxBackoff = d
	}
}

// WithRetryableFunc replaces the transient-error check.
func WithRetryableFunc(fn func(error) bool) RetryOption {
	return func(cfg *RetryConfig) {
		cfg.RetryableFunc = fn
	}
}

// NewRetryConfig starts from DefaultRetry and applies opts.
func NewRetryConfig(opts ...RetryOption) RetryConfig {
	cfg := DefaultRetry
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
