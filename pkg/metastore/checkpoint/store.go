// Package checkpoint persists job checkpoints and bounds how many each job
// keeps.
//
// Three stores implement Store: CassandraStore executes the statements of a
// metadata.Manager over a wide-column Session, SQLiteStore keeps checkpoints
// in a local database, and MemoryStore keeps them in process for tests.
// Retention wraps any Store and prunes each job down to its newest N
// checkpoints after every commit.
package checkpoint

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/randalmurphal/metastore/pkg/metastore/observability"
)

// Store persists checkpoints.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores a checkpoint. Overwrites an existing (job, time_stamp) row.
	Save(ctx context.Context, cp Checkpoint) error

	// List returns at most limit checkpoints of a job, newest first.
	// Returns an empty slice (not error) if the job has none.
	List(ctx context.Context, job string, limit int) ([]Checkpoint, error)

	// Latest returns the newest checkpoint of a job.
	// Returns ErrNotFound if the job has none.
	Latest(ctx context.Context, job string) (Checkpoint, error)

	// Delete removes one checkpoint. Returns nil if it doesn't exist.
	Delete(ctx context.Context, job, timestamp string) error

	// DeleteJob removes every checkpoint of a job.
	DeleteJob(ctx context.Context, job string) error

	// Reset removes every checkpoint of every job.
	Reset(ctx context.Context) error

	// Table names the storage location, for logs and metrics.
	Table() string

	// Close releases any resources (sessions, files).
	Close() error
}

// Sentinel errors for checkpoint operations.
var (
	// ErrNotFound indicates a job has no checkpoint.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("checkpoint store closed")

	// ErrRetention indicates a checkpoint was saved but pruning failed.
	ErrRetention = errors.New("checkpoint retention failed")
)

// StoreOption configures a store.
type StoreOption func(*storeOptions)

type storeOptions struct {
	ttl     time.Duration
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	now     func() time.Time
}

func defaultStoreOptions() storeOptions {
	return storeOptions{
		metrics: observability.NoopMetrics{},
		now:     time.Now,
	}
}

// WithTTL expires checkpoints after d. Zero keeps them forever.
// CassandraStore takes its TTL from the metadata.Manager instead.
func WithTTL(d time.Duration) StoreOption {
	return func(o *storeOptions) {
		o.ttl = d
	}
}

// WithLogger sets the logger used for store diagnostics.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(o *storeOptions) {
		o.logger = logger
	}
}

// WithMetrics sets the recorder used for statement metrics.
func WithMetrics(m observability.MetricsRecorder) StoreOption {
	return func(o *storeOptions) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithClock overrides the time source used for TTL expiry.
func WithClock(now func() time.Time) StoreOption {
	return func(o *storeOptions) {
		if now != nil {
			o.now = now
		}
	}
}

func applyStoreOptions(opts []StoreOption) storeOptions {
	o := defaultStoreOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
