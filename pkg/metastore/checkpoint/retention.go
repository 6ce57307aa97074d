package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	mserrors "github.com/randalmurphal/metastore/pkg/metastore/errors"
	"github.com/randalmurphal/metastore/pkg/metastore/observability"
)

// DefaultKeep is the number of checkpoints kept per job when no retention
// is configured.
const DefaultKeep = 5

// DefaultConcurrency bounds EnforceAll when WithConcurrency is not given.
const DefaultConcurrency = 4

// Retention commits checkpoints to a Store and keeps only the newest keep
// checkpoints of each job.
//
// Pruning reads keep+1 rows newest first and deletes the last one until no
// more than keep remain. Two writers pruning the same job may delete the same
// row; deletes are idempotent, so the race only costs an extra statement.
type Retention struct {
	store       Store
	keep        int
	concurrency int
	logger      *slog.Logger
	metrics     observability.MetricsRecorder
	spans       observability.SpanManager
}

// RetentionOption configures a Retention.
type RetentionOption func(*Retention)

// WithRetentionLogger sets the logger for commit and prune records.
func WithRetentionLogger(logger *slog.Logger) RetentionOption {
	return func(r *Retention) {
		r.logger = logger
	}
}

// WithRetentionMetrics sets the recorder for checkpoint and prune metrics.
func WithRetentionMetrics(m observability.MetricsRecorder) RetentionOption {
	return func(r *Retention) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithRetentionSpans sets the span manager for retention passes.
func WithRetentionSpans(sm observability.SpanManager) RetentionOption {
	return func(r *Retention) {
		if sm != nil {
			r.spans = sm
		}
	}
}

// WithConcurrency bounds how many jobs EnforceAll prunes at once.
func WithConcurrency(n int) RetentionOption {
	return func(r *Retention) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// NewRetention returns a Retention keeping keep checkpoints per job.
// keep must be at least 1.
func NewRetention(store Store, keep int, opts ...RetentionOption) (*Retention, error) {
	if store == nil {
		return nil, mserrors.InvalidConfiguration("new retention", "store", "must not be nil")
	}
	if keep < 1 {
		return nil, mserrors.InvalidConfiguration("new retention", "retention",
			fmt.Sprintf("must keep at least one checkpoint, got %d", keep))
	}

	r := &Retention{
		store:       store,
		keep:        keep,
		concurrency: DefaultConcurrency,
		metrics:     observability.NoopMetrics{},
		spans:       observability.NoopSpanManager{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Keep returns the number of checkpoints kept per job.
func (r *Retention) Keep() int {
	return r.keep
}

// Store returns the wrapped store.
func (r *Retention) Store() Store {
	return r.store
}

// Commit saves cp and prunes its job. It returns the number of checkpoints
// pruned. A pruning failure after a successful save is returned wrapped in
// ErrRetention; the checkpoint itself is already stored.
func (r *Retention) Commit(ctx context.Context, cp Checkpoint) (int, error) {
	payload, err := cp.Payload()
	if err != nil {
		return 0, err
	}
	if err := r.store.Save(ctx, cp); err != nil {
		return 0, err
	}
	r.metrics.RecordCheckpoint(ctx, r.store.Table(), int64(len(payload)))
	observability.LogCheckpoint(r.logger, cp.Job, cp.Timestamp, len(payload))

	pruned, err := r.Enforce(ctx, cp.Job)
	if err != nil {
		return pruned, fmt.Errorf("%w: %w", ErrRetention, err)
	}
	return pruned, nil
}

// Enforce prunes job down to the newest keep checkpoints and returns how
// many were deleted.
func (r *Retention) Enforce(ctx context.Context, job string) (pruned int, err error) {
	ctx, span := r.spans.StartRetentionSpan(ctx, job)
	defer func() { r.spans.EndSpanWithError(span, err) }()

	logger := r.logger
	if logger != nil {
		logger = observability.EnrichLogger(logger, r.store.Table(), job).
			With(slog.String("operation_id", uuid.NewString()))
	}

	defer func() {
		r.metrics.RecordPrune(ctx, r.store.Table(), int64(pruned))
		if err != nil {
			observability.LogRetentionError(logger, job, err)
			return
		}
		observability.LogPrune(logger, job, pruned, r.keep)
	}()

	var lastDeleted string
	for {
		if err := ctx.Err(); err != nil {
			return pruned, err
		}

		cps, err := r.store.List(ctx, job, r.keep+1)
		if err != nil {
			return pruned, fmt.Errorf("list job %q: %w", job, err)
		}
		if len(cps) <= r.keep {
			return pruned, nil
		}

		oldest := cps[len(cps)-1].Timestamp
		if pruned > 0 && oldest == lastDeleted {
			return pruned, fmt.Errorf("checkpoint %s of job %q survived delete", oldest, job)
		}
		if err := r.store.Delete(ctx, job, oldest); err != nil {
			return pruned, fmt.Errorf("delete checkpoint %s of job %q: %w", oldest, job, err)
		}
		r.spans.AddSpanEvent(ctx, "checkpoint pruned", attribute.String("time_stamp", oldest))
		lastDeleted = oldest
		pruned++
	}
}

// EnforceAll prunes every job in jobs, at most WithConcurrency jobs at a
// time. It returns the number of checkpoints pruned per job. Jobs that fail
// are missing from the result and their errors are joined.
func (r *Retention) EnforceAll(ctx context.Context, jobs []string) (map[string]int, error) {
	var (
		mu      sync.Mutex
		results = make(map[string]int, len(jobs))
		errs    []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for _, job := range jobs {
		job := job
		g.Go(func() error {
			pruned, err := r.Enforce(gctx, job)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("job %q: %w", job, err))
				return nil
			}
			results[job] = pruned
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, errors.Join(errs...)
}
