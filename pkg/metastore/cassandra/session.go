package cassandra

import (
	"context"
	"fmt"
	"log/slog"

	gocql "github.com/apache/cassandra-gocql-driver/v2"

	mserrors "github.com/randalmurphal/metastore/pkg/metastore/errors"
	"github.com/randalmurphal/metastore/pkg/metastore/observability"
	"github.com/randalmurphal/metastore/pkg/metastore/statement"
)

// querier runs one attempt of a statement. Cancelling ctx abandons the
// attempt in flight.
type querier interface {
	exec(ctx context.Context, stmt statement.Statement) error
	query(ctx context.Context, stmt statement.Statement) ([]map[string]any, error)
	close()
}

type gocqlQuerier struct {
	session *gocql.Session
}

func (g gocqlQuerier) exec(ctx context.Context, stmt statement.Statement) error {
	return g.session.Query(stmt.Query, stmt.Values...).ExecContext(ctx)
}

func (g gocqlQuerier) query(ctx context.Context, stmt statement.Statement) ([]map[string]any, error) {
	iter := g.session.Query(stmt.Query, stmt.Values...).IterContext(ctx)

	var rows []map[string]any
	for {
		row := make(map[string]any)
		if !iter.MapScan(row) {
			break
		}
		rows = append(rows, row)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return rows, nil
}

func (g gocqlQuerier) close() {
	g.session.Close()
}

// Session executes statements on a cluster.
// It is safe for concurrent use.
type Session struct {
	q       querier
	retry   mserrors.RetryConfig
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
}

// Option configures a Session.
type Option func(*Session)

// WithRetry sets the retry policy for transient errors.
func WithRetry(cfg mserrors.RetryConfig) Option {
	return func(s *Session) {
		s.retry = cfg
	}
}

// WithLogger sets the logger for statement records.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(s *Session) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithSpans sets the span manager.
func WithSpans(sm observability.SpanManager) Option {
	return func(s *Session) {
		if sm != nil {
			s.spans = sm
		}
	}
}

// Connect opens a session to the cluster described by cfg. cfg.Retry is
// used unless WithRetry overrides it; a zero Retry means DefaultRetry.
func Connect(ctx context.Context, cfg Config, opts ...Option) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cluster, err := NewCluster(cfg)
	if err != nil {
		return nil, err
	}
	gs, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connect to %v: %w", cfg.Hosts, err)
	}

	retry := cfg.Retry
	if retry.MaxAttempts == 0 {
		retry = mserrors.DefaultRetry
	}
	opts = append([]Option{WithRetry(retry)}, opts...)
	return newSession(gocqlQuerier{session: gs}, opts...), nil
}

// Wrap returns a Session over an existing gocql session.
func Wrap(gs *gocql.Session, opts ...Option) *Session {
	return newSession(gocqlQuerier{session: gs}, opts...)
}

func newSession(q querier, opts ...Option) *Session {
	s := &Session{
		q:       q,
		retry:   mserrors.DefaultRetry,
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.retry.RetryableFunc == nil {
		s.retry.RetryableFunc = mserrors.IsRetryable
	}
	return s
}

// Exec runs a statement that returns no rows.
func (s *Session) Exec(ctx context.Context, stmt statement.Statement) error {
	_, err := s.run(ctx, stmt, func(ctx context.Context) ([]map[string]any, error) {
		return nil, s.q.exec(ctx, stmt)
	})
	return err
}

// Query runs a statement and returns its rows keyed by column name.
func (s *Session) Query(ctx context.Context, stmt statement.Statement) ([]map[string]any, error) {
	return s.run(ctx, stmt, func(ctx context.Context) ([]map[string]any, error) {
		return s.q.query(ctx, stmt)
	})
}

// Close releases the underlying session.
func (s *Session) Close() error {
	s.q.close()
	return nil
}

func (s *Session) run(ctx context.Context, stmt statement.Statement, attempt func(context.Context) ([]map[string]any, error)) ([]map[string]any, error) {
	kind := stmt.Kind.String()

	ctx, span := s.spans.StartStatementSpan(ctx, kind, stmt.Table)
	elapsed := observability.TimedOperation()

	result := mserrors.WithRetryContext(ctx, s.retry, func(ctx context.Context) ([]map[string]any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := attempt(ctx)
		return rows, Classify(err)
	})

	s.metrics.RecordStatement(ctx, kind, stmt.Table, result.Duration, result.Err)
	s.spans.EndSpanWithError(span, result.Err)

	if result.Err != nil {
		observability.LogStatementError(s.logger, kind, stmt.Table, result.Attempts, result.Err)
		return nil, fmt.Errorf("%s %s: %w", kind, stmt.Table, result.Err)
	}
	observability.LogStatement(s.logger, kind, stmt.Table, elapsed())
	return result.Value, nil
}
