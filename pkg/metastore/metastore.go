package metastore

import (
	"context"
	"fmt"

	"github.com/randalmurphal/metastore/pkg/metastore/cassandra"
	"github.com/randalmurphal/metastore/pkg/metastore/checkpoint"
	"github.com/randalmurphal/metastore/pkg/metastore/config"
	"github.com/randalmurphal/metastore/pkg/metastore/metadata"
)

// Metastore is an opened checkpoint store with its retention policy.
type Metastore struct {
	store       checkpoint.Store
	retention   *checkpoint.Retention
	manager     *metadata.Manager
	selectLimit int
}

// Open builds the store selected by sc. For the cassandra backend it
// connects to the cluster and creates the checkpoint table if needed.
func Open(ctx context.Context, sc config.StoreConfig, opts ...Option) (*Metastore, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	oc := defaultOpenConfig()
	for _, opt := range opts {
		opt(&oc)
	}

	storeOpts := []checkpoint.StoreOption{
		checkpoint.WithTTL(sc.TTLDuration()),
		checkpoint.WithLogger(oc.logger),
		checkpoint.WithMetrics(oc.metrics),
	}

	var (
		store   checkpoint.Store
		manager *metadata.Manager
		err     error
	)
	switch sc.Backend {
	case config.BackendMemory:
		store = checkpoint.NewMemoryStore(storeOpts...)
	case config.BackendSQLite:
		store, err = checkpoint.NewSQLiteStore(sc.SQLitePath, storeOpts...)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
	case config.BackendCassandra:
		manager, err = metadata.New(sc.Keyspace, sc.Table, sc.TTL)
		if err != nil {
			return nil, err
		}
		session, err := cassandra.Connect(ctx, cassandra.FromStoreConfig(sc),
			cassandra.WithLogger(oc.logger),
			cassandra.WithMetrics(oc.metrics),
			cassandra.WithSpans(oc.spans),
		)
		if err != nil {
			return nil, err
		}
		store, err = checkpoint.NewCassandraStore(ctx, session, manager, storeOpts...)
		if err != nil {
			session.Close()
			return nil, err
		}
	}

	return newMetastore(store, manager, sc, oc)
}

// New wraps an existing store, for callers that build their own.
func New(store checkpoint.Store, sc config.StoreConfig, opts ...Option) (*Metastore, error) {
	oc := defaultOpenConfig()
	for _, opt := range opts {
		opt(&oc)
	}
	var manager *metadata.Manager
	if cs, ok := store.(*checkpoint.CassandraStore); ok {
		manager = cs.Manager()
	}
	return newMetastore(store, manager, sc, oc)
}

func newMetastore(store checkpoint.Store, manager *metadata.Manager, sc config.StoreConfig, oc openConfig) (*Metastore, error) {
	retention, err := checkpoint.NewRetention(store, sc.Retention,
		checkpoint.WithRetentionLogger(oc.logger),
		checkpoint.WithRetentionMetrics(oc.metrics),
		checkpoint.WithRetentionSpans(oc.spans),
	)
	if err != nil {
		store.Close()
		return nil, err
	}
	limit := sc.SelectLimit
	if limit < 1 {
		limit = config.DefaultSelectLimit
	}
	return &Metastore{store: store, retention: retention, manager: manager, selectLimit: limit}, nil
}

// Commit saves a checkpoint for job and prunes the job's history.
func (m *Metastore) Commit(ctx context.Context, job string, values map[string]string) (checkpoint.Checkpoint, error) {
	cp := checkpoint.New(job, values)
	if _, err := m.retention.Commit(ctx, cp); err != nil {
		return cp, err
	}
	return cp, nil
}

// Resume returns the newest checkpoint of job, or checkpoint.ErrNotFound.
func (m *Metastore) Resume(ctx context.Context, job string) (checkpoint.Checkpoint, error) {
	return m.store.Latest(ctx, job)
}

// History returns the job's checkpoints, newest first, bounded by the
// configured select limit.
func (m *Metastore) History(ctx context.Context, job string) ([]checkpoint.Checkpoint, error) {
	return m.store.List(ctx, job, m.selectLimit)
}

// Forget removes every checkpoint of job.
func (m *Metastore) Forget(ctx context.Context, job string) error {
	return m.store.DeleteJob(ctx, job)
}

// Reset removes every checkpoint of every job.
func (m *Metastore) Reset(ctx context.Context) error {
	return m.store.Reset(ctx)
}

// Store returns the underlying store.
func (m *Metastore) Store() checkpoint.Store {
	return m.store
}

// Retention returns the retention policy.
func (m *Metastore) Retention() *checkpoint.Retention {
	return m.retention
}

// Manager returns the statement generator, or nil for non-cassandra backends.
func (m *Metastore) Manager() *metadata.Manager {
	return m.manager
}

// Close releases the store.
func (m *Metastore) Close() error {
	return m.store.Close()
}
