package checkpoint

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/randalmurphal/metastore/pkg/metastore/metadata"
	"github.com/randalmurphal/metastore/pkg/metastore/observability"
	"github.com/randalmurphal/metastore/pkg/metastore/schema"
	"github.com/randalmurphal/metastore/pkg/metastore/statement"
)

// Session executes statements against a wide-column store.
// cassandra.Session is the production implementation.
type Session interface {
	// Exec runs a statement that returns no rows.
	Exec(ctx context.Context, stmt statement.Statement) error

	// Query runs a statement and returns its rows keyed by column name.
	Query(ctx context.Context, stmt statement.Statement) ([]map[string]any, error)

	// Close releases the session.
	Close() error
}

// CassandraStore keeps checkpoints in a wide-column table, one row per
// (job, time_stamp), using the statements generated by a metadata.Manager.
// Rows expire after the manager's TTL, if any.
type CassandraStore struct {
	session Session
	manager *metadata.Manager
	opts    storeOptions

	mu     sync.RWMutex
	closed bool
}

// NewCassandraStore creates the checkpoint table if needed and returns a
// store over it. The store owns session and closes it on Close.
func NewCassandraStore(ctx context.Context, session Session, manager *metadata.Manager, opts ...StoreOption) (*CassandraStore, error) {
	s := &CassandraStore{
		session: session,
		manager: manager,
		opts:    applyStoreOptions(opts),
	}

	create, err := manager.CreateTable()
	if err != nil {
		return nil, err
	}
	if err := session.Exec(ctx, create); err != nil {
		return nil, fmt.Errorf("create table %s: %w", manager.Table(), err)
	}
	observability.AddSpanEvent(ctx, "checkpoint table ready")
	if s.opts.logger != nil {
		s.opts.logger.Info("checkpoint table ready", slog.String("table", manager.Table()))
	}
	return s, nil
}

// Manager returns the statement generator used by the store.
func (s *CassandraStore) Manager() *metadata.Manager {
	return s.manager
}

// Save implements Store.
func (s *CassandraStore) Save(ctx context.Context, cp Checkpoint) error {
	if err := cp.Validate(); err != nil {
		return err
	}
	payload, err := cp.Payload()
	if err != nil {
		return err
	}
	stmt, err := s.manager.InsertCheckpoint(cp.Job, cp.Timestamp, payload)
	if err != nil {
		return err
	}
	if err := s.exec(ctx, stmt); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// List implements Store.
func (s *CassandraStore) List(ctx context.Context, job string, limit int) ([]Checkpoint, error) {
	if err := validateList(job, limit); err != nil {
		return nil, err
	}
	stmt, err := s.manager.SelectJob(job, limit)
	if err != nil {
		return nil, err
	}

	rows, err := s.query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}

	cps := make([]Checkpoint, 0, len(rows))
	for _, row := range rows {
		cp, err := decodeRow(job, row)
		if err != nil {
			return nil, err
		}
		cps = append(cps, cp)
	}
	return cps, nil
}

// Latest implements Store.
func (s *CassandraStore) Latest(ctx context.Context, job string) (Checkpoint, error) {
	return latest(ctx, s, job)
}

// Delete implements Store.
func (s *CassandraStore) Delete(ctx context.Context, job, timestamp string) error {
	stmt, err := s.manager.DeleteOldestCheckpoint(job, schema.Some(timestamp))
	if err != nil {
		return err
	}
	if err := s.exec(ctx, stmt); err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}

// DeleteJob implements Store.
func (s *CassandraStore) DeleteJob(ctx context.Context, job string) error {
	stmt, err := s.manager.DeleteJob(job)
	if err != nil {
		return err
	}
	if err := s.exec(ctx, stmt); err != nil {
		return fmt.Errorf("delete job checkpoints: %w", err)
	}
	return nil
}

// Reset implements Store. The table is dropped and recreated.
func (s *CassandraStore) Reset(ctx context.Context) error {
	if err := s.exec(ctx, s.manager.DropTable()); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	create, err := s.manager.CreateTable()
	if err != nil {
		return err
	}
	if err := s.exec(ctx, create); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

// Table implements Store.
func (s *CassandraStore) Table() string {
	return s.manager.Table()
}

// Close implements Store.
func (s *CassandraStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.session.Close()
}

func (s *CassandraStore) exec(ctx context.Context, stmt statement.Statement) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStoreClosed
	}
	return s.session.Exec(ctx, stmt)
}

func (s *CassandraStore) query(ctx context.Context, stmt statement.Statement) ([]map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	return s.session.Query(ctx, stmt)
}

func decodeRow(job string, row map[string]any) (Checkpoint, error) {
	timestamp, err := textColumn(row, metadata.TimestampColumn)
	if err != nil {
		return Checkpoint{}, err
	}
	payload, err := textColumn(row, metadata.CheckpointColumn)
	if err != nil {
		return Checkpoint{}, err
	}
	if rowJob, err := textColumn(row, metadata.JobColumn); err == nil && rowJob != "" {
		job = rowJob
	}
	return Decode(job, timestamp, payload)
}

func textColumn(row map[string]any, column string) (string, error) {
	switch v := row[column].(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case nil:
		return "", fmt.Errorf("column %s missing from row", column)
	default:
		return "", fmt.Errorf("column %s: unexpected type %T", column, v)
	}
}
