package checkpoint

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists checkpoints to SQLite.
// It is suitable for single-process use and for running pipelines without a
// cluster. TTL is emulated with an expires_at column.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	opts   storeOptions
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore creates a new SQLite checkpoint store.
// The path should be a file path (e.g., "./checkpoints.db") or ":memory:" for testing.
func NewSQLiteStore(path string, opts ...StoreOption) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if err := createSQLiteTable(context.Background(), db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, path: path, opts: applyStoreOptions(opts)}, nil
}

func createSQLiteTable(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS checkpoints (
			job TEXT NOT NULL,
			time_stamp TEXT NOT NULL,
			checkpoint TEXT NOT NULL,
			expires_at INTEGER,
			PRIMARY KEY (job, time_stamp)
		)
	`); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, cp Checkpoint) error {
	if err := cp.Validate(); err != nil {
		return err
	}
	payload, err := cp.Payload()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	now := s.opts.now()
	var expiresAt sql.NullInt64
	if s.opts.ttl > 0 {
		expiresAt = sql.NullInt64{Int64: now.Add(s.opts.ttl).UnixNano(), Valid: true}
	}

	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM checkpoints
		WHERE job = ? AND expires_at IS NOT NULL AND expires_at <= ?
	`, cp.Job, now.UnixNano()); err != nil {
		return fmt.Errorf("purge expired checkpoints: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (job, time_stamp, checkpoint, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(job, time_stamp) DO UPDATE SET
			checkpoint = excluded.checkpoint,
			expires_at = excluded.expires_at
	`, cp.Job, cp.Timestamp, payload, expiresAt)
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context, job string, limit int) ([]Checkpoint, error) {
	if err := validateList(job, limit); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT time_stamp, checkpoint
		FROM checkpoints
		WHERE job = ? AND (expires_at IS NULL OR expires_at > ?)
		ORDER BY time_stamp DESC
		LIMIT ?
	`, job, s.opts.now().UnixNano(), limit)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	defer rows.Close()

	cps := []Checkpoint{}
	for rows.Next() {
		var timestamp, payload string
		if err := rows.Scan(&timestamp, &payload); err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		cp, err := Decode(job, timestamp, payload)
		if err != nil {
			return nil, err
		}
		cps = append(cps, cp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoints: %w", err)
	}
	return cps, nil
}

// Latest implements Store.
func (s *SQLiteStore) Latest(ctx context.Context, job string) (Checkpoint, error) {
	return latest(ctx, s, job)
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, job, timestamp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM checkpoints
		WHERE job = ? AND time_stamp = ?
	`, job, timestamp)
	if err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}

// DeleteJob implements Store.
func (s *SQLiteStore) DeleteJob(ctx context.Context, job string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE job = ?`, job); err != nil {
		return fmt.Errorf("delete job checkpoints: %w", err)
	}
	return nil
}

// Reset implements Store. The table is dropped and recreated.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS checkpoints`); err != nil {
		return fmt.Errorf("drop table: %w", err)
	}
	return createSQLiteTable(ctx, s.db)
}

// Table implements Store.
func (s *SQLiteStore) Table() string {
	return "sqlite:" + s.path + "#checkpoints"
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}
