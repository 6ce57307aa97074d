package checkpoint

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory checkpoint store for testing.
// Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]map[string]storedCheckpoint // job -> time_stamp -> checkpoint
	opts   storeOptions
	closed bool
}

type storedCheckpoint struct {
	values    map[string]string
	expiresAt time.Time // zero means never
}

// NewMemoryStore creates a new in-memory checkpoint store.
func NewMemoryStore(opts ...StoreOption) *MemoryStore {
	return &MemoryStore{
		data: make(map[string]map[string]storedCheckpoint),
		opts: applyStoreOptions(opts),
	}
}

// Save implements Store.
func (m *MemoryStore) Save(ctx context.Context, cp Checkpoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := cp.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	if m.data[cp.Job] == nil {
		m.data[cp.Job] = make(map[string]storedCheckpoint)
	}

	stored := storedCheckpoint{values: maps.Clone(cp.Values)}
	if m.opts.ttl > 0 {
		stored.expiresAt = m.opts.now().Add(m.opts.ttl)
	}
	m.data[cp.Job][cp.Timestamp] = stored
	return nil
}

// List implements Store.
func (m *MemoryStore) List(ctx context.Context, job string, limit int) ([]Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateList(job, limit); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	now := m.opts.now()
	timestamps := make([]string, 0, len(m.data[job]))
	for ts, stored := range m.data[job] {
		if stored.expired(now) {
			continue
		}
		timestamps = append(timestamps, ts)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(timestamps)))
	if len(timestamps) > limit {
		timestamps = timestamps[:limit]
	}

	cps := make([]Checkpoint, 0, len(timestamps))
	for _, ts := range timestamps {
		cps = append(cps, Checkpoint{
			Job:       job,
			Timestamp: ts,
			Values:    maps.Clone(m.data[job][ts].values),
		})
	}
	return cps, nil
}

// Latest implements Store.
func (m *MemoryStore) Latest(ctx context.Context, job string) (Checkpoint, error) {
	return latest(ctx, m, job)
}

// Delete implements Store.
func (m *MemoryStore) Delete(ctx context.Context, job, timestamp string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	if checkpoints, ok := m.data[job]; ok {
		delete(checkpoints, timestamp)
		if len(checkpoints) == 0 {
			delete(m.data, job)
		}
	}
	return nil
}

// DeleteJob implements Store.
func (m *MemoryStore) DeleteJob(ctx context.Context, job string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.data, job)
	return nil
}

// Reset implements Store.
func (m *MemoryStore) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	m.data = make(map[string]map[string]storedCheckpoint)
	return nil
}

// Table implements Store.
func (m *MemoryStore) Table() string {
	return "memory"
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.data = nil
	return nil
}

// Len returns the number of live checkpoints across all jobs.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.opts.now()
	n := 0
	for _, checkpoints := range m.data {
		for _, stored := range checkpoints {
			if !stored.expired(now) {
				n++
			}
		}
	}
	return n
}

func (s storedCheckpoint) expired(now time.Time) bool {
	return !s.expiresAt.IsZero() && !now.Before(s.expiresAt)
}
