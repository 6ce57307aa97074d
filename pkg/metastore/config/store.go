package config

import (
	"fmt"
	"slices"
	"time"

	mserrors "github.com/randalmurphal/metastore/pkg/metastore/errors"
	"github.com/randalmurphal/metastore/pkg/metastore/schema"
)

// Backends accepted in the backend key.
const (
	BackendMemory    = "memory"
	BackendSQLite    = "sqlite"
	BackendCassandra = "cassandra"
)

// Defaults applied by Store.
const (
	DefaultTable       = "checkpoints"
	DefaultRetention   = 5
	DefaultSelectLimit = 10
	DefaultSQLitePath  = "metastore.db"
	DefaultConsistency = "quorum"
)

// StoreConfig selects and configures a checkpoint store.
type StoreConfig struct {
	Backend  string
	Keyspace string
	Table    string

	// TTL in seconds; absent means rows never expire.
	TTL schema.Option[int64]

	// Retention is the number of checkpoints kept per job.
	Retention int

	// SelectLimit bounds history reads.
	SelectLimit int

	SQLitePath string
	Cassandra  CassandraConfig
}

// CassandraConfig holds cluster connection settings.
type CassandraConfig struct {
	Hosts          []string
	Timeout        time.Duration
	Consistency    string
	MaxAttempts    int
	InitialBackoff time.Duration
}

// Store decodes the store section of c. Keys:
//
//	backend                         memory | sqlite | cassandra (default memory)
//	keyspace, table                 checkpoint table location
//	ttl                             duration or seconds, whole seconds only
//	retention                       checkpoints kept per job (default 5)
//	select_limit                    history read bound (default 10)
//	sqlite.path                     database file (default metastore.db)
//	cassandra.hosts                 list or comma-separated string
//	cassandra.timeout               per-statement timeout (default 5s)
//	cassandra.consistency           one | local_one | quorum | local_quorum | all
//	cassandra.retry.max_attempts    default 3
//	cassandra.retry.initial_backoff default 100ms
func (c Config) Store() (StoreConfig, error) {
	const op = "decode store config"

	sc := StoreConfig{
		Backend:     c.String("backend", BackendMemory),
		Keyspace:    c.String("keyspace", ""),
		Table:       c.String("table", DefaultTable),
		Retention:   c.Int("retention", DefaultRetention),
		SelectLimit: c.Int("select_limit", DefaultSelectLimit),
		SQLitePath:  c.String("sqlite.path", DefaultSQLitePath),
		Cassandra: CassandraConfig{
			Hosts:          c.StringSlice("cassandra.hosts", nil),
			Timeout:        c.Duration("cassandra.timeout", 5*time.Second),
			Consistency:    c.String("cassandra.consistency", DefaultConsistency),
			MaxAttempts:    c.Int("cassandra.retry.max_attempts", 3),
			InitialBackoff: c.Duration("cassandra.retry.initial_backoff", 100*time.Millisecond),
		},
	}

	if err := c.checkTypes(op); err != nil {
		return StoreConfig{}, err
	}

	if c.Has("ttl") {
		ttl := c.Duration("ttl", 0)
		if ttl < 0 {
			return StoreConfig{}, mserrors.InvalidConfiguration(op, "ttl", "must not be negative")
		}
		if ttl%time.Second != 0 {
			return StoreConfig{}, mserrors.InvalidConfiguration(op, "ttl", fmt.Sprintf("must be whole seconds, got %s", ttl))
		}
		sc.TTL = schema.Some(int64(ttl / time.Second))
	}

	if err := sc.Validate(); err != nil {
		return StoreConfig{}, err
	}
	return sc, nil
}

// checkTypes rejects present keys the accessors could not convert.
func (c Config) checkTypes(op string) error {
	const sentinel = -1 << 31
	for _, key := range []string{"retention", "select_limit", "cassandra.retry.max_attempts"} {
		if c.Has(key) && c.Int(key, sentinel) == sentinel {
			return mserrors.InvalidConfiguration(op, key, "must be an integer")
		}
	}
	for _, key := range []string{"ttl", "cassandra.timeout", "cassandra.retry.initial_backoff"} {
		if c.Has(key) && c.Duration(key, sentinel) == sentinel {
			return mserrors.InvalidConfiguration(op, key, "must be a duration or seconds")
		}
	}
	if c.Has("cassandra.hosts") && c.StringSlice("cassandra.hosts", nil) == nil {
		return mserrors.InvalidConfiguration(op, "cassandra.hosts", "must be a list of strings")
	}
	return nil
}

// Validate checks the decoded values.
func (sc StoreConfig) Validate() error {
	const op = "validate store config"

	if !slices.Contains([]string{BackendMemory, BackendSQLite, BackendCassandra}, sc.Backend) {
		return mserrors.InvalidConfiguration(op, "backend", fmt.Sprintf("unknown backend %q", sc.Backend))
	}
	if sc.Table == "" {
		return mserrors.InvalidConfiguration(op, "table", "must not be empty")
	}
	if sc.Retention < 1 {
		return mserrors.InvalidConfiguration(op, "retention", fmt.Sprintf("must be at least 1, got %d", sc.Retention))
	}
	if sc.SelectLimit < 1 {
		return mserrors.InvalidConfiguration(op, "select_limit", fmt.Sprintf("must be at least 1, got %d", sc.SelectLimit))
	}
	if ttl, ok := sc.TTL.Get(); ok && ttl < 0 {
		return mserrors.InvalidConfiguration(op, "ttl", "must not be negative")
	}

	switch sc.Backend {
	case BackendSQLite:
		if sc.SQLitePath == "" {
			return mserrors.InvalidConfiguration(op, "sqlite.path", "must not be empty")
		}
	case BackendCassandra:
		if sc.Keyspace == "" {
			return mserrors.InvalidConfiguration(op, "keyspace", "required for the cassandra backend")
		}
		if len(sc.Cassandra.Hosts) == 0 {
			return mserrors.InvalidConfiguration(op, "cassandra.hosts", "at least one host is required")
		}
		if sc.Cassandra.Timeout <= 0 {
			return mserrors.InvalidConfiguration(op, "cassandra.timeout", "must be positive")
		}
		if sc.Cassandra.MaxAttempts < 1 {
			return mserrors.InvalidConfiguration(op, "cassandra.retry.max_attempts", "must be at least 1")
		}
	}
	return nil
}

// TTLDuration returns the TTL as a duration, zero when absent.
func (sc StoreConfig) TTLDuration() time.Duration {
	return time.Duration(sc.TTL.OrElse(0)) * time.Second
}
