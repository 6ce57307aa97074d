// Package cassandra executes generated statements against an Apache
// Cassandra (or compatible) cluster through gocql.
//
// Session satisfies checkpoint.Session. Every statement runs with bound
// values, is retried on transient cluster errors with exponential backoff,
// and is recorded in metrics, traces and debug logs.
package cassandra

import (
	"fmt"
	"strings"
	"time"

	gocql "github.com/apache/cassandra-gocql-driver/v2"

	"github.com/randalmurphal/metastore/pkg/metastore/config"
	mserrors "github.com/randalmurphal/metastore/pkg/metastore/errors"
)

// Config holds cluster connection settings.
type Config struct {
	Hosts       []string
	Keyspace    string
	Timeout     time.Duration
	Consistency string
	Retry       mserrors.RetryConfig
}

// FromStoreConfig converts the decoded store configuration.
func FromStoreConfig(sc config.StoreConfig) Config {
	return Config{
		Hosts:       sc.Cassandra.Hosts,
		Keyspace:    sc.Keyspace,
		Timeout:     sc.Cassandra.Timeout,
		Consistency: sc.Cassandra.Consistency,
		Retry: mserrors.NewRetryConfig(
			mserrors.WithMaxAttempts(sc.Cassandra.MaxAttempts),
			mserrors.WithInitialBackoff(sc.Cassandra.InitialBackoff),
		),
	}
}

// ParseConsistency maps a consistency name to its gocql level.
func ParseConsistency(name string) (gocql.Consistency, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "quorum":
		return gocql.Quorum, nil
	case "one":
		return gocql.One, nil
	case "local_one":
		return gocql.LocalOne, nil
	case "local_quorum":
		return gocql.LocalQuorum, nil
	case "all":
		return gocql.All, nil
	default:
		return gocql.Quorum, mserrors.InvalidConfiguration("parse consistency", "cassandra.consistency",
			fmt.Sprintf("unknown consistency %q", name))
	}
}

// NewCluster builds a gocql cluster configuration.
func NewCluster(cfg Config) (*gocql.ClusterConfig, error) {
	const op = "new cluster"

	if len(cfg.Hosts) == 0 {
		return nil, mserrors.InvalidConfiguration(op, "cassandra.hosts", "at least one host is required")
	}
	consistency, err := ParseConsistency(cfg.Consistency)
	if err != nil {
		return nil, err
	}

	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = consistency
	if cfg.Timeout > 0 {
		cluster.Timeout = cfg.Timeout
		cluster.ConnectTimeout = cfg.Timeout
	}
	return cluster, nil
}
