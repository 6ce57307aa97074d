// Package metadata generates the statements a job uses to keep its
// checkpoint history in a wide-column table.
//
// The table holds one row per (job, time_stamp): the job identifier is the
// partition key and time_stamp is a descending clustering key, so a partition
// read returns the most recent checkpoint first. Manager narrows a
// statement.Builder to that layout and names its operations after what a
// checkpoint store needs: write a checkpoint, read a job's recent history,
// drop the oldest entry to bound retention, forget a job, reset the table.
package metadata

import (
	"fmt"

	mserrors "github.com/randalmurphal/metastore/pkg/metastore/errors"
	"github.com/randalmurphal/metastore/pkg/metastore/schema"
	"github.com/randalmurphal/metastore/pkg/metastore/statement"
)

// Column names of the checkpoint table.
const (
	JobColumn        = "job"
	TimestampColumn  = "time_stamp"
	CheckpointColumn = "checkpoint"
)

// Manager generates checkpoint statements for one table.
// It is immutable and safe for concurrent use.
type Manager struct {
	builder *statement.Builder
}

// DefaultSchema returns the conventional checkpoint table layout.
func DefaultSchema(keyspace, table string) (schema.Schema, []string, []schema.ClusterKey) {
	s := schema.New(keyspace, table,
		schema.Column{Name: JobColumn, Type: "text"},
		schema.Column{Name: TimestampColumn, Type: "text"},
		schema.Column{Name: CheckpointColumn, Type: "text"},
	)
	return s, []string{JobColumn}, []schema.ClusterKey{{Name: TimestampColumn, Order: schema.Descending}}
}

// New returns a Manager over keyspace.table with the conventional layout.
func New(keyspace, table string, ttl schema.Option[int64]) (*Manager, error) {
	s, pks, cks := DefaultSchema(keyspace, table)
	return NewManager(s, pks, cks, ttl)
}

// NewManager binds a checkpoint table. Besides the Builder checks, the
// partition key must be exactly job, the clustering key exactly time_stamp
// DESC, and the columns must include checkpoint. SelectJob and retention
// rely on partitions reading newest first.
func NewManager(
	s schema.Schema,
	partitionKeys []string,
	clusteringKeys []schema.ClusterKey,
	ttl schema.Option[int64],
) (*Manager, error) {
	const op = "new metadata manager"

	b, err := statement.NewBuilder(s, partitionKeys, clusteringKeys, ttl)
	if err != nil {
		return nil, err
	}
	if len(partitionKeys) != 1 || partitionKeys[0] != JobColumn {
		return nil, mserrors.InvalidConfiguration(op, "partition_keys",
			fmt.Sprintf("must be [%s], got %v", JobColumn, partitionKeys))
	}
	if len(clusteringKeys) != 1 || clusteringKeys[0].Name != TimestampColumn {
		return nil, mserrors.InvalidConfiguration(op, "clustering_keys",
			fmt.Sprintf("must be [%s], got %v", TimestampColumn, clusteringKeys))
	}
	if clusteringKeys[0].Order != schema.Descending {
		return nil, mserrors.InvalidConfiguration(op, "clustering_keys",
			fmt.Sprintf("%s must be %s, got %s", TimestampColumn, schema.Descending, clusteringKeys[0].Order))
	}
	if !hasTypedColumn(s, CheckpointColumn) {
		return nil, mserrors.InvalidConfiguration(op, "columns",
			fmt.Sprintf("must include a typed %s column", CheckpointColumn))
	}
	return &Manager{builder: b}, nil
}

func hasTypedColumn(s schema.Schema, name string) bool {
	for _, c := range s.Columns {
		if c.Name == name && c.Type != "" {
			return true
		}
	}
	return false
}

// Builder returns the underlying generic builder.
func (m *Manager) Builder() *statement.Builder {
	return m.builder
}

// Table returns "keyspace.table".
func (m *Manager) Table() string {
	return m.builder.Table()
}

// TTL returns the configured time-to-live in seconds.
func (m *Manager) TTL() schema.Option[int64] {
	return m.builder.TTL()
}

// InsertStmt generates an insert from a column-list token and a value-list
// token, e.g. key "job, time_stamp, checkpoint" and value "'j1', 't1', '{}'".
// Both tokens are emitted verbatim; values are not escaped. Use
// InsertCheckpoint to bind values instead.
func (m *Manager) InsertStmt(key, value string) (statement.Statement, error) {
	if key == "" {
		return statement.Statement{}, mserrors.InvalidArgument("insert checkpoint", "key", "column list must not be empty")
	}
	return m.builder.InsertTokens(key, value), nil
}

// InsertCheckpoint generates an insert of one checkpoint row with bound values.
func (m *Manager) InsertCheckpoint(job, timestamp, payload string) (statement.Statement, error) {
	const op = "insert checkpoint"

	if job == "" {
		return statement.Statement{}, mserrors.InvalidArgument(op, JobColumn, "must not be empty")
	}
	if timestamp == "" {
		return statement.Statement{}, mserrors.InvalidArgument(op, TimestampColumn, "must not be empty")
	}
	return m.builder.Insert(statement.Row{
		JobColumn:        job,
		TimestampColumn:  timestamp,
		CheckpointColumn: payload,
	})
}

// DeleteJob generates removal of every checkpoint of a job.
func (m *Manager) DeleteJob(key string) (statement.Statement, error) {
	if key == "" {
		return statement.Statement{}, mserrors.InvalidArgument("delete job", JobColumn, "must not be empty")
	}
	return m.builder.Delete(statement.Row{JobColumn: key})
}

// DeleteOldestCheckpoint generates removal of the single row (key,
// oldestTimestamp). The caller finds the oldest timestamp with SelectJob
// first; an absent timestamp is a caller bug and is rejected with
// ErrInvalidArgument rather than widened into a job-wide delete.
func (m *Manager) DeleteOldestCheckpoint(key string, oldestTimestamp schema.Option[string]) (statement.Statement, error) {
	const op = "delete oldest checkpoint"

	if key == "" {
		return statement.Statement{}, mserrors.InvalidArgument(op, JobColumn, "must not be empty")
	}
	ts, ok := oldestTimestamp.Get()
	if !ok {
		return statement.Statement{}, mserrors.InvalidArgument(op, TimestampColumn, "oldest timestamp must be present")
	}
	return m.builder.Delete(statement.Row{JobColumn: key, TimestampColumn: ts})
}

// SelectJob generates a read of a job's most recent checkpoints, newest
// first, at most limit rows.
func (m *Manager) SelectJob(key string, limit int) (statement.Statement, error) {
	if key == "" {
		return statement.Statement{}, mserrors.InvalidArgument("select job", JobColumn, "must not be empty")
	}
	return m.builder.Select(statement.Row{JobColumn: key}, limit)
}

// CreateTable generates the checkpoint table definition.
func (m *Manager) CreateTable() (statement.Statement, error) {
	return m.builder.CreateTable()
}

// DropTable generates removal of the checkpoint table, resetting all jobs.
func (m *Manager) DropTable() statement.Statement {
	return m.builder.DropTable()
}
