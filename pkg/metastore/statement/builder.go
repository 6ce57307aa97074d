package statement

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	mserrors "github.com/randalmurphal/metastore/pkg/metastore/errors"
	"github.com/randalmurphal/metastore/pkg/metastore/schema"
)

// Builder generates statements for one table. It is immutable after
// NewBuilder returns and safe for concurrent use.
type Builder struct {
	schema         schema.Schema
	partitionKeys  []string
	clusteringKeys []schema.ClusterKey
	ttl            schema.Option[int64]
	table          string
}

// NewBuilder validates and binds a table layout.
//
// It fails with ErrInvalidConfiguration when the keyspace or table name is
// empty, no partition key is given, a key or column name is empty or repeated,
// a clustering order is unknown, or the TTL is negative. Inputs are copied.
func NewBuilder(
	s schema.Schema,
	partitionKeys []string,
	clusteringKeys []schema.ClusterKey,
	ttl schema.Option[int64],
) (*Builder, error) {
	const op = "new builder"

	if s.Keyspace == "" {
		return nil, mserrors.InvalidConfiguration(op, "keyspace", "must not be empty")
	}
	if s.Table == "" {
		return nil, mserrors.InvalidConfiguration(op, "table", "must not be empty")
	}
	if len(partitionKeys) == 0 {
		return nil, mserrors.InvalidConfiguration(op, "partition_keys", "at least one partition key is required")
	}

	seen := make(map[string]bool, len(partitionKeys)+len(clusteringKeys))
	for _, name := range partitionKeys {
		if name == "" {
			return nil, mserrors.InvalidConfiguration(op, "partition_keys", "key name must not be empty")
		}
		if seen[name] {
			return nil, mserrors.InvalidConfiguration(op, name, "duplicate key column")
		}
		seen[name] = true
	}
	for _, ck := range clusteringKeys {
		if ck.Name == "" {
			return nil, mserrors.InvalidConfiguration(op, "clustering_keys", "key name must not be empty")
		}
		if seen[ck.Name] {
			return nil, mserrors.InvalidConfiguration(op, ck.Name, "duplicate key column")
		}
		if !ck.Order.Valid() {
			return nil, mserrors.InvalidConfiguration(op, ck.Name, "unknown clustering order "+ck.Order.String())
		}
		seen[ck.Name] = true
	}

	columns := make(map[string]bool, len(s.Columns))
	for _, c := range s.Columns {
		if c.Name == "" {
			return nil, mserrors.InvalidConfiguration(op, "columns", "column name must not be empty")
		}
		if columns[c.Name] {
			return nil, mserrors.InvalidConfiguration(op, c.Name, "duplicate column")
		}
		columns[c.Name] = true
	}

	if v, ok := ttl.Get(); ok && v < 0 {
		return nil, mserrors.InvalidConfiguration(op, "ttl", fmt.Sprintf("must not be negative, got %d", v))
	}

	return &Builder{
		schema:         s.Clone(),
		partitionKeys:  append([]string(nil), partitionKeys...),
		clusteringKeys: append([]schema.ClusterKey(nil), clusteringKeys...),
		ttl:            ttl,
		table:          s.QualifiedName(),
	}, nil
}

// Table returns "keyspace.table".
func (b *Builder) Table() string {
	return b.table
}

// Schema returns a copy of the bound schema.
func (b *Builder) Schema() schema.Schema {
	return b.schema.Clone()
}

// PartitionKeys returns a copy of the partition key columns.
func (b *Builder) PartitionKeys() []string {
	return append([]string(nil), b.partitionKeys...)
}

// ClusteringKeys returns a copy of the clustering key columns.
func (b *Builder) ClusteringKeys() []schema.ClusterKey {
	return append([]schema.ClusterKey(nil), b.clusteringKeys...)
}

// TTL returns the configured time-to-live in seconds.
func (b *Builder) TTL() schema.Option[int64] {
	return b.ttl
}

// Insert generates an insert of every column in row. The row must contain
// all partition and clustering keys. Columns are emitted keys first, in key
// order, then the remaining columns sorted by name.
func (b *Builder) Insert(row Row) (Statement, error) {
	const op = "insert"

	for _, name := range b.keyColumns() {
		if _, ok := row[name]; !ok {
			return Statement{}, mserrors.MissingKeyColumn(op, name)
		}
	}
	if _, ok := row[""]; ok {
		return Statement{}, mserrors.InvalidArgument(op, "columns", "column name must not be empty")
	}

	columns := b.orderColumns(row)
	values := make([]any, len(columns))
	for i, c := range columns {
		values[i] = row[c]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)%s",
		b.table,
		strings.Join(columns, ", "),
		placeholders(len(columns)),
		b.ttlClause(),
	)
	return Statement{Kind: KindInsert, Table: b.table, Query: query, Values: values}, nil
}

// InsertTokens generates an insert from pre-rendered column and value list
// tokens. Both are emitted verbatim and nothing is bound, so the caller is
// responsible for quoting. Prefer Insert.
func (b *Builder) InsertTokens(columns, values string) Statement {
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)%s", b.table, columns, values, b.ttlClause())
	return Statement{Kind: KindInsert, Table: b.table, Query: query}
}

// Delete generates a delete scoped by key equality. The predicate must cover
// every partition key; clustering keys are optional but must form a prefix
// of the clustering order.
func (b *Builder) Delete(pred Row) (Statement, error) {
	where, values, err := b.where("delete", pred)
	if err != nil {
		return Statement{}, err
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE %s", b.table, where)
	return Statement{Kind: KindDelete, Table: b.table, Query: query, Values: values}, nil
}

// Select generates a read of at most limit rows matching the predicate,
// returned in the table's clustering order. Predicate rules match Delete.
func (b *Builder) Select(pred Row, limit int) (Statement, error) {
	const op = "select"

	if limit <= 0 {
		return Statement{}, mserrors.InvalidArgument(op, "limit", fmt.Sprintf("must be positive, got %d", limit))
	}
	where, values, err := b.where(op, pred)
	if err != nil {
		return Statement{}, err
	}
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s LIMIT %d", b.table, where, limit)
	return Statement{Kind: KindSelect, Table: b.table, Query: query, Values: values}, nil
}

// CreateTable generates the table definition. Every key column must appear
// in the schema with a type.
func (b *Builder) CreateTable() (Statement, error) {
	const op = "create table"

	for _, name := range b.keyColumns() {
		c, ok := b.schema.Column(name)
		if !ok || c.Type == "" {
			return Statement{}, mserrors.MissingKeyColumn(op, name)
		}
	}

	defs := make([]string, 0, len(b.schema.Columns)+1)
	for _, c := range b.schema.Columns {
		if c.Type == "" {
			return Statement{}, mserrors.InvalidArgument(op, c.Name, "column type must not be empty")
		}
		defs = append(defs, c.Name+" "+c.Type)
	}

	primary := "(" + strings.Join(b.partitionKeys, ", ") + ")"
	for _, ck := range b.clusteringKeys {
		primary += ", " + ck.Name
	}
	defs = append(defs, "PRIMARY KEY ("+primary+")")

	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", b.table, strings.Join(defs, ", "))
	if len(b.clusteringKeys) > 0 {
		order := make([]string, len(b.clusteringKeys))
		for i, ck := range b.clusteringKeys {
			order[i] = ck.String()
		}
		query += " WITH CLUSTERING ORDER BY (" + strings.Join(order, ", ") + ")"
	}
	return Statement{Kind: KindCreateTable, Table: b.table, Query: query}, nil
}

// DropTable generates removal of the whole table.
func (b *Builder) DropTable() Statement {
	return Statement{Kind: KindDropTable, Table: b.table, Query: "DROP TABLE " + b.table}
}

// where renders "k1=? AND k2=?" for a key-equality predicate.
func (b *Builder) where(op string, pred Row) (string, []any, error) {
	for _, name := range b.partitionKeys {
		if _, ok := pred[name]; !ok {
			return "", nil, mserrors.MissingKeyColumn(op, name)
		}
	}

	keys := make(map[string]bool, len(b.partitionKeys)+len(b.clusteringKeys))
	for _, name := range b.keyColumns() {
		keys[name] = true
	}
	names := make([]string, 0, len(pred))
	for name := range pred {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !keys[name] {
			return "", nil, mserrors.InvalidArgument(op, name, "not a key column")
		}
	}

	columns := append([]string(nil), b.partitionKeys...)
	gap := ""
	for _, ck := range b.clusteringKeys {
		if _, ok := pred[ck.Name]; !ok {
			if gap == "" {
				gap = ck.Name
			}
			continue
		}
		if gap != "" {
			return "", nil, mserrors.InvalidArgument(op, ck.Name, "restricted without preceding clustering key "+gap)
		}
		columns = append(columns, ck.Name)
	}

	terms := make([]string, len(columns))
	values := make([]any, len(columns))
	for i, c := range columns {
		terms[i] = c + "=?"
		values[i] = pred[c]
	}
	return strings.Join(terms, " AND "), values, nil
}

func (b *Builder) keyColumns() []string {
	names := make([]string, 0, len(b.partitionKeys)+len(b.clusteringKeys))
	names = append(names, b.partitionKeys...)
	for _, ck := range b.clusteringKeys {
		names = append(names, ck.Name)
	}
	return names
}

func (b *Builder) orderColumns(row Row) []string {
	keys := b.keyColumns()
	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}

	rest := make([]string, 0, len(row))
	for name := range row {
		if !isKey[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func (b *Builder) ttlClause() string {
	if v, ok := b.ttl.Get(); ok {
		return " USING TTL " + strconv.FormatInt(v, 10)
	}
	return ""
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
