// Package schema describes a logical table in a wide-column store: its
// keyspace and name, its typed columns, and the partition and clustering keys
// that decide where rows live and how they sort within a partition.
//
// Values in this package are plain data. Validation happens when they are
// bound into a statement.Builder.
package schema

import (
	"fmt"
	"strings"
)

// Order is the sort direction of a clustering column.
type Order int

const (
	// Ascending sorts the smallest clustering value first.
	Ascending Order = iota
	// Descending sorts the largest clustering value first.
	Descending
)

// String returns the CQL keyword for the order.
func (o Order) String() string {
	switch o {
	case Ascending:
		return "ASC"
	case Descending:
		return "DESC"
	default:
		return fmt.Sprintf("Order(%d)", int(o))
	}
}

// Valid reports whether o is a known order.
func (o Order) Valid() bool {
	return o == Ascending || o == Descending
}

// ParseOrder parses "asc"/"desc" in any case.
func ParseOrder(s string) (Order, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ASC", "ASCENDING":
		return Ascending, nil
	case "DESC", "DESCENDING":
		return Descending, nil
	default:
		return 0, fmt.Errorf("unknown clustering order %q", s)
	}
}

// ClusterKey is a clustering column and its sort direction.
type ClusterKey struct {
	Name  string
	Order Order
}

// String renders the key as it appears in a CLUSTERING ORDER BY clause.
func (k ClusterKey) String() string {
	return k.Name + " " + k.Order.String()
}

// Column is a named, typed column. Type is the store's type name ("text", "bigint").
type Column struct {
	Name string
	Type string
}

// Schema identifies a table and its column layout.
type Schema struct {
	Keyspace string
	Table    string
	Columns  []Column
}

// New returns a Schema for keyspace.table with the given columns.
func New(keyspace, table string, columns ...Column) Schema {
	return Schema{
		Keyspace: keyspace,
		Table:    table,
		Columns:  append([]Column(nil), columns...),
	}
}

// QualifiedName returns "keyspace.table". Identifiers are used verbatim.
func (s Schema) QualifiedName() string {
	return s.Keyspace + "." + s.Table
}

// Column looks up a column by name.
func (s Schema) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Clone returns a deep copy of s.
func (s Schema) Clone() Schema {
	return New(s.Keyspace, s.Table, s.Columns...)
}
