// Package statement turns a bound table layout into CQL statements.
//
// A Builder captures a schema.Schema, its partition and clustering keys and an
// optional TTL, validates them once, and then generates insert, delete, select
// and table statements from column/value bindings. Generation is pure: a
// Builder performs no I/O, holds no mutable state, and returns identical
// output for identical input, so one Builder may be shared across goroutines.
//
// Statements carry a template with "?" markers plus the values to bind, in
// marker order. Transports should bind the values; Inline renders a literal
// statement for logs and for stores that cannot bind.
package statement

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind classifies a generated statement.
type Kind int

const (
	// KindInsert writes one row.
	KindInsert Kind = iota
	// KindDelete removes a partition or a single row.
	KindDelete
	// KindSelect reads rows of one partition.
	KindSelect
	// KindCreateTable defines the table if it does not exist.
	KindCreateTable
	// KindDropTable removes the table if it exists.
	KindDropTable
)

// String returns the kind name used in logs and metric attributes.
func (k Kind) String() string {
	switch k {
	case KindInsert:
		return "insert"
	case KindDelete:
		return "delete"
	case KindSelect:
		return "select"
	case KindCreateTable:
		return "create_table"
	case KindDropTable:
		return "drop_table"
	default:
		return "unknown"
	}
}

// Row maps column names to values.
type Row map[string]any

// Statement is a CQL template and the values bound to its markers.
type Statement struct {
	Kind Kind
	// Table is the "keyspace.table" the statement targets.
	Table string
	// Query is the statement text with "?" markers for bound values.
	Query string
	// Values are bound to the markers in order.
	Values []any
}

// Inline renders the statement with every marker replaced by a literal.
// Strings are single-quoted with embedded quotes doubled, so a value can
// never terminate its literal early.
func (s Statement) Inline() string {
	if len(s.Values) == 0 {
		return s.Query
	}

	var b strings.Builder
	b.Grow(len(s.Query) + 16*len(s.Values))

	next := 0
	inQuote := false
	for i := 0; i < len(s.Query); i++ {
		c := s.Query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote && next < len(s.Values):
			b.WriteString(Literal(s.Values[next]))
			next++
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// String implements fmt.Stringer with the inline form.
func (s Statement) String() string {
	return s.Inline()
}

// Literal renders v as a CQL literal.
func Literal(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return quote(val)
	case []byte:
		return "0x" + hex.EncodeToString(val)
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int8:
		return strconv.FormatInt(int64(val), 10)
	case int16:
		return strconv.FormatInt(int64(val), 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint:
		return strconv.FormatUint(uint64(val), 10)
	case uint8:
		return strconv.FormatUint(uint64(val), 10)
	case uint16:
		return strconv.FormatUint(uint64(val), 10)
	case uint32:
		return strconv.FormatUint(uint64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case time.Time:
		return quote(val.UTC().Format(time.RFC3339Nano))
	case fmt.Stringer:
		return quote(val.String())
	default:
		return quote(fmt.Sprint(val))
	}
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
