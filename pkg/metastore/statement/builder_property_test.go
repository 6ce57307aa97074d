package statement_test

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/randalmurphal/metastore/pkg/metastore/schema"
	"github.com/randalmurphal/metastore/pkg/metastore/statement"
)

func kvBuilder(keyspace, table string) (*statement.Builder, error) {
	s := schema.New(keyspace, table,
		schema.Column{Name: "k", Type: "text"},
		schema.Column{Name: "c", Type: "text"},
		schema.Column{Name: "v", Type: "text"},
	)
	return statement.NewBuilder(s, []string{"k"}, []schema.ClusterKey{{Name: "c", Order: schema.Descending}}, schema.None[int64]())
}

// TestProperty_TableReference checks that every generated statement targets
// exactly keyspace.table.
func TestProperty_TableReference(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("statements reference only the bound table", prop.ForAll(
		func(keyspace, table, key string) bool {
			b, err := kvBuilder(keyspace, table)
			if err != nil {
				return false
			}
			qualified := keyspace + "." + table

			insert, err := b.Insert(statement.Row{"k": key, "c": "x", "v": "y"})
			if err != nil {
				return false
			}
			del, err := b.Delete(statement.Row{"k": key})
			if err != nil {
				return false
			}
			sel, err := b.Select(statement.Row{"k": key}, 3)
			if err != nil {
				return false
			}
			create, err := b.CreateTable()
			if err != nil {
				return false
			}
			drop := b.DropTable()

			return strings.HasPrefix(insert.Query, "INSERT INTO "+qualified+" (") &&
				strings.HasPrefix(del.Query, "DELETE FROM "+qualified+" WHERE ") &&
				strings.HasPrefix(sel.Query, "SELECT * FROM "+qualified+" WHERE ") &&
				strings.HasPrefix(create.Query, "CREATE TABLE IF NOT EXISTS "+qualified+" (") &&
				drop.Query == "DROP TABLE "+qualified &&
				insert.Table == qualified && del.Table == qualified &&
				sel.Table == qualified && create.Table == qualified && drop.Table == qualified
		},
		gen.Identifier(),
		gen.Identifier(),
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

// TestProperty_Deterministic checks that identical input yields identical output.
func TestProperty_Deterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("insert output is stable across calls", prop.ForAll(
		func(key, value string, extra []string) bool {
			b, err := kvBuilder("ks", "tbl")
			if err != nil {
				return false
			}
			row := statement.Row{"k": key, "c": "c0", "v": value}
			for i, e := range extra {
				row[fmt.Sprintf("x%d", i)] = e
			}

			first, err := b.Insert(row)
			if err != nil {
				return false
			}
			second, err := b.Insert(row)
			if err != nil {
				return false
			}
			return reflect.DeepEqual(first, second) && first.Inline() == second.Inline()
		},
		gen.AnyString(),
		gen.AnyString(),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.Property("select limit appears verbatim", prop.ForAll(
		func(limit int) bool {
			b, err := kvBuilder("ks", "tbl")
			if err != nil {
				return false
			}
			stmt, err := b.Select(statement.Row{"k": "job1"}, limit)
			if err != nil {
				return false
			}
			return strings.HasSuffix(stmt.Query, fmt.Sprintf(" LIMIT %d", limit))
		},
		gen.IntRange(1, 1<<30),
	))

	properties.TestingRun(t)
}

// TestProperty_InlineQuoting checks that arbitrary strings stay inside
// their literal when rendered.
func TestProperty_InlineQuoting(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("quoted literal round-trips", prop.ForAll(
		func(s string) bool {
			lit := statement.Literal(s)
			if !strings.HasPrefix(lit, "'") || !strings.HasSuffix(lit, "'") {
				return false
			}
			body := lit[1 : len(lit)-1]
			return strings.ReplaceAll(body, "''", "'") == s
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
