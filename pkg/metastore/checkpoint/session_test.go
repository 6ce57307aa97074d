package checkpoint_test

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/randalmurphal/metastore/pkg/metastore/statement"
)

// fakeSession emulates a single checkpoint table by interpreting the bound
// values of generated statements.
type fakeSession struct {
	mu       sync.Mutex
	rows     map[string]map[string]string // job -> time_stamp -> checkpoint
	executed []statement.Statement
	closed   bool

	execErr   error
	deleteErr error
	queryErr  error
	// ignoreDeletes simulates a row that survives its delete.
	ignoreDeletes bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{rows: make(map[string]map[string]string)}
}

func (f *fakeSession) Exec(ctx context.Context, stmt statement.Statement) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.executed = append(f.executed, stmt)
	if f.execErr != nil {
		return f.execErr
	}

	switch stmt.Kind {
	case statement.KindInsert:
		job, ts, payload := stmt.Values[0].(string), stmt.Values[1].(string), stmt.Values[2].(string)
		if f.rows[job] == nil {
			f.rows[job] = make(map[string]string)
		}
		f.rows[job][ts] = payload
	case statement.KindDelete:
		if f.deleteErr != nil {
			return f.deleteErr
		}
		if f.ignoreDeletes {
			return nil
		}
		job := stmt.Values[0].(string)
		if len(stmt.Values) == 1 {
			delete(f.rows, job)
			return nil
		}
		delete(f.rows[job], stmt.Values[1].(string))
	case statement.KindDropTable:
		f.rows = make(map[string]map[string]string)
	case statement.KindCreateTable:
	default:
		return fmt.Errorf("fake session: unexpected %s statement", stmt.Kind)
	}
	return nil
}

func (f *fakeSession) Query(ctx context.Context, stmt statement.Statement) ([]map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.executed = append(f.executed, stmt)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if stmt.Kind != statement.KindSelect {
		return nil, fmt.Errorf("fake session: unexpected %s query", stmt.Kind)
	}

	limit, err := strconv.Atoi(stmt.Query[strings.LastIndex(stmt.Query, "LIMIT ")+len("LIMIT "):])
	if err != nil {
		return nil, err
	}

	job := stmt.Values[0].(string)
	timestamps := make([]string, 0, len(f.rows[job]))
	for ts := range f.rows[job] {
		timestamps = append(timestamps, ts)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(timestamps)))
	if len(timestamps) > limit {
		timestamps = timestamps[:limit]
	}

	rows := make([]map[string]any, 0, len(timestamps))
	for _, ts := range timestamps {
		rows = append(rows, map[string]any{
			"job":        job,
			"time_stamp": ts,
			"checkpoint": f.rows[job][ts],
		})
	}
	return rows, nil
}

func (f *fakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSession) statements() []statement.Statement {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]statement.Statement(nil), f.executed...)
}

func (f *fakeSession) setIgnoreDeletes(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ignoreDeletes = v
}

func (f *fakeSession) setDeleteErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteErr = err
}
