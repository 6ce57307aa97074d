package checkpoint_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/metastore/pkg/metastore/checkpoint"
	mserrors "github.com/randalmurphal/metastore/pkg/metastore/errors"
	"github.com/randalmurphal/metastore/pkg/metastore/metadata"
	"github.com/randalmurphal/metastore/pkg/metastore/schema"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// at returns a checkpoint of job stamped i seconds after base.
func at(job string, i int, values map[string]string) checkpoint.Checkpoint {
	return checkpoint.Checkpoint{
		Job:       job,
		Timestamp: checkpoint.FormatTimestamp(base.Add(time.Duration(i) * time.Second)),
		Values:    values,
	}
}

// storeFactory creates a store instance for testing.
type storeFactory func(t *testing.T) checkpoint.Store

func newCassandraTestStore(t *testing.T) checkpoint.Store {
	m, err := metadata.New("ks", "checkpoints", schema.None[int64]())
	require.NoError(t, err)
	store, err := checkpoint.NewCassandraStore(context.Background(), newFakeSession(), m)
	require.NoError(t, err)
	return store
}

func newSQLiteTestStore(t *testing.T) checkpoint.Store {
	store, err := checkpoint.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	return store
}

func newMemoryTestStore(_ *testing.T) checkpoint.Store {
	return checkpoint.NewMemoryStore()
}

func TestStoreContract(t *testing.T) {
	storeContractTest(t, "Memory", newMemoryTestStore)
	storeContractTest(t, "SQLite", newSQLiteTestStore)
	storeContractTest(t, "Cassandra", newCassandraTestStore)
}

// storeContractTest runs contract tests against any Store implementation.
func storeContractTest(t *testing.T, name string, factory storeFactory) {
	ctx := context.Background()

	t.Run(name+"/Save_and_Latest", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		cp := at("job-1", 0, map[string]string{"offset": "42"})
		require.NoError(t, store.Save(ctx, cp))

		got, err := store.Latest(ctx, "job-1")
		require.NoError(t, err)
		assert.Equal(t, cp, got)
	})

	t.Run(name+"/Latest_NotFound", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		_, err := store.Latest(ctx, "job-missing")
		assert.ErrorIs(t, err, checkpoint.ErrNotFound)
	})

	t.Run(name+"/Save_Overwrite", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.Save(ctx, at("job-1", 0, map[string]string{"v": "first"})))
		require.NoError(t, store.Save(ctx, at("job-1", 0, map[string]string{"v": "second"})))

		cps, err := store.List(ctx, "job-1", 10)
		require.NoError(t, err)
		require.Len(t, cps, 1)
		assert.Equal(t, "second", cps[0].Values["v"])
	})

	t.Run(name+"/Save_Invalid", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		err := store.Save(ctx, checkpoint.Checkpoint{Timestamp: "t"})
		assert.ErrorIs(t, err, mserrors.ErrInvalidArgument)
	})

	t.Run(name+"/List_Empty", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		cps, err := store.List(ctx, "job-none", 5)
		require.NoError(t, err)
		assert.Empty(t, cps)
	})

	t.Run(name+"/List_NewestFirst_Limited", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		for _, i := range []int{3, 0, 4, 1, 2} {
			require.NoError(t, store.Save(ctx, at("job-1", i, map[string]string{"i": fmt.Sprint(i)})))
		}

		cps, err := store.List(ctx, "job-1", 3)
		require.NoError(t, err)
		require.Len(t, cps, 3)
		assert.Equal(t, "4", cps[0].Values["i"])
		assert.Equal(t, "3", cps[1].Values["i"])
		assert.Equal(t, "2", cps[2].Values["i"])
	})

	t.Run(name+"/List_InvalidLimit", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		_, err := store.List(ctx, "job-1", 0)
		assert.ErrorIs(t, err, mserrors.ErrInvalidArgument)
	})

	t.Run(name+"/Delete", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.Save(ctx, at("job-1", 0, nil)))
		require.NoError(t, store.Save(ctx, at("job-1", 1, nil)))

		require.NoError(t, store.Delete(ctx, "job-1", at("job-1", 0, nil).Timestamp))

		cps, err := store.List(ctx, "job-1", 10)
		require.NoError(t, err)
		require.Len(t, cps, 1)
		assert.Equal(t, at("job-1", 1, nil).Timestamp, cps[0].Timestamp)
	})

	t.Run(name+"/Delete_Nonexistent", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		assert.NoError(t, store.Delete(ctx, "job-1", "missing"))
	})

	t.Run(name+"/DeleteJob", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.Save(ctx, at("job-1", 0, nil)))
		require.NoError(t, store.Save(ctx, at("job-1", 1, nil)))
		require.NoError(t, store.Save(ctx, at("job-2", 0, nil)))

		require.NoError(t, store.DeleteJob(ctx, "job-1"))

		_, err := store.Latest(ctx, "job-1")
		assert.ErrorIs(t, err, checkpoint.ErrNotFound)

		_, err = store.Latest(ctx, "job-2")
		assert.NoError(t, err)
	})

	t.Run(name+"/Reset", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		require.NoError(t, store.Save(ctx, at("job-1", 0, nil)))
		require.NoError(t, store.Save(ctx, at("job-2", 0, nil)))

		require.NoError(t, store.Reset(ctx))

		for _, job := range []string{"job-1", "job-2"} {
			cps, err := store.List(ctx, job, 5)
			require.NoError(t, err)
			assert.Empty(t, cps)
		}

		require.NoError(t, store.Save(ctx, at("job-1", 5, nil)), "store usable after reset")
	})

	t.Run(name+"/Closed", func(t *testing.T) {
		store := factory(t)
		require.NoError(t, store.Close())

		assert.ErrorIs(t, store.Save(ctx, at("job-1", 0, nil)), checkpoint.ErrStoreClosed)
		_, err := store.List(ctx, "job-1", 1)
		assert.ErrorIs(t, err, checkpoint.ErrStoreClosed)
		assert.ErrorIs(t, store.Delete(ctx, "job-1", "t"), checkpoint.ErrStoreClosed)
		assert.ErrorIs(t, store.DeleteJob(ctx, "job-1"), checkpoint.ErrStoreClosed)

		assert.NoError(t, store.Close(), "double close is a no-op")
	})

	t.Run(name+"/Concurrent", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		var wg sync.WaitGroup
		for w := 0; w < 4; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				job := fmt.Sprintf("job-%d", w)
				for i := 0; i < 10; i++ {
					assert.NoError(t, store.Save(ctx, at(job, i, nil)))
					_, err := store.List(ctx, job, 3)
					assert.NoError(t, err)
				}
			}(w)
		}
		wg.Wait()

		for w := 0; w < 4; w++ {
			cps, err := store.List(ctx, fmt.Sprintf("job-%d", w), 100)
			require.NoError(t, err)
			assert.Len(t, cps, 10)
		}
	})
}
