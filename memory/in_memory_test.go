package memory

import (
	"sync"
	"testing"
	"time"

	"github.com/hupe1980/biosphere/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStore_AppendAndRead(t *testing.T) {
	store := NewInMemoryStore()
	assert.Equal(t, 0, store.Len())
	assert.Empty(t, store.Recent(3))

	for _, th := range []string{"a", "b", "c"} {
		store.Append(testutil.NewSignalBuilder().Thought(th).Build())
	}

	assert.Equal(t, 3, store.Len())
	assert.Equal(t, "a", store.All()[0].Thought)

	recent := store.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "b", recent[0].Thought)
	assert.Equal(t, "c", recent[1].Thought)

	assert.Len(t, store.Recent(10), 3)

	since := store.Since(2)
	require.Len(t, since, 1)
	assert.Equal(t, "c", since[0].Thought)
	assert.Nil(t, store.Since(3))
	assert.Len(t, store.Since(-1), 3)
}

func TestInMemoryStore_CopyIsolation(t *testing.T) {
	store := NewInMemoryStore()
	store.Append(testutil.NewSignalBuilder().Thought("orig").Build())

	all := store.All()
	all[0].Thought = "changed"

	assert.Equal(t, "orig", store.All()[0].Thought)
}

func TestInMemoryStore_Search(t *testing.T) {
	store := NewInMemoryStore()
	store.Append(testutil.NewSignalBuilder().Thought("x-axis").Pheromone(1, 0).Build())
	store.Append(testutil.NewSignalBuilder().Thought("diag").Pheromone(1, 1).Build())
	store.Append(testutil.NewSignalBuilder().Thought("y-axis").Pheromone(0, 1).Build())
	store.Append(testutil.NewSignalBuilder().Thought("unembedded").Build())
	store.Append(testutil.NewSignalBuilder().Thought("wrong-dim").Pheromone(1, 0, 0).Build())

	res := store.Search([]float64{1, 0.1}, 0.5, 0)
	require.Len(t, res, 2)
	assert.Equal(t, "x-axis", res[0].Signal.Thought)
	assert.Equal(t, "diag", res[1].Signal.Thought)

	res = store.Search([]float64{1, 0.1}, 0.5, 1)
	assert.Len(t, res, 1)

	// lenient: mismatched or empty vectors score 0 instead of failing
	assert.Empty(t, store.Search([]float64{1, 0, 0, 0}, 0.1, 0))
}

func TestInMemoryStore_SearchRecent(t *testing.T) {
	store := NewInMemoryStore()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, s := range testutil.Series(5, "a", start, 1, 0) {
		s.Thought = string(rune('a' + i))
		store.Append(s)
	}
	store.Append(testutil.NewSignalBuilder().Thought("off-topic").Pheromone(0, 1).Build())

	res := store.SearchRecent([]float64{1, 0}, 0.7, 3)
	require.Len(t, res, 3)
	assert.Equal(t, "c", res[0].Signal.Thought, "oldest of the three most recent first")
	assert.Equal(t, "e", res[2].Signal.Thought)
}

func TestInMemoryStore_Concurrent(t *testing.T) {
	store := NewInMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				store.Append(testutil.NewSignalBuilder().Build())
				_ = store.Recent(5)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 500, store.Len())
}
