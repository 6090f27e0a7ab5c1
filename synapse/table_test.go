package synapse

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hupe1980/biosphere/core"
	"github.com/hupe1980/biosphere/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_GetOrCreateIsLazyAndOrdered(t *testing.T) {
	table := NewTable(testutil.NewStubBackend(2))

	_, ok := table.Get("econ", "law")
	assert.False(t, ok)

	s1 := table.GetOrCreate(econ, law, 0.6)
	s2 := table.GetOrCreate(econ, law, 0.9)
	assert.Same(t, s1, s2)
	assert.Equal(t, 0.6, s1.Stats().BaseSimilarity, "base similarity fixed at creation")

	reverse := table.GetOrCreate(law, econ, 0.6)
	assert.NotSame(t, s1, reverse)
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, Key{From: "law", To: "econ"}, reverse.Key())
}

func TestTable_RemoveAgent(t *testing.T) {
	other := core.AgentInfo{ID: "eng", Patterns: []string{"load"}}
	table := NewTable(testutil.NewStubBackend(2))
	table.GetOrCreate(econ, law, 0.6)
	table.GetOrCreate(law, econ, 0.6)
	table.GetOrCreate(econ, other, 0.6)

	assert.Equal(t, 2, table.RemoveAgent("law"))
	assert.Equal(t, 1, table.Len())
	assert.Equal(t, 0, table.RemoveAgent("law"))
}

func TestTable_Prune(t *testing.T) {
	clock := newClock()
	failing := testutil.NewStubBackend(2).OnChat(func([]core.Message) (string, error) {
		return "", errors.New("down")
	})
	table := NewTable(failing, func(o *Options) { o.Now = clock.Now })

	fired := table.GetOrCreate(econ, law, 0.6)
	fired.Transmit(context.Background(), testutil.NewSignalBuilder().Build())
	table.GetOrCreate(law, econ, 0.6) // never fired

	pruned := table.Prune(clock.t, DefaultIdleTimeout)
	assert.Equal(t, []Key{{From: "law", To: "econ"}}, pruned)

	pruned = table.Prune(clock.t.Add(DefaultIdleTimeout+time.Second), DefaultIdleTimeout)
	assert.Equal(t, []Key{{From: "econ", To: "law"}}, pruned)
	assert.Equal(t, 0, table.Len())
}

func TestTable_Stats(t *testing.T) {
	table := NewTable(testutil.NewStubBackend(2))
	table.GetOrCreate(law, econ, 0.7)
	table.GetOrCreate(econ, law, 0.6)

	stats := table.Stats()
	require.Len(t, stats, 2)
	assert.Equal(t, "econ", stats[0].From)
	assert.Equal(t, "law", stats[1].From)
}
