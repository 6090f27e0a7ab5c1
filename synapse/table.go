package synapse

import (
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/biosphere/core"
)

// DefaultIdleTimeout is the idle period after which a low-efficacy synapse is pruned.
const DefaultIdleTimeout = 5 * time.Minute

// Key identifies the synapse of an ordered agent pair.
type Key struct {
	From string
	To   string
}

// Table holds the sparse map of synapses keyed by ordered pair. Synapses are
// created lazily on first use.
type Table struct {
	backend core.Backend
	optFns  []func(o *Options)

	mu       sync.Mutex
	synapses map[Key]*Synapse
}

// NewTable creates an empty table. optFns are applied to every synapse it creates.
func NewTable(backend core.Backend, optFns ...func(o *Options)) *Table {
	return &Table{
		backend:  backend,
		optFns:   optFns,
		synapses: map[Key]*Synapse{},
	}
}

// GetOrCreate returns the synapse for (from, to), creating it with
// baseSimilarity if it does not exist yet.
func (t *Table) GetOrCreate(from, to core.AgentInfo, baseSimilarity float64) *Synapse {
	key := Key{From: from.ID, To: to.ID}

	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.synapses[key]; ok {
		return s
	}
	s := New(from, to, baseSimilarity, t.backend, t.optFns...)
	t.synapses[key] = s
	return s
}

// Get returns the synapse for (from, to) if it exists.
func (t *Table) Get(from, to string) (*Synapse, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.synapses[Key{From: from, To: to}]
	return s, ok
}

// Len returns the number of synapses.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.synapses)
}

// RemoveAgent drops every synapse touching id and returns how many were removed.
func (t *Table) RemoveAgent(id string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for k := range t.synapses {
		if k.From == id || k.To == id {
			delete(t.synapses, k)
			removed++
		}
	}
	return removed
}

// Prune drops every synapse for which ShouldPrune(now, idle) holds and
// returns their keys in sorted order.
func (t *Table) Prune(now time.Time, idle time.Duration) []Key {
	t.mu.Lock()
	defer t.mu.Unlock()
	var pruned []Key
	for k, s := range t.synapses {
		if s.ShouldPrune(now, idle) {
			delete(t.synapses, k)
			pruned = append(pruned, k)
		}
	}
	sortKeys(pruned)
	return pruned
}

// Stats returns a snapshot of every synapse sorted by key.
func (t *Table) Stats() []Stats {
	t.mu.Lock()
	list := make([]*Synapse, 0, len(t.synapses))
	for _, s := range t.synapses {
		list = append(list, s)
	}
	t.mu.Unlock()

	out := make([]Stats, 0, len(list))
	for _, s := range list {
		out = append(out, s.Stats())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].From != keys[j].From {
			return keys[i].From < keys[j].From
		}
		return keys[i].To < keys[j].To
	})
}
