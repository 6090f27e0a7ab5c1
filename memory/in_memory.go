package memory

import (
	"sort"
	"sync"

	"github.com/hupe1980/biosphere/core"
	"github.com/hupe1980/biosphere/similarity"
)

// InMemoryStore is a process-local, append-only core.SignalStore.
//
// Concurrency: protected by RWMutex. Reads return copies of the signal
// slice; signals themselves are values and share only their pheromone
// backing arrays, which callers must treat as read-only.
// Search: linear scan with lenient cosine similarity.
type InMemoryStore struct {
	mu      sync.RWMutex
	signals []core.Signal
}

var _ core.SignalStore = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty history.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Append adds sig to the end of the history.
func (m *InMemoryStore) Append(sig core.Signal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signals = append(m.signals, sig)
}

// All returns the full history in append order.
func (m *InMemoryStore) All() []core.Signal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]core.Signal(nil), m.signals...)
}

// Len returns the number of stored signals.
func (m *InMemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.signals)
}

// Since returns the signals appended at or after index.
func (m *InMemoryStore) Since(index int) []core.Signal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if index < 0 {
		index = 0
	}
	if index >= len(m.signals) {
		return nil
	}
	return append([]core.Signal(nil), m.signals[index:]...)
}

// Recent returns the last n signals in append order.
func (m *InMemoryStore) Recent(n int) []core.Signal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n <= 0 {
		return nil
	}
	if n > len(m.signals) {
		n = len(m.signals)
	}
	return append([]core.Signal(nil), m.signals[len(m.signals)-n:]...)
}

// Search returns up to limit signals scoring strictly above minScore,
// ordered by score descending (ties keep append order). limit <= 0 means no
// limit.
func (m *InMemoryStore) Search(query []float64, minScore float64, limit int) []core.SearchResult {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]core.SearchResult, 0)
	for _, sig := range m.signals {
		if s := similarity.Similarity(query, sig.Pheromone); s > minScore {
			results = append(results, core.SearchResult{Signal: sig, Score: s})
		}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// SearchRecent returns the limit most recent signals scoring strictly above
// minScore, oldest first.
func (m *InMemoryStore) SearchRecent(query []float64, minScore float64, limit int) []core.SearchResult {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []core.SearchResult
	for i := len(m.signals) - 1; i >= 0; i-- {
		if limit > 0 && len(results) == limit {
			break
		}
		sig := m.signals[i]
		if s := similarity.Similarity(query, sig.Pheromone); s > minScore {
			results = append(results, core.SearchResult{Signal: sig, Score: s})
		}
	}

	for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
		results[i], results[j] = results[j], results[i]
	}
	return results
}
