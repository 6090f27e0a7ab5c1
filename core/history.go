package core

// SignalStore is the append-only signal history of a run. Implementations
// must never mutate or reorder appended signals. Search uses the lenient
// similarity (empty or unequal vectors score 0) so a query never fails.
type SignalStore interface {
	Append(sig Signal)
	All() []Signal
	Len() int
	Since(index int) []Signal
	Recent(n int) []Signal
	Search(query []float64, minScore float64, limit int) []SearchResult
	SearchRecent(query []float64, minScore float64, limit int) []SearchResult
}

// SearchResult is a stored signal with its similarity to the query.
type SearchResult struct {
	Signal Signal
	Score  float64
}
