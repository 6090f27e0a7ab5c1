package core

import "strings"

const (
	// DefaultThreshold is the resonance threshold applied when a ReceptorField
	// leaves Threshold unset.
	DefaultThreshold = 0.6

	// AnyPositive requests a threshold of exactly zero: the field resonates
	// with every positive similarity. Any negative Threshold behaves the same.
	AnyPositive = -1.0
)

// ReceptorField describes what an agent cares about. The engine derives one
// embedding per agent from Text() and matches pheromones against that cached
// vector, never against the raw patterns.
type ReceptorField struct {
	Patterns  []string `json:"patterns" yaml:"patterns"`
	Threshold float64  `json:"threshold" yaml:"threshold"`
}

// NewReceptorField builds a field with the default threshold.
func NewReceptorField(patterns ...string) ReceptorField {
	return ReceptorField{Patterns: patterns, Threshold: DefaultThreshold}
}

// EffectiveThreshold returns Threshold, DefaultThreshold when it is zero
// (unset), or 0 when it is negative (see AnyPositive).
func (r ReceptorField) EffectiveThreshold() float64 {
	switch {
	case r.Threshold == 0:
		return DefaultThreshold
	case r.Threshold < 0:
		return 0
	default:
		return r.Threshold
	}
}

// Text is the phrase embedded to obtain the receptor vector.
func (r ReceptorField) Text() string { return strings.Join(r.Patterns, "; ") }

// Resonates reports whether a precomputed similarity clears the threshold.
// The comparison is strict: similarity equal to the threshold does not resonate.
func (r ReceptorField) Resonates(similarity float64) bool {
	return similarity > r.EffectiveThreshold()
}
