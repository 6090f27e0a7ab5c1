package testutil

import (
	"time"

	"github.com/hupe1980/biosphere/core"
)

// SignalBuilder provides a fluent helper for constructing signals in tests.
// Example:
//
//	sig := NewSignalBuilder().From("a").Thought("hello").Pheromone(1, 0).Build()
//
// Chain only the parts you need; sensible defaults are applied.
type SignalBuilder struct {
	id        string
	thought   string
	from      string
	pheromone []float64
	at        time.Time
}

// NewSignalBuilder creates a builder with default emitter "agent".
func NewSignalBuilder() *SignalBuilder { return &SignalBuilder{from: "agent", thought: "thought"} }

// ID overrides the auto-generated signal ID (chainable).
func (b *SignalBuilder) ID(id string) *SignalBuilder { b.id = id; return b }

// Thought sets the signal text (chainable).
func (b *SignalBuilder) Thought(t string) *SignalBuilder { b.thought = t; return b }

// From sets the emitter id (chainable).
func (b *SignalBuilder) From(id string) *SignalBuilder { b.from = id; return b }

// Pheromone sets the embedding vector (chainable).
func (b *SignalBuilder) Pheromone(v ...float64) *SignalBuilder { b.pheromone = v; return b }

// At overrides the timestamp (chainable).
func (b *SignalBuilder) At(t time.Time) *SignalBuilder { b.at = t; return b }

// Build constructs the core.Signal value.
func (b *SignalBuilder) Build() core.Signal {
	sig := core.NewSignal(b.thought, b.from, b.pheromone)
	if b.id != "" {
		sig.ID = b.id
	}
	if !b.at.IsZero() {
		sig.Timestamp = b.at
	}
	return sig
}

// Series builds n signals from the same emitter spaced one second apart
// starting at start, each carrying the given pheromone.
func Series(n int, from string, start time.Time, pheromone ...float64) []core.Signal {
	out := make([]core.Signal, n)
	for i := range out {
		out[i] = NewSignalBuilder().
			From(from).
			Thought(from + " says something").
			Pheromone(pheromone...).
			At(start.Add(time.Duration(i) * time.Second)).
			Build()
	}
	return out
}
