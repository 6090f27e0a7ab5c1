package core

import (
	"time"

	"github.com/google/uuid"
)

// Reserved emitter identifiers for signals that do not originate from an agent.
const (
	// SourceExternal marks signals injected from outside the population (users, callers).
	SourceExternal = "external"
	// SourceSystem marks interventions issued by the engine itself.
	SourceSystem = "system"
	// SourceEnvironment marks feedback produced by an Environment collaborator.
	SourceEnvironment = "environment"
)

// IsSentinel reports whether id is one of the reserved non-agent emitters.
func IsSentinel(id string) bool {
	switch id {
	case SourceExternal, SourceSystem, SourceEnvironment:
		return true
	default:
		return false
	}
}

// IsBroadcaster reports whether signals from id are delivered to every live
// agent regardless of resonance.
func IsBroadcaster(id string) bool {
	return id == SourceExternal || id == SourceSystem
}

// Signal is the unit of communication inside a biosphere. After creation it
// must be treated as immutable: the engine appends it once to the history and
// never changes it. Derived signals (e.g. synapse relays) are new values.
//
// Pheromone is populated only by the engine and shares its backing array with
// every copy of the signal; callers must not write to it.
type Signal struct {
	ID             string    `json:"id"`
	Thought        string    `json:"thought"`
	EmittedBy      string    `json:"emitted_by"`
	Pheromone      []float64 `json:"pheromone,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
	InferredIntent string    `json:"inferred_intent,omitempty"`
	InferredTags   []string  `json:"inferred_tags,omitempty"`
}

// NewSignal creates a signal stamped with a fresh id and the current UTC time.
func NewSignal(thought, emittedBy string, pheromone []float64) Signal {
	return Signal{
		ID:        NewID(),
		Thought:   thought,
		EmittedBy: emittedBy,
		Pheromone: pheromone,
		Timestamp: time.Now().UTC(),
	}
}

// Relay returns a copy of the signal carrying a new thought attributed to
// emittedBy. ID, pheromone and timestamp are kept so the relay stays
// traceable to its origin.
func (s Signal) Relay(thought, emittedBy string) Signal {
	r := s
	r.Thought = thought
	r.EmittedBy = emittedBy
	return r
}

// Dimensions returns the pheromone dimensionality (0 when not yet embedded).
func (s Signal) Dimensions() int { return len(s.Pheromone) }

// NewID generates a new unique identifier for signals and generated agents.
func NewID() string { return uuid.NewString() }
