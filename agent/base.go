package agent

import (
	"sync"

	"github.com/hupe1980/biosphere/core"
)

// BaseAgent bundles identity, receptors and the private perception log
// shared by every agent variant. Embed it in concrete agent implementations
// and supply an Emit method to satisfy the core.Agent interface. All
// exported methods are goroutine-safe.
type BaseAgent struct {
	id        string
	name      string
	receptors core.ReceptorField

	mu          sync.Mutex
	perceptions []core.Signal // ordered, append-only
	watermark   int           // len(perceptions) at last emission
}

// NewBaseAgent constructs a BaseAgent. An empty name falls back to id; an
// unset threshold becomes core.DefaultThreshold while core.AnyPositive is kept.
func NewBaseAgent(id, name string, receptors core.ReceptorField) BaseAgent {
	if name == "" {
		name = id
	}
	if receptors.Threshold == 0 {
		receptors.Threshold = core.DefaultThreshold
	}
	return BaseAgent{
		id:        id,
		name:      name,
		receptors: receptors,
	}
}

// ID returns the stable identifier of this agent.
func (b *BaseAgent) ID() string { return b.id }

// Name returns the human-readable name for this agent.
func (b *BaseAgent) Name() string { return b.name }

// Receptors returns the receptor field the engine matches signals against.
func (b *BaseAgent) Receptors() core.ReceptorField { return b.receptors }

// Info returns the identity snapshot of this agent.
func (b *BaseAgent) Info() core.AgentInfo {
	return core.AgentInfo{
		ID:        b.id,
		Name:      b.name,
		Patterns:  append([]string(nil), b.receptors.Patterns...),
		Threshold: b.receptors.EffectiveThreshold(),
	}
}

// Perceive appends sig to the perception log. It never fails.
func (b *BaseAgent) Perceive(sig core.Signal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.perceptions = append(b.perceptions, sig)
}

// Perceptions returns a copy of the perception log.
func (b *BaseAgent) Perceptions() []core.Signal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]core.Signal(nil), b.perceptions...)
}

// Pending returns a snapshot of the full perception log and whether it grew
// since the last Advance.
func (b *BaseAgent) Pending() ([]core.Signal, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.perceptions) <= b.watermark {
		return nil, false
	}
	return append([]core.Signal(nil), b.perceptions...), true
}

// Latest returns the most recent perception if it arrived after the last
// Advance.
func (b *BaseAgent) Latest() (core.Signal, int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.perceptions)
	if n <= b.watermark {
		return core.Signal{}, n, false
	}
	return b.perceptions[n-1], n, true
}

// Advance moves the watermark to n. The watermark never moves backwards.
func (b *BaseAgent) Advance(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n > b.watermark {
		b.watermark = n
	}
}
