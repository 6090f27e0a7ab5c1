package core

import (
	"context"
	"fmt"
	"strings"
)

// Agent defines the contract every member of a biosphere implements.
//
// Agents are addressed by a stable ID and communicate only through signals.
// The engine feeds them via Perceive and drains them via Emit once per tick.
//
// Implementations must:
//   - Never fail or block in Perceive (it is called from the coordinator)
//   - Return a finite stream from Emit that yields lazily: the next thought is
//     produced only after the previous one was received
//   - Close both Emit channels when done and stop producing when ctx ends
//   - Yield nothing (and avoid backend calls) when nothing new was perceived
//     since the last emission
type Agent interface {
	ID() string
	Name() string
	Receptors() ReceptorField
	Perceive(sig Signal)
	Emit(ctx context.Context) (<-chan string, <-chan error)
}

// AgentInfo is a value snapshot of an agent's identity used in snapshots,
// spawner requests and quorum checks.
type AgentInfo struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Patterns  []string `json:"patterns"`
	Threshold float64  `json:"threshold"`
}

// InfoOf captures the identity of a live agent.
func InfoOf(a Agent) AgentInfo {
	r := a.Receptors()
	return AgentInfo{
		ID:        a.ID(),
		Name:      a.Name(),
		Patterns:  append([]string(nil), r.Patterns...),
		Threshold: r.EffectiveThreshold(),
	}
}

// Description is the "name: patterns" phrase used for quorum comparisons.
func (i AgentInfo) Description() string {
	return fmt.Sprintf("%s: %s", i.Name, strings.Join(i.Patterns, ", "))
}
