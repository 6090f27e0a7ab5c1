package core

import (
	"context"
	"fmt"
	"strings"
)

// Blueprint is an already-parsed proposal for a new agent. Spawners and
// bridge designers hand typed blueprints across the engine boundary; raw
// model output never crosses it.
type Blueprint struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Patterns    []string `json:"patterns" yaml:"patterns"`
	Threshold   float64  `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Instruction string   `json:"instruction,omitempty" yaml:"instruction,omitempty"`
}

// Validate reports ErrMalformedBlueprint when id or patterns are missing.
func (b Blueprint) Validate() error {
	if strings.TrimSpace(b.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrMalformedBlueprint)
	}
	for _, p := range b.Patterns {
		if strings.TrimSpace(p) != "" {
			return nil
		}
	}
	return fmt.Errorf("%w: %s has no patterns", ErrMalformedBlueprint, b.ID)
}

// DisplayName returns Name, falling back to ID.
func (b Blueprint) DisplayName() string {
	if b.Name != "" {
		return b.Name
	}
	return b.ID
}

// Receptors converts the blueprint patterns into a ReceptorField.
func (b Blueprint) Receptors() ReceptorField {
	return ReceptorField{Patterns: b.Patterns, Threshold: b.Threshold}
}

// Spawner operations. A spawner may implement any subset; the engine
// type-asserts each one and treats a missing operation as "no proposal".

// GoalSeeder proposes the initial population for a goal.
type GoalSeeder interface {
	SeedFromGoal(ctx context.Context, goal string, existing []AgentInfo) ([]Agent, error)
}

// HelperSpawner proposes a helper when a distress signal is detected. A nil
// agent with nil error means no proposal.
type HelperSpawner interface {
	SpawnHelperForDistress(ctx context.Context, sig Signal, existing []AgentInfo) (Agent, error)
}

// BridgeContext describes the weakly coupled pair a bridge should translate between.
type BridgeContext struct {
	Source AgentInfo
	Target AgentInfo
	Signal Signal
}

// BridgeSpawner materializes a bridge agent from a proposed blueprint.
type BridgeSpawner interface {
	SpawnBridgeAgent(ctx context.Context, bp Blueprint, bc BridgeContext) (Agent, error)
}
