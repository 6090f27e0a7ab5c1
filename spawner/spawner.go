// Package spawner proposes new agents with the help of a language model.
//
// ModelSpawner implements every spawner operation consumed by the engine
// (goal seeding, helper spawning, bridge materialization). BridgeDesigner
// invents translator blueprints for weakly coupled pairs. Model output is
// parsed into typed blueprints here; raw text never reaches the engine.
package spawner

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/biosphere/agent"
	"github.com/hupe1980/biosphere/core"
	"github.com/hupe1980/biosphere/internal/util"
	"github.com/hupe1980/biosphere/logging"
)

// DefaultMaxSeedAgents bounds the population proposed for a goal.
const DefaultMaxSeedAgents = 5

// Options configures a ModelSpawner.
type Options struct {
	MaxSeedAgents int
	Logger        logging.Logger
	// AgentOptions are applied to every ModelAgent the spawner creates.
	AgentOptions []func(o *agent.ModelAgentOptions)
}

// ModelSpawner creates model-backed agents from blueprints proposed by a backend.
type ModelSpawner struct {
	backend core.Backend
	opts    Options
	logger  logging.Logger
}

var (
	_ core.GoalSeeder    = (*ModelSpawner)(nil)
	_ core.HelperSpawner = (*ModelSpawner)(nil)
	_ core.BridgeSpawner = (*ModelSpawner)(nil)
)

// New creates a ModelSpawner.
func New(backend core.Backend, optFns ...func(o *Options)) *ModelSpawner {
	opts := Options{
		MaxSeedAgents: DefaultMaxSeedAgents,
		Logger:        logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &ModelSpawner{
		backend: backend,
		opts:    opts,
		logger:  logging.OrNoOp(opts.Logger),
	}
}

// SeedFromGoal implements core.GoalSeeder. Malformed proposals and proposals
// colliding with an existing id are logged and skipped.
func (s *ModelSpawner) SeedFromGoal(ctx context.Context, goal string, existing []core.AgentInfo) ([]core.Agent, error) {
	prompt, err := util.RenderTemplate(seedPrompt, map[string]any{
		"Goal":     goal,
		"Existing": existing,
		"Max":      s.opts.MaxSeedAgents,
	})
	if err != nil {
		return nil, err
	}

	reply, err := s.backend.Chat(ctx, []core.Message{core.UserMessage(prompt)})
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}

	bps, err := ParseBlueprints(reply)
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}

	taken := make(map[string]bool, len(existing)+len(bps))
	for _, info := range existing {
		taken[info.ID] = true
	}

	agents := make([]core.Agent, 0, len(bps))
	for _, bp := range bps {
		if len(agents) >= s.opts.MaxSeedAgents {
			break
		}
		if taken[bp.ID] {
			s.logger.Warn("spawner.seed.duplicate", "id", bp.ID)
			continue
		}
		a, err := agent.NewModelAgentFromBlueprint(bp, s.backend, s.opts.AgentOptions...)
		if err != nil {
			s.logger.Warn("spawner.seed.malformed", "id", bp.ID, "error", err)
			continue
		}
		taken[bp.ID] = true
		agents = append(agents, a)
	}

	s.logger.Info("spawner.seed.complete", "proposed", len(bps), "accepted", len(agents))

	return agents, nil
}

// SpawnHelperForDistress implements core.HelperSpawner. A malformed proposal
// yields no agent and no error.
func (s *ModelSpawner) SpawnHelperForDistress(ctx context.Context, sig core.Signal, existing []core.AgentInfo) (core.Agent, error) {
	prompt, err := util.RenderTemplate(helperPrompt, map[string]any{
		"Signal":   sig,
		"Existing": existing,
	})
	if err != nil {
		return nil, err
	}

	reply, err := s.backend.Chat(ctx, []core.Message{core.UserMessage(prompt)})
	if err != nil {
		return nil, fmt.Errorf("helper: %w", err)
	}

	bp, err := ParseBlueprint(reply)
	if err != nil {
		if errors.Is(err, core.ErrMalformedBlueprint) || errors.Is(err, errNoBlueprint) {
			s.logger.Warn("spawner.helper.malformed", "error", err)
			return nil, nil
		}
		return nil, err
	}

	return agent.NewModelAgentFromBlueprint(bp, s.backend, s.opts.AgentOptions...)
}

// SpawnBridgeAgent implements core.BridgeSpawner. Blueprints without an
// instruction get the default translator persona.
func (s *ModelSpawner) SpawnBridgeAgent(_ context.Context, bp core.Blueprint, bc core.BridgeContext) (core.Agent, error) {
	if bp.Instruction == "" {
		bp.Instruction = bridgePersona
	}

	s.logger.Debug("spawner.bridge.materialize", "id", bp.ID, "source", bc.Source.ID, "target", bc.Target.ID)

	return agent.NewModelAgentFromBlueprint(bp, s.backend, s.opts.AgentOptions...)
}

// BridgeDesigner asks a backend to invent a translator persona for a weakly
// coupled pair.
type BridgeDesigner struct {
	backend core.Backend
	logger  logging.Logger
}

// NewBridgeDesigner creates a BridgeDesigner.
func NewBridgeDesigner(backend core.Backend, logger logging.Logger) *BridgeDesigner {
	return &BridgeDesigner{backend: backend, logger: logging.OrNoOp(logger)}
}

// DesignBridge proposes a validated blueprint. A missing id is derived from
// the name; a proposal without patterns fails with core.ErrMalformedBlueprint.
func (d *BridgeDesigner) DesignBridge(ctx context.Context, bc core.BridgeContext) (core.Blueprint, error) {
	prompt, err := util.RenderTemplate(bridgePrompt, bc)
	if err != nil {
		return core.Blueprint{}, err
	}

	reply, err := d.backend.Chat(ctx, []core.Message{core.UserMessage(prompt)})
	if err != nil {
		return core.Blueprint{}, fmt.Errorf("design bridge: %w", err)
	}

	bp, err := ParseBlueprint(reply)
	if err != nil {
		return core.Blueprint{}, fmt.Errorf("design bridge: %w", err)
	}

	if bp.Instruction == "" {
		bp.Instruction = bridgePersona
	}

	d.logger.Debug("spawner.bridge.designed", "id", bp.ID, "name", bp.Name)

	return bp, nil
}
