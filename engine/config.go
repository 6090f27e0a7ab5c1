package engine

import (
	"context"
	"time"

	"github.com/hupe1980/biosphere/core"
	"github.com/hupe1980/biosphere/equilibrium"
	"github.com/hupe1980/biosphere/logging"
)

// Config defines the tuning parameters of a biosphere run.
//
// The coupling thresholds split candidate recipients into tiers by the
// cosine similarity between a pheromone and the recipient's receptor
// embedding. Every comparison is strict, so a boundary value always falls
// to the weaker tier:
//
//	similarity > DirectThreshold   deliver untouched
//	similarity > SynapseThreshold  deliver through the (from,to) synapse
//	similarity > BridgeThreshold   do not deliver, try to spawn a bridge
//	otherwise                      drop
type Config struct {
	// MaxTicks bounds the number of ticks a Live run performs.
	MaxTicks int `yaml:"max_ticks" json:"max_ticks"`

	// TickDelay is an optional pause between ticks.
	TickDelay time.Duration `yaml:"tick_delay" json:"tick_delay"`

	// Concurrency limits how many agents emit at the same time. Zero is unlimited.
	Concurrency int `yaml:"concurrency" json:"concurrency"`

	DirectThreshold  float64 `yaml:"direct_threshold" json:"direct_threshold"`
	SynapseThreshold float64 `yaml:"synapse_threshold" json:"synapse_threshold"`
	BridgeThreshold  float64 `yaml:"bridge_threshold" json:"bridge_threshold"`

	// AmbientThreshold and AmbientLimit drive ambient awareness, the fallback
	// resolution used when nobody resonates with a signal.
	AmbientThreshold float64 `yaml:"ambient_threshold" json:"ambient_threshold"`
	AmbientLimit     int     `yaml:"ambient_limit" json:"ambient_limit"`

	// SpawnIntentThreshold is the similarity to any spawn anchor above which a
	// thought is treated as a helper request.
	SpawnIntentThreshold float64 `yaml:"spawn_intent_threshold" json:"spawn_intent_threshold"`

	// QuorumThreshold rejects a candidate whose name is too similar to the
	// description of a live agent.
	QuorumThreshold float64 `yaml:"quorum_threshold" json:"quorum_threshold"`

	// ReplayThreshold and ReplayLimit select the distress-related history
	// replayed into a freshly spawned helper.
	ReplayThreshold float64 `yaml:"replay_threshold" json:"replay_threshold"`
	ReplayLimit     int     `yaml:"replay_limit" json:"replay_limit"`

	// SynapseIdle is the idle period after which an ineffective synapse is pruned.
	SynapseIdle time.Duration `yaml:"synapse_idle" json:"synapse_idle"`

	EnableDetector bool `yaml:"enable_detector" json:"enable_detector"`
	EnableObserver bool `yaml:"enable_observer" json:"enable_observer"`
	EnableBridging bool `yaml:"enable_bridging" json:"enable_bridging"`

	// SnapshotBuffer is the buffer size of the Live snapshot channel. Zero
	// makes Live fully lazy: a tick starts only after the previous snapshot
	// was received.
	SnapshotBuffer int `yaml:"snapshot_buffer" json:"snapshot_buffer"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		MaxTicks:             20,
		DirectThreshold:      0.8,
		SynapseThreshold:     0.5,
		BridgeThreshold:      0.3,
		AmbientThreshold:     0.4,
		AmbientLimit:         3,
		SpawnIntentThreshold: 0.75,
		QuorumThreshold:      0.75,
		ReplayThreshold:      0.7,
		ReplayLimit:          3,
		SynapseIdle:          5 * time.Minute,
		EnableDetector:       true,
		EnableObserver:       true,
		EnableBridging:       true,
	}
}

// BridgeDesigner proposes a translator blueprint for a weakly coupled pair.
// spawner.BridgeDesigner is the model-backed implementation.
type BridgeDesigner interface {
	DesignBridge(ctx context.Context, bc core.BridgeContext) (core.Blueprint, error)
}

// Options configures an Engine instance using the functional options pattern.
//
// Every collaborator is optional except the backend passed to New:
//
//	eng := engine.New(backend, func(o *engine.Options) {
//	    o.Scenario = "Decide whether to build the dam"
//	    o.Spawner = spawner.New(backend)
//	    o.Logger = logger
//	})
type Options struct {
	// Config contains operational parameters. Defaults to DefaultConfig().
	Config Config

	// Equilibrium tunes the convergence detector.
	Equilibrium equilibrium.Config

	// Scenario is the deliberation goal. It seeds the population, is injected
	// as the opening external signal and keys the detector's ideal state.
	Scenario string

	// Spawner may implement any of core.GoalSeeder, core.HelperSpawner and
	// core.BridgeSpawner. Missing operations mean "no proposal".
	Spawner any

	// BridgeDesigner invents bridge blueprints. Defaults to a model-backed
	// designer on the engine backend when bridging is enabled.
	BridgeDesigner BridgeDesigner

	// Environment, when set, contributes feedback signals every tick.
	Environment core.Environment

	// History stores every signal of the run. Defaults to an in-memory store.
	History core.SignalStore

	// Observers are notified about lifecycle events.
	Observers []Observer

	// Logger provides structured logging. Defaults to a no-op logger.
	Logger logging.Logger

	// Now is the clock used for synapse bookkeeping. Defaults to time.Now.
	Now func() time.Time
}
