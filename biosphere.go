// Package biosphere provides a high-level facade over the engine and its
// collaborators for building self-organizing multi-agent deliberations in
// which messages are routed by meaning rather than by address. Most
// applications interact with this package by:
//  1. Creating a Biosphere via New() on top of a core.Backend, or via
//     NewFromConfig() from a loaded config.Config
//  2. Adding agents with Birth (or letting the spawner seed them from the
//     scenario)
//  3. Running it with Live (snapshot stream) or Run (drained result)
//
// The facade delegates orchestration to engine.Engine while keeping setup
// concise. All defaults are safe for local development: in-memory history,
// a model-backed spawner on the same backend and a no-op logger.
package biosphere

import (
	"context"
	"fmt"

	"github.com/hupe1980/biosphere/config"
	"github.com/hupe1980/biosphere/core"
	"github.com/hupe1980/biosphere/engine"
	"github.com/hupe1980/biosphere/equilibrium"
	"github.com/hupe1980/biosphere/logging"
	"github.com/hupe1980/biosphere/spawner"
)

// Options configures the Biosphere instance.
type Options struct {
	// EngineConfig holds routing thresholds and tick bounds.
	EngineConfig engine.Config

	// Equilibrium tunes the convergence detector.
	Equilibrium equilibrium.Config

	// Scenario is the deliberation goal.
	Scenario string

	// Spawner may implement any subset of core.GoalSeeder, core.HelperSpawner
	// and core.BridgeSpawner. Defaults to a spawner.ModelSpawner on the
	// backend unless DisableSpawner is set.
	Spawner        any
	DisableSpawner bool

	// MaxSeedAgents bounds the default spawner's goal seeding.
	MaxSeedAgents int

	// Environment optionally contributes feedback signals every tick.
	Environment core.Environment

	// History defaults to an in-memory store.
	History core.SignalStore

	Observers []engine.Observer

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Biosphere is the high-level facade aggregating the engine and its collaborators.
type Biosphere struct {
	opts    Options
	backend core.Backend
	engine  *engine.Engine
}

// Result is the outcome of a drained run.
type Result struct {
	// Snapshots holds every published tick in order.
	Snapshots []engine.Snapshot
	// Final is the last snapshot, zero when no tick completed.
	Final engine.Snapshot
	// History is the complete signal history at the end of the run.
	History []core.Signal
}

// New creates a Biosphere on top of backend with optional overrides.
func New(backend core.Backend, optFns ...func(o *Options)) *Biosphere {
	opts := Options{
		EngineConfig:  engine.DefaultConfig(),
		Equilibrium:   equilibrium.DefaultConfig(),
		MaxSeedAgents: spawner.DefaultMaxSeedAgents,
		Logger:        logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	opts.Logger = logging.OrNoOp(opts.Logger)

	if opts.Spawner == nil && !opts.DisableSpawner {
		opts.Spawner = spawner.New(backend, func(o *spawner.Options) {
			o.MaxSeedAgents = opts.MaxSeedAgents
			o.Logger = opts.Logger
		})
	}

	e := engine.New(backend, func(o *engine.Options) {
		o.Config = opts.EngineConfig
		o.Equilibrium = opts.Equilibrium
		o.Scenario = opts.Scenario
		o.Spawner = opts.Spawner
		o.Environment = opts.Environment
		o.History = opts.History
		o.Observers = opts.Observers
		o.Logger = opts.Logger
	})

	return &Biosphere{opts: opts, backend: backend, engine: e}
}

// NewFromConfig builds the logger, the backend and the Biosphere described
// by cfg. The returned flush function syncs the logger.
func NewFromConfig(ctx context.Context, cfg *config.Config, optFns ...func(o *Options)) (*Biosphere, func() error, error) {
	logger, flush, err := cfg.BuildLogger()
	if err != nil {
		return nil, nil, err
	}

	backend, err := cfg.BuildBackend(ctx, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("build backend: %w", err)
	}

	b := New(backend, append([]func(o *Options){func(o *Options) {
		o.EngineConfig = cfg.Engine
		o.Equilibrium = cfg.Equilibrium
		o.Scenario = cfg.Scenario
		o.DisableSpawner = !cfg.Spawner.Enabled
		o.MaxSeedAgents = cfg.Spawner.MaxSeedAgents
		o.Logger = logger
	}}, optFns...)...)

	return b, flush, nil
}

// Backend returns the backend every component of this Biosphere calls.
func (b *Biosphere) Backend() core.Backend { return b.backend }

// Engine exposes the underlying engine.
func (b *Biosphere) Engine() *engine.Engine { return b.engine }

// Birth admits an agent.
func (b *Biosphere) Birth(ctx context.Context, a core.Agent) error { return b.engine.Birth(ctx, a) }

// Death removes an agent.
func (b *Biosphere) Death(ctx context.Context, id string) error { return b.engine.Death(ctx, id) }

// Inject routes an external utterance into the population.
func (b *Biosphere) Inject(ctx context.Context, text string) (core.Signal, error) {
	return b.engine.Inject(ctx, text, core.SourceExternal)
}

// Agents returns the live population.
func (b *Biosphere) Agents() []core.AgentInfo { return b.engine.Agents() }

// History returns every signal so far.
func (b *Biosphere) History() []core.Signal { return b.engine.History() }

// RegisterObserver adds a lifecycle observer.
func (b *Biosphere) RegisterObserver(o engine.Observer) { b.engine.RegisterObserver(o) }

// Live starts an asynchronous run returning snapshot & error channels.
func (b *Biosphere) Live(ctx context.Context) (<-chan engine.Snapshot, <-chan error) {
	return b.engine.Live(ctx)
}

// Run is a synchronous helper that drains Live and accumulates the snapshots.
func (b *Biosphere) Run(ctx context.Context) (Result, error) {
	snapCh, errCh := b.engine.Live(ctx)

	var res Result
	for {
		select {
		case <-ctx.Done():
			// drain so the run goroutine can exit
			for range snapCh {
			}
			res.History = b.engine.History()
			return res, ctx.Err()

		case snap, ok := <-snapCh:
			if !ok {
				err := <-errCh
				res.History = b.engine.History()
				return res, err
			}
			res.Snapshots = append(res.Snapshots, snap)
			res.Final = snap
		}
	}
}
