package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/biosphere/agent"
	"github.com/hupe1980/biosphere/core"
	"github.com/hupe1980/biosphere/equilibrium"
	"github.com/hupe1980/biosphere/logging"
	"github.com/hupe1980/biosphere/memory"
	"github.com/hupe1980/biosphere/spawner"
	"github.com/hupe1980/biosphere/synapse"
)

// ErrAlreadyRunning is returned by Live while another Live run is active.
var ErrAlreadyRunning = errors.New("engine already running")

var errNilAgent = errors.New("nil agent")

// Intervention is broadcast as a system signal when the population stagnates.
const Intervention = "Stop deliberating. Decide now with the information available and state your final position."

// Engine is the router of a biosphere. It owns the population, the signal
// history, the receptor embedding cache and the synapse table, and drives
// the tick loop that routes every emitted thought by meaning.
//
// Core Responsibilities:
//   - Admission/removal: Birth embeds the receptor field before the agent
//     becomes visible; Death removes the agent and everything keyed by its id
//   - Routing: embed, record, detect spawn intent, resolve recipients and
//     couple them directly, through a synapse or via a bridge agent
//   - Convergence: run the equilibrium detector after every tick, intervene
//     on stagnation and stop at equilibrium
//
// Concurrency Model:
//   - Agents emit concurrently (errgroup, optional limit); every yielded
//     thought is handed to a single coordinator which routes it before the
//     agent is allowed to produce its next thought
//   - Routing is serialized by a route lock shared with Inject
//   - Registry and caches are guarded by an RWMutex; Birth and Death are
//     safe to call at any time, also from observers
//
// Error Handling:
//   - core.ErrDimensionMismatch and context cancellation end the run
//   - A failed embed of an emitted thought aborts only that thought
//   - Failed environment ticks, spawn and bridge attempts are logged and skipped
type Engine struct {
	// immutable after construction
	backend   core.Backend
	cfg       Config
	scenario  string
	spawner   any
	designer  BridgeDesigner
	env       core.Environment
	history   core.SignalStore
	synapses  *synapse.Table
	detector  *equilibrium.Detector
	observers *observerSet
	logger    logging.Logger
	now       func() time.Time

	// registry and caches
	mu           sync.RWMutex
	agents       map[string]core.Agent
	order        []string
	receptors    map[string][]float64
	descriptions map[string][]float64

	// routing state, guarded by routeMu
	routeMu sync.Mutex
	bridged map[synapse.Key]bool

	anchorMu       sync.Mutex
	spawnAnchors   [][]float64
	distressAnchor []float64

	dim       atomic.Int64
	tick      atomic.Int64
	running   atomic.Bool
	seeded    bool
	published int
}

// New creates an Engine on top of backend.
//
// Defaults: DefaultConfig(), equilibrium.DefaultConfig(), an in-memory
// history, a model-backed bridge designer on backend, a no-op logger.
func New(backend core.Backend, optFns ...func(o *Options)) *Engine {
	opts := Options{
		Config:      DefaultConfig(),
		Equilibrium: equilibrium.DefaultConfig(),
		Logger:      logging.NoOpLogger{},
		Now:         time.Now,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	logger := logging.OrNoOp(opts.Logger)

	if opts.History == nil {
		opts.History = memory.NewInMemoryStore()
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	e := &Engine{
		backend:      backend,
		cfg:          opts.Config,
		scenario:     opts.Scenario,
		spawner:      opts.Spawner,
		env:          opts.Environment,
		history:      opts.History,
		observers:    newObserverSet(opts.Observers),
		logger:       logger,
		now:          opts.Now,
		agents:       map[string]core.Agent{},
		receptors:    map[string][]float64{},
		descriptions: map[string][]float64{},
		bridged:      map[synapse.Key]bool{},
	}

	e.synapses = synapse.NewTable(backend, func(o *synapse.Options) {
		o.Logger = logger
		o.Now = opts.Now
	})

	if e.cfg.EnableDetector {
		e.detector = equilibrium.New(backend, func(o *equilibrium.Options) {
			o.Config = opts.Equilibrium
			o.Logger = logger
		})
	}

	if e.cfg.EnableBridging {
		e.designer = opts.BridgeDesigner
		if e.designer == nil {
			e.designer = spawner.NewBridgeDesigner(backend, logger)
		}
	}

	return e
}

// RegisterObserver adds an observer after construction.
func (e *Engine) RegisterObserver(o Observer) { e.observers.register(o) }

// Birth admits a new agent. The receptor field is embedded first; only then
// are the registry and receptor cache updated together, so the agent never
// sends or receives before its embedding exists.
func (e *Engine) Birth(ctx context.Context, a core.Agent) error {
	return e.birth(ctx, a, "manual")
}

func (e *Engine) birth(ctx context.Context, a core.Agent, reason string) error {
	if a == nil {
		return errNilAgent
	}

	id := a.ID()
	if e.has(id) {
		return fmt.Errorf("birth %s: %w", id, core.ErrDuplicateAgent)
	}

	vec, err := e.embed(ctx, a.Receptors().Text())
	if err != nil {
		return fmt.Errorf("birth %s: %w", id, err)
	}

	e.mu.Lock()
	if _, ok := e.agents[id]; ok {
		e.mu.Unlock()
		return fmt.Errorf("birth %s: %w", id, core.ErrDuplicateAgent)
	}
	e.agents[id] = a
	e.order = append(e.order, id)
	e.receptors[id] = vec
	e.mu.Unlock()

	info := core.InfoOf(a)
	e.logger.Info("engine.agent.birth", "agent", id, "name", info.Name, "reason", reason)
	e.notify(ctx, Event{Type: EventBirth, Tick: e.currentTick(), Agent: info, Reason: reason})

	return nil
}

// Death removes an agent together with its receptor and description cache
// entries and every synapse touching it.
func (e *Engine) Death(ctx context.Context, id string) error {
	e.mu.Lock()
	a, ok := e.agents[id]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("death %s: %w", id, core.ErrUnknownAgent)
	}
	delete(e.agents, id)
	delete(e.receptors, id)
	delete(e.descriptions, id)
	for i, other := range e.order {
		if other == id {
			e.order = append(e.order[:i:i], e.order[i+1:]...)
			break
		}
	}
	e.mu.Unlock()

	removed := e.synapses.RemoveAgent(id)

	e.logger.Info("engine.agent.death", "agent", id, "synapses", removed)
	e.notify(ctx, Event{Type: EventDeath, Tick: e.currentTick(), Agent: core.InfoOf(a), Reason: "removed"})

	return nil
}

// Inject embeds text as a signal from sourceID (core.SourceExternal when
// empty), records it and routes it. Signals from external and system
// sources reach every live agent.
func (e *Engine) Inject(ctx context.Context, text, sourceID string) (core.Signal, error) {
	if sourceID == "" {
		sourceID = core.SourceExternal
	}

	e.routeMu.Lock()
	defer e.routeMu.Unlock()

	sig, err := e.ingest(ctx, text, sourceID)
	if err != nil {
		return core.Signal{}, fmt.Errorf("inject: %w", err)
	}

	return sig, nil
}

// Live runs the biosphere: seeding (distress observer, goal seeding, opening
// scenario signal), then up to MaxTicks ticks. One snapshot is published per
// tick; the last one carries StatusEquilibrium or StatusExhausted. Both
// channels are closed when the run ends. A fatal error or the cancellation of
// ctx is reported on the error channel.
func (e *Engine) Live(ctx context.Context) (<-chan Snapshot, <-chan error) {
	out := make(chan Snapshot, e.cfg.SnapshotBuffer)
	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		defer close(out)

		if !e.running.CompareAndSwap(false, true) {
			errCh <- ErrAlreadyRunning
			return
		}
		defer e.running.Store(false)

		if err := e.run(ctx, out); err != nil {
			e.logger.Error("engine.run.failed", "error", err)
			errCh <- err
		}
	}()

	return out, errCh
}

func (e *Engine) run(ctx context.Context, out chan<- Snapshot) error {
	if err := e.seed(ctx); err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	for tick := 0; tick < e.cfg.MaxTicks; tick++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		snap, err := e.step(ctx, tick)
		if err != nil {
			return fmt.Errorf("tick %d: %w", tick, err)
		}

		select {
		case out <- snap:
		case <-ctx.Done():
			return ctx.Err()
		}

		if snap.Done() {
			return nil
		}

		if e.cfg.TickDelay > 0 {
			timer := time.NewTimer(e.cfg.TickDelay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}
	}

	return nil
}

// seed runs once per engine.
func (e *Engine) seed(ctx context.Context) error {
	if e.seeded {
		return nil
	}

	if e.cfg.EnableObserver && !e.has(agent.DistressObserverID) {
		if err := e.birth(ctx, agent.NewDistressObserver(e.backend, e.logger), "seed"); err != nil {
			return err
		}
	}

	if seeder, ok := e.spawner.(core.GoalSeeder); ok && e.scenario != "" {
		agents, err := seeder.SeedFromGoal(ctx, e.scenario, e.Agents())
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.logger.Warn("engine.seed.failed", "error", err)
		}

		for _, a := range agents {
			if a == nil {
				continue
			}
			if err := e.birth(ctx, a, "seed"); err != nil {
				if e.fatal(ctx, err) {
					return err
				}
				e.logger.Warn("engine.seed.skipped", "agent", a.ID(), "error", err)
			}
		}
	}

	if e.scenario != "" {
		if _, err := e.Inject(ctx, e.scenario, core.SourceExternal); err != nil {
			if e.fatal(ctx, err) {
				return err
			}
			e.logger.Warn("engine.seed.inject_failed", "error", err)
		}
	}

	e.seeded = true
	e.logger.Info("engine.seed.complete", "agents", len(e.Agents()))

	return nil
}

// step runs one tick: environment, concurrent emission, synapse pruning,
// detection and intervention.
func (e *Engine) step(ctx context.Context, tick int) (Snapshot, error) {
	start := time.Now()
	e.tick.Store(int64(tick))

	e.routeMu.Lock()
	e.bridged = map[synapse.Key]bool{}
	e.routeMu.Unlock()

	if err := e.environment(ctx, tick); err != nil {
		return Snapshot{}, err
	}

	// agents born from here on emit from the next tick
	emitters := e.liveAgents()
	e.logger.Debug("engine.tick.start", "tick", tick, "agents", len(emitters))

	if err := e.emitAll(ctx, emitters); err != nil {
		return Snapshot{}, err
	}

	if pruned := e.synapses.Prune(e.now(), e.cfg.SynapseIdle); len(pruned) > 0 {
		e.logger.Debug("engine.synapse.pruned", "tick", tick, "count", len(pruned))
	}

	snap := Snapshot{Tick: tick, Status: StatusRunning}

	if e.detector != nil {
		res, err := e.detector.Detect(ctx, e.scenario, e.history.All(), e.Agents())
		switch {
		case err == nil:
			snap.Equilibrium = &res
		case e.fatal(ctx, err):
			return Snapshot{}, err
		default:
			e.logger.Warn("engine.detector.failed", "tick", tick, "error", err)
		}
	}

	if res := snap.Equilibrium; res != nil {
		switch {
		case res.IsStagnant:
			intervened, err := e.intervene(ctx, tick)
			if err != nil {
				return Snapshot{}, err
			}
			snap.Intervened = intervened
		case res.AtEquilibrium:
			snap.Status = StatusEquilibrium
		}
	}

	if snap.Status == StatusRunning && tick >= e.cfg.MaxTicks-1 {
		snap.Status = StatusExhausted
	}

	total := e.history.Len()
	snap.Agents = e.Agents()
	snap.Signals = e.history.Since(e.published)
	snap.HistoryLen = total
	snap.Synapses = e.synapses.Stats()
	snap.Duration = time.Since(start)
	e.published = total

	e.logger.Info("engine.tick.complete",
		"tick", tick,
		"status", snap.Status,
		"agents", len(snap.Agents),
		"signals", len(snap.Signals),
		"duration", snap.Duration,
	)
	e.notify(ctx, Event{Type: EventTick, Tick: tick, Snapshot: &snap})

	return snap, nil
}

// intervene broadcasts the stagnation intervention as a system signal.
func (e *Engine) intervene(ctx context.Context, tick int) (bool, error) {
	e.routeMu.Lock()
	sig, err := e.ingest(ctx, Intervention, core.SourceSystem)
	e.routeMu.Unlock()

	if err != nil {
		if e.fatal(ctx, err) {
			return false, err
		}
		e.logger.Warn("engine.intervention.failed", "tick", tick, "error", err)
		return false, nil
	}

	e.logger.Info("engine.intervention", "tick", tick)
	e.notify(ctx, Event{Type: EventIntervention, Tick: tick, Signal: &sig})

	return true, nil
}

// environment ingests the environment's feedback for this tick. A failing
// environment only loses its own contribution.
func (e *Engine) environment(ctx context.Context, tick int) error {
	if e.env == nil {
		return nil
	}

	texts, err := e.env.Tick(ctx, core.EnvironmentState{
		Tick:    tick,
		Agents:  e.Agents(),
		Recent:  e.history.Recent(10),
		History: e.history.Len(),
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.logger.Warn("engine.environment.failed", "tick", tick, "error", err)
		return nil
	}

	for _, text := range texts {
		if err := e.route(ctx, emission{from: core.SourceEnvironment, thought: text}); err != nil {
			return err
		}
	}

	return nil
}

// Agents returns the live population in admission order.
func (e *Engine) Agents() []core.AgentInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()

	infos := make([]core.AgentInfo, 0, len(e.order))
	for _, id := range e.order {
		infos = append(infos, core.InfoOf(e.agents[id]))
	}
	return infos
}

// Agent returns a live agent by id.
func (e *Engine) Agent(id string) (core.Agent, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, ok := e.agents[id]
	return a, ok
}

// History returns every signal of the run in append order.
func (e *Engine) History() []core.Signal { return e.history.All() }

// Synapses returns statistics for every live synapse.
func (e *Engine) Synapses() []synapse.Stats { return e.synapses.Stats() }

func (e *Engine) liveAgents() []core.Agent {
	e.mu.RLock()
	defer e.mu.RUnlock()

	agents := make([]core.Agent, 0, len(e.order))
	for _, id := range e.order {
		agents = append(agents, e.agents[id])
	}
	return agents
}

func (e *Engine) has(id string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.agents[id]
	return ok
}

// info returns the identity of a live agent, or a bare id for departed or
// sentinel emitters.
func (e *Engine) info(id string) core.AgentInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if a, ok := e.agents[id]; ok {
		return core.InfoOf(a)
	}
	return core.AgentInfo{ID: id, Name: id}
}

func (e *Engine) currentTick() int { return int(e.tick.Load()) }

// embed calls the backend and enforces a constant dimensionality for the run.
func (e *Engine) embed(ctx context.Context, text string) ([]float64, error) {
	vec, err := e.backend.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	n := int64(len(vec))
	if n == 0 {
		return nil, fmt.Errorf("%w: empty embedding", core.ErrDimensionMismatch)
	}
	if e.dim.CompareAndSwap(0, n) {
		return vec, nil
	}
	if d := e.dim.Load(); d != n {
		return nil, fmt.Errorf("%w: got %d, want %d", core.ErrDimensionMismatch, n, d)
	}
	return vec, nil
}

// fatal reports whether err must end the run.
func (e *Engine) fatal(ctx context.Context, err error) bool {
	return errors.Is(err, core.ErrDimensionMismatch) || ctx.Err() != nil
}

func (e *Engine) notify(ctx context.Context, ev Event) {
	for _, err := range e.observers.notify(ctx, ev) {
		e.logger.Warn("engine.observer.failed", "event", ev.Type, "error", err)
	}
}
