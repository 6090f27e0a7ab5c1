// Package equilibrium decides when a deliberation has converged.
//
// The detector scores the run history as an energy in [0,1] built from
// tension (distance to a backend-derived ideal state), momentum (signal rate
// trend), coherence (mutual similarity of recent signals) and clarity
// (closeness to "decision reached" anchors). A run is at equilibrium when
// the energy is low and its gradient flat. A separate stagnation verdict
// flags runs stuck at high tension.
package equilibrium

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/hupe1980/biosphere/core"
	"github.com/hupe1980/biosphere/internal/util"
	"github.com/hupe1980/biosphere/logging"
	"github.com/hupe1980/biosphere/similarity"
)

const idealStatePrompt = `A group of specialists is deliberating on the following scenario.
Describe in two or three sentences what the conversation looks like once it is fully resolved: the decision taken and why everyone agrees.

Scenario: {{.}}`

// Result is the verdict of one detector invocation.
type Result struct {
	AtEquilibrium bool    `json:"at_equilibrium"`
	IsStagnant    bool    `json:"is_stagnant"`
	Energy        float64 `json:"energy"`
	Gradient      float64 `json:"gradient"`
	Tension       float64 `json:"tension"`
	Momentum      float64 `json:"momentum"`
	Coherence     float64 `json:"coherence"`
	Clarity       float64 `json:"clarity"`
	// Reasoning is a human-readable summary for observability only.
	Reasoning string `json:"reasoning"`
}

// Options configures a Detector.
type Options struct {
	Config Config
	Logger logging.Logger
}

// Detector evaluates convergence over the full history of a run. Its caches
// and stagnation window live as long as the detector, i.e. one run.
type Detector struct {
	backend core.Backend
	cfg     Config
	logger  logging.Logger

	mu          sync.Mutex
	ideal       map[string][]float64
	anchors     [][]float64
	invocations int
	tracker     *Tracker
}

// New creates a detector.
func New(backend core.Backend, optFns ...func(o *Options)) *Detector {
	opts := Options{
		Config: DefaultConfig(),
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Detector{
		backend: backend,
		cfg:     opts.Config,
		logger:  logging.OrNoOp(opts.Logger),
		ideal:   map[string][]float64{},
		tracker: NewTracker(opts.Config),
	}
}

// Invocations returns how many times Detect was called.
func (d *Detector) Invocations() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.invocations
}

// Detect scores history. Until the history holds MinSignalWindow signals and
// the detector was invoked MinTicks times it reports a neutral "far from
// equilibrium" result without touching the backend. Backend failures and
// ErrDimensionMismatch are returned to the caller.
func (d *Detector) Detect(ctx context.Context, scenario string, history []core.Signal, agents []core.AgentInfo) (Result, error) {
	d.mu.Lock()
	d.invocations++
	invocations := d.invocations
	d.mu.Unlock()

	if len(history) < d.cfg.MinSignalWindow || invocations < d.cfg.MinTicks {
		return Result{
			Tension:   1,
			Momentum:  1,
			Energy:    1,
			Gradient:  1,
			Reasoning: fmt.Sprintf("warming up: %d signals, %d invocations", len(history), invocations),
		}, nil
	}

	recent := history
	if d.cfg.RecentWindow > 0 && len(recent) > d.cfg.RecentWindow {
		recent = recent[len(recent)-d.cfg.RecentWindow:]
	}

	tension, err := d.tension(ctx, scenario, recent)
	if err != nil {
		return Result{}, err
	}

	momentum := Momentum(history)

	coherence, err := similarity.MeanPairwise(pheromones(recent))
	if err != nil {
		return Result{}, fmt.Errorf("coherence: %w", err)
	}

	clarity, err := d.clarity(ctx, recent)
	if err != nil {
		return Result{}, err
	}

	gradient, err := d.gradient(history)
	if err != nil {
		return Result{}, err
	}

	energy := Energy(tension, momentum, coherence, clarity)

	d.mu.Lock()
	stagnant := d.tracker.Observe(tension, coherence, clarity)
	d.mu.Unlock()

	res := Result{
		AtEquilibrium: energy < d.cfg.EnergyThreshold && math.Abs(gradient) < d.cfg.GradientThreshold,
		IsStagnant:    stagnant,
		Energy:        energy,
		Gradient:      gradient,
		Tension:       tension,
		Momentum:      momentum,
		Coherence:     coherence,
		Clarity:       clarity,
	}
	res.Reasoning = d.reason(res, len(history), len(agents))

	d.logger.Debug("detector.result",
		"energy", res.Energy,
		"gradient", res.Gradient,
		"equilibrium", res.AtEquilibrium,
		"stagnant", res.IsStagnant,
	)

	return res, nil
}

// Energy combines the four measures into a clamped energy value.
func Energy(tension, momentum, coherence, clarity float64) float64 {
	e := tensionWeight*tension +
		momentumWeight*momentum +
		coherenceWeight*(1-coherence) +
		clarityWeight*(1-clarity)
	return similarity.Clamp01(e)
}

// Momentum compares the number of signals after the temporal midpoint of
// history with the number before it: min(recent/previous, 2)/2. An empty
// previous half yields 1.
func Momentum(history []core.Signal) float64 {
	if len(history) == 0 {
		return 1
	}

	first, last := history[0].Timestamp, history[0].Timestamp
	for _, s := range history[1:] {
		if s.Timestamp.Before(first) {
			first = s.Timestamp
		}
		if s.Timestamp.After(last) {
			last = s.Timestamp
		}
	}
	mid := first.Add(last.Sub(first) / 2)

	var previous, recent int
	for _, s := range history {
		if s.Timestamp.Before(mid) {
			previous++
		} else {
			recent++
		}
	}

	if previous == 0 {
		return 1
	}
	return math.Min(float64(recent)/float64(previous), maxMomentumRatio) / maxMomentumRatio
}

func (d *Detector) tension(ctx context.Context, scenario string, recent []core.Signal) (float64, error) {
	ideal, err := d.idealState(ctx, scenario)
	if err != nil {
		return 0, err
	}

	thoughts := make([]string, len(recent))
	for i, s := range recent {
		thoughts[i] = s.Thought
	}

	current, err := d.backend.Embed(ctx, strings.Join(thoughts, "\n"))
	if err != nil {
		return 0, fmt.Errorf("embed recent thoughts: %w", err)
	}

	sim, err := similarity.Cosine(ideal, current)
	if err != nil {
		return 0, fmt.Errorf("tension: %w", err)
	}
	return similarity.Clamp01(1 - sim), nil
}

// idealState returns the cached ideal-state embedding for scenario,
// deriving it on first use.
func (d *Detector) idealState(ctx context.Context, scenario string) ([]float64, error) {
	d.mu.Lock()
	vec, ok := d.ideal[scenario]
	d.mu.Unlock()
	if ok {
		return vec, nil
	}

	prompt, err := util.RenderTemplate(idealStatePrompt, scenario)
	if err != nil {
		return nil, err
	}

	text, err := d.backend.Chat(ctx, []core.Message{core.UserMessage(prompt)})
	if err != nil {
		return nil, fmt.Errorf("derive ideal state: %w", err)
	}

	vec, err = d.backend.Embed(ctx, strings.TrimSpace(text))
	if err != nil {
		return nil, fmt.Errorf("embed ideal state: %w", err)
	}

	d.mu.Lock()
	d.ideal[scenario] = vec
	d.mu.Unlock()

	return vec, nil
}

func (d *Detector) clarity(ctx context.Context, recent []core.Signal) (float64, error) {
	d.mu.Lock()
	anchors := d.anchors
	d.mu.Unlock()

	if anchors == nil {
		anchors = make([][]float64, 0, len(ClarityAnchors))
		for _, text := range ClarityAnchors {
			v, err := d.backend.Embed(ctx, text)
			if err != nil {
				return 0, fmt.Errorf("embed clarity anchor: %w", err)
			}
			anchors = append(anchors, v)
		}
		d.mu.Lock()
		d.anchors = anchors
		d.mu.Unlock()
	}

	clarity, err := similarity.MaxAgainst(pheromones(recent), anchors)
	if err != nil {
		return 0, fmt.Errorf("clarity: %w", err)
	}
	return clarity, nil
}

// gradient compares the incoherence of the last third of history with the
// third before it. Histories shorter than 2*MinSignalWindow yield 1.
func (d *Detector) gradient(history []core.Signal) (float64, error) {
	n := len(history)
	if n < 2*d.cfg.MinSignalWindow {
		return 1, nil
	}

	w := n / 3
	recent, err := similarity.MeanPairwise(pheromones(history[n-w:]))
	if err != nil {
		return 0, fmt.Errorf("gradient: %w", err)
	}
	previous, err := similarity.MeanPairwise(pheromones(history[n-2*w : n-w]))
	if err != nil {
		return 0, fmt.Errorf("gradient: %w", err)
	}

	return (1 - recent) - (1 - previous), nil
}

func (d *Detector) reason(r Result, signals, agents int) string {
	verdict := "still deliberating"
	switch {
	case r.AtEquilibrium:
		verdict = "equilibrium reached"
	case r.IsStagnant:
		verdict = "stagnating at high tension"
	case r.Energy < d.cfg.EnergyThreshold:
		verdict = "low energy but still moving"
	}

	return fmt.Sprintf(
		"%s: energy=%.2f gradient=%+.3f tension=%.2f momentum=%.2f coherence=%.2f clarity=%.2f over %d signals from %d agents",
		verdict, r.Energy, r.Gradient, r.Tension, r.Momentum, r.Coherence, r.Clarity, signals, agents,
	)
}

func pheromones(signals []core.Signal) [][]float64 {
	out := make([][]float64, len(signals))
	for i, s := range signals {
		out[i] = s.Pheromone
	}
	return out
}
