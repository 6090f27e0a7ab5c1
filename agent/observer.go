package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/biosphere/core"
	"github.com/hupe1980/biosphere/logging"
	"github.com/hupe1980/biosphere/similarity"
)

const (
	// DistressObserverID is the fixed id of the built-in distress observer.
	DistressObserverID = "distress-observer"

	// NoDistressAnswer is the anchor the classifier is told to answer with
	// when a signal shows intensity but no real blocker.
	NoDistressAnswer = "No distress detected."

	distressThreshold    = 0.5
	fatigueSimilarity    = 0.9
	noDistressSimilarity = 0.8
)

// DistressPatterns are the seed receptor patterns of the distress observer.
var DistressPatterns = []string{
	"uncertainty", "confusion", "contradiction", "unable",
	"cannot", "stuck", "conflicting", "unclear",
}

const classifyPrompt = `You review one message from a group deliberation.
Decide whether its author is genuinely unable to proceed (missing knowledge, missing capability, an unresolved contradiction) or merely expressing strong opinion or urgency.
If the author can still proceed, answer exactly: ` + NoDistressAnswer + `
Otherwise answer with one sentence naming the expertise that would unblock them.`

// DistressObserver is the built-in observer that turns genuine
// inability-to-proceed into a helper request.
//
// It buffers one signal at a time. Perceive ignores a signal whose pheromone
// is more than 0.9 similar to the last accepted one (olfactory fatigue). Emit
// classifies the buffered signal via the backend and, on true distress,
// yields a request to spawn a helper. The buffer is cleared either way.
type DistressObserver struct {
	BaseAgent
	backend core.Backend
	logger  logging.Logger

	stateMu      sync.Mutex
	pending      *core.Signal
	lastAccepted []float64
	anchor       []float64
}

var _ core.Agent = (*DistressObserver)(nil)

// NewDistressObserver creates the distress observer.
func NewDistressObserver(backend core.Backend, logger logging.Logger) *DistressObserver {
	return &DistressObserver{
		BaseAgent: NewBaseAgent(DistressObserverID, "Distress Observer", core.ReceptorField{
			Patterns:  append([]string(nil), DistressPatterns...),
			Threshold: distressThreshold,
		}),
		backend: backend,
		logger:  logging.OrNoOp(logger),
	}
}

// Perceive implements core.Agent.
func (o *DistressObserver) Perceive(sig core.Signal) {
	if sig.EmittedBy == o.ID() {
		return
	}

	o.stateMu.Lock()
	defer o.stateMu.Unlock()

	if o.lastAccepted != nil && similarity.Similarity(sig.Pheromone, o.lastAccepted) > fatigueSimilarity {
		o.logger.Debug("observer.fatigue", "signal", sig.ID, "from", sig.EmittedBy)
		return
	}

	o.lastAccepted = sig.Pheromone
	o.pending = &sig
	o.BaseAgent.Perceive(sig)
}

// Emit implements core.Agent.
func (o *DistressObserver) Emit(ctx context.Context) (<-chan string, <-chan error) {
	return Stream(ctx, func(ctx context.Context, yield Yield) error {
		sig, ok := o.take()
		if !ok {
			return nil
		}

		distressed, err := o.classify(ctx, sig)
		if err != nil {
			return fmt.Errorf("distress observer: classify: %w", err)
		}
		if !distressed {
			return nil
		}

		o.logger.Info("observer.distress", "signal", sig.ID, "from", sig.EmittedBy)
		yield(HelperRequest(sig))
		return nil
	})
}

// HelperRequest phrases the helper request yielded for a distressed signal.
func HelperRequest(sig core.Signal) string {
	return fmt.Sprintf("We need to spawn a helper agent: %s is stuck on %q", sig.EmittedBy, sig.Thought)
}

// take removes and returns the buffered signal.
func (o *DistressObserver) take() (core.Signal, bool) {
	o.stateMu.Lock()
	defer o.stateMu.Unlock()
	if o.pending == nil {
		return core.Signal{}, false
	}
	sig := *o.pending
	o.pending = nil
	return sig, true
}

func (o *DistressObserver) classify(ctx context.Context, sig core.Signal) (bool, error) {
	answer, err := o.backend.Chat(ctx, []core.Message{
		core.SystemMessage(classifyPrompt),
		core.UserMessage(sig.Thought),
	})
	if err != nil {
		return false, err
	}

	answer = strings.TrimSpace(answer)
	if answer == NoDistressAnswer {
		return false, nil
	}

	anchor, err := o.noDistressAnchor(ctx)
	if err != nil {
		return false, err
	}

	vec, err := o.backend.Embed(ctx, answer)
	if err != nil {
		return false, err
	}

	sim, err := similarity.Cosine(vec, anchor)
	if err != nil {
		return false, err
	}

	return sim <= noDistressSimilarity, nil
}

func (o *DistressObserver) noDistressAnchor(ctx context.Context) ([]float64, error) {
	o.stateMu.Lock()
	anchor := o.anchor
	o.stateMu.Unlock()
	if anchor != nil {
		return anchor, nil
	}

	anchor, err := o.backend.Embed(ctx, NoDistressAnswer)
	if err != nil {
		return nil, err
	}

	o.stateMu.Lock()
	o.anchor = anchor
	o.stateMu.Unlock()
	return anchor, nil
}
