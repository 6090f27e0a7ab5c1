package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/biosphere/core"
	"github.com/hupe1980/biosphere/logging"
)

// DefaultContinuation is appended after the perceived context on every
// ModelAgent emission.
const DefaultContinuation = "Given everything above, add your next contribution in at most three sentences. Do not repeat what was already said."

// ModelAgentOptions configures a ModelAgent instance.
//
// Use functional options with NewModelAgent to override defaults.
type ModelAgentOptions struct {
	Name         string
	Instruction  Instruction
	Continuation string
	// MaxContext limits how many of the most recent perceptions are sent to
	// the backend. Zero sends the full context.
	MaxContext int
	Logger     logging.Logger
}

// ModelAgent is the LLM-backed conversational agent.
//
// It keeps a watermark of its perception log: Emit makes no backend call and
// yields nothing when nothing arrived since the last emission. Otherwise it
// sends instruction + context + continuation to the backend, advances the
// watermark and yields exactly one thought.
type ModelAgent struct {
	BaseAgent
	backend      core.Backend
	instruction  Instruction
	continuation string
	maxContext   int
	logger       logging.Logger
}

var _ core.Agent = (*ModelAgent)(nil)

// NewModelAgent creates a model-backed agent listening for receptors.
func NewModelAgent(id string, backend core.Backend, receptors core.ReceptorField, optFns ...func(o *ModelAgentOptions)) *ModelAgent {
	opts := ModelAgentOptions{
		Instruction:  NewInstructionFromText(DefaultPersona),
		Continuation: DefaultContinuation,
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Instruction.IsZero() {
		opts.Instruction = NewInstructionFromText(DefaultPersona)
	}

	return &ModelAgent{
		BaseAgent:    NewBaseAgent(id, opts.Name, receptors),
		backend:      backend,
		instruction:  opts.Instruction,
		continuation: opts.Continuation,
		maxContext:   opts.MaxContext,
		logger:       logging.OrNoOp(opts.Logger),
	}
}

// NewModelAgentFromBlueprint materializes a validated blueprint as a ModelAgent.
// The blueprint instruction, if any, replaces the default persona.
func NewModelAgentFromBlueprint(bp core.Blueprint, backend core.Backend, optFns ...func(o *ModelAgentOptions)) (*ModelAgent, error) {
	if err := bp.Validate(); err != nil {
		return nil, err
	}

	fns := make([]func(o *ModelAgentOptions), 0, len(optFns)+1)
	fns = append(fns, func(o *ModelAgentOptions) {
		o.Name = bp.DisplayName()
		if strings.TrimSpace(bp.Instruction) != "" {
			o.Instruction = NewInstructionFromText(bp.Instruction)
		}
	})
	fns = append(fns, optFns...)

	return NewModelAgent(bp.ID, backend, bp.Receptors(), fns...), nil
}

// Emit implements core.Agent.
func (a *ModelAgent) Emit(ctx context.Context) (<-chan string, <-chan error) {
	return Stream(ctx, func(ctx context.Context, yield Yield) error {
		snapshot, ok := a.Pending()
		if !ok {
			return nil
		}

		messages, err := a.buildMessages(snapshot)
		if err != nil {
			return err
		}

		a.logger.Debug("agent.emit.start", "agent", a.ID(), "context", len(snapshot))

		reply, err := a.backend.Chat(ctx, messages)
		if err != nil {
			a.logger.Warn("agent.emit.failed", "agent", a.ID(), "error", err)
			return fmt.Errorf("agent %s: chat: %w", a.ID(), err)
		}

		a.Advance(len(snapshot))

		thought := strings.TrimSpace(reply)
		if thought == "" {
			return nil
		}

		yield(thought)
		return nil
	})
}

func (a *ModelAgent) buildMessages(perceived []core.Signal) ([]core.Message, error) {
	system, err := a.instruction.Resolve(a.Info())
	if err != nil {
		return nil, fmt.Errorf("agent %s: resolve instruction: %w", a.ID(), err)
	}

	if a.maxContext > 0 && len(perceived) > a.maxContext {
		perceived = perceived[len(perceived)-a.maxContext:]
	}

	messages := make([]core.Message, 0, len(perceived)+2)
	messages = append(messages, core.SystemMessage(system))
	for _, sig := range perceived {
		messages = append(messages, core.UserMessage(fmt.Sprintf("[%s] %s", sig.EmittedBy, sig.Thought)))
	}
	if a.continuation != "" {
		messages = append(messages, core.UserMessage(a.continuation))
	}

	return messages, nil
}
