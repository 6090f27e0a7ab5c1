package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/biosphere/core"
)

// ReactFunc turns a perceived signal into a thought. An empty result yields nothing.
type ReactFunc func(ctx context.Context, sig core.Signal) (string, error)

// FuncAgent is the programmatic agent variant. It reacts only to the most
// recently perceived signal and never reacts twice to the same raw text.
type FuncAgent struct {
	BaseAgent
	react ReactFunc

	seenMu sync.Mutex
	seen   map[string]struct{}
}

var _ core.Agent = (*FuncAgent)(nil)

// NewFuncAgent creates a programmatic agent.
func NewFuncAgent(id, name string, receptors core.ReceptorField, react ReactFunc) *FuncAgent {
	return &FuncAgent{
		BaseAgent: NewBaseAgent(id, name, receptors),
		react:     react,
		seen:      map[string]struct{}{},
	}
}

// Emit implements core.Agent.
func (a *FuncAgent) Emit(ctx context.Context) (<-chan string, <-chan error) {
	return Stream(ctx, func(ctx context.Context, yield Yield) error {
		latest, n, ok := a.Latest()
		if !ok {
			return nil
		}
		a.Advance(n)

		if !a.markSeen(latest.Thought) {
			return nil
		}

		thought, err := a.react(ctx, latest)
		if err != nil {
			return fmt.Errorf("agent %s: react: %w", a.ID(), err)
		}

		if thought = strings.TrimSpace(thought); thought != "" {
			yield(thought)
		}
		return nil
	})
}

// markSeen records text and reports whether it was new.
func (a *FuncAgent) markSeen(text string) bool {
	a.seenMu.Lock()
	defer a.seenMu.Unlock()
	if _, dup := a.seen[text]; dup {
		return false
	}
	a.seen[text] = struct{}{}
	return true
}
