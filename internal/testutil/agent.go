package testutil

import (
	"context"
	"sync"

	"github.com/hupe1980/biosphere/core"
)

// ScriptedAgent is a core.Agent that yields a fixed list of thoughts per
// Emit call (one list per call, in order) and records every perception.
type ScriptedAgent struct {
	id        string
	name      string
	receptors core.ReceptorField

	mu       sync.Mutex
	script   [][]string
	err      error
	calls    int
	received []core.Signal
}

var _ core.Agent = (*ScriptedAgent)(nil)

// NewScriptedAgent creates an agent with the given receptor patterns and threshold.
func NewScriptedAgent(id string, threshold float64, patterns ...string) *ScriptedAgent {
	return &ScriptedAgent{
		id:        id,
		name:      id,
		receptors: core.ReceptorField{Patterns: patterns, Threshold: threshold},
	}
}

// Script appends the thoughts yielded by the next Emit call (chainable).
func (a *ScriptedAgent) Script(thoughts ...string) *ScriptedAgent {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.script = append(a.script, thoughts)
	return a
}

// Fail makes every Emit report err after its thoughts (chainable).
func (a *ScriptedAgent) Fail(err error) *ScriptedAgent {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
	return a
}

// Named overrides the display name (chainable).
func (a *ScriptedAgent) Named(name string) *ScriptedAgent { a.name = name; return a }

// ID implements core.Agent.
func (a *ScriptedAgent) ID() string { return a.id }

// Name implements core.Agent.
func (a *ScriptedAgent) Name() string { return a.name }

// Receptors implements core.Agent.
func (a *ScriptedAgent) Receptors() core.ReceptorField { return a.receptors }

// Perceive implements core.Agent.
func (a *ScriptedAgent) Perceive(sig core.Signal) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.received = append(a.received, sig)
}

// Received returns every perceived signal.
func (a *ScriptedAgent) Received() []core.Signal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]core.Signal(nil), a.received...)
}

// ReceivedThoughts returns the thought text of every perceived signal.
func (a *ScriptedAgent) ReceivedThoughts() []string {
	sigs := a.Received()
	out := make([]string, len(sigs))
	for i, s := range sigs {
		out[i] = s.Thought
	}
	return out
}

// EmitCalls returns how many times Emit was called.
func (a *ScriptedAgent) EmitCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// Emit implements core.Agent.
func (a *ScriptedAgent) Emit(ctx context.Context) (<-chan string, <-chan error) {
	a.mu.Lock()
	var thoughts []string
	if a.calls < len(a.script) {
		thoughts = a.script[a.calls]
	}
	a.calls++
	failure := a.err
	a.mu.Unlock()

	out := make(chan string)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errCh)
		for _, t := range thoughts {
			select {
			case out <- t:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
		if failure != nil {
			errCh <- failure
		}
	}()
	return out, errCh
}
