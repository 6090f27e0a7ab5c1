package core

import "context"

// EnvironmentState is the read-only view handed to an Environment each tick.
type EnvironmentState struct {
	Tick    int
	Agents  []AgentInfo
	Recent  []Signal
	History int
}

// Environment produces external feedback utterances once per tick. Its
// signals are attributed to SourceEnvironment and delivered straight to
// resonant recipients without synaptic transform or bridging.
type Environment interface {
	Tick(ctx context.Context, state EnvironmentState) ([]string, error)
}

// EnvironmentFunc adapts an ordinary function to the Environment interface.
type EnvironmentFunc func(ctx context.Context, state EnvironmentState) ([]string, error)

// Tick implements Environment.
func (f EnvironmentFunc) Tick(ctx context.Context, state EnvironmentState) ([]string, error) {
	return f(ctx, state)
}
