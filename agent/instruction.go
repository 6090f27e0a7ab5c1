package agent

import (
	"github.com/hupe1980/biosphere/core"
	"github.com/hupe1980/biosphere/internal/util"
)

// Provider supplies dynamic instruction text at runtime.
// Implementations can derive instructions from the agent identity, external state, etc.
type Provider interface {
	Instruction(core.AgentInfo) (string, error)
}

// Func is a functional adapter to allow ordinary functions to be used as Providers.
type Func func(core.AgentInfo) (string, error)

// Instruction implements Provider.
func (f Func) Instruction(info core.AgentInfo) (string, error) { return f(info) }

// Instruction represents either a static instruction template or a dynamic provider.
// This mirrors a union of string | provider in a Go-idiomatic way.
type Instruction struct {
	text     string
	provider Provider
}

// NewInstructionFromText creates an Instruction from a static template. The
// template is rendered against the agent's core.AgentInfo, so
// "You are {{.Name}}" is valid.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(core.AgentInfo) (string, error)) Instruction {
	return Instruction{provider: Func(f)}
}

// IsStatic returns true if the instruction is backed by a static template.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// IsZero reports whether neither text nor provider is set.
func (i Instruction) IsZero() bool { return i.provider == nil && i.text == "" }

// Resolve returns the instruction text, invoking the provider if needed.
func (i Instruction) Resolve(info core.AgentInfo) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(info)
	}
	return util.RenderTemplate(i.text, info)
}

// DefaultPersona is the instruction used when a ModelAgent is built without one.
const DefaultPersona = `You are {{.Name}}, one voice in an open deliberation between specialists.
You care about: {{join ", " .Patterns}}.
Contribute from that perspective only. Be concrete and brief.
If you genuinely cannot proceed, say plainly what is blocking you.`
