package agent

import "github.com/hupe1980/agentstate/internal/util"

// Provider supplies instruction text at invocation time from the agent state.
type Provider interface {
	Instruction(state map[string]any) (string, error)
}

// Func adapts an ordinary function to Provider.
type Func func(state map[string]any) (string, error)

// Instruction implements Provider.
func (f Func) Instruction(state map[string]any) (string, error) { return f(state) }

// Instruction is either a static string or a dynamic provider.
type Instruction struct {
	text     string
	provider Provider
}

// NewInstructionFromText creates an Instruction from a static string.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(state map[string]any) (string, error)) Instruction {
	return Instruction{provider: Func(f)}
}

// NewInstructionFromTemplate creates an Instruction rendered as a text/template
// against the agent state, e.g. "You help {{.customer}}.".
func NewInstructionFromTemplate(tmpl string) Instruction {
	return NewInstructionFromFunc(func(state map[string]any) (string, error) {
		return util.RenderTemplate(tmpl, state)
	})
}

// IsStatic reports whether the instruction is a static string.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// Resolve returns the instruction text, invoking the provider if needed.
func (i Instruction) Resolve(state map[string]any) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(state)
	}
	return i.text, nil
}
