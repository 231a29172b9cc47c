package agent

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockProvider struct {
	text string
	err  error
}

func (m mockProvider) Instruction(map[string]any) (string, error) { return m.text, m.err }

func TestInstruction_Static(t *testing.T) {
	inst := NewInstructionFromText("static instruction")
	assert.True(t, inst.IsStatic())

	got, err := inst.Resolve(nil)
	require.NoError(t, err)
	assert.Equal(t, "static instruction", got)
}

func TestInstruction_Provider(t *testing.T) {
	inst := NewInstructionFromProvider(mockProvider{text: "dynamic"})
	assert.False(t, inst.IsStatic())

	got, err := inst.Resolve(map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "dynamic", got)
}

func TestInstruction_ProviderError(t *testing.T) {
	inst := NewInstructionFromProvider(mockProvider{err: errors.New("boom")})
	_, err := inst.Resolve(nil)
	assert.EqualError(t, err, "boom")
}

func TestInstruction_Func(t *testing.T) {
	inst := NewInstructionFromFunc(func(state map[string]any) (string, error) {
		return "lang=" + state["lang"].(string), nil
	})
	got, err := inst.Resolve(map[string]any{"lang": "go"})
	require.NoError(t, err)
	assert.Equal(t, "lang=go", got)
}

func TestInstruction_Template(t *testing.T) {
	inst := NewInstructionFromTemplate(`Reply in {{default "English" .lang}}.`)

	got, err := inst.Resolve(map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "Reply in English.", got)

	got, err = inst.Resolve(map[string]any{"lang": "German"})
	require.NoError(t, err)
	assert.Equal(t, "Reply in German.", got)
}
