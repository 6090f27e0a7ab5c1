package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/biosphere/core"
	"github.com/hupe1980/biosphere/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestModelAgent_NoNewContextNoBackendCall(t *testing.T) {
	backend := &testutil.MockBackend{}
	a := NewModelAgent("a", backend, core.NewReceptorField("cost"))

	thoughts, err := Collect(a.Emit(context.Background()))
	require.NoError(t, err)
	assert.Empty(t, thoughts)

	backend.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything)
}

func TestModelAgent_EmitsOncePerNewContext(t *testing.T) {
	backend := testutil.NewStubBackend(2).Reply("  costs will rise  ")
	a := NewModelAgent("econ", backend, core.NewReceptorField("cost"), func(o *ModelAgentOptions) {
		o.Name = "Economist"
	})

	a.Perceive(testutil.NewSignalBuilder().From("user").Thought("build a bridge").Build())

	thoughts, err := Collect(a.Emit(context.Background()))
	require.NoError(t, err)
	assert.Equal(t, []string{"costs will rise"}, thoughts)

	// identical repeated call with no new context
	thoughts, err = Collect(a.Emit(context.Background()))
	require.NoError(t, err)
	assert.Empty(t, thoughts)
	assert.Equal(t, 1, backend.ChatCount())

	msgs := backend.Chats()[0]
	require.Len(t, msgs, 3)
	assert.Equal(t, core.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "You are Economist")
	assert.Equal(t, "[user] build a bridge", msgs[1].Content)
	assert.Equal(t, DefaultContinuation, msgs[2].Content)
}

func TestModelAgent_ContextIsAttributedUserTurns(t *testing.T) {
	backend := testutil.NewStubBackend(2).Reply("ok")
	a := NewModelAgent("econ", backend, core.NewReceptorField("cost"))

	a.Perceive(testutil.NewSignalBuilder().From("law").Thought("liability first").Build())
	a.Perceive(testutil.NewSignalBuilder().From("econ").Thought("relayed back").Build())

	_, err := Collect(a.Emit(context.Background()))
	require.NoError(t, err)

	msgs := backend.Chats()[0]
	require.Len(t, msgs, 4)
	for _, m := range msgs[1:] {
		assert.Equal(t, core.RoleUser, m.Role)
	}
	assert.Equal(t, "[econ] relayed back", msgs[2].Content)
}

func TestModelAgent_ChatFailureKeepsWatermark(t *testing.T) {
	backend := &testutil.MockBackend{}
	backend.On("Chat", mock.Anything, mock.Anything).Return("", errors.New("rate limited")).Once()
	backend.On("Chat", mock.Anything, mock.Anything).Return("retry worked", nil).Once()

	a := NewModelAgent("a", backend, core.NewReceptorField("cost"))
	a.Perceive(testutil.NewSignalBuilder().Thought("hi").Build())

	_, err := Collect(a.Emit(context.Background()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")

	thoughts, err := Collect(a.Emit(context.Background()))
	require.NoError(t, err)
	assert.Equal(t, []string{"retry worked"}, thoughts)
	backend.AssertExpectations(t)
}

func TestModelAgent_MaxContext(t *testing.T) {
	backend := testutil.NewStubBackend(2)
	a := NewModelAgent("a", backend, core.NewReceptorField("x"), func(o *ModelAgentOptions) {
		o.MaxContext = 1
		o.Continuation = ""
	})
	a.Perceive(testutil.NewSignalBuilder().From("b").Thought("old").Build())
	a.Perceive(testutil.NewSignalBuilder().From("b").Thought("new").Build())

	_, err := Collect(a.Emit(context.Background()))
	require.NoError(t, err)

	msgs := backend.Chats()[0]
	require.Len(t, msgs, 2)
	assert.Equal(t, "[b] new", msgs[1].Content)
}

func TestNewModelAgentFromBlueprint(t *testing.T) {
	backend := testutil.NewStubBackend(2)

	a, err := NewModelAgentFromBlueprint(core.Blueprint{
		ID:          "bridge-1",
		Name:        "Translator",
		Patterns:    []string{"law", "cost"},
		Threshold:   0.45,
		Instruction: "You translate for {{.Name}}.",
	}, backend)
	require.NoError(t, err)

	assert.Equal(t, "bridge-1", a.ID())
	assert.Equal(t, "Translator", a.Name())
	assert.Equal(t, 0.45, a.Receptors().Threshold)

	text, err := a.instruction.Resolve(a.Info())
	require.NoError(t, err)
	assert.Equal(t, "You translate for Translator.", text)

	_, err = NewModelAgentFromBlueprint(core.Blueprint{ID: "x"}, backend)
	assert.ErrorIs(t, err, core.ErrMalformedBlueprint)
}
