package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/biosphere/core"
	"github.com/hupe1980/biosphere/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistressObserver_Defaults(t *testing.T) {
	o := NewDistressObserver(testutil.NewStubBackend(2), nil)

	assert.Equal(t, DistressObserverID, o.ID())
	assert.Equal(t, 0.5, o.Receptors().Threshold)
	assert.ElementsMatch(t, DistressPatterns, o.Receptors().Patterns)
}

func TestDistressObserver_TrueDistress(t *testing.T) {
	backend := testutil.NewStubBackend(2).
		Vector(NoDistressAnswer, 1, 0).
		Vector("A structural engineer is needed.", 0, 1).
		Reply("A structural engineer is needed.")

	o := NewDistressObserver(backend, nil)
	o.Perceive(testutil.NewSignalBuilder().From("planner").Thought("I cannot compute the load").Pheromone(1, 0).Build())

	thoughts, err := Collect(o.Emit(context.Background()))
	require.NoError(t, err)
	require.Len(t, thoughts, 1)
	assert.Contains(t, thoughts[0], "We need to spawn a helper agent")
	assert.Contains(t, thoughts[0], "planner")

	// buffer cleared
	thoughts, err = Collect(o.Emit(context.Background()))
	require.NoError(t, err)
	assert.Empty(t, thoughts)
	assert.Equal(t, 1, backend.ChatCount())
}

func TestDistressObserver_MereIntensity(t *testing.T) {
	backend := testutil.NewStubBackend(2).
		Vector(NoDistressAnswer, 1, 0).
		Vector("No distress detected here.", 0.99, 0.1).
		Reply("No distress detected here.")

	o := NewDistressObserver(backend, nil)
	o.Perceive(testutil.NewSignalBuilder().Thought("THIS IS URGENT").Pheromone(1, 0).Build())

	thoughts, err := Collect(o.Emit(context.Background()))
	require.NoError(t, err)
	assert.Empty(t, thoughts)

	_, ok := o.take()
	assert.False(t, ok, "buffer cleared either way")
}

func TestDistressObserver_OlfactoryFatigue(t *testing.T) {
	o := NewDistressObserver(testutil.NewStubBackend(2), nil)

	o.Perceive(testutil.NewSignalBuilder().Thought("stuck").Pheromone(1, 0).Build())
	o.Perceive(testutil.NewSignalBuilder().Thought("still stuck").Pheromone(1, 0.01).Build())
	assert.Len(t, o.Perceptions(), 1)

	o.Perceive(testutil.NewSignalBuilder().Thought("unclear").Pheromone(0, 1).Build())
	assert.Len(t, o.Perceptions(), 2)

	sig, ok := o.take()
	require.True(t, ok)
	assert.Equal(t, "unclear", sig.Thought, "only the latest accepted signal is buffered")
}

func TestDistressObserver_IgnoresOwnSignals(t *testing.T) {
	o := NewDistressObserver(testutil.NewStubBackend(2), nil)
	o.Perceive(testutil.NewSignalBuilder().From(DistressObserverID).Pheromone(1, 0).Build())
	assert.Empty(t, o.Perceptions())
}

func TestDistressObserver_ClassificationFailureClearsBuffer(t *testing.T) {
	backend := testutil.NewStubBackend(2).OnChat(func([]core.Message) (string, error) {
		return "", errors.New("offline")
	})
	o := NewDistressObserver(backend, nil)
	o.Perceive(testutil.NewSignalBuilder().Pheromone(1, 0).Build())

	_, err := Collect(o.Emit(context.Background()))
	require.Error(t, err)

	_, ok := o.take()
	assert.False(t, ok)
}
