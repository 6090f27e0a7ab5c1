package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubBackend(t *testing.T) {
	b := NewStubBackend(3).Vector("known", 1, 2, 3).FailEmbed("bad", errors.New("boom"))

	v, err := b.Embed(context.Background(), "known")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, v)

	v, err = b.Embed(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0}, v)

	_, err = b.Embed(context.Background(), "bad")
	assert.EqualError(t, err, "boom")

	reply, err := b.Reply("hi").Chat(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "hi", reply)

	assert.Equal(t, 3, b.EmbedCount())
	assert.Equal(t, 1, b.ChatCount())
	assert.Equal(t, []string{"known", "unknown", "bad"}, b.Embedded())
}

func TestSignalBuilder(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sig := NewSignalBuilder().ID("s1").From("a").Thought("x").Pheromone(1, 0).At(at).Build()

	assert.Equal(t, "s1", sig.ID)
	assert.Equal(t, "a", sig.EmittedBy)
	assert.Equal(t, at, sig.Timestamp)
	assert.Equal(t, 2, sig.Dimensions())

	series := Series(3, "b", at, 1)
	require.Len(t, series, 3)
	assert.Equal(t, at.Add(2*time.Second), series[2].Timestamp)
}

func TestScriptedAgent(t *testing.T) {
	a := NewScriptedAgent("a", 0.6, "x").Script("one", "two")

	out, errCh := a.Emit(context.Background())
	var got []string
	for s := range out {
		got = append(got, s)
	}
	require.NoError(t, <-errCh)
	assert.Equal(t, []string{"one", "two"}, got)

	out, _ = a.Emit(context.Background())
	_, open := <-out
	assert.False(t, open, "exhausted script yields nothing")
	assert.Equal(t, 2, a.EmitCalls())
}

func TestScriptedAgent_Fail(t *testing.T) {
	boom := errors.New("boom")
	a := NewScriptedAgent("a", 0.6, "x").Script("only").Fail(boom)

	out, errCh := a.Emit(context.Background())
	var got []string
	for s := range out {
		got = append(got, s)
	}
	assert.Equal(t, []string{"only"}, got)
	assert.ErrorIs(t, <-errCh, boom)
}
