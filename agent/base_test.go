package agent

import (
	"context"
	"testing"

	"github.com/hupe1980/biosphere/core"
	"github.com/hupe1980/biosphere/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseAgent_Watermark(t *testing.T) {
	b := NewBaseAgent("a", "", core.ReceptorField{Patterns: []string{"x"}})

	assert.Equal(t, "a", b.Name(), "name falls back to id")
	assert.Equal(t, core.DefaultThreshold, b.Receptors().Threshold)

	open := NewBaseAgent("o", "", core.ReceptorField{Patterns: []string{"x"}, Threshold: core.AnyPositive})
	assert.True(t, open.Receptors().Resonates(0.05), "explicit zero threshold survives construction")

	_, ok := b.Pending()
	assert.False(t, ok)

	b.Perceive(testutil.NewSignalBuilder().Thought("one").Build())
	b.Perceive(testutil.NewSignalBuilder().Thought("two").Build())

	snapshot, ok := b.Pending()
	require.True(t, ok)
	assert.Len(t, snapshot, 2)

	latest, n, ok := b.Latest()
	require.True(t, ok)
	assert.Equal(t, "two", latest.Thought)
	assert.Equal(t, 2, n)

	b.Advance(2)
	_, ok = b.Pending()
	assert.False(t, ok)

	b.Advance(1)
	_, ok = b.Pending()
	assert.False(t, ok, "watermark never moves backwards")

	assert.Len(t, b.Perceptions(), 2)
}

func TestStream_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	produced := make(chan bool, 1)
	out, errCh := Stream(ctx, func(ctx context.Context, yield Yield) error {
		if !yield("first") {
			return ctx.Err()
		}
		ok := yield("second")
		produced <- ok
		if !ok {
			return ctx.Err()
		}
		return nil
	})

	assert.Equal(t, "first", <-out)
	cancel()

	assert.False(t, <-produced)
	_, err := Collect(out, errCh)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInstruction(t *testing.T) {
	info := core.AgentInfo{ID: "a", Name: "Economist", Patterns: []string{"cost", "budget"}}

	static := NewInstructionFromText("You are {{.Name}}; care about {{join \", \" .Patterns}}.")
	assert.True(t, static.IsStatic())
	got, err := static.Resolve(info)
	require.NoError(t, err)
	assert.Equal(t, "You are Economist; care about cost, budget.", got)

	dynamic := NewInstructionFromFunc(func(i core.AgentInfo) (string, error) { return "dyn " + i.ID, nil })
	assert.False(t, dynamic.IsStatic())
	got, err = dynamic.Resolve(info)
	require.NoError(t, err)
	assert.Equal(t, "dyn a", got)

	assert.True(t, Instruction{}.IsZero())
}
