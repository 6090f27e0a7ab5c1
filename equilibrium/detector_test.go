package equilibrium

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hupe1980/biosphere/core"
	"github.com/hupe1980/biosphere/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

const idealText = "everyone agrees on the plan"

func joined(thought string, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = thought
	}
	return strings.Join(parts, "\n")
}

func warmUp(t *testing.T, d *Detector, history []core.Signal) {
	t.Helper()
	for i := 1; i < d.cfg.MinTicks; i++ {
		res, err := d.Detect(context.Background(), "scenario", history, nil)
		require.NoError(t, err)
		require.False(t, res.AtEquilibrium)
	}
}

func TestDetect_ShortHistoryMakesNoBackendCalls(t *testing.T) {
	backend := testutil.NewStubBackend(4)
	d := New(backend)

	history := testutil.Series(4, "a", start, 1, 0, 0, 0)
	for i := 0; i < 10; i++ {
		res, err := d.Detect(context.Background(), "scenario", history, nil)
		require.NoError(t, err)
		assert.False(t, res.AtEquilibrium)
		assert.Equal(t, 1.0, res.Tension)
		assert.Equal(t, 1.0, res.Momentum)
		assert.Equal(t, 0.0, res.Coherence)
		assert.Equal(t, 0.0, res.Clarity)
	}

	assert.Equal(t, 0, backend.EmbedCount())
	assert.Equal(t, 0, backend.ChatCount())
	assert.Equal(t, 10, d.Invocations())
}

func TestDetect_MinTicksGuard(t *testing.T) {
	backend := testutil.NewStubBackend(4)
	d := New(backend)
	history := testutil.Series(10, "a", start, 1, 0, 0, 0)

	for i := 0; i < 2; i++ {
		_, err := d.Detect(context.Background(), "scenario", history, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 0, backend.EmbedCount())

	_, err := d.Detect(context.Background(), "scenario", history, nil)
	require.NoError(t, err)
	assert.Positive(t, backend.EmbedCount(), "third invocation computes")
}

func TestDetect_IdealStateCachedPerScenario(t *testing.T) {
	backend := testutil.NewStubBackend(4).Reply(idealText)
	d := New(backend, func(o *Options) { o.Config.MinTicks = 1 })
	history := testutil.Series(6, "a", start, 1, 0, 0, 0)

	for i := 0; i < 3; i++ {
		_, err := d.Detect(context.Background(), "bridge", history, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, backend.ChatCount())

	_, err := d.Detect(context.Background(), "tunnel", history, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, backend.ChatCount())

	idealEmbeds := 0
	for _, text := range backend.Embedded() {
		if text == idealText {
			idealEmbeds++
		}
	}
	assert.Equal(t, 2, idealEmbeds)
}

func TestDetect_Equilibrium(t *testing.T) {
	history := testutil.Series(10, "a", start, 1, 0, 0, 0)

	backend := testutil.NewStubBackend(4).
		Reply(idealText).
		Vector(idealText, 1, 0, 0, 0).
		Vector(joined("a says something", 10), 1, 0, 0, 0).
		Vector(ClarityAnchors[0], 1, 0, 0, 0)

	d := New(backend)
	warmUp(t, d, history)

	res, err := d.Detect(context.Background(), "scenario", history, []core.AgentInfo{{ID: "a"}})
	require.NoError(t, err)

	assert.InDelta(t, 0.0, res.Tension, 1e-9)
	assert.InDelta(t, 1.0, res.Coherence, 1e-9)
	assert.InDelta(t, 1.0, res.Clarity, 1e-9)
	assert.Equal(t, 0.5, res.Momentum)
	assert.InDelta(t, 0.05, res.Energy, 1e-9)
	assert.InDelta(t, 0.0, res.Gradient, 1e-9)
	assert.True(t, res.AtEquilibrium)
	assert.False(t, res.IsStagnant)
	assert.Contains(t, res.Reasoning, "equilibrium reached")
}

func TestDetect_StagnationAfterFiveHighTensionTicks(t *testing.T) {
	// unknown texts embed to zero vectors: tension 1, clarity 0
	history := make([]core.Signal, 0, 6)
	for i := 0; i < 6; i++ {
		v := make([]float64, 6)
		v[i] = 1
		history = append(history, testutil.NewSignalBuilder().Pheromone(v...).At(start.Add(time.Duration(i)*time.Second)).Build())
	}

	d := New(testutil.NewStubBackend(6))
	warmUp(t, d, history)

	for i := 0; i < 4; i++ {
		res, err := d.Detect(context.Background(), "scenario", history, nil)
		require.NoError(t, err)
		assert.False(t, res.IsStagnant, "window not full after %d", i+1)
		assert.False(t, res.AtEquilibrium)
	}

	res, err := d.Detect(context.Background(), "scenario", history, nil)
	require.NoError(t, err)
	assert.True(t, res.IsStagnant)
	assert.Contains(t, res.Reasoning, "stagnating")
}

func TestDetect_DimensionMismatchIsReturned(t *testing.T) {
	history := testutil.Series(5, "a", start, 1, 0, 0, 0)
	history = append(history, testutil.NewSignalBuilder().Pheromone(1, 0).Build())

	d := New(testutil.NewStubBackend(4), func(o *Options) { o.Config.MinTicks = 1 })
	_, err := d.Detect(context.Background(), "scenario", history, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrDimensionMismatch))
}

func TestDetect_BackendFailure(t *testing.T) {
	backend := testutil.NewStubBackend(4).OnChat(func([]core.Message) (string, error) {
		return "", errors.New("unavailable")
	})
	d := New(backend, func(o *Options) { o.Config.MinTicks = 1 })

	_, err := d.Detect(context.Background(), "scenario", testutil.Series(5, "a", start, 1, 0, 0, 0), nil)
	assert.ErrorContains(t, err, "unavailable")
}

func TestGradient(t *testing.T) {
	d := New(testutil.NewStubBackend(2))

	short := testutil.Series(9, "a", start, 1, 0)
	g, err := d.gradient(short)
	require.NoError(t, err)
	assert.Equal(t, 1.0, g)

	// previous third coherent, last third incoherent
	history := testutil.Series(7, "a", start, 1, 0)
	history = append(history,
		testutil.NewSignalBuilder().Pheromone(1, 0).Build(),
		testutil.NewSignalBuilder().Pheromone(0, 1).Build(),
		testutil.NewSignalBuilder().Pheromone(-1, 0).Build(),
	)
	g, err = d.gradient(history)
	require.NoError(t, err)
	// recent coherence = (0 + -1 + 0)/3; previous = 1
	assert.InDelta(t, (1+1.0/3.0)-0, g, 1e-9)
}

func TestMomentum(t *testing.T) {
	assert.Equal(t, 1.0, Momentum(nil))

	same := testutil.Series(3, "a", start, 1)
	for i := range same {
		same[i].Timestamp = start
	}
	assert.Equal(t, 1.0, Momentum(same), "empty previous half")

	// 1 signal early, 4 late: ratio capped at 2
	accel := []core.Signal{
		testutil.NewSignalBuilder().At(start).Build(),
		testutil.NewSignalBuilder().At(start.Add(8 * time.Second)).Build(),
		testutil.NewSignalBuilder().At(start.Add(9 * time.Second)).Build(),
		testutil.NewSignalBuilder().At(start.Add(9 * time.Second)).Build(),
		testutil.NewSignalBuilder().At(start.Add(10 * time.Second)).Build(),
	}
	assert.Equal(t, 1.0, Momentum(accel))

	// 3 early, 1 late
	decel := []core.Signal{
		testutil.NewSignalBuilder().At(start).Build(),
		testutil.NewSignalBuilder().At(start.Add(time.Second)).Build(),
		testutil.NewSignalBuilder().At(start.Add(2 * time.Second)).Build(),
		testutil.NewSignalBuilder().At(start.Add(10 * time.Second)).Build(),
	}
	assert.InDelta(t, (1.0/3.0)/2, Momentum(decel), 1e-12)
}

func TestEnergy(t *testing.T) {
	assert.InDelta(t, 1.0, Energy(1, 1, 0, 0), 1e-12)
	assert.InDelta(t, 0.0, Energy(0, 0, 1, 1), 1e-12)
	assert.InDelta(t, 0.4*0.5+0.1*0.5+0.3*0.5+0.2*0.5, Energy(0.5, 0.5, 0.5, 0.5), 1e-12)
	assert.Equal(t, 1.0, Energy(1, 1, -1, -1), "clamped")
}
