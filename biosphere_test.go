package biosphere

import (
	"context"
	"testing"

	"github.com/hupe1980/biosphere/config"
	"github.com/hupe1980/biosphere/core"
	"github.com/hupe1980/biosphere/engine"
	"github.com/hupe1980/biosphere/internal/testutil"
	"github.com/hupe1980/biosphere/spawner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultSpawner(t *testing.T) {
	stub := testutil.NewStubBackend(4)
	b := New(stub)
	assert.IsType(t, &spawner.ModelSpawner{}, b.opts.Spawner)
	assert.Same(t, stub, b.Backend())

	b = New(testutil.NewStubBackend(4), func(o *Options) { o.DisableSpawner = true })
	assert.Nil(t, b.opts.Spawner)
}

func TestRun_DrainsSnapshots(t *testing.T) {
	backend := testutil.NewStubBackend(4).
		Vector("beta", 1, 0, 0, 0).
		Vector("hello", 1, 0, 0, 0)

	b := New(backend, func(o *Options) {
		o.DisableSpawner = true
		o.EngineConfig.MaxTicks = 2
		o.EngineConfig.EnableDetector = false
		o.EngineConfig.EnableObserver = false
	})

	a := testutil.NewScriptedAgent("a", 0.1, "alpha").Script("hello")
	listener := testutil.NewScriptedAgent("b", 0.1, "beta")
	require.NoError(t, b.Birth(context.Background(), a))
	require.NoError(t, b.Birth(context.Background(), listener))

	res, err := b.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Snapshots, 2)
	assert.Equal(t, engine.StatusExhausted, res.Final.Status)
	assert.Equal(t, 1, res.Final.Tick)
	require.Len(t, res.History, 1)
	assert.Equal(t, "hello", res.History[0].Thought)
	assert.Equal(t, []string{"hello"}, listener.ReceivedThoughts())
}

func TestInject_IsExternal(t *testing.T) {
	b := New(testutil.NewStubBackend(4), func(o *Options) { o.DisableSpawner = true })

	sig, err := b.Inject(context.Background(), "news")
	require.NoError(t, err)
	assert.Equal(t, core.SourceExternal, sig.EmittedBy)
	assert.Len(t, b.History(), 1)
}

func TestNewFromConfig_MockRun(t *testing.T) {
	cfg := config.Default()
	cfg.Scenario = "Decide how to share the river water between two villages"
	cfg.Engine.MaxTicks = 3
	cfg.Logging.Level = "error"

	b, flush, err := NewFromConfig(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = flush() }()

	res, err := b.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, res.Snapshots)
	assert.LessOrEqual(t, len(res.Snapshots), 3)
	require.NotEmpty(t, res.History)
	assert.Equal(t, cfg.Scenario, res.History[0].Thought)
	assert.True(t, res.Final.Done())
}

func TestRun_Cancelled(t *testing.T) {
	b := New(testutil.NewStubBackend(4), func(o *Options) { o.DisableSpawner = true })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
