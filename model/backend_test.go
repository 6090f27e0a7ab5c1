package model

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/biosphere/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcEmbedder func(ctx context.Context, text string) ([]float64, error)

func (f funcEmbedder) Embed(ctx context.Context, text string) ([]float64, error) { return f(ctx, text) }

type recordingModel struct {
	*MockModel
	last Request
}

func (m *recordingModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	m.last = req
	return m.MockModel.Generate(ctx, req)
}

func TestBackend_Chat(t *testing.T) {
	m := &recordingModel{MockModel: NewMockModel("mock")}
	m.AddResponse("question", "answer")

	b := NewBackend(m, NewMockEmbedder())

	out, err := b.Chat(context.Background(), []core.Message{
		core.SystemMessage("be brief"),
		core.UserMessage("question"),
	})
	require.NoError(t, err)
	assert.Equal(t, "answer", out)
	assert.Equal(t, "be brief", m.last.Instructions)
	assert.Len(t, m.last.Messages, 1)
	assert.Equal(t, 1, b.Calls())
}

func TestBackend_ChatStreaming(t *testing.T) {
	m := NewMockModel("mock")
	m.AddResponse("q", "streamed")

	b := NewBackend(m, NewMockEmbedder(), func(o *BackendOptions) { o.Stream = true })

	out, err := b.Chat(context.Background(), []core.Message{core.UserMessage("q")})
	require.NoError(t, err)
	assert.Equal(t, "streamed", out)
}

func TestBackend_ChatRequiresTurns(t *testing.T) {
	b := NewBackend(NewMockModel("mock"), NewMockEmbedder())
	_, err := b.Chat(context.Background(), []core.Message{core.SystemMessage("only system")})
	assert.ErrorIs(t, err, ErrNoMessages)
}

func TestBackend_MaxCalls(t *testing.T) {
	b := NewBackend(NewMockModel("mock"), NewMockEmbedder(), WithMaxCalls(2))
	ctx := context.Background()

	_, err := b.Embed(ctx, "one")
	require.NoError(t, err)
	_, err = b.Chat(ctx, []core.Message{core.UserMessage("two")})
	require.NoError(t, err)

	_, err = b.Embed(ctx, "three")
	assert.ErrorIs(t, err, ErrCallLimitExceeded)
}

func TestBackend_CallBudgetByKind(t *testing.T) {
	m := NewMockModel("mock")
	m.AddResponse("q", "a")
	b := NewBackend(m, NewMockEmbedder(), WithCallBudget(0, 1))
	ctx := context.Background()

	_, err := b.Chat(ctx, []core.Message{core.UserMessage("q")})
	require.NoError(t, err)
	_, err = b.Chat(ctx, []core.Message{core.UserMessage("q")})
	assert.ErrorIs(t, err, ErrCallLimitExceeded)

	for _, text := range []string{"one", "two", "three"} {
		_, err := b.Embed(ctx, text)
		require.NoError(t, err, "embeddings are not capped")
	}

	assert.Equal(t, Usage{Embed: 3, Chat: 1}, b.Usage())
	assert.Equal(t, 4, b.Calls())
}

func TestBackend_DimensionGuard(t *testing.T) {
	dims := map[string]int{"a": 3, "b": 3, "c": 4}
	e := funcEmbedder(func(_ context.Context, text string) ([]float64, error) {
		return make([]float64, dims[text]), nil
	})

	b := NewBackend(NewMockModel("mock"), e)
	ctx := context.Background()

	_, err := b.Embed(ctx, "a")
	require.NoError(t, err)
	_, err = b.Embed(ctx, "b")
	require.NoError(t, err)

	_, err = b.Embed(ctx, "c")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrDimensionMismatch))
}

func TestBackend_EmbedError(t *testing.T) {
	boom := errors.New("boom")
	b := NewBackend(NewMockModel("mock"), funcEmbedder(func(context.Context, string) ([]float64, error) {
		return nil, boom
	}))

	_, err := b.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, boom)
}

func TestBackend_RateLimitHonoursContext(t *testing.T) {
	b := NewBackend(NewMockModel("mock"), NewMockEmbedder(), WithRateLimit(0.001, 1))

	ctx := context.Background()
	_, err := b.Embed(ctx, "first")
	require.NoError(t, err, "burst admits the first call")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = b.Embed(cancelled, "second")
	require.Error(t, err)
}
