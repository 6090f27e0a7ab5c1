package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/biosphere/core"
	"github.com/hupe1980/biosphere/logging"
	"golang.org/x/time/rate"
)

// BackendOptions configures a Backend.
type BackendOptions struct {
	// MaxCalls bounds embed + chat calls for the lifetime of the backend. Zero is unlimited.
	MaxCalls int
	// MaxEmbedCalls and MaxChatCalls cap each kind on its own. Zero is unlimited.
	MaxEmbedCalls int
	MaxChatCalls  int
	// RatePerSecond throttles calls. Zero disables throttling.
	RatePerSecond float64
	// Burst is the rate limiter burst size (defaults to 1).
	Burst int
	// Stream requests streaming generation and assembles the partial chunks.
	Stream bool
	Logger logging.Logger
}

// WithMaxCalls bounds the number of backend calls.
func WithMaxCalls(n int) func(o *BackendOptions) {
	return func(o *BackendOptions) { o.MaxCalls = n }
}

// WithCallBudget caps embedding and chat calls separately.
func WithCallBudget(embeds, chats int) func(o *BackendOptions) {
	return func(o *BackendOptions) {
		o.MaxEmbedCalls = embeds
		o.MaxChatCalls = chats
	}
}

// WithRateLimit throttles backend calls to perSecond with the given burst.
func WithRateLimit(perSecond float64, burst int) func(o *BackendOptions) {
	return func(o *BackendOptions) {
		o.RatePerSecond = perSecond
		o.Burst = burst
	}
}

// Backend adapts a chat Model and an Embedder to core.Backend. It enforces
// a constant embedding dimensionality and optional call budget and rate.
type Backend struct {
	model    Model
	embedder Embedder
	budget   *Budget
	rate     *rate.Limiter
	stream   bool
	logger   logging.Logger

	mu  sync.Mutex
	dim int
}

var _ core.Backend = (*Backend)(nil)

// NewBackend creates a core.Backend from a chat model and an embedder.
func NewBackend(m Model, e Embedder, optFns ...func(o *BackendOptions)) *Backend {
	opts := BackendOptions{
		Burst:  1,
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	b := &Backend{
		model:    m,
		embedder: e,
		budget:   NewBudget(Limits{Total: opts.MaxCalls, Embed: opts.MaxEmbedCalls, Chat: opts.MaxChatCalls}),
		stream:   opts.Stream,
		logger:   logging.OrNoOp(opts.Logger),
	}

	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		b.rate = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}

	return b
}

// Calls returns the number of calls made so far.
func (b *Backend) Calls() int { return b.budget.Usage().Total() }

// Usage returns the calls made so far by kind.
func (b *Backend) Usage() Usage { return b.budget.Usage() }

// Info returns the metadata of the wrapped chat model.
func (b *Backend) Info() Info { return b.model.Info() }

func (b *Backend) admit(ctx context.Context, kind CallKind) error {
	if err := b.budget.Spend(kind); err != nil {
		return err
	}
	if b.rate != nil {
		if err := b.rate.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit: %w", err)
		}
	}
	return nil
}

// Embed implements core.Backend.
func (b *Backend) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := b.admit(ctx, CallEmbed); err != nil {
		return nil, err
	}

	start := time.Now()
	vec, err := b.embedder.Embed(ctx, text)
	b.logger.Debug("backend.embed", "duration", time.Since(start), "error", err)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.dim == 0 {
		b.dim = len(vec)
	} else if len(vec) != b.dim {
		return nil, fmt.Errorf("embed: %w: got %d, want %d", core.ErrDimensionMismatch, len(vec), b.dim)
	}
	return vec, nil
}

// Chat implements core.Backend.
func (b *Backend) Chat(ctx context.Context, messages []core.Message) (string, error) {
	if err := b.admit(ctx, CallChat); err != nil {
		return "", err
	}

	instructions, turns := SplitInstructions(messages)
	if len(turns) == 0 {
		return "", ErrNoMessages
	}

	start := time.Now()
	respCh, errCh := b.model.Generate(ctx, Request{
		Instructions: instructions,
		Messages:     turns,
		Stream:       b.stream,
	})

	text, err := Drain(respCh, errCh)
	b.logger.Debug("backend.chat", "model", b.model.Info().Name, "duration", time.Since(start), "error", err)
	if err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}
	return text, nil
}

// ErrEmptyResponse is returned by Drain when a model produced no text.
var ErrEmptyResponse = errors.New("model returned no response")

// Drain consumes a Generate stream. It returns the text of the final
// response, or the concatenated partial chunks when no final response
// arrived, and the first stream error.
func Drain(respCh <-chan Response, errCh <-chan error) (string, error) {
	var (
		partial strings.Builder
		final   *Response
	)
	for r := range respCh {
		if r.Partial {
			partial.WriteString(r.Text)
			continue
		}
		r := r
		final = &r
	}

	if err := <-errCh; err != nil {
		return "", err
	}

	switch {
	case final != nil:
		return final.Text, nil
	case partial.Len() > 0:
		return partial.String(), nil
	default:
		return "", ErrEmptyResponse
	}
}
