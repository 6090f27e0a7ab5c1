package testutil

import (
	"context"
	"sync"

	"github.com/hupe1980/biosphere/core"
	"github.com/stretchr/testify/mock"
)

// ChatFunc scripts the reply of a StubBackend.
type ChatFunc func(messages []core.Message) (string, error)

// StubBackend is a deterministic core.Backend. Embed returns the vector
// registered for the exact text, or a zero vector of the configured
// dimension for unknown text. Chat delegates to a scripted ChatFunc. All
// calls are counted.
type StubBackend struct {
	mu        sync.Mutex
	dim       int
	vectors   map[string][]float64
	embedErrs map[string]error
	chat      ChatFunc
	embedded  []string
	chats     [][]core.Message
}

var _ core.Backend = (*StubBackend)(nil)

// NewStubBackend creates a stub producing dim-dimensional vectors.
func NewStubBackend(dim int) *StubBackend {
	return &StubBackend{
		dim:       dim,
		vectors:   map[string][]float64{},
		embedErrs: map[string]error{},
		chat:      func([]core.Message) (string, error) { return "ack", nil },
	}
}

// Vector registers the embedding for text (chainable).
func (b *StubBackend) Vector(text string, v ...float64) *StubBackend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.vectors[text] = v
	return b
}

// FailEmbed makes Embed(text) return err (chainable).
func (b *StubBackend) FailEmbed(text string, err error) *StubBackend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.embedErrs[text] = err
	return b
}

// OnChat replaces the chat script (chainable).
func (b *StubBackend) OnChat(fn ChatFunc) *StubBackend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chat = fn
	return b
}

// Reply makes every chat call return text (chainable).
func (b *StubBackend) Reply(text string) *StubBackend {
	return b.OnChat(func([]core.Message) (string, error) { return text, nil })
}

// Embed implements core.Backend.
func (b *StubBackend) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.embedded = append(b.embedded, text)
	if err, ok := b.embedErrs[text]; ok {
		return nil, err
	}
	if v, ok := b.vectors[text]; ok {
		return append([]float64(nil), v...), nil
	}
	return make([]float64, b.dim), nil
}

// Chat implements core.Backend.
func (b *StubBackend) Chat(ctx context.Context, messages []core.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b.mu.Lock()
	b.chats = append(b.chats, append([]core.Message(nil), messages...))
	fn := b.chat
	b.mu.Unlock()
	return fn(messages)
}

// EmbedCount returns the number of Embed calls so far.
func (b *StubBackend) EmbedCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.embedded)
}

// ChatCount returns the number of Chat calls so far.
func (b *StubBackend) ChatCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.chats)
}

// Embedded returns every text passed to Embed, in call order.
func (b *StubBackend) Embedded() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.embedded...)
}

// Chats returns the message lists of every Chat call.
func (b *StubBackend) Chats() [][]core.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]core.Message(nil), b.chats...)
}

// MockBackend is a testify mock of core.Backend for call-level assertions.
type MockBackend struct{ mock.Mock }

var _ core.Backend = (*MockBackend)(nil)

// Embed implements core.Backend.
func (m *MockBackend) Embed(ctx context.Context, text string) ([]float64, error) {
	args := m.Called(ctx, text)
	v, _ := args.Get(0).([]float64)
	return v, args.Error(1)
}

// Chat implements core.Backend.
func (m *MockBackend) Chat(ctx context.Context, messages []core.Message) (string, error) {
	args := m.Called(ctx, messages)
	return args.String(0), args.Error(1)
}
