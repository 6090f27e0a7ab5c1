package model

import (
	"errors"
	"fmt"
	"sync"
)

// ErrCallLimitExceeded is returned once a Budget refuses a call.
var ErrCallLimitExceeded = errors.New("exceeded max backend calls")

// CallKind names the backend operation a Budget meters.
type CallKind string

const (
	CallEmbed CallKind = "embed"
	CallChat  CallKind = "chat"
)

// Limits bounds the calls of one Budget. Zero means unlimited.
type Limits struct {
	// Total caps embed and chat calls together.
	Total int
	// Embed caps embedding calls. Receptors, thoughts, anchors and the
	// detector all embed, so this grows with population and history.
	Embed int
	// Chat caps generation calls: agent emissions, synapse transforms,
	// classification and spawner proposals.
	Chat int
}

// Usage is a point-in-time count of spent calls.
type Usage struct {
	Embed int
	Chat  int
}

// Total returns embed + chat calls.
func (u Usage) Total() int { return u.Embed + u.Chat }

// Budget meters backend calls by kind. A refused call is not counted.
type Budget struct {
	limits Limits

	mu   sync.Mutex
	used Usage
}

// NewBudget creates a budget with the given limits.
func NewBudget(limits Limits) *Budget {
	return &Budget{limits: limits}
}

// Spend records one call of kind, or returns ErrCallLimitExceeded when the
// kind's own cap or the shared total is exhausted.
func (b *Budget) Spend(kind CallKind) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.limits.Total > 0 && b.used.Total() >= b.limits.Total {
		return fmt.Errorf("%w: %s: total %d", ErrCallLimitExceeded, kind, b.limits.Total)
	}

	switch kind {
	case CallEmbed:
		if b.limits.Embed > 0 && b.used.Embed >= b.limits.Embed {
			return fmt.Errorf("%w: embed %d", ErrCallLimitExceeded, b.limits.Embed)
		}
		b.used.Embed++
	case CallChat:
		if b.limits.Chat > 0 && b.used.Chat >= b.limits.Chat {
			return fmt.Errorf("%w: chat %d", ErrCallLimitExceeded, b.limits.Chat)
		}
		b.used.Chat++
	default:
		return fmt.Errorf("unknown call kind %q", kind)
	}

	return nil
}

// Usage returns the calls spent so far.
func (b *Budget) Usage() Usage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used
}

// Remaining returns how many more calls of kind would be accepted, or -1
// when neither the kind nor the total is capped.
func (b *Budget) Remaining(kind CallKind) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	capped, used := b.limits.Chat, b.used.Chat
	if kind == CallEmbed {
		capped, used = b.limits.Embed, b.used.Embed
	}

	left := -1
	if b.limits.Total > 0 {
		left = b.limits.Total - b.used.Total()
	}
	if capped > 0 && (left < 0 || capped-used < left) {
		left = capped - used
	}
	return left
}
