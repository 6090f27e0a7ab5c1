// Package synapse implements the adaptive coupling used between moderately
// resonant agent pairs. A synapse rephrases a signal toward the receiving
// agent's vocabulary, memoizes the result and learns from its own track
// record.
package synapse

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
	"github.com/hupe1980/biosphere/core"
	"github.com/hupe1980/biosphere/internal/util"
	"github.com/hupe1980/biosphere/logging"
)

const (
	// DefaultMemoSize bounds the transform cache of one synapse.
	DefaultMemoSize = 128

	// PriorEfficacy is the efficacy of a synapse that never fired.
	PriorEfficacy = 0.5

	// PruneEfficacy is the efficacy below which an idle synapse is pruned.
	PruneEfficacy = 0.3
)

var errEmptyTransform = errors.New("empty transform")

const transformPrompt = `You translate messages between specialists in a deliberation.
The author cares about: {{join ", " .From.Patterns}}.
The reader cares about: {{join ", " .To.Patterns}}.
Rephrase the message in the reader's vocabulary. Keep its meaning. Answer with the rephrased message only.`

// Options configures a Synapse.
type Options struct {
	MemoSize int
	// Prompt is the transform instruction template, rendered against the
	// From and To agent identities. Defaults to the built-in instruction.
	Prompt string
	Logger   logging.Logger
	// Now is the clock used for firing timestamps and latency.
	Now func() time.Time
}

// Synapse is the stateful coupling for one ordered (from, to) pair.
type Synapse struct {
	from, to  core.AgentInfo
	backend   core.Backend
	logger    logging.Logger
	now       func() time.Time
	prompt    string
	promptErr error // every transform fails while set

	mu             sync.Mutex
	baseSimilarity float64
	activations    int
	efficacy       float64
	conductionTime time.Duration
	lastFiring     time.Time
	memo           *lru.Cache
}

// New creates a synapse. baseSimilarity is fixed for its lifetime.
func New(from, to core.AgentInfo, baseSimilarity float64, backend core.Backend, optFns ...func(o *Options)) *Synapse {
	opts := Options{
		MemoSize: DefaultMemoSize,
		Prompt:   transformPrompt,
		Logger:   logging.NoOpLogger{},
		Now:      time.Now,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.MemoSize <= 0 {
		opts.MemoSize = DefaultMemoSize
	}

	prompt, err := util.RenderTemplate(opts.Prompt, struct{ From, To core.AgentInfo }{from, to})

	return &Synapse{
		from:           from,
		to:             to,
		backend:        backend,
		logger:         logging.OrNoOp(opts.Logger),
		now:            opts.Now,
		prompt:         prompt,
		promptErr:      err,
		baseSimilarity: baseSimilarity,
		efficacy:       PriorEfficacy,
		memo:           lru.New(opts.MemoSize),
	}
}

// Key returns the ordered pair this synapse couples.
func (s *Synapse) Key() Key { return Key{From: s.from.ID, To: s.to.ID} }

// Transmit rephrases sig toward the target vocabulary.
//
// A memoized thought is returned without a backend call and counts as an
// instant success. A failed backend call counts as a failure and the
// original signal is returned untouched so propagation never blocks.
func (s *Synapse) Transmit(ctx context.Context, sig core.Signal) core.Signal {
	if cached, ok := s.lookup(sig.Thought); ok {
		s.record(1, 0)
		s.logger.Debug("synapse.transmit.cached", "from", s.from.ID, "to", s.to.ID)
		return sig.Relay(cached, s.from.ID)
	}

	if s.promptErr != nil {
		s.record(0, 0)
		s.logger.Warn("synapse.transmit.failed", "from", s.from.ID, "to", s.to.ID, "error", s.promptErr)
		return sig
	}

	start := s.now()
	reply, err := s.backend.Chat(ctx, []core.Message{
		core.SystemMessage(s.prompt),
		core.UserMessage(sig.Thought),
	})
	latency := s.now().Sub(start)

	reply = strings.TrimSpace(reply)
	if err == nil && reply == "" {
		err = errEmptyTransform
	}
	if err != nil {
		s.record(0, latency)
		s.logger.Warn("synapse.transmit.failed", "from", s.from.ID, "to", s.to.ID, "error", err)
		return sig
	}

	s.record(1, latency)
	s.store(sig.Thought, reply)
	return sig.Relay(reply, s.from.ID)
}

func (s *Synapse) lookup(thought string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.memo.Get(thought)
	if !ok {
		return "", false
	}
	return v.(string), true
}

func (s *Synapse) store(thought, transformed string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memo.Add(thought, transformed)
}

// record folds one activation outcome into the running means.
func (s *Synapse) record(success float64, latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.activations++
	n := float64(s.activations)
	s.efficacy = (s.efficacy*(n-1) + success) / n
	s.conductionTime = time.Duration((float64(s.conductionTime)*(n-1) + float64(latency)) / n)
	s.lastFiring = s.now()
}

// Confidence is sigmoid(ln(n+1) - 2) * efficacy: low until a track record
// builds, asymptotic to efficacy.
func (s *Synapse) Confidence() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return confidence(s.activations, s.efficacy)
}

// Weight is baseSimilarity * (1 + ln(n+1)) * efficacy. It is used for
// diagnostics and pruning and never gates transmission.
func (s *Synapse) Weight() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return weight(s.baseSimilarity, s.activations, s.efficacy)
}

// ShouldPrune reports whether the synapse never fired, or has been idle for
// longer than idle with efficacy below PruneEfficacy.
func (s *Synapse) ShouldPrune(now time.Time, idle time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activations == 0 {
		return true
	}
	return now.Sub(s.lastFiring) > idle && s.efficacy < PruneEfficacy
}

// Stats is a point-in-time view of a synapse.
type Stats struct {
	From           string        `json:"from"`
	To             string        `json:"to"`
	BaseSimilarity float64       `json:"base_similarity"`
	Activations    int           `json:"activations"`
	Efficacy       float64       `json:"efficacy"`
	Confidence     float64       `json:"confidence"`
	Weight         float64       `json:"weight"`
	ConductionTime time.Duration `json:"conduction_time"`
	LastFiring     time.Time     `json:"last_firing"`
	Memoized       int           `json:"memoized"`
}

// Stats returns a snapshot of the synapse state.
func (s *Synapse) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		From:           s.from.ID,
		To:             s.to.ID,
		BaseSimilarity: s.baseSimilarity,
		Activations:    s.activations,
		Efficacy:       s.efficacy,
		Confidence:     confidence(s.activations, s.efficacy),
		Weight:         weight(s.baseSimilarity, s.activations, s.efficacy),
		ConductionTime: s.conductionTime,
		LastFiring:     s.lastFiring,
		Memoized:       s.memo.Len(),
	}
}

func confidence(activations int, efficacy float64) float64 {
	x := math.Log(float64(activations)+1) - 2
	return efficacy / (1 + math.Exp(-x))
}

func weight(base float64, activations int, efficacy float64) float64 {
	return base * (1 + math.Log(float64(activations)+1)) * efficacy
}
