package engine

import (
	"time"

	"github.com/hupe1980/biosphere/core"
	"github.com/hupe1980/biosphere/equilibrium"
	"github.com/hupe1980/biosphere/synapse"
)

// Status is the state of a run as seen by a snapshot.
type Status string

const (
	// StatusRunning means more ticks follow.
	StatusRunning Status = "running"
	// StatusEquilibrium means the detector reported equilibrium; the run stops.
	StatusEquilibrium Status = "equilibrium"
	// StatusExhausted means MaxTicks was reached without equilibrium.
	StatusExhausted Status = "exhausted"
)

// Snapshot is published by Live once per tick.
type Snapshot struct {
	Tick   int    `json:"tick"`
	Status Status `json:"status"`

	// Agents is the population at the end of the tick.
	Agents []core.AgentInfo `json:"agents"`

	// Signals holds every signal appended since the previous snapshot.
	Signals []core.Signal `json:"signals"`

	// HistoryLen is the total number of signals so far.
	HistoryLen int `json:"history_len"`

	// Equilibrium is nil when the detector is disabled or failed this tick.
	Equilibrium *equilibrium.Result `json:"equilibrium,omitempty"`

	// Intervened reports that the stagnation intervention was broadcast.
	Intervened bool `json:"intervened"`

	Synapses []synapse.Stats `json:"synapses,omitempty"`

	Duration time.Duration `json:"duration"`
}

// Done reports whether the snapshot is the last one of its run.
func (s Snapshot) Done() bool { return s.Status != StatusRunning }
