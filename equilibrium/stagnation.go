package equilibrium

// Tracker keeps the trailing window of (tension, coherence, clarity)
// triples and decides stagnation: every triple in a full window has tension
// above the tension bound and either every coherence or every clarity is
// below the floor.
type Tracker struct {
	window  int
	tension float64
	floor   float64
	triples []triple
}

type triple struct {
	tension, coherence, clarity float64
}

// NewTracker creates a tracker from the stagnation fields of cfg.
func NewTracker(cfg Config) *Tracker {
	return &Tracker{window: cfg.StagnationWindow, tension: cfg.StagnationTension, floor: cfg.StagnationFloor}
}

// Observe records one triple and reports whether the window is stagnant.
func (t *Tracker) Observe(tension, coherence, clarity float64) bool {
	t.triples = append(t.triples, triple{tension, coherence, clarity})
	if len(t.triples) > t.window {
		t.triples = t.triples[len(t.triples)-t.window:]
	}
	return t.Stagnant()
}

// Stagnant reports the current verdict without recording anything.
func (t *Tracker) Stagnant() bool {
	if t.window <= 0 || len(t.triples) < t.window {
		return false
	}

	lowCoherence, lowClarity := true, true
	for _, tr := range t.triples {
		if !(tr.tension > t.tension) {
			return false
		}
		if !(tr.coherence < t.floor) {
			lowCoherence = false
		}
		if !(tr.clarity < t.floor) {
			lowClarity = false
		}
	}
	return lowCoherence || lowClarity
}

// Len returns the number of triples in the window.
func (t *Tracker) Len() int { return len(t.triples) }
