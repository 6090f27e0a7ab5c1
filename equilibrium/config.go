package equilibrium

// Config holds the detector thresholds.
type Config struct {
	// MinSignalWindow is the minimum history length before the detector
	// computes anything.
	MinSignalWindow int `yaml:"min_signal_window" json:"min_signal_window"`
	// MinTicks is the minimum number of detector invocations before the
	// detector computes anything.
	MinTicks int `yaml:"min_ticks" json:"min_ticks"`
	// RecentWindow is the number of trailing signals used for tension,
	// coherence and clarity.
	RecentWindow int `yaml:"recent_window" json:"recent_window"`

	EnergyThreshold   float64 `yaml:"energy_threshold" json:"energy_threshold"`
	GradientThreshold float64 `yaml:"gradient_threshold" json:"gradient_threshold"`

	StagnationWindow  int     `yaml:"stagnation_window" json:"stagnation_window"`
	StagnationTension float64 `yaml:"stagnation_tension" json:"stagnation_tension"`
	StagnationFloor   float64 `yaml:"stagnation_floor" json:"stagnation_floor"`
}

// DefaultConfig returns the standard detector thresholds.
func DefaultConfig() Config {
	return Config{
		MinSignalWindow:   5,
		MinTicks:          3,
		RecentWindow:      10,
		EnergyThreshold:   0.35,
		GradientThreshold: 0.1,
		StagnationWindow:  5,
		StagnationTension: 0.7,
		StagnationFloor:   0.3,
	}
}

// Energy weights.
const (
	tensionWeight   = 0.4
	momentumWeight  = 0.1
	coherenceWeight = 0.3
	clarityWeight   = 0.2

	maxMomentumRatio = 2.0
)

// ClarityAnchors are the fixed "decision reached" phrasings clarity is measured against.
var ClarityAnchors = []string{
	"We have reached a decision and agree on the final answer.",
	"The consensus recommendation is settled; here is the plan.",
	"All open questions are resolved and the conclusion is clear.",
	"Final decision: we proceed with the agreed approach.",
}
