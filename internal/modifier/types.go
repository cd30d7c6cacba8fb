package modifier

import "github.com/danielpatrickdp/primitive-state/go-estimator/internal/primitive"

// #region modifier-config
// Config holds the cross-primitive thresholds and multipliers.
type Config struct {
	PhaseLow    float64 `json:"phase_low"`
	PhaseHigh   float64 `json:"phase_high"`
	PhaseFactor float64 `json:"phase_factor"`

	GlucoseLow    float64 `json:"glucose_low"`
	GlucoseFactor float64 `json:"glucose_factor"`

	AdenosineHigh       float64 `json:"adenosine_high"`
	AdenosineMaxPenalty float64 `json:"adenosine_max_penalty"` // dopamine factor at adenosine 1.0 is 1 - this

	CortisolHigh   float64 `json:"cortisol_high"`
	CortisolFactor float64 `json:"cortisol_factor"`
}

// DefaultConfig returns the documented modifier constants.
func DefaultConfig() Config {
	return Config{
		PhaseLow:            0.35,
		PhaseHigh:           0.65,
		PhaseFactor:         0.85,
		GlucoseLow:          0.4,
		GlucoseFactor:       0.70,
		AdenosineHigh:       0.7,
		AdenosineMaxPenalty: 0.3,
		CortisolHigh:        0.7,
		CortisolFactor:      0.85,
	}
}

// #endregion modifier-config

// #region rule
// Rule records one triggered modifier.
type Rule struct {
	Name    string           `json:"name"`
	Targets []primitive.Kind `json:"targets"`
	Factor  float64          `json:"factor"`
	Reason  string           `json:"reason"`
}

// #endregion rule

// #region result
// Result bundles everything returned by Apply.
type Result struct {
	Scores  primitive.Vector
	Factors primitive.Vector // product of applied factors per primitive; 1 when untouched
	Applied []Rule
}

// #endregion result
