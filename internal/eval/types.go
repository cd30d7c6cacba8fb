package eval

// #region eval-config
// EvalConfig holds thresholds for output validation.
type EvalConfig struct {
	MaxContributors int     `json:"max_contributors"` // contributor lists longer than this fail
	PhaseMin        float64 `json:"phase_min"`        // circadian phase score floor
	PhaseMax        float64 `json:"phase_max"`        // circadian phase score ceiling
	MinConfidence   float64 `json:"min_confidence"`   // warn if mean confidence drops below
}

// DefaultEvalConfig returns the checks applied to every estimate.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		MaxContributors: 5,
		PhaseMin:        0.3,
		PhaseMax:        0.7,
		MinConfidence:   0.3,
	}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single validation check result.
type EvalMetric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Pass  bool    `json:"pass"`
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the output of output validation.
type EvalResult struct {
	Passed  bool         `json:"passed"`
	Metrics []EvalMetric `json:"metrics"`
	Reason  string       `json:"reason"`
}

// #endregion eval-result
