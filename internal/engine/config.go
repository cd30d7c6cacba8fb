package engine

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/decay"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/eval"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/impact"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/modifier"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/physio"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/primitive"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/process"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/sequence"
)

// #region engine-config
// Config is every tunable the engine reads. Nothing else is global.
type Config struct {
	// Windows covers the aggregated primitives. Adenosine and circadian
	// phase come from the process models and are configured there.
	Windows   map[primitive.Kind]decay.Window `json:"windows"`
	Baselines map[primitive.Kind]float64      `json:"baselines"`

	Formulas  impact.Formulas         `json:"formulas"`
	Homeostat process.HomeostatConfig `json:"homeostat"`
	Clock     process.ClockConfig     `json:"clock"`
	Patterns  sequence.Config         `json:"patterns"`
	Modifiers modifier.Config         `json:"modifiers"`
	Physio    physio.Config           `json:"physio"`
	Eval      eval.EvalConfig         `json:"eval"`

	MaxContributors int  `json:"max_contributors"`
	CortisolRhythm  bool `json:"cortisol_rhythm"` // layer event load on the diurnal curve
	Parallel        bool `json:"parallel"`        // fan out independent aggregations
}

// aggregated lists the primitives scored by windowed aggregation.
var aggregated = []primitive.Kind{
	primitive.Dopamine,
	primitive.Serotonin,
	primitive.Norepinephrine,
	primitive.Cortisol,
	primitive.Glucose,
}

// DefaultConfig returns the documented windows, baselines and thresholds.
func DefaultConfig() Config {
	return Config{
		Windows: map[primitive.Kind]decay.Window{
			primitive.Dopamine:       decay.Dual(12, 6, 72, 24),
			primitive.Serotonin:      decay.Dual(16, 8, 96, 36),
			primitive.Norepinephrine: decay.Single(12, 4),
			primitive.Cortisol:       decay.Single(48, 12),
			primitive.Glucose:        decay.Single(8, 2),
		},
		Baselines: map[primitive.Kind]float64{
			primitive.Dopamine:       0.5,
			primitive.Serotonin:      0.5,
			primitive.Norepinephrine: 0.5,
			primitive.Adenosine:      0.3,
			primitive.Cortisol:       0.4,
			primitive.Glucose:        0.5,
			primitive.CircadianPhase: 0.5,
		},
		Formulas:        impact.DefaultFormulas(),
		Homeostat:       process.DefaultHomeostatConfig(),
		Clock:           process.DefaultClockConfig(),
		Patterns:        sequence.DefaultConfig(),
		Modifiers:       modifier.DefaultConfig(),
		Physio:          physio.DefaultConfig(),
		Eval:            eval.DefaultEvalConfig(),
		MaxContributors: 5,
	}
}

// Validate checks that every aggregated primitive has a usable window.
func (c Config) Validate() error {
	for _, k := range aggregated {
		w, ok := c.Windows[k]
		if !ok {
			return fmt.Errorf("window for %s: missing", k)
		}
		if w.Hours <= 0 || w.HalfLife <= 0 {
			return fmt.Errorf("window for %s: hours and half-life must be positive", k)
		}
		if w.DualTimescale && (w.ChronicHours <= 0 || w.ChronicHalfLife <= 0 || w.AcuteWeight < 0 || w.AcuteWeight > 1) {
			return fmt.Errorf("window for %s: invalid chronic timescale", k)
		}
	}
	for _, k := range primitive.All() {
		b, ok := c.Baselines[k]
		if !ok || b < 0 || b > 1 {
			return fmt.Errorf("baseline for %s: must be in [0,1]", k)
		}
	}
	if c.MaxContributors <= 0 {
		return fmt.Errorf("max_contributors must be positive")
	}
	return nil
}

// LoadConfig overlays a JSON file on DefaultConfig. Keys absent from the
// file keep their defaults.
func LoadConfig(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(b)
}

// ParseConfig overlays JSON on DefaultConfig and validates the result.
// Empty input yields the defaults.
func ParseConfig(b []byte) (Config, error) {
	cfg := DefaultConfig()
	if len(b) > 0 {
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// #endregion engine-config
