package physio

import (
	"time"

	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/event"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/primitive"
)

// #region constraint-kind
// ConstraintKind enumerates how a measurement acts on a primitive.
type ConstraintKind string

const (
	Floor             ConstraintKind = "floor"
	Ceiling           ConstraintKind = "ceiling"
	Override          ConstraintKind = "override"
	ConfidencePenalty ConstraintKind = "confidence_penalty"
)

// #endregion constraint-kind

// #region measurement
// Measurement is one health reading normalized to canonical units
// (mg/dL, degrees Celsius, per-minute rates).
type Measurement struct {
	EventID  string       `json:"event_id"`
	Metric   event.Metric `json:"metric"`
	Value    float64      `json:"value"`
	Unit     string       `json:"unit,omitempty"`
	At       time.Time    `json:"timestamp"`
	HoursAgo float64      `json:"hours_ago"`
	Asleep   bool         `json:"during_sleep,omitempty"`
}

// #endregion measurement

// #region constraint
// Constraint is a rule derived from a measurement.
type Constraint struct {
	Primitive primitive.Kind `json:"primitive"`
	Kind      ConstraintKind `json:"kind"`
	Value     float64        `json:"value"`
	Source    Measurement    `json:"source"`
	Reason    string         `json:"reason"`
}

// Applied records a constraint that changed a score or a confidence.
type Applied struct {
	Primitive  primitive.Kind `json:"primitive"`
	Kind       ConstraintKind `json:"kind"`
	Source     string         `json:"source_event_id"`
	Metric     event.Metric   `json:"metric"`
	Original   float64        `json:"original_score"`
	Adjusted   float64        `json:"adjusted_score"`
	Confidence float64        `json:"confidence_impact"` // multiplier for penalties, additive for overrides
	Reason     string         `json:"reason"`
}

// #endregion constraint

// #region physio-config
// Config holds recency windows and how overrides blend.
type Config struct {
	Windows        map[event.Metric]float64 `json:"windows_h"`
	StepsMinHours  float64                  `json:"steps_min_h"` // steps describe a finished day
	OverrideWeight float64                  `json:"override_weight"`
	OverrideBoost  float64                  `json:"override_confidence_boost"`
}

// DefaultConfig returns the documented windows.
func DefaultConfig() Config {
	return Config{
		Windows: map[event.Metric]float64{
			event.HeartRate:       1,
			event.RespiratoryRate: 1,
			event.HRV:             2,
			event.BloodGlucose:    2,
			event.BodyTemperature: 4,
			event.BloodOxygen:     8,
			event.Steps:           30,
		},
		StepsMinHours:  12,
		OverrideWeight: 0.7,
		OverrideBoost:  0.3,
	}
}

// #endregion physio-config

// #region result
// Result bundles everything returned by Evaluate.
type Result struct {
	Scores       primitive.Vector
	Confidence   primitive.Vector
	Measurements []Measurement
	Constraints  []Constraint
	Applied      []Applied
}

// #endregion result
