package primitive

import (
	"fmt"
	"math"
)

// #region kind
// Kind identifies one of the seven estimated state variables.
type Kind int

const (
	Dopamine Kind = iota
	Serotonin
	Norepinephrine
	Adenosine
	Cortisol
	Glucose
	CircadianPhase
)

// Count is the number of primitives.
const Count = 7

var kindNames = [Count]string{
	"dopamine",
	"serotonin",
	"norepinephrine",
	"adenosine",
	"cortisol",
	"glucose",
	"circadian_phase",
}

// All returns every kind in declaration order.
func All() []Kind {
	return []Kind{Dopamine, Serotonin, Norepinephrine, Adenosine, Cortisol, Glucose, CircadianPhase}
}

// String returns the snake_case name used in JSON and logs.
func (k Kind) String() string {
	if k < 0 || int(k) >= Count {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind resolves a snake_case name.
func ParseKind(s string) (Kind, error) {
	for i, n := range kindNames {
		if n == s {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown primitive %q", s)
}

// MarshalText implements encoding.TextMarshaler so Kind works as a JSON map key.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// #endregion kind

// #region vector
// Vector holds one signed value per primitive, indexed by Kind.
type Vector [Count]float64

// Add returns v + o element-wise.
func (v Vector) Add(o Vector) Vector {
	var out Vector
	for i := range v {
		out[i] = v[i] + o[i]
	}
	return out
}

// Scale returns v * s element-wise.
func (v Vector) Scale(s float64) Vector {
	var out Vector
	for i := range v {
		out[i] = v[i] * s
	}
	return out
}

// IsZero reports whether every element is exactly zero.
func (v Vector) IsZero() bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Finite reports whether every element is a finite number.
func (v Vector) Finite() bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// Map converts the vector to a name-keyed map, omitting zero entries.
func (v Vector) Map() map[string]float64 {
	out := make(map[string]float64)
	for i, x := range v {
		if x != 0 {
			out[Kind(i).String()] = x
		}
	}
	return out
}

// VectorFromMap is the inverse of Map. Unknown names are an error.
func VectorFromMap(m map[string]float64) (Vector, error) {
	var v Vector
	for name, x := range m {
		k, err := ParseKind(name)
		if err != nil {
			return Vector{}, err
		}
		v[k] = x
	}
	return v, nil
}

// #endregion vector

// #region contribution
// Contribution links one source event to its effect on a primitive at query time.
type Contribution struct {
	EventID   string  `json:"event_id"`
	EventType string  `json:"event_type"`
	HoursAgo  float64 `json:"hours_ago"`
	Impact    float64 `json:"impact"`
	Decayed   float64 `json:"decayed_impact"`
}

// #endregion contribution

// #region estimate
// Estimate is the finalized state of one primitive.
type Estimate struct {
	Kind         Kind           `json:"kind"`
	Score        float64        `json:"score"`
	Confidence   float64        `json:"confidence"`
	Contributors []Contribution `json:"contributors"`
	Adjustments  []string       `json:"adjustments,omitempty"`

	// Base is the aggregated score before patterns, modifiers and validation.
	Base float64 `json:"base_score"`

	// Dual-timescale breakdown; nil for single-timescale primitives.
	Acute     *float64 `json:"acute_score,omitempty"`
	Chronic   *float64 `json:"chronic_score,omitempty"`
	Effective *float64 `json:"effective_score,omitempty"`
}

// #endregion estimate

// #region helpers
// Clamp restricts v to [lo, hi]. NaN maps to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Unit restricts v to [0, 1].
func Unit(v float64) float64 {
	return Clamp(v, 0, 1)
}

// #endregion helpers
