package process

import "github.com/danielpatrickdp/primitive-state/go-estimator/internal/primitive"

// #region homeostat-config
// HomeostatConfig parameterizes Process S.
type HomeostatConfig struct {
	Ceiling          float64 `json:"ceiling"`          // saturation level while awake
	TimeConstant     float64 `json:"time_constant_h"`  // awake accumulation, hours
	SleepScale       float64 `json:"sleep_scale_h"`    // clearance time scale, hours
	SleepEfficacy    float64 `json:"sleep_efficacy"`   // clearance multiplier
	NapRate          float64 `json:"nap_rate_per_min"` // nap clearance per minute
	TransitionWindow float64 `json:"transition_window_h"`
	CaffeineWindow   float64 `json:"caffeine_window_h"`
	Elimination      float64 `json:"caffeine_elimination_per_h"`
	A2AED50          float64 `json:"a2a_ed50_mg"`
	BlockadeScale    float64 `json:"blockade_scale"`
	BlockadeCap      float64 `json:"blockade_cap"`
}

// DefaultHomeostatConfig returns the two-process model constants.
func DefaultHomeostatConfig() HomeostatConfig {
	return HomeostatConfig{
		Ceiling:          0.85,
		TimeConstant:     16,
		SleepScale:       7.5,
		SleepEfficacy:    0.85,
		NapRate:          0.0077,
		TransitionWindow: 36,
		CaffeineWindow:   24,
		Elimination:      0.15,
		A2AED50:          65,
		BlockadeScale:    0.5,
		BlockadeCap:      0.6,
	}
}

// #endregion homeostat-config

// #region clock-config
// ClockConfig parameterizes Process C.
type ClockConfig struct {
	Window       float64 `json:"window_h"`
	HalfLife     float64 `json:"half_life_h"`
	DriftHours   float64 `json:"drift_h"` // delay added with no morning light
	HighPressure float64 `json:"high_pressure"`
	MidPressure  float64 `json:"mid_pressure"`
	HighGate     float64 `json:"high_gate"`
	MidGate      float64 `json:"mid_gate"`
	ScoreMin     float64 `json:"score_min"`
	ScoreMax     float64 `json:"score_max"`
	HoursPerUnit float64 `json:"hours_per_unit"` // score = 0.5 + offset/HoursPerUnit
}

// DefaultClockConfig returns the Process C constants.
func DefaultClockConfig() ClockConfig {
	return ClockConfig{
		Window:       168,
		HalfLife:     72,
		DriftHours:   0.5,
		HighPressure: 0.7,
		MidPressure:  0.5,
		HighGate:     0.5,
		MidGate:      0.75,
		ScoreMin:     0.3,
		ScoreMax:     0.7,
		HoursPerUnit: 10,
	}
}

// #endregion clock-config

// #region results
// Homeostat is the Process S outcome.
type Homeostat struct {
	Score         float64                  `json:"score"`
	Pressure      float64                  `json:"pressure"` // before caffeine blockade
	Blockade      float64                  `json:"blockade"`
	HoursAwake    *float64                 `json:"hours_awake,omitempty"` // nil when unbounded
	Contributions []primitive.Contribution `json:"contributions"`
	Count         int                      `json:"count"`
}

// Clock is the Process C outcome.
type Clock struct {
	Score         float64                  `json:"score"`
	OffsetHours   float64                  `json:"offset_hours"` // positive is a delay
	LightGate     float64                  `json:"light_gate"`
	Drift         bool                     `json:"drift"`
	Contributions []primitive.Contribution `json:"contributions"`
	Count         int                      `json:"count"`
}

// Drive is the sleep drive breakdown.
type Drive struct {
	Homeostatic float64 `json:"homeostatic"`
	Circadian   float64 `json:"circadian"`
	Combined    float64 `json:"combined"`
}

// #endregion results
