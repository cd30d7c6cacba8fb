package impact

import (
	"errors"
	"fmt"

	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/event"
)

// #region errors
// ErrMalformed matches every MalformedEventError via errors.Is.
var ErrMalformed = errors.New("malformed event")

// MalformedEventError reports a required property that is missing, has the
// wrong type, names an unknown enum value, or lies below its physical minimum.
type MalformedEventError struct {
	EventID  string
	Type     event.Type
	Property string
	Reason   string
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("%s event %s: %s: %s", e.Type, e.EventID, e.Property, e.Reason)
}

func (e *MalformedEventError) Unwrap() error { return ErrMalformed }

// #endregion errors

// #region flag
// Flag records a value that was clamped into its physical range.
type Flag struct {
	EventID  string  `json:"event_id"`
	Property string  `json:"property"`
	Original float64 `json:"original"`
	Clamped  float64 `json:"clamped"`
	Reason   string  `json:"reason"`
}

// #endregion flag

// #region limits
// Limits are physical maxima. Values above them are clamped and flagged.
type Limits struct {
	SleepHours        float64 `json:"sleep_hours"`
	CaffeineMg        float64 `json:"caffeine_mg"`
	ExerciseMinutes   float64 `json:"exercise_minutes"`
	LightLux          float64 `json:"light_lux"`
	StressSeverity    float64 `json:"stress_severity"`
	SocialMinutes     float64 `json:"social_minutes"`
	ScreenMinutes     float64 `json:"screen_minutes"`
	NapMinutes        float64 `json:"nap_minutes"`
	InterruptionCount float64 `json:"interruption_count"`
}

// DefaultLimits returns the physical maxima used by DefaultFormulas.
func DefaultLimits() Limits {
	return Limits{
		SleepHours:        16,
		CaffeineMg:        1000,
		ExerciseMinutes:   300,
		LightLux:          100000,
		StressSeverity:    1.3,
		SocialMinutes:     720,
		ScreenMinutes:     720,
		NapMinutes:        180,
		InterruptionCount: 100,
	}
}

// #endregion limits

// #region formulas
// Formulas holds the enum tables, receptor constants and defaults every
// impact function reads. Thresholds and multipliers not listed here are
// fixed by the functions themselves.
type Formulas struct {
	A2AED50 float64 `json:"a2a_ed50_mg"` // adenosine A2A receptor, mg
	A1ED50  float64 `json:"a1_ed50_mg"`  // adenosine A1 receptor, mg

	SleepQuality      map[string]float64 `json:"sleep_quality"`
	ExerciseIntensity map[string]float64 `json:"exercise_intensity"` // enum -> % VO2max
	GlycemicIndex     map[string]float64 `json:"glycemic_index"`
	StressSeverity    map[string]float64 `json:"stress_severity"`
	SocialQuality     map[string]float64 `json:"social_quality"`
	InteractionWeight map[string]float64 `json:"interaction_weight"`
	BlueLight         map[string]float64 `json:"blue_light"`
	ContentTypes      []string           `json:"content_types"`

	DefaultSleepEfficiency float64 `json:"default_sleep_efficiency"`
	DefaultLightMinutes    float64 `json:"default_light_minutes"`
	DefaultSocialMinutes   float64 `json:"default_social_minutes"`
	DefaultExerciseType    string  `json:"default_exercise_type"`

	Limits Limits `json:"limits"`
}

// DefaultFormulas returns the documented formula set.
func DefaultFormulas() Formulas {
	return Formulas{
		A2AED50: 65,
		A1ED50:  450,
		SleepQuality: map[string]float64{
			"excellent": 1.0,
			"good":      0.8,
			"fair":      0.6,
			"poor":      0.4,
		},
		ExerciseIntensity: map[string]float64{
			"light":          40,
			"moderate":       65,
			"vigorous":       75,
			"high_intensity": 85,
		},
		GlycemicIndex: map[string]float64{
			"low":    0.3,
			"medium": 0.6,
			"high":   1.0,
		},
		StressSeverity: map[string]float64{
			"mild":     0.3,
			"moderate": 0.6,
			"high":     1.0,
			"severe":   1.3,
		},
		SocialQuality: map[string]float64{
			"very_positive": 1.0,
			"positive":      0.7,
			"neutral":       0.0,
			"negative":      -0.5,
			"very_negative": -1.0,
		},
		InteractionWeight: map[string]float64{
			"reciprocal": 1.0,
			"unilateral": 0.6,
			"passive":    0.3,
		},
		BlueLight: map[string]float64{
			"low":    0.3,
			"medium": 0.6,
			"high":   1.0,
		},
		ContentTypes:           []string{"social_media", "gaming", "video", "news", "reading", "work", "other"},
		DefaultSleepEfficiency: 0.85,
		DefaultLightMinutes:    30,
		DefaultSocialMinutes:   60,
		DefaultExerciseType:    "cardio",
		Limits:                 DefaultLimits(),
	}
}

// #endregion formulas
