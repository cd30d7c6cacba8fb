package event

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

// #region type
// Type tags an event with the activity or measurement it records.
type Type string

const (
	Sleep        Type = "sleep"
	Caffeine     Type = "caffeine"
	Exercise     Type = "exercise"
	Meal         Type = "meal"
	Light        Type = "light_exposure"
	Stress       Type = "stress_event"
	Social       Type = "social_interaction"
	Screen       Type = "screen_time"
	Nap          Type = "nap"
	Interruption Type = "interruption"
	Wake         Type = "wake"
)

// HealthPrefix starts every measurement type, e.g. "health_hrv".
const HealthPrefix = "health_"

var aliases = map[string]Type{
	"light":  Light,
	"stress": Stress,
	"social": Social,
	"screen": Screen,
}

// ActivityTypes lists the ten activity types that carry impact formulas.
func ActivityTypes() []Type {
	return []Type{Sleep, Caffeine, Exercise, Meal, Light, Stress, Social, Screen, Nap, Interruption}
}

// NormalizeType maps short aliases onto canonical type names.
func NormalizeType(s string) Type {
	s = strings.ToLower(strings.TrimSpace(s))
	if t, ok := aliases[s]; ok {
		return t
	}
	return Type(s)
}

// IsHealth reports whether t is a physiological measurement.
func (t Type) IsHealth() bool {
	return strings.HasPrefix(string(t), HealthPrefix)
}

// Metric returns the measured metric for health types.
func (t Type) Metric() (Metric, bool) {
	if !t.IsHealth() {
		return "", false
	}
	return Metric(strings.TrimPrefix(string(t), HealthPrefix)), true
}

// IsRest reports whether t clears sleep pressure.
func (t Type) IsRest() bool {
	return t == Sleep || t == Nap
}

// #endregion type

// #region metric
// Metric names a physiological measurement.
type Metric string

const (
	HeartRate       Metric = "heart_rate"
	HRV             Metric = "hrv"
	BloodOxygen     Metric = "blood_oxygen"
	BloodGlucose    Metric = "blood_glucose"
	RespiratoryRate Metric = "respiratory_rate"
	Steps           Metric = "steps"
	BodyTemperature Metric = "body_temperature"
)

// HealthType returns the event type carrying measurements of m.
func HealthType(m Metric) Type {
	return Type(HealthPrefix + string(m))
}

// #endregion metric

// #region event
// Event is one immutable entry in a user's history.
type Event struct {
	ID         string         `json:"event_id"`
	Type       Type           `json:"event_type"`
	Start      time.Time      `json:"timestamp"`
	End        *time.Time     `json:"end_timestamp,omitempty"`
	Properties map[string]any `json:"properties"`
}

// UnmarshalJSON decodes an event and canonicalizes its type.
func (e *Event) UnmarshalJSON(b []byte) error {
	type plain Event
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	p.Type = NormalizeType(string(p.Type))
	*e = Event(p)
	return nil
}

// Clone returns a copy that shares no maps or pointers with e.
func (e Event) Clone() Event {
	out := e
	if e.End != nil {
		end := *e.End
		out.End = &end
	}
	if e.Properties != nil {
		out.Properties = make(map[string]any, len(e.Properties))
		for k, v := range e.Properties {
			out.Properties[k] = v
		}
	}
	return out
}

// #endregion event

// #region properties
// Has reports whether key is present.
func (e Event) Has(key string) bool {
	_, ok := e.Properties[key]
	return ok
}

// Float reads a numeric property. Non-finite values are rejected.
func (e Event) Float(key string) (float64, bool) {
	v, ok := e.Properties[key]
	if !ok {
		return 0, false
	}
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Text reads a string property, lower-cased and trimmed.
func (e Event) Text(key string) (string, bool) {
	v, ok := e.Properties[key].(string)
	if !ok {
		return "", false
	}
	return strings.ToLower(strings.TrimSpace(v)), true
}

// Bool reads a boolean property.
func (e Event) Bool(key string) (bool, bool) {
	v, ok := e.Properties[key].(bool)
	return v, ok
}

// #endregion properties

// #region timing
// Span returns End - Start when an end timestamp is present.
func (e Event) Span() (time.Duration, bool) {
	if e.End == nil {
		return 0, false
	}
	return e.End.Sub(e.Start), true
}

// Duration resolves the event length. Sleep reads duration_hours, every
// other type reads duration_minutes; both fall back to the timestamp span.
// The value may be negative; callers decide how to treat that.
func (e Event) Duration() (time.Duration, bool) {
	key, unit := "duration_minutes", float64(time.Minute)
	if e.Type == Sleep {
		key, unit = "duration_hours", float64(time.Hour)
	}
	if v, ok := e.Float(key); ok {
		return time.Duration(v * unit), true
	}
	return e.Span()
}

// Anchor is the instant elapsed time is measured from. Rest events act
// from their end, everything else from its start.
func (e Event) Anchor() time.Time {
	if !e.Type.IsRest() {
		return e.Start
	}
	if e.End != nil {
		return *e.End
	}
	if d, ok := e.Duration(); ok && d > 0 {
		return e.Start.Add(d)
	}
	return e.Start
}

// HoursSince returns fractional hours between the anchor and at.
func (e Event) HoursSince(at time.Time) float64 {
	return at.Sub(e.Anchor()).Hours()
}

// ClockHour returns the fractional hour of day of t in its own location.
func ClockHour(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60 + float64(t.Second())/3600
}

// #endregion timing
