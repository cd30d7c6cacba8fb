package physio

import (
	"fmt"
	"slices"
	"time"

	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/event"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/impact"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/primitive"
)

// metricOrder fixes the order constraints are applied in.
var metricOrder = []event.Metric{
	event.HRV,
	event.HeartRate,
	event.BloodOxygen,
	event.BloodGlucose,
	event.BodyTemperature,
	event.RespiratoryRate,
	event.Steps,
}

// #region read
// Read converts a health event into a Measurement in canonical units.
// Glucose given in mmol/L and temperature in Fahrenheit are converted.
func Read(ev event.Event) (Measurement, error) {
	malformed := func(prop, reason string) error {
		return &impact.MalformedEventError{EventID: ev.ID, Type: ev.Type, Property: prop, Reason: reason}
	}
	metric, ok := ev.Type.Metric()
	if !ok || !slices.Contains(metricOrder, metric) {
		return Measurement{}, malformed("event_type", "unknown health metric")
	}
	if !ev.Has("value") {
		return Measurement{}, malformed("value", "missing")
	}
	v, ok := ev.Float("value")
	if !ok {
		return Measurement{}, malformed("value", "not a number")
	}
	if v < 0 {
		return Measurement{}, malformed("value", fmt.Sprintf("negative value %.4g", v))
	}

	unit, _ := ev.Text("unit")
	switch {
	case metric == event.BloodGlucose && (unit == "mmol/l" || unit == "mmol"):
		v *= 18.0
		unit = "mg/dl"
	case metric == event.BodyTemperature && (unit == "f" || unit == "fahrenheit" || unit == "°f"):
		v = (v - 32) * 5 / 9
		unit = "c"
	}
	asleep, _ := ev.Bool("during_sleep")
	return Measurement{
		EventID: ev.ID,
		Metric:  metric,
		Value:   v,
		Unit:    unit,
		At:      ev.Start,
		Asleep:  asleep,
	}, nil
}

// #endregion read

// #region extract
// Extract keeps the most recent usable reading per metric inside its
// recency window. Blood oxygen only counts when taken during rest.
// Events that fail Read are ignored here; callers report them.
func Extract(h event.History, at time.Time, cfg Config) []Measurement {
	rests := h.OfType(event.Sleep, event.Nap)
	latest := make(map[event.Metric]Measurement)

	h.Measurements().Until(at).Each(func(ev event.Event) {
		m, err := Read(ev)
		if err != nil {
			return
		}
		m.HoursAgo = at.Sub(m.At).Hours()
		window, ok := cfg.Windows[m.Metric]
		if !ok || m.HoursAgo < 0 || m.HoursAgo > window {
			return
		}
		if m.Metric == event.Steps && m.HoursAgo < cfg.StepsMinHours {
			return
		}
		if m.Metric == event.BloodOxygen {
			m.Asleep = m.Asleep || duringRest(rests, m.At)
			if !m.Asleep {
				return
			}
		}
		// History is time-ordered, so later readings replace earlier ones.
		latest[m.Metric] = m
	})

	var out []Measurement
	for _, metric := range metricOrder {
		if m, ok := latest[metric]; ok {
			out = append(out, m)
		}
	}
	return out
}

func duringRest(rests event.History, t time.Time) bool {
	found := false
	rests.Each(func(ev event.Event) {
		if !t.Before(ev.Start) && !t.After(ev.Anchor()) {
			found = true
		}
	})
	return found
}

// #endregion extract

// #region derive
// Derive maps one measurement to its constraints.
func Derive(m Measurement) []Constraint {
	var out []Constraint
	add := func(k primitive.Kind, kind ConstraintKind, v float64, reason string, args ...any) {
		out = append(out, Constraint{Primitive: k, Kind: kind, Value: v, Source: m, Reason: fmt.Sprintf(reason, args...)})
	}
	v := m.Value

	switch m.Metric {
	case event.HRV:
		if v < 30 {
			add(primitive.Cortisol, Floor, 0.6, "very low HRV (%.1fms) indicates high stress", v)
			add(primitive.Adenosine, ConfidencePenalty, 0.7, "low HRV (%.1fms) suggests stress rather than sleep debt", v)
		} else if v > 70 {
			add(primitive.Cortisol, Ceiling, 0.4, "high HRV (%.1fms) indicates low stress", v)
		}
	case event.HeartRate:
		if v > 80 {
			add(primitive.Norepinephrine, Floor, 0.5, "elevated resting heart rate (%.0f bpm) indicates sympathetic arousal", v)
			add(primitive.Adenosine, ConfidencePenalty, 0.6, "elevated heart rate (%.0f bpm) masks sleepiness", v)
		} else if v < 55 {
			add(primitive.Norepinephrine, Ceiling, 0.4, "low resting heart rate (%.0f bpm) indicates low arousal", v)
		}
	case event.BloodOxygen:
		if v < 92 {
			add(primitive.Dopamine, ConfidencePenalty, 0.5, "low SpO2 during sleep (%.1f%%) suggests impaired recovery", v)
		}
	case event.BloodGlucose:
		switch {
		case v < 70:
			add(primitive.Cortisol, Floor, 0.6, "hypoglycemia (%.0f mg/dL) triggers cortisol release", v)
			add(primitive.Glucose, Override, 0.2, "measured glucose %.0f mg/dL (low)", v)
		case v <= 100:
			add(primitive.Glucose, Override, 0.5+primitive.Clamp((v-85)/30, -0.3, 0.3), "measured glucose %.0f mg/dL (normal)", v)
		case v > 140:
			add(primitive.Glucose, Override, 0.8, "measured glucose %.0f mg/dL (high)", v)
		}
	case event.BodyTemperature:
		if v < 36.5 {
			add(primitive.CircadianPhase, ConfidencePenalty, 0.8, "low body temperature (%.1f°C) indicates circadian nadir", v)
		}
	case event.RespiratoryRate:
		if v > 18 {
			add(primitive.Cortisol, Floor, 0.5, "elevated respiratory rate (%.0f/min) indicates stress", v)
			add(primitive.Serotonin, ConfidencePenalty, 0.7, "elevated respiratory rate (%.0f/min) suggests anxiety", v)
		}
	case event.Steps:
		if v < 2000 {
			add(primitive.Dopamine, ConfidencePenalty, 0.6, "very low activity (%.0f steps) contradicts high dopamine", v)
		}
	}
	return out
}

// #endregion derive

// #region validator
// Validator applies measurement constraints to predicted scores.
type Validator struct {
	config Config
}

// NewValidator creates a validator with the given configuration.
func NewValidator(config Config) *Validator {
	return &Validator{config: config}
}

// Evaluate extracts recent measurements, derives constraints and applies
// them in metric order. Penalties scale confidence and never move a score;
// overrides blend the measured value with the prediction and raise
// confidence. With no usable measurements the inputs come back unchanged.
func (v *Validator) Evaluate(h event.History, at time.Time, scores, confidence primitive.Vector) Result {
	res := Result{Scores: scores, Confidence: confidence}
	res.Measurements = Extract(h, at, v.config)

	for _, m := range res.Measurements {
		for _, c := range Derive(m) {
			res.Constraints = append(res.Constraints, c)
			if a, ok := v.apply(&res, c); ok {
				res.Applied = append(res.Applied, a)
			}
		}
	}
	return res
}

func (v *Validator) apply(res *Result, c Constraint) (Applied, bool) {
	k := c.Primitive
	orig := res.Scores[k]
	a := Applied{
		Primitive: k,
		Kind:      c.Kind,
		Source:    c.Source.EventID,
		Metric:    c.Source.Metric,
		Original:  orig,
		Adjusted:  orig,
		Reason:    c.Reason,
	}

	switch c.Kind {
	case Floor:
		if orig >= c.Value {
			return Applied{}, false
		}
		a.Adjusted = c.Value
	case Ceiling:
		if orig <= c.Value {
			return Applied{}, false
		}
		a.Adjusted = c.Value
	case Override:
		a.Adjusted = primitive.Unit(v.config.OverrideWeight*c.Value + (1-v.config.OverrideWeight)*orig)
		a.Confidence = v.config.OverrideBoost
		res.Confidence[k] = primitive.Unit(res.Confidence[k] + v.config.OverrideBoost)
	case ConfidencePenalty:
		a.Confidence = c.Value
		res.Confidence[k] = primitive.Unit(res.Confidence[k] * c.Value)
	}
	res.Scores[k] = a.Adjusted
	return a, true
}

// #endregion validator
