package impact

import (
	"fmt"
	"math"
	"slices"

	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/event"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/primitive"
)

// #region compute
// Compute maps one event to its signed impact on each primitive. It is pure
// and total: events without formulas (wake, measurements, unknown types) and
// events that have not happened yet yield a zero vector. The circadian entry
// is a phase shift in hours, negative for an advance and positive for a
// delay. Adenosine is owned by Process S and is always zero here.
//
// A malformed event returns a *MalformedEventError and a zero vector.
func Compute(ev event.Event, hoursAgo float64, f Formulas) (primitive.Vector, []Flag, error) {
	if hoursAgo < 0 {
		return primitive.Vector{}, nil, nil
	}

	r := &reader{ev: ev}
	var (
		v   primitive.Vector
		err error
	)
	switch ev.Type {
	case event.Sleep:
		v, err = sleep(r, f)
	case event.Caffeine:
		v, err = caffeine(r, f)
	case event.Exercise:
		v, err = exercise(r, f)
	case event.Meal:
		v, err = meal(r, f)
	case event.Light:
		v, err = light(r, f)
	case event.Stress:
		v, err = stress(r, f)
	case event.Social:
		v, err = social(r, f)
	case event.Screen:
		v, err = screen(r, f)
	case event.Nap:
		v, err = nap(r, f)
	case event.Interruption:
		v, err = interruption(r, f)
	default:
		return primitive.Vector{}, nil, nil
	}
	if err != nil {
		return primitive.Vector{}, nil, err
	}
	return v, r.flags, nil
}

// Occupancy is the fraction of receptors bound at a dose: dose/(dose+ed50).
func Occupancy(dose, ed50 float64) float64 {
	if dose <= 0 {
		return 0
	}
	return dose / (dose + ed50)
}

// StressCortisolMultiplier selects the cortisol multiplier from the
// (controllable, social-evaluative) table.
func StressCortisolMultiplier(controllable, socialEvaluative bool) float64 {
	switch {
	case controllable && !socialEvaluative:
		return 1.0
	case !controllable && socialEvaluative:
		return 3.0
	default:
		return 1.5
	}
}

// QualityScore resolves a sleep quality label. Unknown labels report false.
func (f Formulas) QualityScore(label string) (float64, bool) {
	q, ok := f.SleepQuality[label]
	return q, ok
}

// #endregion compute

// #region sleep
func sleep(r *reader, f Formulas) (primitive.Vector, error) {
	var v primitive.Vector
	hours, err := r.duration(f.Limits.SleepHours * 60)
	if err != nil {
		return v, err
	}
	hours /= 60
	q, err := r.enum("quality", f.SleepQuality)
	if err != nil {
		return v, err
	}
	eff, err := r.optNumber("sleep_efficiency", f.DefaultSleepEfficiency, 1)
	if err != nil {
		return v, err
	}

	switch {
	case hours >= 7:
		v[primitive.Dopamine] = 0.3 * q
	case hours >= 6:
		v[primitive.Dopamine] = 0.15 * q
	default:
		v[primitive.Dopamine] = -0.2 * (1 - q)
	}

	v[primitive.Serotonin] = 0.25 * q * math.Min(hours/7.5, 1)

	if q >= 0.7 {
		v[primitive.Cortisol] = -0.12
	} else {
		v[primitive.Cortisol] = 0.15 * (1 - q)
	}

	if hours >= 6 && eff >= 0.67 {
		v[primitive.Glucose] = 0.2
	} else {
		v[primitive.Glucose] = -0.3 * (1 - math.Min(hours/6, 1))
	}

	// Onset timing shifts the clock.
	h := event.ClockHour(r.ev.Start)
	switch {
	case h < 2:
		v[primitive.CircadianPhase] = 0.2 * (h / 2)
	case h < 6:
		v[primitive.CircadianPhase] = 0.4
	case h >= 18 && h < 22:
		v[primitive.CircadianPhase] = -0.2
	}
	return v, nil
}

// #endregion sleep

// #region caffeine
func caffeine(r *reader, f Formulas) (primitive.Vector, error) {
	var v primitive.Vector
	dose, err := r.number("dose_mg", f.Limits.CaffeineMg)
	if err != nil {
		return v, err
	}
	scaled := math.Min(dose/200, 1)
	v[primitive.Dopamine] = 0.15 * scaled
	v[primitive.Norepinephrine] = 0.4 * Occupancy(dose, f.A1ED50)
	v[primitive.Cortisol] = 0.15 * scaled
	return v, nil
}

// #endregion caffeine

// #region exercise
func exercise(r *reader, f Formulas) (primitive.Vector, error) {
	var v primitive.Vector
	minutes, err := r.duration(f.Limits.ExerciseMinutes)
	if err != nil {
		return v, err
	}
	pct, err := r.intensityPct(f)
	if err != nil {
		return v, err
	}
	kind, err := r.optText("type", f.DefaultExerciseType)
	if err != nil {
		return v, err
	}
	frac := pct / 100

	switch {
	case kind == "hiit":
		v[primitive.Dopamine] = 0.35 * math.Min(minutes/45, 1)
	case pct >= 70:
		v[primitive.Dopamine] = 0.25 * math.Min(minutes/60, 1)
	default:
		v[primitive.Dopamine] = 0.15 * math.Min(minutes/60, 1)
	}

	if pct >= 70 {
		v[primitive.Norepinephrine] = 0.4 * frac
	} else {
		v[primitive.Norepinephrine] = 0.2
	}

	v[primitive.Serotonin] = 0.2 * math.Min(minutes/60, 1)
	v[primitive.Cortisol] = ExerciseCortisol(pct) * math.Min(minutes/45, 1)
	v[primitive.Glucose] = -0.3 * frac * math.Min(minutes/60, 1)

	h := event.ClockHour(r.ev.Start)
	switch {
	case h >= 6 && h < 10:
		v[primitive.CircadianPhase] = -0.2
	case h >= 19 && h < 23:
		v[primitive.CircadianPhase] = 0.3 * frac
	}
	return v, nil
}

// ExerciseCortisol is the intensity response: silent below 60% VO2max,
// linear to 0.1 at 80%, then rising four times faster to 0.5 at 100%.
func ExerciseCortisol(pct float64) float64 {
	switch {
	case pct <= 60:
		return 0
	case pct <= 80:
		return 0.1 * (pct - 60) / 20
	default:
		return 0.1 + 0.4*(math.Min(pct, 100)-80)/20
	}
}

// #endregion exercise

// #region meal
func meal(r *reader, f Formulas) (primitive.Vector, error) {
	var v primitive.Vector
	gi, err := r.enum("glycemic_index", f.GlycemicIndex)
	if err != nil {
		return v, err
	}
	protein, err := r.number("protein_percentage", 100)
	if err != nil {
		return v, err
	}
	carbs, err := r.number("carb_percentage", 100)
	if err != nil {
		return v, err
	}
	if _, err := r.optNumber("fat_percentage", 0, 100); err != nil {
		return v, err
	}

	if protein >= 35 {
		v[primitive.Glucose] = 0.1 + gi*0.1
	} else {
		v[primitive.Glucose] = 0.15 + gi*0.15
	}

	switch {
	case protein < 10 && carbs > 40:
		v[primitive.Serotonin] = 0.35 * math.Max(1-protein/20, 0)
	case protein > 25:
		v[primitive.Serotonin] = -0.15
	default:
		v[primitive.Serotonin] = 0.1
	}

	if protein >= 15 {
		v[primitive.Dopamine] = 0.15 * math.Min(protein/40, 1)
	} else {
		v[primitive.Dopamine] = 0.05
	}
	v[primitive.Dopamine] += gi * 0.1
	return v, nil
}

// #endregion meal

// #region light
func light(r *reader, f Formulas) (primitive.Vector, error) {
	var v primitive.Vector
	lux, err := r.number("intensity_lux", f.Limits.LightLux)
	if err != nil {
		return v, err
	}
	minutes, err := r.optDuration(f.DefaultLightMinutes, 24*60)
	if err != nil {
		return v, err
	}

	h := event.ClockHour(r.ev.Start)
	morning := h >= 6 && h < 12
	evening := h >= 18 && h < 23
	exposure := math.Min(minutes/120, 1)

	switch {
	case lux >= 2000 && morning:
		v[primitive.CircadianPhase] = -0.8 * exposure
	case lux >= 2000 && evening:
		v[primitive.CircadianPhase] = 0.6 * exposure
	case lux >= 2000:
		v[primitive.CircadianPhase] = -0.2
	case lux >= 100 && morning:
		v[primitive.CircadianPhase] = -0.3
	case lux >= 100 && evening:
		v[primitive.CircadianPhase] = 0.3
	}

	if morning && lux >= 2000 {
		v[primitive.Serotonin] = 0.25 * math.Min(lux/10000, 1) * math.Min(minutes/30, 1)
	}
	if morning {
		switch {
		case lux >= 5000:
			v[primitive.Cortisol] = 0.08
		case lux >= 800:
			v[primitive.Cortisol] = 0.05
		default:
			v[primitive.Cortisol] = 0.02
		}
	}
	return v, nil
}

// IsMorningLight reports whether ev is light of at least 100 lux between
// 06:00 and 12:00. Malformed light events never count.
func IsMorningLight(ev event.Event) bool {
	if ev.Type != event.Light {
		return false
	}
	lux, ok := ev.Float("intensity_lux")
	h := event.ClockHour(ev.Start)
	return ok && lux >= 100 && h >= 6 && h < 12
}

// #endregion light

// #region stress
func stress(r *reader, f Formulas) (primitive.Vector, error) {
	var v primitive.Vector
	sev, err := r.severity(f)
	if err != nil {
		return v, err
	}
	controllable, err := r.optBool("controllable")
	if err != nil {
		return v, err
	}
	evaluative, err := r.optBool("social_evaluative")
	if err != nil {
		return v, err
	}
	mult := StressCortisolMultiplier(controllable, evaluative)

	v[primitive.Cortisol] = math.Min(0.15*sev*mult, 0.6)
	v[primitive.Norepinephrine] = 0.3 * sev
	v[primitive.Dopamine] = -0.2 * sev
	v[primitive.Serotonin] = -0.25 * sev
	v[primitive.Glucose] = math.Min(0.25*sev*math.Min(mult/2, 1.2), 0.4)
	return v, nil
}

// #endregion stress

// #region social
func social(r *reader, f Formulas) (primitive.Vector, error) {
	var v primitive.Vector
	weight, err := r.enum("interaction_type", f.InteractionWeight)
	if err != nil {
		return v, err
	}
	q, err := r.enum("quality", f.SocialQuality)
	if err != nil {
		return v, err
	}
	minutes, err := r.optDuration(f.DefaultSocialMinutes, f.Limits.SocialMinutes)
	if err != nil {
		return v, err
	}
	hours := minutes / 60

	if q > 0 {
		v[primitive.Serotonin] = 0.3 * q * math.Min(hours/2, 1)
		v[primitive.Dopamine] = 0.2 * q
		v[primitive.Cortisol] = -0.2 * q
	} else {
		v[primitive.Serotonin] = 0.3 * q
		v[primitive.Cortisol] = -0.4 * q
	}
	return v.Scale(weight), nil
}

// #endregion social

// #region screen
func screen(r *reader, f Formulas) (primitive.Vector, error) {
	var v primitive.Vector
	minutes, err := r.duration(f.Limits.ScreenMinutes)
	if err != nil {
		return v, err
	}
	content, err := r.choice("content_type", f.ContentTypes)
	if err != nil {
		return v, err
	}
	blue, err := r.enum("blue_light_intensity", f.BlueLight)
	if err != nil {
		return v, err
	}

	if r.ev.Has("hours_before_sleep") {
		before, err := r.number("hours_before_sleep", 24)
		if err != nil {
			return v, err
		}
		if before <= 3 {
			v[primitive.CircadianPhase] = 0.25 * blue * (1 - before/3)
		}
	} else if h := event.ClockHour(r.ev.Start); h >= 20 || h < 2 {
		v[primitive.CircadianPhase] = 0.25 * blue * math.Min(minutes/60, 1)
	}

	exposure := math.Min(minutes/60, 1)
	switch content {
	case "social_media":
		v[primitive.Dopamine] = 0.05 * exposure
	case "gaming":
		v[primitive.Dopamine] = 0.08 * exposure
		v[primitive.Norepinephrine] = 0.05 * exposure
	}
	return v, nil
}

// #endregion screen

// #region nap
func nap(r *reader, f Formulas) (primitive.Vector, error) {
	var v primitive.Vector
	minutes, err := r.duration(f.Limits.NapMinutes)
	if err != nil {
		return v, err
	}
	if minutes >= 60 {
		v[primitive.CircadianPhase] = 0.15
	}
	return v, nil
}

// #endregion nap

// #region interruption
func interruption(r *reader, f Formulas) (primitive.Vector, error) {
	var v primitive.Vector
	freq, err := r.number("frequency", f.Limits.InterruptionCount)
	if err != nil {
		return v, err
	}
	load := math.Min(freq/10, 1)
	v[primitive.Cortisol] = 0.2 * load
	v[primitive.Dopamine] = -0.15 * load
	return v, nil
}

// #endregion interruption

// #region reader
type reader struct {
	ev    event.Event
	flags []Flag
}

func (r *reader) malformed(prop, format string, args ...any) error {
	return &MalformedEventError{
		EventID:  r.ev.ID,
		Type:     r.ev.Type,
		Property: prop,
		Reason:   fmt.Sprintf(format, args...),
	}
}

func (r *reader) limit(prop string, val, max float64) float64 {
	if max > 0 && val > max {
		r.flags = append(r.flags, Flag{
			EventID:  r.ev.ID,
			Property: prop,
			Original: val,
			Clamped:  max,
			Reason:   fmt.Sprintf("%s %.4g above physical maximum %.4g", prop, val, max),
		})
		return max
	}
	return val
}

// number reads a required non-negative numeric property.
func (r *reader) number(key string, max float64) (float64, error) {
	if !r.ev.Has(key) {
		return 0, r.malformed(key, "missing")
	}
	val, ok := r.ev.Float(key)
	if !ok {
		return 0, r.malformed(key, "not a number")
	}
	if val < 0 {
		return 0, r.malformed(key, "negative value %.4g", val)
	}
	return r.limit(key, val, max), nil
}

func (r *reader) optNumber(key string, def, max float64) (float64, error) {
	if !r.ev.Has(key) {
		return def, nil
	}
	return r.number(key, max)
}

func (r *reader) enum(key string, table map[string]float64) (float64, error) {
	if !r.ev.Has(key) {
		return 0, r.malformed(key, "missing")
	}
	label, ok := r.ev.Text(key)
	if !ok {
		return 0, r.malformed(key, "not a string")
	}
	val, ok := table[label]
	if !ok {
		return 0, r.malformed(key, "unknown value %q", label)
	}
	return val, nil
}

func (r *reader) choice(key string, allowed []string) (string, error) {
	if !r.ev.Has(key) {
		return "", r.malformed(key, "missing")
	}
	label, ok := r.ev.Text(key)
	if !ok {
		return "", r.malformed(key, "not a string")
	}
	if !slices.Contains(allowed, label) {
		return "", r.malformed(key, "unknown value %q", label)
	}
	return label, nil
}

func (r *reader) optText(key, def string) (string, error) {
	if !r.ev.Has(key) {
		return def, nil
	}
	label, ok := r.ev.Text(key)
	if !ok {
		return "", r.malformed(key, "not a string")
	}
	return label, nil
}

func (r *reader) optBool(key string) (bool, error) {
	if !r.ev.Has(key) {
		return false, nil
	}
	b, ok := r.ev.Bool(key)
	if !ok {
		return false, r.malformed(key, "not a boolean")
	}
	return b, nil
}

// duration resolves the event length in minutes from its duration property
// or its timestamps.
func (r *reader) duration(maxMinutes float64) (float64, error) {
	key := "duration_minutes"
	if r.ev.Type == event.Sleep {
		key = "duration_hours"
	}
	if r.ev.Has(key) {
		if _, ok := r.ev.Float(key); !ok {
			return 0, r.malformed(key, "not a number")
		}
	}
	d, ok := r.ev.Duration()
	if !ok {
		return 0, r.malformed(key, "missing and no end timestamp")
	}
	if d < 0 {
		return 0, r.malformed(key, "negative duration %s", d)
	}
	if r.ev.Type == event.Sleep {
		return r.limit(key, d.Hours(), maxMinutes/60) * 60, nil
	}
	return r.limit(key, d.Minutes(), maxMinutes), nil
}

func (r *reader) optDuration(defMinutes, maxMinutes float64) (float64, error) {
	if !r.ev.Has("duration_minutes") && r.ev.End == nil {
		return defMinutes, nil
	}
	return r.duration(maxMinutes)
}

// intensityPct reads the exercise intensity label, falling back to an
// explicit vo2max_percentage.
func (r *reader) intensityPct(f Formulas) (float64, error) {
	if r.ev.Has("intensity") {
		return r.enum("intensity", f.ExerciseIntensity)
	}
	if r.ev.Has("vo2max_percentage") {
		return r.number("vo2max_percentage", 100)
	}
	return 0, r.malformed("intensity", "missing intensity and vo2max_percentage")
}

// severity accepts a label or a number.
func (r *reader) severity(f Formulas) (float64, error) {
	if _, ok := r.ev.Properties["intensity"].(string); ok {
		return r.enum("intensity", f.StressSeverity)
	}
	return r.number("intensity", f.Limits.StressSeverity)
}

// #endregion reader
