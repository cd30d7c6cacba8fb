package impact

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/event"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/primitive"
)

const tol = 1e-9

var morning = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func approx(a, b float64) bool { return math.Abs(a-b) < tol }

func ev(typ event.Type, props map[string]any) event.Event {
	return event.Event{ID: "e1", Type: typ, Start: morning, Properties: props}
}

func mustCompute(t *testing.T, e event.Event) primitive.Vector {
	t.Helper()
	v, _, err := Compute(e, 1, DefaultFormulas())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	return v
}

func TestOccupancyED50(t *testing.T) {
	f := DefaultFormulas()
	if got := Occupancy(65, f.A2AED50); got != 0.5 {
		t.Errorf("A2A occupancy at 65mg = %v, want exactly 0.5", got)
	}
	if got := Occupancy(450, f.A1ED50); got != 0.5 {
		t.Errorf("A1 occupancy at 450mg = %v, want exactly 0.5", got)
	}
	if Occupancy(0, 65) != 0 || Occupancy(-5, 65) != 0 {
		t.Error("non-positive dose should bind nothing")
	}
	prev := 0.0
	for dose := 10.0; dose <= 1000; dose += 10 {
		o := Occupancy(dose, 65)
		if o <= prev || o >= 1 {
			t.Fatalf("occupancy not monotone in (0,1) at %v: %v", dose, o)
		}
		prev = o
	}
}

func TestStressCortisolMultiplierTable(t *testing.T) {
	tests := []struct {
		controllable, evaluative bool
		want                     float64
	}{
		{true, false, 1.0},
		{false, false, 1.5},
		{true, true, 1.5},
		{false, true, 3.0},
	}
	for _, tt := range tests {
		if got := StressCortisolMultiplier(tt.controllable, tt.evaluative); got != tt.want {
			t.Errorf("(%v,%v) = %v, want %v", tt.controllable, tt.evaluative, got, tt.want)
		}
	}
}

func TestStressUncontrollableEvaluative(t *testing.T) {
	worst := mustCompute(t, ev(event.Stress, map[string]any{
		"intensity": 1.0, "controllable": false, "social_evaluative": true, "duration_minutes": 45.0,
	}))
	mild := mustCompute(t, ev(event.Stress, map[string]any{
		"intensity": 1.0, "controllable": true, "social_evaluative": false, "duration_minutes": 45.0,
	}))
	if !approx(worst[primitive.Cortisol], 0.45) {
		t.Errorf("expected cortisol 0.45, got %v", worst[primitive.Cortisol])
	}
	if !approx(worst[primitive.Cortisol]/mild[primitive.Cortisol], 3.0) {
		t.Errorf("expected multiplier ratio 3.0, got %v", worst[primitive.Cortisol]/mild[primitive.Cortisol])
	}
}

func TestStressCortisolCap(t *testing.T) {
	v := mustCompute(t, ev(event.Stress, map[string]any{
		"intensity": "severe", "social_evaluative": true,
	}))
	if !approx(v[primitive.Cortisol], 0.585) || v[primitive.Cortisol] > 0.6 {
		t.Errorf("expected 0.585 under the 0.6 cap, got %v", v[primitive.Cortisol])
	}
	if v[primitive.Glucose] > 0.4 {
		t.Errorf("glucose above cap: %v", v[primitive.Glucose])
	}
}

func TestSleepDopamineBranches(t *testing.T) {
	tests := []struct {
		name    string
		hours   float64
		quality string
		want    float64
	}{
		{"restorative", 8, "excellent", 0.3},
		{"restorative good", 7, "good", 0.24},
		{"partial", 6.5, "good", 0.12},
		{"short", 5, "poor", -0.12},
		{"short excellent", 4, "excellent", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := mustCompute(t, ev(event.Sleep, map[string]any{
				"duration_hours": tt.hours, "quality": tt.quality,
			}))
			if !approx(v[primitive.Dopamine], tt.want) {
				t.Errorf("dopamine = %v, want %v", v[primitive.Dopamine], tt.want)
			}
		})
	}
}

func TestSleepFromTimestamps(t *testing.T) {
	start := time.Date(2025, 3, 9, 23, 0, 0, 0, time.UTC)
	end := start.Add(8 * time.Hour)
	e := event.Event{ID: "s", Type: event.Sleep, Start: start, End: &end,
		Properties: map[string]any{"quality": "excellent", "sleep_efficiency": 0.95}}
	v := mustCompute(t, e)
	if !approx(v[primitive.Dopamine], 0.3) {
		t.Errorf("dopamine = %v", v[primitive.Dopamine])
	}
	if v[primitive.Glucose] != 0.2 {
		t.Errorf("glucose = %v", v[primitive.Glucose])
	}
	if v[primitive.Adenosine] != 0 {
		t.Error("adenosine is owned by Process S")
	}
}

func TestCaffeineDopamine(t *testing.T) {
	v := mustCompute(t, ev(event.Caffeine, map[string]any{"dose_mg": 100.0}))
	if !approx(v[primitive.Dopamine], 0.075) {
		t.Errorf("dopamine = %v, want 0.075", v[primitive.Dopamine])
	}
	if !approx(v[primitive.Norepinephrine], 0.4*100/550) {
		t.Errorf("norepinephrine = %v", v[primitive.Norepinephrine])
	}
	big := mustCompute(t, ev(event.Caffeine, map[string]any{"dose_mg": 400.0}))
	if !approx(big[primitive.Dopamine], 0.15) {
		t.Errorf("dopamine should saturate at 0.15, got %v", big[primitive.Dopamine])
	}
}

func TestExerciseCortisolThresholds(t *testing.T) {
	if ExerciseCortisol(40) != 0 || ExerciseCortisol(60) != 0 {
		t.Error("no cortisol at or below 60%")
	}
	if !approx(ExerciseCortisol(70), 0.05) || !approx(ExerciseCortisol(80), 0.1) {
		t.Errorf("linear band wrong: %v %v", ExerciseCortisol(70), ExerciseCortisol(80))
	}
	lowSlope := ExerciseCortisol(80) - ExerciseCortisol(75)
	highSlope := ExerciseCortisol(90) - ExerciseCortisol(85)
	if highSlope <= 2*lowSlope {
		t.Errorf("expected sharp escalation above 80%%: %v vs %v", highSlope, lowSlope)
	}
	if !approx(ExerciseCortisol(120), 0.5) {
		t.Errorf("expected bound 0.5, got %v", ExerciseCortisol(120))
	}
}

func TestExerciseIntensityEnumOrVO2(t *testing.T) {
	byEnum := mustCompute(t, ev(event.Exercise, map[string]any{"duration_minutes": 60.0, "intensity": "vigorous"}))
	byPct := mustCompute(t, ev(event.Exercise, map[string]any{"duration_minutes": 60.0, "vo2max_percentage": 75.0}))
	if byEnum != byPct {
		t.Errorf("vigorous should equal 75%% VO2max: %v vs %v", byEnum, byPct)
	}
	hiit := mustCompute(t, ev(event.Exercise, map[string]any{"duration_minutes": 45.0, "intensity": "high_intensity", "type": "hiit"}))
	if !approx(hiit[primitive.Dopamine], 0.35) {
		t.Errorf("hiit dopamine = %v", hiit[primitive.Dopamine])
	}
	if byEnum[primitive.CircadianPhase] != -0.2 {
		t.Errorf("morning exercise should advance: %v", byEnum[primitive.CircadianPhase])
	}
}

func TestLightBands(t *testing.T) {
	v := mustCompute(t, ev(event.Light, map[string]any{"intensity_lux": 10000.0, "duration_minutes": 120.0}))
	if !approx(v[primitive.CircadianPhase], -0.8) {
		t.Errorf("morning bright light shift = %v", v[primitive.CircadianPhase])
	}
	evening := ev(event.Light, map[string]any{"intensity_lux": 500.0})
	evening.Start = time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC)
	if got := mustCompute(t, evening)[primitive.CircadianPhase]; got != 0.3 {
		t.Errorf("evening room light shift = %v", got)
	}
	if !IsMorningLight(ev(event.Light, map[string]any{"intensity_lux": 150.0})) {
		t.Error("expected morning light")
	}
	if IsMorningLight(evening) {
		t.Error("evening light is not morning light")
	}
}

func TestSocialWeighting(t *testing.T) {
	recip := mustCompute(t, ev(event.Social, map[string]any{"interaction_type": "reciprocal", "quality": "very_positive", "duration_minutes": 120.0}))
	passive := mustCompute(t, ev(event.Social, map[string]any{"interaction_type": "passive", "quality": "very_positive", "duration_minutes": 120.0}))
	if !approx(recip[primitive.Serotonin], 0.3) {
		t.Errorf("reciprocal serotonin = %v", recip[primitive.Serotonin])
	}
	if !approx(passive[primitive.Serotonin], 0.09) {
		t.Errorf("passive serotonin = %v", passive[primitive.Serotonin])
	}
	neg := mustCompute(t, ev(event.Social, map[string]any{"interaction_type": "reciprocal", "quality": "negative"}))
	if neg[primitive.Cortisol] <= 0 || neg[primitive.Serotonin] >= 0 {
		t.Errorf("negative social should raise cortisol and lower serotonin: %v", neg)
	}
}

func TestScreenLateNight(t *testing.T) {
	v := mustCompute(t, ev(event.Screen, map[string]any{
		"duration_minutes": 60.0, "content_type": "gaming", "blue_light_intensity": "high", "hours_before_sleep": 0.0,
	}))
	if !approx(v[primitive.CircadianPhase], 0.25) {
		t.Errorf("phase delay = %v", v[primitive.CircadianPhase])
	}
	if v[primitive.Norepinephrine] <= 0 {
		t.Error("gaming should raise norepinephrine")
	}
}

func TestMalformedEvents(t *testing.T) {
	tests := []struct {
		name string
		e    event.Event
		prop string
	}{
		{"caffeine without dose", ev(event.Caffeine, map[string]any{}), "dose_mg"},
		{"caffeine negative dose", ev(event.Caffeine, map[string]any{"dose_mg": -50.0}), "dose_mg"},
		{"caffeine string dose", ev(event.Caffeine, map[string]any{"dose_mg": "lots"}), "dose_mg"},
		{"sleep unknown quality", ev(event.Sleep, map[string]any{"duration_hours": 7.0, "quality": "amazing"}), "quality"},
		{"sleep negative duration", ev(event.Sleep, map[string]any{"duration_hours": -1.0, "quality": "good"}), "duration_hours"},
		{"sleep no duration", ev(event.Sleep, map[string]any{"quality": "good"}), "duration_hours"},
		{"meal missing gi", ev(event.Meal, map[string]any{"protein_percentage": 20.0, "carb_percentage": 50.0}), "glycemic_index"},
		{"exercise no intensity", ev(event.Exercise, map[string]any{"duration_minutes": 30.0}), "intensity"},
		{"stress bad flag", ev(event.Stress, map[string]any{"intensity": "high", "controllable": "no"}), "controllable"},
		{"social unknown type", ev(event.Social, map[string]any{"interaction_type": "telepathic", "quality": "positive"}), "interaction_type"},
		{"interruption missing", ev(event.Interruption, nil), "frequency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, _, err := Compute(tt.e, 1, DefaultFormulas())
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
			var me *MalformedEventError
			if !errors.As(err, &me) || me.Property != tt.prop {
				t.Fatalf("expected property %q, got %+v", tt.prop, me)
			}
			if !v.IsZero() {
				t.Errorf("malformed event should yield zero vector, got %v", v)
			}
		})
	}
}

func TestOutOfRangeClampedAndFlagged(t *testing.T) {
	v, flags, err := Compute(ev(event.Caffeine, map[string]any{"dose_mg": 5000.0}), 1, DefaultFormulas())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(flags) != 1 || flags[0].Clamped != 1000 || flags[0].Original != 5000 {
		t.Fatalf("unexpected flags: %+v", flags)
	}
	if !approx(v[primitive.Dopamine], 0.15) {
		t.Errorf("dopamine = %v", v[primitive.Dopamine])
	}

	_, flags, err = Compute(ev(event.Sleep, map[string]any{"duration_hours": 20.0, "quality": "good"}), 1, DefaultFormulas())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(flags) != 1 || flags[0].Clamped != 16 {
		t.Fatalf("sleep flag in hours expected, got %+v", flags)
	}
}

func TestNoFormulaTypes(t *testing.T) {
	for _, typ := range []event.Type{event.Wake, event.HealthType(event.HeartRate), "unknown"} {
		v, flags, err := Compute(ev(typ, nil), 1, DefaultFormulas())
		if err != nil || flags != nil || !v.IsZero() {
			t.Errorf("%s: expected zero impact, got %v %v %v", typ, v, flags, err)
		}
	}
	v, _, _ := Compute(ev(event.Caffeine, map[string]any{"dose_mg": 100.0}), -1, DefaultFormulas())
	if !v.IsZero() {
		t.Error("future event should have no impact")
	}
}

func TestImpactsBounded(t *testing.T) {
	events := []event.Event{
		ev(event.Sleep, map[string]any{"duration_hours": 16.0, "quality": "excellent"}),
		ev(event.Caffeine, map[string]any{"dose_mg": 1000.0}),
		ev(event.Exercise, map[string]any{"duration_minutes": 300.0, "vo2max_percentage": 100.0, "type": "hiit"}),
		ev(event.Meal, map[string]any{"glycemic_index": "high", "protein_percentage": 5.0, "carb_percentage": 90.0}),
		ev(event.Light, map[string]any{"intensity_lux": 100000.0, "duration_minutes": 600.0}),
		ev(event.Stress, map[string]any{"intensity": 1.3, "social_evaluative": true}),
		ev(event.Social, map[string]any{"interaction_type": "reciprocal", "quality": "very_negative"}),
		ev(event.Screen, map[string]any{"duration_minutes": 720.0, "content_type": "gaming", "blue_light_intensity": "high"}),
		ev(event.Nap, map[string]any{"duration_minutes": 180.0}),
		ev(event.Interruption, map[string]any{"frequency": 100.0}),
	}
	for _, e := range events {
		v := mustCompute(t, e)
		if !v.Finite() {
			t.Errorf("%s: non-finite impact", e.Type)
		}
		for k, x := range v {
			if math.Abs(x) > 1 {
				t.Errorf("%s: %s impact %v exceeds 1", e.Type, primitive.Kind(k), x)
			}
		}
	}
}
