package event

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

var t0 = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func TestNormalizeType(t *testing.T) {
	tests := []struct {
		in   string
		want Type
	}{
		{"light", Light},
		{"Stress", Stress},
		{" social ", Social},
		{"screen", Screen},
		{"sleep", Sleep},
		{"health_hrv", HealthType(HRV)},
	}
	for _, tt := range tests {
		if got := NormalizeType(tt.in); got != tt.want {
			t.Errorf("NormalizeType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMetric(t *testing.T) {
	m, ok := HealthType(BloodGlucose).Metric()
	if !ok || m != BloodGlucose {
		t.Fatalf("expected blood_glucose, got %q ok=%v", m, ok)
	}
	if _, ok := Caffeine.Metric(); ok {
		t.Fatal("caffeine is not a measurement")
	}
}

func TestFloatAccessor(t *testing.T) {
	ev := Event{Properties: map[string]any{
		"a": 1.5,
		"b": 3,
		"c": json.Number("2.25"),
		"d": "7",
	}}
	if v, ok := ev.Float("a"); !ok || v != 1.5 {
		t.Errorf("a: %v %v", v, ok)
	}
	if v, ok := ev.Float("b"); !ok || v != 3 {
		t.Errorf("b: %v %v", v, ok)
	}
	if v, ok := ev.Float("c"); !ok || v != 2.25 {
		t.Errorf("c: %v %v", v, ok)
	}
	if _, ok := ev.Float("d"); ok {
		t.Error("string should not read as number")
	}
	if _, ok := ev.Float("missing"); ok {
		t.Error("missing should not read")
	}
}

func TestAnchor(t *testing.T) {
	end := t0.Add(8 * time.Hour)
	tests := []struct {
		name string
		ev   Event
		want time.Time
	}{
		{"sleep with end", Event{Type: Sleep, Start: t0, End: &end}, end},
		{"sleep with duration", Event{Type: Sleep, Start: t0, Properties: map[string]any{"duration_hours": 7.5}}, t0.Add(450 * time.Minute)},
		{"nap with minutes", Event{Type: Nap, Start: t0, Properties: map[string]any{"duration_minutes": 20.0}}, t0.Add(20 * time.Minute)},
		{"caffeine uses start", Event{Type: Caffeine, Start: t0, End: &end}, t0},
		{"negative duration falls back", Event{Type: Sleep, Start: t0, Properties: map[string]any{"duration_hours": -2.0}}, t0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ev.Anchor(); !got.Equal(tt.want) {
				t.Errorf("Anchor = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewHistorySortsAndCopies(t *testing.T) {
	props := map[string]any{"dose_mg": 100.0}
	input := []Event{
		{ID: "b", Type: Caffeine, Start: t0.Add(time.Hour), Properties: props},
		{ID: "a", Type: Caffeine, Start: t0, Properties: props},
		{ID: "c", Type: Meal, Start: t0},
	}
	h := NewHistory(input)
	evs := h.Events()
	if evs[0].ID != "a" || evs[1].ID != "c" || evs[2].ID != "b" {
		t.Fatalf("unexpected order: %s %s %s", evs[0].ID, evs[1].ID, evs[2].ID)
	}

	props["dose_mg"] = 999.0
	if v, _ := evs[2].Float("dose_mg"); v != 100 {
		t.Fatalf("history shares properties with caller: %v", v)
	}
	if input[0].ID != "b" {
		t.Fatal("caller slice was reordered")
	}
}

func TestHistoryViews(t *testing.T) {
	h := NewHistory([]Event{
		{ID: "1", Type: Sleep, Start: t0.Add(-10 * time.Hour)},
		{ID: "2", Type: Caffeine, Start: t0},
		{ID: "3", Type: HealthType(HeartRate), Start: t0.Add(time.Hour)},
		{ID: "4", Type: Caffeine, Start: t0.Add(3 * time.Hour)},
	})
	if n := h.Until(t0.Add(time.Hour)).Len(); n != 3 {
		t.Errorf("Until: expected 3, got %d", n)
	}
	if n := h.Between(t0, t0.Add(time.Hour)).Len(); n != 2 {
		t.Errorf("Between: expected 2, got %d", n)
	}
	if n := h.OfType(Caffeine).Len(); n != 2 {
		t.Errorf("OfType: expected 2, got %d", n)
	}
	if n := h.Measurements().Len(); n != 1 {
		t.Errorf("Measurements: expected 1, got %d", n)
	}
	if n := h.Activities().Len(); n != 3 {
		t.Errorf("Activities: expected 3, got %d", n)
	}
	last, ok := h.Last()
	if !ok || last.ID != "4" {
		t.Errorf("Last: %v %v", last.ID, ok)
	}
}

func TestDecode(t *testing.T) {
	doc, err := Decode(strings.NewReader(`{
		"user_id": "u1",
		"events": [
			{"event_id": "e1", "event_type": "stress", "timestamp": "2025-03-10T09:00:00Z",
			 "properties": {"intensity": "high", "controllable": false}},
			{"event_type": "sleep", "timestamp": "2025-03-09T23:00:00Z",
			 "end_timestamp": "2025-03-10T07:00:00Z", "properties": {"quality": "good"}}
		]
	}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if doc.UserID != "u1" || len(doc.Events) != 2 {
		t.Fatalf("unexpected doc: %+v", doc)
	}
	if doc.Events[0].Type != Stress {
		t.Errorf("alias not normalized: %q", doc.Events[0].Type)
	}
	if doc.Events[1].ID == "" {
		t.Error("expected generated ID")
	}
	if doc.Events[1].End == nil {
		t.Fatal("expected end timestamp")
	}
	if d, ok := doc.Events[1].Duration(); !ok || d != 8*time.Hour {
		t.Errorf("Duration = %v %v", d, ok)
	}
}

func TestDecodeRejectsMissingTimestamp(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"events":[{"event_id":"x","event_type":"meal"}]}`))
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestWakeClosesOpenSleep(t *testing.T) {
	bed := t0.Add(-9 * time.Hour)
	h := NewHistory([]Event{
		{ID: "s", Type: Sleep, Start: bed, Properties: map[string]any{"quality": "good"}},
		{ID: "w", Type: Wake, Start: t0.Add(-time.Hour)},
	})
	sl := h.OfType(Sleep).Events()[0]
	if sl.End == nil || !sl.End.Equal(t0.Add(-time.Hour)) {
		t.Fatalf("expected sleep closed at wake, got %v", sl.End)
	}
	if d, _ := sl.Duration(); d != 8*time.Hour {
		t.Errorf("Duration = %v", d)
	}
}
