package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/engine"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/event"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/primitive"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		kind  primitive.Kind
		score float64
		want  string
	}{
		{primitive.Dopamine, 0.75, "High (good for focus/work)"},
		{primitive.Dopamine, 0.5, "Moderate"},
		{primitive.Serotonin, 0.29, "Very low (mood instability risk)"},
		{primitive.Adenosine, 0.7, "High pressure (need sleep)"},
		{primitive.Cortisol, 0.35, "Low (relaxed)"},
		{primitive.CircadianPhase, 0.5, "Aligned"},
		{primitive.Kind(42), 0.5, "0.500"},
	}
	for _, tt := range tests {
		if got := Level(tt.kind, tt.score); got != tt.want {
			t.Errorf("Level(%s, %v) = %q, want %q", tt.kind, tt.score, got, tt.want)
		}
	}
}

func TestSleepStatus(t *testing.T) {
	for drive, want := range map[float64]string{0.8: "VERY HIGH", 0.6: "HIGH", 0.45: "MODERATE", 0.1: "LOW"} {
		if got := SleepStatus(drive); !strings.HasPrefix(got, want) {
			t.Errorf("SleepStatus(%v) = %q", drive, got)
		}
	}
}

func sampleResult(t *testing.T) engine.Result {
	t.Helper()
	t0 := time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC)
	end := t0
	evs := []event.Event{
		{ID: "s", Type: event.Sleep, Start: t0.Add(-8 * time.Hour), End: &end, Properties: map[string]any{"quality": "good"}},
		{ID: "c", Type: event.Caffeine, Start: t0.Add(time.Hour), Properties: map[string]any{"dose_mg": 2000.0}},
		{ID: "x", Type: event.Meal, Start: t0.Add(time.Hour), Properties: map[string]any{}},
		{ID: "hrv", Type: event.HealthType(event.HRV), Start: t0.Add(time.Hour), Properties: map[string]any{"value": 20.0}},
	}
	e, err := engine.New(engine.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	return e.Estimate(event.NewHistory(evs), t0.Add(2*time.Hour))
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, "alice", sampleResult(t), DefaultOptions()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"User:      alice",
		"DOPAMINE",
		"CIRCADIAN_PHASE",
		"Acute:",
		"Top contributors:",
		"PHYSIOLOGICAL VALIDATION",
		"skipped x (meal)",
		"clamped c.dose_mg: 2000 -> 1000",
		"Functional state:",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestWrite_HidesDetail(t *testing.T) {
	var buf bytes.Buffer
	Write(&buf, "", sampleResult(t), Options{})
	out := buf.String()
	if strings.Contains(out, "Top contributors") || strings.Contains(out, "User:") {
		t.Errorf("detail printed with zero options:\n%s", out)
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWrite_PropagatesError(t *testing.T) {
	if err := Write(failWriter{}, "a", sampleResult(t), DefaultOptions()); err == nil {
		t.Fatal("expected write error")
	}
}
