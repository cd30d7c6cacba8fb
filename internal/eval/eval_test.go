package eval

import (
	"math"
	"strings"
	"testing"

	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/primitive"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/process"
)

func makeEstimates(score float64) []primitive.Estimate {
	out := make([]primitive.Estimate, 0, primitive.Count)
	for _, k := range primitive.All() {
		out = append(out, primitive.Estimate{Kind: k, Score: score, Confidence: 0.5})
	}
	return out
}

func drive() process.Drive {
	return process.Drive{Homeostatic: 0.3, Circadian: 0.5, Combined: 0.38}
}

func TestEvalPassesOnNeutralEstimates(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	result := h.Run(makeEstimates(0.5), drive())
	if !result.Passed {
		t.Fatalf("expected pass, got fail: %s", result.Reason)
	}
	if len(result.Metrics) == 0 {
		t.Fatal("expected metrics")
	}
}

func TestEvalFailsOnOutOfRangeScore(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	es := makeEstimates(0.5)
	es[primitive.Cortisol].Score = 1.2
	es[primitive.Glucose].Confidence = math.NaN()

	result := h.Run(es, drive())
	if result.Passed {
		t.Fatal("expected fail on out-of-range score")
	}
	if !strings.Contains(result.Reason, "2 checks") {
		t.Errorf("reason = %q", result.Reason)
	}
}

func TestEvalFailsOnCircadianBand(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	es := makeEstimates(0.5)
	es[primitive.CircadianPhase].Score = 0.9
	if h.Run(es, drive()).Passed {
		t.Fatal("circadian phase above 0.7 should fail")
	}
}

func TestEvalContributorOrder(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	es := makeEstimates(0.5)
	es[primitive.Dopamine].Contributors = []primitive.Contribution{{Decayed: 0.1}, {Decayed: -0.3}}
	if h.Run(es, drive()).Passed {
		t.Fatal("unordered contributors should fail")
	}
	es[primitive.Dopamine].Contributors = []primitive.Contribution{{Decayed: -0.3}, {Decayed: 0.1}}
	if r := h.Run(es, drive()); !r.Passed {
		t.Fatalf("ordered contributors should pass: %s", r.Reason)
	}
}

func TestEvalConfidenceMeanIsInformational(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	es := makeEstimates(0.5)
	for i := range es {
		es[i].Confidence = 0
	}
	result := h.Run(es, drive())
	if !result.Passed {
		t.Fatalf("low confidence must not fail: %s", result.Reason)
	}
	last := result.Metrics[len(result.Metrics)-1]
	if last.Name != "confidence_mean" || last.Pass {
		t.Errorf("expected failing informational metric, got %+v", last)
	}
}

func TestEvalDriveBounds(t *testing.T) {
	h := NewEvalHarness(DefaultEvalConfig())
	if h.Run(makeEstimates(0.5), process.Drive{Combined: -0.1}).Passed {
		t.Fatal("negative drive should fail")
	}
}
