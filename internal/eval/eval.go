package eval

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/primitive"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/process"
)

// #region eval-harness
// EvalHarness checks finalized estimates against the output invariants.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Run validates a finished estimate set and its sleep drive.
func (h *EvalHarness) Run(estimates []primitive.Estimate, drive process.Drive) EvalResult {
	var metrics []EvalMetric
	passed := true
	var failReasons []string

	check := func(name string, value float64, ok bool, reason string) {
		metrics = append(metrics, EvalMetric{Name: name, Value: value, Pass: ok})
		if !ok {
			passed = false
			failReasons = append(failReasons, reason)
		}
	}

	// 1. One estimate per primitive
	check("estimate_count", float64(len(estimates)), len(estimates) == primitive.Count,
		fmt.Sprintf("got %d estimates, want %d", len(estimates), primitive.Count))

	var confSum float64
	for _, e := range estimates {
		// 2. Score and confidence bounds
		check(fmt.Sprintf("score_%s", e.Kind), e.Score, inUnit(e.Score),
			fmt.Sprintf("%s score %.4f outside [0,1]", e.Kind, e.Score))
		check(fmt.Sprintf("confidence_%s", e.Kind), e.Confidence, inUnit(e.Confidence),
			fmt.Sprintf("%s confidence %.4f outside [0,1]", e.Kind, e.Confidence))
		confSum += e.Confidence

		// 3. Contributors bounded and ordered by |decayed| descending
		ordered := sortedByMagnitude(e.Contributors)
		okContrib := ordered && len(e.Contributors) <= h.config.MaxContributors
		check(fmt.Sprintf("contributors_%s", e.Kind), float64(len(e.Contributors)), okContrib,
			fmt.Sprintf("%s contributors unordered or more than %d", e.Kind, h.config.MaxContributors))

		// 4. Circadian phase keeps its normalized band
		if e.Kind == primitive.CircadianPhase {
			check("circadian_band", e.Score, e.Score >= h.config.PhaseMin && e.Score <= h.config.PhaseMax,
				fmt.Sprintf("circadian phase %.4f outside [%.2f,%.2f]", e.Score, h.config.PhaseMin, h.config.PhaseMax))
		}
	}

	// 5. Sleep drive triple
	for _, d := range []struct {
		name string
		v    float64
	}{
		{"drive_homeostatic", drive.Homeostatic},
		{"drive_circadian", drive.Circadian},
		{"drive_combined", drive.Combined},
	} {
		check(d.name, d.v, inUnit(d.v), fmt.Sprintf("%s %.4f outside [0,1]", d.name, d.v))
	}

	// 6. Mean confidence: informational only
	if len(estimates) > 0 {
		mean := confSum / float64(len(estimates))
		metrics = append(metrics, EvalMetric{
			Name:  "confidence_mean",
			Value: mean,
			Pass:  mean >= h.config.MinConfidence,
		})
	}

	reason := "all checks passed"
	if !passed {
		reason = fmt.Sprintf("eval failed: %s", failReasons[0])
		if len(failReasons) > 1 {
			reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
		}
	}

	return EvalResult{
		Passed:  passed,
		Metrics: metrics,
		Reason:  reason,
	}
}

// #endregion eval-harness

// #region helpers
func inUnit(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

func sortedByMagnitude(cs []primitive.Contribution) bool {
	for i := 1; i < len(cs); i++ {
		if math.Abs(cs[i].Decayed) > math.Abs(cs[i-1].Decayed) {
			return false
		}
	}
	return true
}

// #endregion helpers
