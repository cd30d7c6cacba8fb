package modifier

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/primitive"
)

// #region apply
// Apply is a pure function that scales scores by every triggered
// cross-primitive rule. Conditions read the input scores only, so rule
// order does not matter; factors on the same primitive multiply.
func Apply(scores primitive.Vector, cfg Config) Result {
	var factors primitive.Vector
	for i := range factors {
		factors[i] = 1
	}

	var applied []Rule
	apply := func(r Rule) {
		for _, k := range r.Targets {
			factors[k] *= r.Factor
		}
		applied = append(applied, r)
	}

	monoamines := []primitive.Kind{primitive.Dopamine, primitive.Serotonin, primitive.Norepinephrine}

	// 1. Circadian misalignment
	if phase := scores[primitive.CircadianPhase]; phase < cfg.PhaseLow || phase > cfg.PhaseHigh {
		apply(Rule{
			Name:    "circadian_misalignment",
			Targets: monoamines,
			Factor:  cfg.PhaseFactor,
			Reason: fmt.Sprintf("circadian phase %.2f outside [%.2f, %.2f]",
				phase, cfg.PhaseLow, cfg.PhaseHigh),
		})
	}

	// 2. Low glucose
	if g := scores[primitive.Glucose]; g < cfg.GlucoseLow {
		apply(Rule{
			Name:    "low_glucose",
			Targets: monoamines,
			Factor:  cfg.GlucoseFactor,
			Reason:  fmt.Sprintf("glucose %.2f < %.2f", g, cfg.GlucoseLow),
		})
	}

	// 3. Sleep pressure, graded from 1 at the threshold down to 1-penalty at 1.0
	if a := scores[primitive.Adenosine]; a > cfg.AdenosineHigh {
		apply(Rule{
			Name:    "high_sleep_pressure",
			Targets: []primitive.Kind{primitive.Dopamine},
			Factor:  AdenosineFactor(a, cfg),
			Reason:  fmt.Sprintf("adenosine %.2f > %.2f", a, cfg.AdenosineHigh),
		})
	}

	// 4. High cortisol
	if c := scores[primitive.Cortisol]; c > cfg.CortisolHigh {
		apply(Rule{
			Name:    "high_cortisol",
			Targets: []primitive.Kind{primitive.Dopamine, primitive.Serotonin},
			Factor:  cfg.CortisolFactor,
			Reason:  fmt.Sprintf("cortisol %.2f > %.2f", c, cfg.CortisolHigh),
		})
	}

	var out primitive.Vector
	for i := range scores {
		out[i] = scores[i] * factors[i]
	}
	return Result{Scores: out, Factors: factors, Applied: applied}
}

// AdenosineFactor is the dopamine multiplier under high sleep pressure.
func AdenosineFactor(adenosine float64, cfg Config) float64 {
	span := 1 - cfg.AdenosineHigh
	if span <= 0 || adenosine <= cfg.AdenosineHigh {
		return 1
	}
	frac := math.Min((adenosine-cfg.AdenosineHigh)/span, 1)
	return 1 - cfg.AdenosineMaxPenalty*frac
}

// #endregion apply
