package balance

import "fmt"

// #region state
// State names a functional dopamine/serotonin balance.
type State string

const (
	PeakPerformance   State = "Peak Performance"
	Depleted          State = "Depleted"
	DrivenAnxious     State = "Driven but Anxious"
	CalmUnmotivated   State = "Calm but Unmotivated"
	BalancedDopamine  State = "Balanced (DA-leaning)"
	BalancedSerotonin State = "Balanced (5HT-leaning)"
	WellBalanced      State = "Well-Balanced"
)

// Priority lists states in classification order; the first match wins.
var Priority = []State{
	PeakPerformance,
	Depleted,
	DrivenAnxious,
	CalmUnmotivated,
	BalancedDopamine,
	BalancedSerotonin,
	WellBalanced,
}

type profile struct {
	description     string
	recommendations []string
}

var profiles = map[State]profile{
	PeakPerformance: {
		"Both motivation and mood are strong. Ideal state for productivity and well-being.",
		[]string{
			"Maintain current patterns",
			"This is a good time for challenging work or important decisions",
		},
	},
	Depleted: {
		"Both motivation and mood are low. Recovery is the priority.",
		[]string{
			"Prioritize rest and sleep",
			"Avoid demanding decisions or high-stress situations",
			"Gentle exercise, social connection, and balanced nutrition",
		},
	},
	DrivenAnxious: {
		"High motivation but low contentment. Risk of stress and burnout.",
		[]string{
			"Practice stress-reduction techniques",
			"Increase serotonin: social connection, outdoor time, balanced meals",
			"Avoid overcommitting to new projects",
		},
	},
	CalmUnmotivated: {
		"Good mood but low drive. May struggle with initiation and focus.",
		[]string{
			"Boost dopamine: exercise, achievement tasks, protein-rich meals",
			"Set small, concrete goals to build momentum",
			"Consider caffeine in moderation (morning only)",
		},
	},
	BalancedDopamine: {
		"Balanced with a lean toward drive. Good for focused, goal-directed work.",
		[]string{
			"Schedule demanding tasks now",
			"Protect evening wind-down to keep mood steady",
		},
	},
	BalancedSerotonin: {
		"Balanced with a lean toward contentment. Good for collaborative or reflective work.",
		[]string{
			"Use a short burst of activity to lift drive if needed",
			"Good time for social or creative tasks",
		},
	},
	WellBalanced: {
		"Motivation and mood are in proportion.",
		[]string{"Maintain current patterns"},
	},
}

// #endregion state

// #region classification
// Classification is the inhibition and classifier output.
type Classification struct {
	Dopamine           float64  `json:"dopamine_effective"`
	Serotonin          float64  `json:"serotonin_effective"`
	Ratio              float64  `json:"ratio"`
	Unbounded          bool     `json:"ratio_unbounded"`
	State              State    `json:"state"`
	Reason             string   `json:"reason"`
	Description        string   `json:"description"`
	Recommendations    []string `json:"recommendations"`
	InhibitedDopamine  bool     `json:"inhibited_dopamine"`
	InhibitedSerotonin bool     `json:"inhibited_serotonin"`
}

// nearZero guards the ratio denominator.
const nearZero = 1e-6

// Inhibit applies asymmetric cross-suppression. Both inputs are the
// pre-inhibition scores.
func Inhibit(dopamine, serotonin float64) (da, ht float64) {
	da, ht = dopamine, serotonin
	if serotonin > 0.6 {
		da = dopamine * (1 - 0.25*(serotonin-0.6)/0.4)
	}
	if dopamine > 0.7 {
		ht = serotonin * (1 - 0.15*(dopamine-0.7)/0.3)
	}
	return da, ht
}

// Classify inhibits the pair, computes the ratio and picks a state.
func Classify(dopamine, serotonin float64) Classification {
	da, ht := Inhibit(dopamine, serotonin)
	c := Classification{
		Dopamine:           da,
		Serotonin:          ht,
		InhibitedDopamine:  da != dopamine,
		InhibitedSerotonin: ht != serotonin,
	}
	if ht <= nearZero {
		c.Unbounded = true
	} else {
		c.Ratio = da / ht
	}
	c.State, c.Reason = c.pick()
	p := profiles[c.State]
	c.Description = p.description
	c.Recommendations = append([]string(nil), p.recommendations...)
	return c
}

func (c Classification) pick() (State, string) {
	da, ht, r := c.Dopamine, c.Serotonin, c.Ratio
	switch {
	case da >= 0.65 && ht >= 0.65:
		return PeakPerformance, fmt.Sprintf("dopamine %.2f and serotonin %.2f both >= 0.65", da, ht)
	case da <= 0.40 && ht <= 0.40:
		return Depleted, fmt.Sprintf("dopamine %.2f and serotonin %.2f both <= 0.40", da, ht)
	case c.Unbounded:
		return DrivenAnxious, "serotonin near zero, ratio unbounded"
	case da >= 0.65 && ht <= 0.45:
		return DrivenAnxious, fmt.Sprintf("dopamine %.2f high with serotonin %.2f low", da, ht)
	case r > 1.4:
		return DrivenAnxious, fmt.Sprintf("ratio %.2f > 1.4", r)
	case da <= 0.45 && ht >= 0.65:
		return CalmUnmotivated, fmt.Sprintf("dopamine %.2f low with serotonin %.2f high", da, ht)
	case r < 0.65:
		return CalmUnmotivated, fmt.Sprintf("ratio %.2f < 0.65", r)
	case r >= 1.1:
		return BalancedDopamine, fmt.Sprintf("ratio %.2f in [1.1, 1.4]", r)
	case r >= 0.75 && r <= 0.9:
		return BalancedSerotonin, fmt.Sprintf("ratio %.2f in [0.75, 0.9]", r)
	default:
		return WellBalanced, fmt.Sprintf("ratio %.2f", r)
	}
}

// #endregion classification
