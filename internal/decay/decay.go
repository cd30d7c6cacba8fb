package decay

import (
	"cmp"
	"math"
	"slices"

	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/primitive"
)

// #region window
// Window is the lookback and half-life for one primitive. Dual-timescale
// primitives also carry a chronic window and combine both with AcuteWeight.
type Window struct {
	Hours    float64 `json:"hours"`
	HalfLife float64 `json:"half_life_hours"`

	DualTimescale   bool    `json:"dual_timescale"`
	ChronicHours    float64 `json:"chronic_hours,omitempty"`
	ChronicHalfLife float64 `json:"chronic_half_life_hours,omitempty"`
	AcuteWeight     float64 `json:"acute_weight,omitempty"`
}

// Single builds a one-timescale window.
func Single(hours, halfLife float64) Window {
	return Window{Hours: hours, HalfLife: halfLife}
}

// Dual builds an acute/chronic window combined as 0.7*acute + 0.3*chronic.
func Dual(acuteHours, acuteHalfLife, chronicHours, chronicHalfLife float64) Window {
	return Window{
		Hours:           acuteHours,
		HalfLife:        acuteHalfLife,
		DualTimescale:   true,
		ChronicHours:    chronicHours,
		ChronicHalfLife: chronicHalfLife,
		AcuteWeight:     0.7,
	}
}

// Lookback is the widest window in hours.
func (w Window) Lookback() float64 {
	if w.DualTimescale {
		return math.Max(w.Hours, w.ChronicHours)
	}
	return w.Hours
}

// Contains reports whether an event hoursAgo old falls inside [0, hours].
func Contains(hoursAgo, hours float64) bool {
	return hoursAgo >= 0 && hoursAgo <= hours
}

// #endregion window

// #region decay
// Decay is exp(-ln2 * hoursAgo / halfLife): 1 at zero, halved every halfLife.
func Decay(hoursAgo, halfLife float64) float64 {
	if hoursAgo <= 0 {
		return 1
	}
	if halfLife <= 0 {
		return 0
	}
	return math.Exp(-math.Ln2 * hoursAgo / halfLife)
}

// Windowed returns the decayed impact, or 0 outside [0, hours].
func Windowed(impact, hoursAgo, hours, halfLife float64) float64 {
	if !Contains(hoursAgo, hours) {
		return 0
	}
	return impact * Decay(hoursAgo, halfLife)
}

// #endregion decay

// #region aggregate
// Sample is one event's raw impact on a single primitive.
type Sample struct {
	EventID   string
	EventType string
	HoursAgo  float64
	Impact    float64
}

// Result is the outcome of aggregating samples through a Window.
type Result struct {
	Score         float64
	Sum           float64 // decayed sum before baseline and clamp
	Acute         *float64
	Chronic       *float64
	Contributions []primitive.Contribution
	Count         int // in-window samples with non-zero impact
}

// Aggregate sums impact*decay over in-window samples, adds the baseline and
// clamps to [0,1]. Dual windows score both timescales separately and combine
// them; each contribution then carries its weighted decayed impact.
func Aggregate(w Window, baseline float64, samples []Sample) Result {
	var res Result
	var acuteSum, chronicSum float64

	for _, s := range samples {
		a := Windowed(s.Impact, s.HoursAgo, w.Hours, w.HalfLife)
		decayed := a
		inWindow := Contains(s.HoursAgo, w.Hours)
		if w.DualTimescale {
			c := Windowed(s.Impact, s.HoursAgo, w.ChronicHours, w.ChronicHalfLife)
			chronicSum += c
			decayed = w.AcuteWeight*a + (1-w.AcuteWeight)*c
			inWindow = inWindow || Contains(s.HoursAgo, w.ChronicHours)
		}
		acuteSum += a
		if !inWindow || s.Impact == 0 {
			continue
		}
		res.Count++
		res.Contributions = append(res.Contributions, primitive.Contribution{
			EventID:   s.EventID,
			EventType: s.EventType,
			HoursAgo:  s.HoursAgo,
			Impact:    s.Impact,
			Decayed:   decayed,
		})
	}

	if w.DualTimescale {
		acute := primitive.Unit(baseline + acuteSum)
		chronic := primitive.Unit(baseline + chronicSum)
		res.Acute, res.Chronic = &acute, &chronic
		res.Sum = w.AcuteWeight*acuteSum + (1-w.AcuteWeight)*chronicSum
		res.Score = w.AcuteWeight*acute + (1-w.AcuteWeight)*chronic
	} else {
		res.Sum = acuteSum
		res.Score = primitive.Unit(baseline + acuteSum)
	}
	SortContributions(res.Contributions)
	return res
}

// SortContributions orders by |decayed| descending, then most recent first.
func SortContributions(cs []primitive.Contribution) {
	slices.SortStableFunc(cs, func(a, b primitive.Contribution) int {
		if c := cmp.Compare(math.Abs(b.Decayed), math.Abs(a.Decayed)); c != 0 {
			return c
		}
		if c := cmp.Compare(a.HoursAgo, b.HoursAgo); c != 0 {
			return c
		}
		return cmp.Compare(a.EventID, b.EventID)
	})
}

// Top returns at most n contributions.
func Top(cs []primitive.Contribution, n int) []primitive.Contribution {
	if len(cs) <= n {
		return cs
	}
	return cs[:n]
}

// #endregion aggregate
