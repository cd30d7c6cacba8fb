package sequence

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/event"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/primitive"
)

// #region types
// Pattern names a multi-event history pattern.
type Pattern string

const (
	SleepDeprivation   Pattern = "chronic_sleep_deprivation"
	CaffeineWithdrawal Pattern = "caffeine_withdrawal"
	LateCaffeine       Pattern = "late_caffeine_sleep_disruption"
	SleepExercise      Pattern = "sleep_exercise_synergy"
)

// Adjustment is a detected pattern and the deltas it adds to scores.
type Adjustment struct {
	Pattern   Pattern          `json:"pattern"`
	Intensity float64          `json:"intensity"`
	Deltas    primitive.Vector `json:"-"`
	EventIDs  []string         `json:"event_ids"`
	Reason    string           `json:"reason"`
}

// MarshalJSON writes deltas keyed by primitive name.
func (a Adjustment) MarshalJSON() ([]byte, error) {
	type plain Adjustment
	return json.Marshal(struct {
		plain
		Deltas map[string]float64 `json:"deltas"`
	}{plain(a), a.Deltas.Map()})
}

// UnmarshalJSON reads the form written by MarshalJSON.
func (a *Adjustment) UnmarshalJSON(b []byte) error {
	type plain Adjustment
	var aux struct {
		plain
		Deltas map[string]float64 `json:"deltas"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	deltas, err := primitive.VectorFromMap(aux.Deltas)
	if err != nil {
		return fmt.Errorf("deltas: %w", err)
	}
	*a = Adjustment(aux.plain)
	a.Deltas = deltas
	return nil
}

// Config holds pattern lookbacks and thresholds.
type Config struct {
	DeprivationWindow float64 `json:"deprivation_window_h"`
	DeprivationCount  int     `json:"deprivation_count"`

	WithdrawalWeek      float64 `json:"withdrawal_week_h"`
	WithdrawalMinEvents int     `json:"withdrawal_min_events"`
	WithdrawalMinDaily  float64 `json:"withdrawal_min_daily_mg"`
	WithdrawalGapMin    float64 `json:"withdrawal_gap_min_h"`
	WithdrawalGapMax    float64 `json:"withdrawal_gap_max_h"`
	WithdrawalPeak      float64 `json:"withdrawal_peak_h"`
	WithdrawalRate      float64 `json:"withdrawal_rate"`

	LateCaffeineHours  float64 `json:"late_caffeine_h"`
	LateCaffeineRecent float64 `json:"late_caffeine_recent_h"`

	SynergySleepHours float64 `json:"synergy_sleep_h"`
	SynergyGap        float64 `json:"synergy_gap_h"`
	SynergyRecent     float64 `json:"synergy_recent_h"`
}

// DefaultConfig returns the documented pattern parameters.
func DefaultConfig() Config {
	return Config{
		DeprivationWindow:   72,
		DeprivationCount:    3,
		WithdrawalWeek:      168,
		WithdrawalMinEvents: 7,
		WithdrawalMinDaily:  100,
		WithdrawalGapMin:    24,
		WithdrawalGapMax:    168,
		WithdrawalPeak:      48,
		WithdrawalRate:      0.02,
		LateCaffeineHours:   9,
		LateCaffeineRecent:  24,
		SynergySleepHours:   7,
		SynergyGap:          6,
		SynergyRecent:       24,
	}
}

// #endregion types

// #region detect
// Detect scans the full history up to at. Each pattern is evaluated
// independently; the result is ordered as the patterns are declared.
func Detect(h event.History, at time.Time, cfg Config) []Adjustment {
	past := h.Until(at)
	var out []Adjustment
	for _, detect := range []func(event.History, time.Time, Config) (Adjustment, bool){
		deprivation,
		withdrawal,
		lateCaffeine,
		synergy,
	} {
		if adj, ok := detect(past, at, cfg); ok {
			out = append(out, adj)
		}
	}
	return out
}

// Sum adds every adjustment's deltas.
func Sum(adjs []Adjustment) primitive.Vector {
	var v primitive.Vector
	for _, a := range adjs {
		v = v.Add(a.Deltas)
	}
	return v
}

// WithdrawalIntensity peaks at 1.0 exactly peak hours into the gap.
func WithdrawalIntensity(gapHours, peak, rate float64) float64 {
	return math.Exp(-rate * math.Abs(gapHours-peak))
}

// #endregion detect

// #region patterns
// deprivation counts poor or fair nights only; duration never qualifies a
// sleep on its own.
func deprivation(h event.History, at time.Time, cfg Config) (Adjustment, bool) {
	from := at.Add(-hours(cfg.DeprivationWindow))
	var ids []string
	h.OfType(event.Sleep).Each(func(ev event.Event) {
		end := ev.Anchor()
		if end.Before(from) || end.After(at) {
			return
		}
		if poorQuality(ev) {
			ids = append(ids, ev.ID)
		}
	})
	if len(ids) < cfg.DeprivationCount {
		return Adjustment{}, false
	}
	var d primitive.Vector
	d[primitive.Dopamine] = -0.25
	d[primitive.Serotonin] = -0.20
	return Adjustment{
		Pattern:   SleepDeprivation,
		Intensity: 1,
		Deltas:    d,
		EventIDs:  ids,
		Reason:    fmt.Sprintf("%d poor-quality sleeps within %.0fh", len(ids), cfg.DeprivationWindow),
	}, true
}

func withdrawal(h event.History, at time.Time, cfg Config) (Adjustment, bool) {
	last, ok := h.OfType(event.Caffeine).Last()
	if !ok {
		return Adjustment{}, false
	}
	gap := at.Sub(last.Start).Hours()
	if gap < cfg.WithdrawalGapMin || gap > cfg.WithdrawalGapMax {
		return Adjustment{}, false
	}

	week := h.Between(last.Start.Add(-hours(cfg.WithdrawalWeek)), last.Start).OfType(event.Caffeine)
	if week.Len() < cfg.WithdrawalMinEvents {
		return Adjustment{}, false
	}
	var total float64
	var ids []string
	week.Each(func(ev event.Event) {
		dose, _ := ev.Float("dose_mg")
		total += dose
		ids = append(ids, ev.ID)
	})
	daily := total / (cfg.WithdrawalWeek / 24)
	if daily < cfg.WithdrawalMinDaily {
		return Adjustment{}, false
	}

	intensity := WithdrawalIntensity(gap, cfg.WithdrawalPeak, cfg.WithdrawalRate)
	var d primitive.Vector
	d[primitive.Dopamine] = -0.20 * intensity
	d[primitive.Serotonin] = -0.15 * intensity
	d[primitive.Norepinephrine] = -0.20 * intensity
	d[primitive.Cortisol] = 0.15 * intensity
	return Adjustment{
		Pattern:   CaffeineWithdrawal,
		Intensity: intensity,
		Deltas:    d,
		EventIDs:  ids,
		Reason: fmt.Sprintf("%d doses averaging %.0fmg/day, then %.1fh without caffeine",
			week.Len(), daily, gap),
	}, true
}

func lateCaffeine(h event.History, at time.Time, cfg Config) (Adjustment, bool) {
	from := at.Add(-hours(cfg.LateCaffeineRecent))
	caffeine := h.OfType(event.Caffeine)

	var best Adjustment
	found := false
	h.OfType(event.Sleep).Each(func(sl event.Event) {
		end := sl.Anchor()
		if end.Before(from) || end.After(at) || !poorQuality(sl) {
			return
		}
		caffeine.Between(sl.Start.Add(-hours(cfg.LateCaffeineHours)), sl.Start).Each(func(c event.Event) {
			before := sl.Start.Sub(c.Start).Hours()
			dose, _ := c.Float("dose_mg")
			intensity := math.Min(1, (dose/100)*(1-before/cfg.LateCaffeineHours))
			if found && intensity <= best.Intensity {
				return
			}
			found = true
			var d primitive.Vector
			d[primitive.Cortisol] = 0.10 + 0.10*intensity
			best = Adjustment{
				Pattern:   LateCaffeine,
				Intensity: intensity,
				Deltas:    d,
				EventIDs:  []string{c.ID, sl.ID},
				Reason:    fmt.Sprintf("%.0fmg caffeine %.1fh before poor sleep", dose, before),
			}
		})
	})
	return best, found
}

func synergy(h event.History, at time.Time, cfg Config) (Adjustment, bool) {
	from := at.Add(-hours(cfg.SynergyRecent))
	exercise := h.OfType(event.Exercise)

	var out Adjustment
	found := false
	h.OfType(event.Sleep).Each(func(sl event.Event) {
		if found || sleepHours(sl) < cfg.SynergySleepHours {
			return
		}
		end := sl.Anchor()
		exercise.Between(end, end.Add(hours(cfg.SynergyGap))).Each(func(ex event.Event) {
			if found || ex.Start.Before(from) {
				return
			}
			found = true
			var d primitive.Vector
			d[primitive.Dopamine] = 0.15
			out = Adjustment{
				Pattern:   SleepExercise,
				Intensity: 1,
				Deltas:    d,
				EventIDs:  []string{sl.ID, ex.ID},
				Reason:    fmt.Sprintf("%.1fh sleep followed by exercise %.1fh after waking", sleepHours(sl), ex.Start.Sub(end).Hours()),
			}
		})
	})
	return out, found
}

// #endregion patterns

// #region helpers
func poorQuality(ev event.Event) bool {
	q, _ := ev.Text("quality")
	return q == "poor" || q == "fair"
}

func sleepHours(ev event.Event) float64 {
	d, ok := ev.Duration()
	if !ok {
		return 0
	}
	return d.Hours()
}

func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

// #endregion helpers
