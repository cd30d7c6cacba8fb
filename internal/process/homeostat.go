package process

import (
	"math"
	"time"

	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/decay"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/event"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/impact"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/primitive"
)

// #region process-s
// SleepPressure simulates homeostatic adenosine over the transition window
// ending at `at`. The simulation starts saturated, accumulates toward the
// ceiling while awake, and is cleared multiplicatively by each sleep or nap.
// Caffeine blockade is subtracted from the resulting pressure.
//
// h must only hold events that passed impact validation.
func SleepPressure(h event.History, at time.Time, f impact.Formulas, cfg HomeostatConfig) Homeostat {
	from := at.Add(-hours(cfg.TransitionWindow))

	var rests []event.Event
	h.Until(at).OfType(event.Sleep, event.Nap).Each(func(ev event.Event) {
		if !ev.Anchor().Before(from) {
			rests = append(rests, ev)
		}
	})

	var out Homeostat
	level := cfg.Ceiling
	cursor := from
	if len(rests) > 0 && rests[0].Start.Before(cursor) {
		cursor = rests[0].Start
	}

	var lastWake time.Time
	var lastID string
	for _, ev := range rests {
		// Clearance is truncated if the rest is still running at query time.
		start, end := ev.Start, ev.Anchor()
		if start.Before(cursor) {
			start = cursor
		}
		if end.After(at) {
			end = at
		}
		if end.Before(start) {
			continue
		}

		// 1. Awake stretch up to this rest.
		level = cfg.awake(level, start.Sub(cursor).Hours())

		// 2. Clearance.
		before := level
		level = cfg.clear(ev, level, end.Sub(start), f)
		cursor = end
		if !ev.Anchor().After(at) {
			lastWake, lastID = end, ev.ID
		}

		since := at.Sub(end).Hours()
		out.Contributions = append(out.Contributions, primitive.Contribution{
			EventID:   ev.ID,
			EventType: string(ev.Type),
			HoursAgo:  since,
			Impact:    level - before,
			Decayed:   (level - before) * math.Exp(-since/cfg.TimeConstant),
		})
		out.Count++
	}

	// 3. Awake since the last transition.
	before := level
	level = cfg.awake(level, at.Sub(cursor).Hours())
	if !lastWake.IsZero() {
		awake := at.Sub(lastWake).Hours()
		out.HoursAwake = &awake
		out.Contributions = append(out.Contributions, primitive.Contribution{
			EventID:   lastID,
			EventType: "wake_accumulation",
			HoursAgo:  0,
			Impact:    level - before,
			Decayed:   level - before,
		})
	}
	out.Pressure = level

	// 4. Caffeine blockade on A2A receptors.
	var blockade float64
	h.Between(at.Add(-hours(cfg.CaffeineWindow)), at).OfType(event.Caffeine).Each(func(ev event.Event) {
		dose, ok := ev.Float("dose_mg")
		if !ok || dose <= 0 {
			return
		}
		dose = math.Min(dose, f.Limits.CaffeineMg)
		ago := ev.HoursSince(at)
		occ := impact.Occupancy(cfg.Plasma(dose, ago), cfg.A2AED50)
		blockade += occ
		out.Contributions = append(out.Contributions, primitive.Contribution{
			EventID:   ev.ID,
			EventType: string(ev.Type),
			HoursAgo:  ago,
			Impact:    -cfg.BlockadeScale * impact.Occupancy(dose, cfg.A2AED50),
			Decayed:   -cfg.BlockadeScale * occ,
		})
		out.Count++
	})
	out.Blockade = math.Min(cfg.BlockadeScale*blockade, cfg.BlockadeCap)

	out.Score = primitive.Unit(level - out.Blockade)
	decay.SortContributions(out.Contributions)
	return out
}

// Plasma is the caffeine remaining hoursAgo after a dose.
func (cfg HomeostatConfig) Plasma(dose, hoursAgo float64) float64 {
	return dose * math.Exp(-cfg.Elimination*math.Max(hoursAgo, 0))
}

func (cfg HomeostatConfig) awake(level, h float64) float64 {
	if h <= 0 {
		return level
	}
	return cfg.Ceiling - (cfg.Ceiling-level)*math.Exp(-h/cfg.TimeConstant)
}

func (cfg HomeostatConfig) clear(ev event.Event, level float64, slept time.Duration, f impact.Formulas) float64 {
	if slept <= 0 {
		return level
	}
	if ev.Type == event.Nap {
		return level * math.Exp(-cfg.NapRate*math.Min(slept.Minutes(), f.Limits.NapMinutes))
	}
	label, _ := ev.Text("quality")
	q, ok := f.QualityScore(label)
	if !ok {
		return level
	}
	h := math.Min(slept.Hours(), f.Limits.SleepHours)
	return level * math.Exp(-(h/cfg.SleepScale)*q*cfg.SleepEfficacy)
}

func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

// #endregion process-s
