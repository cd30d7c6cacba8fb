package process

import (
	"math"
	"time"

	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/decay"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/event"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/primitive"
)

// #region process-c
// ShiftSample is one event's phase shift in hours.
type ShiftSample struct {
	decay.Sample
	Photic bool // light exposure, gated by sleep pressure
}

// LightGate scales photic sensitivity down under high sleep pressure.
func (cfg ClockConfig) LightGate(adenosine float64) float64 {
	switch {
	case adenosine > cfg.HighPressure:
		return cfg.HighGate
	case adenosine >= cfg.MidPressure:
		return cfg.MidGate
	default:
		return 1
	}
}

// CircadianPhase aggregates phase shifts over the window. Photic shifts are
// gated by adenosine and the natural drift is added before the offset is
// mapped onto the score range.
func CircadianPhase(samples []ShiftSample, adenosine float64, morningLight bool, cfg ClockConfig) Clock {
	out := Clock{LightGate: cfg.LightGate(adenosine)}

	var offset float64
	for _, s := range samples {
		if !decay.Contains(s.HoursAgo, cfg.Window) || s.Impact == 0 {
			continue
		}
		shift := s.Impact
		if s.Photic {
			shift *= out.LightGate
		}
		d := shift * decay.Decay(s.HoursAgo, cfg.HalfLife)
		offset += d
		out.Count++
		out.Contributions = append(out.Contributions, primitive.Contribution{
			EventID:   s.EventID,
			EventType: s.EventType,
			HoursAgo:  s.HoursAgo,
			Impact:    shift,
			Decayed:   d,
		})
	}

	if !morningLight {
		out.Drift = true
		offset += cfg.DriftHours
		out.Contributions = append(out.Contributions, primitive.Contribution{
			EventType: "natural_drift",
			Impact:    cfg.DriftHours,
			Decayed:   cfg.DriftHours,
		})
	}

	out.OffsetHours = offset
	out.Score = primitive.Clamp(0.5+offset/cfg.HoursPerUnit, cfg.ScoreMin, cfg.ScoreMax)
	decay.SortContributions(out.Contributions)
	return out
}

// #endregion process-c

// #region sleep-drive
// SleepDrive combines homeostatic pressure with a circadian pressure curve
// that peaks at 03:00 biological time.
func SleepDrive(adenosine, offsetHours float64, at time.Time) Drive {
	c := CircadianPressure(event.ClockHour(at), offsetHours)
	return Drive{
		Homeostatic: adenosine,
		Circadian:   c,
		Combined:    primitive.Unit(0.6*adenosine + 0.4*c),
	}
}

// CircadianPressure maps clock hour and phase offset onto [0.3, 0.7].
func CircadianPressure(hour, offsetHours float64) float64 {
	adjusted := math.Mod(hour-offsetHours+24, 24)
	if adjusted < 0 {
		adjusted += 24
	}
	raw := math.Cos(2 * math.Pi * (adjusted - 3) / 24)
	return 0.3 + 0.4*(raw+1)/2
}

// #endregion sleep-drive
