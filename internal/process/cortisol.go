package process

import (
	"math"
	"time"

	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/event"
)

// #region cortisol-rhythm
// CortisolRhythm is the diurnal cortisol multiplier: nadir 0.25 around
// midnight, peak 1.0 at 07:30, declining through the day.
func CortisolRhythm(hour float64) float64 {
	switch {
	case hour < 2:
		return 0.25
	case hour < 6:
		return 0.25 + 0.35*(hour-2)/4
	case hour < 7.5:
		return 0.6 + 0.4*(hour-6)/1.5
	case hour < 9:
		return 1.0 - 0.1*(hour-7.5)/1.5
	case hour < 12:
		return 0.9 - 0.2*(hour-9)/3
	case hour < 18:
		return 0.7 - 0.25*(hour-12)/6
	case hour < 22:
		return 0.45 - 0.15*(hour-18)/4
	default:
		return 0.3 - 0.05*(hour-22)/2
	}
}

// AwakeningResponse is the cortisol awakening multiplier: 1.75 at 35
// minutes after waking, 1.4 at one hour, gone after two.
func AwakeningResponse(minutesAwake float64) float64 {
	switch {
	case minutesAwake < 0 || minutesAwake > 120:
		return 1
	case minutesAwake <= 35:
		return 1 + 0.75*minutesAwake/35
	case minutesAwake <= 60:
		return 1.75 - 0.35*(minutesAwake-35)/25
	default:
		return 1.4 - 0.4*(minutesAwake-60)/60
	}
}

// LastWake finds the latest wake transition at or before at: a wake event
// or the end of a rest.
func LastWake(h event.History, at time.Time) (time.Time, bool) {
	var last time.Time
	h.Until(at).Each(func(ev event.Event) {
		var t time.Time
		switch {
		case ev.Type == event.Wake:
			t = ev.Start
		case ev.Type.IsRest():
			t = ev.Anchor()
		default:
			return
		}
		if !t.After(at) && t.After(last) {
			last = t
		}
	})
	return last, !last.IsZero()
}

// CortisolScore layers decayed event load on the diurnal baseline. Load is
// amplified by the awakening response and time-of-day sensitivity; relief
// is capped at 0.15.
func CortisolScore(load, rhythm, awakening float64) float64 {
	baseline := 0.15 + 0.5*rhythm
	stress := math.Max(load, 0) * awakening * (0.5 + 0.5*rhythm)
	relief := math.Max(math.Min(load, 0), -0.15)
	return math.Min(math.Max(baseline+stress+relief, 0.15), 1)
}

// #endregion cortisol-rhythm
