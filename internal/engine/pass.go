package engine

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/balance"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/decay"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/event"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/impact"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/modifier"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/physio"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/primitive"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/process"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/sequence"
)

// #region pass
// pass is the estimate in progress. Each step takes a pass and returns
// the next one; nothing outside the pass is written.
type pass struct {
	at         time.Time
	input      event.History
	valid      event.History // well-formed events, measurements included
	activities event.History // valid minus measurements
	empty      bool          // no activity events

	samples      [primitive.Count][]decay.Sample
	shifts       []process.ShiftSample
	morningLight bool

	agg           [primitive.Count]decay.Result
	base          primitive.Vector
	scores        primitive.Vector
	confidence    primitive.Vector
	counts        [primitive.Count]int
	contributions [primitive.Count][]primitive.Contribution
	reasons       [primitive.Count][]string

	result Result
}

func newPass(h event.History, at time.Time) pass {
	return pass{at: at, input: h.Until(at), result: Result{At: at}}
}

func (p *pass) note(k primitive.Kind, format string, args ...any) {
	p.reasons[k] = append(p.reasons[k], fmt.Sprintf(format, args...))
}

func (p *pass) skip(ev event.Event, err error) {
	s := Skipped{EventID: ev.ID, EventType: string(ev.Type), Reason: err.Error()}
	var me *impact.MalformedEventError
	if errors.As(err, &me) {
		s.Property, s.Reason = me.Property, me.Reason
	}
	p.result.Skipped = append(p.result.Skipped, s)
}

// #endregion pass

// #region validate
// validate computes every event's impact once, drops malformed events and
// splits the rest into per-primitive samples.
func (e *Engine) validate(p pass) pass {
	var valid []event.Event
	p.input.Each(func(ev event.Event) {
		switch {
		case ev.Type.IsHealth():
			if _, err := physio.Read(ev); err != nil {
				p.skip(ev, err)
				return
			}
			valid = append(valid, ev)
			return
		case ev.Type == event.Wake:
			valid = append(valid, ev)
			return
		case !slices.Contains(event.ActivityTypes(), ev.Type):
			p.skip(ev, fmt.Errorf("unknown event type %q", ev.Type))
			return
		}

		v, flags, err := impact.Compute(ev, 0, e.config.Formulas)
		if err != nil {
			p.skip(ev, err)
			return
		}
		p.result.Flags = append(p.result.Flags, flags...)
		valid = append(valid, ev)

		hoursAgo := ev.HoursSince(p.at)
		if hoursAgo < 0 {
			// rest still in progress
			return
		}
		for _, k := range aggregated {
			if v[k] != 0 {
				p.samples[k] = append(p.samples[k], decay.Sample{
					EventID:   ev.ID,
					EventType: string(ev.Type),
					HoursAgo:  hoursAgo,
					Impact:    v[k],
				})
			}
		}
		if shift := v[primitive.CircadianPhase]; shift != 0 {
			p.shifts = append(p.shifts, process.ShiftSample{
				Sample: decay.Sample{EventID: ev.ID, EventType: string(ev.Type), HoursAgo: hoursAgo, Impact: shift},
				Photic: ev.Type == event.Light,
			})
		}
		if impact.IsMorningLight(ev) && decay.Contains(hoursAgo, e.config.Clock.Window) {
			p.morningLight = true
		}
	})
	p.valid = event.NewHistory(valid)
	p.activities = p.valid.Activities()
	p.empty = p.activities.Len() == 0
	return p
}

// #endregion validate

// #region processes
// processes runs Process S, Process C and the sleep drive.
func (e *Engine) processes(p pass) pass {
	cfg := e.config
	if p.empty {
		a := cfg.Baselines[primitive.Adenosine]
		p.result.Homeostat = process.Homeostat{Score: a, Pressure: a}
		p.result.Clock = process.Clock{Score: cfg.Baselines[primitive.CircadianPhase], LightGate: cfg.Clock.LightGate(a)}
	} else {
		p.result.Homeostat = process.SleepPressure(p.activities, p.at, cfg.Formulas, cfg.Homeostat)
		p.result.Clock = process.CircadianPhase(p.shifts, p.result.Homeostat.Score, p.morningLight, cfg.Clock)
	}

	hs, cl := p.result.Homeostat, p.result.Clock
	p.base[primitive.Adenosine] = hs.Score
	p.counts[primitive.Adenosine] = hs.Count
	p.contributions[primitive.Adenosine] = hs.Contributions
	if hs.Blockade > 0 {
		p.note(primitive.Adenosine, "caffeine_blockade: -%.3f", hs.Blockade)
	}

	p.base[primitive.CircadianPhase] = cl.Score
	p.counts[primitive.CircadianPhase] = cl.Count
	p.contributions[primitive.CircadianPhase] = cl.Contributions
	if cl.Drift {
		p.note(primitive.CircadianPhase, "natural_drift: +%.1fh without morning light", cfg.Clock.DriftHours)
	}
	if cl.LightGate < 1 && slices.ContainsFunc(p.shifts, func(s process.ShiftSample) bool { return s.Photic }) {
		p.note(primitive.CircadianPhase, "light_gate: photic sensitivity x%.2f at adenosine %.2f", cl.LightGate, hs.Score)
	}

	p.result.Drive = process.SleepDrive(hs.Score, cl.OffsetHours, p.at)
	return p
}

// #endregion processes

// #region aggregate
// aggregate scores the windowed primitives. Dopamine and serotonin run
// inline; the rest are independent and may fan out.
func (e *Engine) aggregate(p pass) pass {
	cfg := e.config
	results := make([]decay.Result, len(aggregated))
	run := func(i int) {
		k := aggregated[i]
		results[i] = decay.Aggregate(cfg.Windows[k], cfg.Baselines[k], p.samples[k])
	}

	if cfg.Parallel {
		var wg sync.WaitGroup
		for i, k := range aggregated {
			if cfg.Windows[k].DualTimescale {
				run(i)
				continue
			}
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				run(i)
			}(i)
		}
		wg.Wait()
	} else {
		for i := range aggregated {
			run(i)
		}
	}

	for i, k := range aggregated {
		res := results[i]
		p.agg[k] = res
		p.base[k] = res.Score
		p.counts[k] = res.Count
		p.contributions[k] = res.Contributions
	}

	if cfg.CortisolRhythm && !p.empty {
		p.base[primitive.Cortisol] = e.cortisolRhythm(p)
		p.note(primitive.Cortisol, "cortisol_rhythm: diurnal baseline at %.1fh", event.ClockHour(p.at))
	}
	return p
}

func (e *Engine) cortisolRhythm(p pass) float64 {
	minutes := -1.0
	if w, ok := process.LastWake(p.activities, p.at); ok {
		minutes = p.at.Sub(w).Minutes()
	}
	return process.CortisolScore(
		p.agg[primitive.Cortisol].Sum,
		process.CortisolRhythm(event.ClockHour(p.at)),
		process.AwakeningResponse(minutes),
	)
}

// #endregion aggregate

// #region classify
// classify applies reciprocal inhibition and labels the pair.
func (e *Engine) classify(p pass) pass {
	p.scores = p.base
	cls := balance.Classify(p.base[primitive.Dopamine], p.base[primitive.Serotonin])
	p.scores[primitive.Dopamine] = cls.Dopamine
	p.scores[primitive.Serotonin] = cls.Serotonin
	if cls.InhibitedDopamine {
		p.note(primitive.Dopamine, "reciprocal_inhibition: serotonin %.2f > 0.60", p.base[primitive.Serotonin])
	}
	if cls.InhibitedSerotonin {
		p.note(primitive.Serotonin, "reciprocal_inhibition: dopamine %.2f > 0.70", p.base[primitive.Dopamine])
	}
	p.result.Balance = cls
	return p
}

// #endregion classify

// #region patterns
// patterns adds sequence deltas, then clamps so modifiers see valid scores.
func (e *Engine) patterns(p pass) pass {
	adjs := sequence.Detect(p.activities, p.at, e.config.Patterns)
	for _, a := range adjs {
		for _, k := range primitive.All() {
			if d := a.Deltas[k]; d != 0 {
				p.scores[k] += d
				p.note(k, "pattern %s: %+.3f (%s)", a.Pattern, d, a.Reason)
			}
		}
	}
	for k := range p.scores {
		p.scores[k] = primitive.Unit(p.scores[k])
	}
	p.result.Patterns = adjs
	return p
}

// #endregion patterns

// #region modifiers
func (e *Engine) modify(p pass) pass {
	res := modifier.Apply(p.scores, e.config.Modifiers)
	for _, r := range res.Applied {
		for _, k := range r.Targets {
			p.note(k, "modifier %s: x%.2f (%s)", r.Name, r.Factor, r.Reason)
		}
	}
	p.scores = res.Scores
	p.result.Modifiers = res.Applied
	return p
}

// #endregion modifiers

// #region confidence
// confidence grows with contributing evidence: 0.3 with none, 0.5 plus
// 0.125 per event up to 1. Without activity events there is no confidence
// at all; measurements alone only adjust it afterwards.
func (e *Engine) confidence(p pass) pass {
	for _, k := range primitive.All() {
		switch {
		case p.empty:
			p.confidence[k] = 0
		case p.counts[k] == 0:
			p.confidence[k] = 0.3
		default:
			p.confidence[k] = math.Min(1, 0.5+0.125*float64(p.counts[k]))
		}
	}
	return p
}

// #endregion confidence

// #region physiology
func (e *Engine) physiology(p pass) pass {
	res := e.validator.Evaluate(p.valid, p.at, p.scores, p.confidence)
	for _, a := range res.Applied {
		p.note(a.Primitive, "physiological %s: %s", a.Kind, a.Reason)
	}
	p.scores, p.confidence = res.Scores, res.Confidence
	p.result.Physio = res.Applied
	return p
}

// #endregion physiology

// #region finalize
// finalize clamps, builds the estimates and runs the invariant checks.
func (e *Engine) finalize(p pass) pass {
	cfg := e.config
	est := make([]primitive.Estimate, 0, primitive.Count)
	for _, k := range primitive.All() {
		score := primitive.Unit(p.scores[k])
		if k == primitive.CircadianPhase {
			score = primitive.Clamp(score, cfg.Clock.ScoreMin, cfg.Clock.ScoreMax)
		}
		es := primitive.Estimate{
			Kind:         k,
			Score:        score,
			Confidence:   primitive.Unit(p.confidence[k]),
			Contributors: slices.Clone(decay.Top(p.contributions[k], cfg.MaxContributors)),
			Adjustments:  p.reasons[k],
			Base:         p.base[k],
		}
		if agg := p.agg[k]; agg.Acute != nil {
			acute, chronic := *agg.Acute, *agg.Chronic
			es.Acute, es.Chronic = &acute, &chronic
		}
		switch k {
		case primitive.Dopamine:
			effective := p.result.Balance.Dopamine
			es.Effective = &effective
		case primitive.Serotonin:
			effective := p.result.Balance.Serotonin
			es.Effective = &effective
		}
		est = append(est, es)
	}
	p.result.Estimates = est
	p.result.Eval = e.harness.Run(est, p.result.Drive)
	return p
}

// #endregion finalize
