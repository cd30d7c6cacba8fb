package replay

import (
	"fmt"
	"slices"
	"time"

	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/engine"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/event"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/primitive"
)

// #region replay-types

// ReplayResult is the outcome at one checkpoint.
type ReplayResult struct {
	At       time.Time
	Result   engine.Result
	Passed   bool
	Failures []string
}

// ReplaySummary aggregates a replay run.
type ReplaySummary struct {
	Checkpoints  int
	Passed       int
	Failed       int
	EvalFailures int
	Skipped      int
}

// #endregion replay-types

// #region replay

// Replay evaluates h at every checkpoint and checks the expectations.
func Replay(e *engine.Engine, h event.History, checkpoints []Checkpoint) []ReplayResult {
	results := make([]ReplayResult, 0, len(checkpoints))
	for _, cp := range checkpoints {
		res := e.Estimate(h, cp.At)
		failures := Check(res, cp.Expect)
		results = append(results, ReplayResult{
			At:       cp.At,
			Result:   res,
			Passed:   len(failures) == 0,
			Failures: failures,
		})
	}
	return results
}

// RunFixture builds an engine from the fixture's config and replays it.
func RunFixture(f *Fixture) ([]ReplayResult, error) {
	cfg, err := f.EngineConfig()
	if err != nil {
		return nil, err
	}
	e, err := engine.New(cfg)
	if err != nil {
		return nil, err
	}
	return Replay(e, f.History(), f.Checkpoints), nil
}

// Check returns one message per unmet expectation.
func Check(res engine.Result, want Expectation) []string {
	var out []string
	for _, k := range primitive.All() {
		r, ok := want.Scores[k]
		if !ok {
			continue
		}
		if got := res.Estimate(k).Score; !r.Contains(got) {
			out = append(out, fmt.Sprintf("%s = %.4f, want [%.4f, %.4f]", k, got, r.Min, r.Max))
		}
	}
	if want.State != "" && string(res.Balance.State) != want.State {
		out = append(out, fmt.Sprintf("state = %q, want %q", res.Balance.State, want.State))
	}
	if want.Patterns != nil {
		var got []string
		for _, a := range res.Patterns {
			got = append(got, string(a.Pattern))
		}
		if !slices.Equal(got, want.Patterns) {
			out = append(out, fmt.Sprintf("patterns = %v, want %v", got, want.Patterns))
		}
	}
	if want.Skipped != nil && len(res.Skipped) != *want.Skipped {
		out = append(out, fmt.Sprintf("skipped = %d, want %d", len(res.Skipped), *want.Skipped))
	}
	if want.EvalPassed != nil && res.Eval.Passed != *want.EvalPassed {
		out = append(out, fmt.Sprintf("eval passed = %v, want %v (%s)", res.Eval.Passed, *want.EvalPassed, res.Eval.Reason))
	}
	return out
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult) ReplaySummary {
	s := ReplaySummary{Checkpoints: len(results)}
	for _, r := range results {
		if r.Passed {
			s.Passed++
		} else {
			s.Failed++
		}
		if !r.Result.Eval.Passed {
			s.EvalFailures++
		}
		s.Skipped += len(r.Result.Skipped)
	}
	return s
}

// #endregion replay
