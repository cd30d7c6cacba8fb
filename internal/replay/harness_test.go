package replay

import (
	"strings"
	"testing"
	"time"

	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/engine"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/eval"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/event"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/primitive"
)

func intPtr(n int) *int    { return &n }
func boolPtr(b bool) *bool { return &b }

func passed(ok bool) eval.EvalResult { return eval.EvalResult{Passed: ok} }

// 1. Every fixture under testdata passes.
func TestReplay_Fixtures(t *testing.T) {
	for _, name := range []string{"sleep_caffeine", "caffeine_withdrawal", "sleep_deprivation"} {
		t.Run(name, func(t *testing.T) {
			f, err := LoadFixture("testdata/" + name + ".json")
			if err != nil {
				t.Fatalf("LoadFixture: %v", err)
			}
			results, err := RunFixture(f)
			if err != nil {
				t.Fatalf("RunFixture: %v", err)
			}
			for _, r := range results {
				if !r.Passed {
					t.Errorf("at %s: %s", r.At.Format(time.RFC3339), strings.Join(r.Failures, "; "))
				}
			}
			s := Summarize(results)
			if s.Checkpoints != len(f.Checkpoints) || s.Failed != 0 {
				t.Errorf("summary = %+v", s)
			}
		})
	}
}

// 2. Failing expectations are reported, one message each.
func TestCheck_ReportsFailures(t *testing.T) {
	e, _ := engine.New(engine.DefaultConfig())
	res := e.Estimate(event.NewHistory(nil), time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))

	want := Expectation{
		Scores:     map[primitive.Kind]Range{primitive.Dopamine: {Min: 0.8, Max: 1}},
		State:      "Depleted",
		Patterns:   []string{"caffeine_withdrawal"},
		Skipped:    intPtr(3),
		EvalPassed: boolPtr(false),
	}
	failures := Check(res, want)
	if len(failures) != 5 {
		t.Fatalf("expected 5 failures, got %d: %v", len(failures), failures)
	}
	if !strings.HasPrefix(failures[0], "dopamine = 0.5000") {
		t.Errorf("first failure = %q", failures[0])
	}
}

// 3. An empty expectation always passes.
func TestCheck_EmptyExpectation(t *testing.T) {
	e, _ := engine.New(engine.DefaultConfig())
	res := e.Estimate(event.NewHistory(nil), time.Now())
	if f := Check(res, Expectation{}); len(f) != 0 {
		t.Fatalf("unexpected failures: %v", f)
	}
}

// 4. Invalid fixture config surfaces as an error, not a panic.
func TestRunFixture_BadConfig(t *testing.T) {
	f := &Fixture{Config: []byte(`{"max_contributors": 0}`)}
	if _, err := RunFixture(f); err == nil {
		t.Fatal("expected config validation error")
	}
}

// 5. Summarize counts eval failures and skips separately from checks.
func TestSummarize(t *testing.T) {
	results := []ReplayResult{
		{Passed: true, Result: engine.Result{Eval: passed(true)}},
		{Passed: false, Result: engine.Result{Eval: passed(false), Skipped: []engine.Skipped{{EventID: "x"}}}},
	}
	s := Summarize(results)
	if s.Checkpoints != 2 || s.Passed != 1 || s.Failed != 1 || s.EvalFailures != 1 || s.Skipped != 1 {
		t.Fatalf("summary = %+v", s)
	}
}
