package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/eval"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/event"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/physio"
)

// #region engine
// Engine estimates primitive state from event histories. It holds only
// configuration and is safe for concurrent use.
type Engine struct {
	config    Config
	validator *physio.Validator
	harness   *eval.EvalHarness
}

// New creates an engine after validating cfg.
func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	return &Engine{
		config:    cfg,
		validator: physio.NewValidator(cfg.Physio),
		harness:   eval.NewEvalHarness(cfg.Eval),
	}, nil
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config { return e.config }

// Estimate evaluates h at the given instant. Events after at are ignored.
// It never fails: malformed events are reported in Result.Skipped.
func (e *Engine) Estimate(h event.History, at time.Time) Result {
	p := newPass(h, at)
	for _, step := range []func(pass) pass{
		e.validate,
		e.processes,
		e.aggregate,
		e.classify,
		e.patterns,
		e.modify,
		e.confidence,
		e.physiology,
		e.finalize,
	} {
		p = step(p)
	}
	return p.result
}

// #endregion engine

// #region timeline
// ErrTimeline reports an unusable timeline range.
var ErrTimeline = errors.New("invalid timeline range")

// MaxTimelinePoints bounds a single Timeline call.
const MaxTimelinePoints = 10000

// Timeline evaluates h at from, from+step, ... up to and including to.
func (e *Engine) Timeline(h event.History, from, to time.Time, step time.Duration) ([]Result, error) {
	if step <= 0 {
		return nil, fmt.Errorf("%w: step %s must be positive", ErrTimeline, step)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: end %s before start %s", ErrTimeline, to.Format(time.RFC3339), from.Format(time.RFC3339))
	}
	n := int(to.Sub(from)/step) + 1
	if n > MaxTimelinePoints {
		return nil, fmt.Errorf("%w: %d points exceeds %d", ErrTimeline, n, MaxTimelinePoints)
	}
	out := make([]Result, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, e.Estimate(h, from.Add(time.Duration(i)*step)))
	}
	return out, nil
}

// #endregion timeline
