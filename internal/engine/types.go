package engine

import (
	"time"

	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/balance"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/eval"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/impact"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/modifier"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/physio"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/primitive"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/process"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/sequence"
)

// #region skipped
// Skipped is an event excluded from the evaluation.
type Skipped struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Property  string `json:"property,omitempty"`
	Reason    string `json:"reason"`
}

// #endregion skipped

// #region result
// Result is one evaluation at a point in time.
type Result struct {
	At        time.Time            `json:"query_time"`
	Estimates []primitive.Estimate `json:"estimates"`

	Drive     process.Drive          `json:"sleep_drive"`
	Homeostat process.Homeostat      `json:"homeostat"`
	Clock     process.Clock          `json:"clock"`
	Balance   balance.Classification `json:"functional_state"`

	Patterns  []sequence.Adjustment `json:"patterns"`
	Modifiers []modifier.Rule       `json:"modifiers"`
	Physio    []physio.Applied      `json:"physiological_adjustments"`

	Skipped []Skipped       `json:"skipped_events"`
	Flags   []impact.Flag   `json:"value_flags"`
	Eval    eval.EvalResult `json:"eval"`
}

// Estimate returns the estimate for k.
func (r Result) Estimate(k primitive.Kind) primitive.Estimate {
	for _, e := range r.Estimates {
		if e.Kind == k {
			return e
		}
	}
	return primitive.Estimate{Kind: k}
}

// Scores returns every final score indexed by kind.
func (r Result) Scores() primitive.Vector {
	var v primitive.Vector
	for _, e := range r.Estimates {
		v[e.Kind] = e.Score
	}
	return v
}

// Confidences returns every final confidence indexed by kind.
func (r Result) Confidences() primitive.Vector {
	var v primitive.Vector
	for _, e := range r.Estimates {
		v[e.Kind] = e.Confidence
	}
	return v
}

// #endregion result
