package codec

import (
	"encoding/json"
	"fmt"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/engine"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/event"
)

// #region messages
// EstimateRequest asks for one evaluation. Without events the server
// loads the user's stored history.
type EstimateRequest struct {
	UserID  string        `json:"user_id"`
	Events  []event.Event `json:"events,omitempty"`
	At      time.Time     `json:"at"`
	Persist bool          `json:"persist,omitempty"`
}

// EstimateResponse carries the evaluation and, when persisted, the
// snapshot version it was stored under.
type EstimateResponse struct {
	VersionID string        `json:"version_id,omitempty"`
	Result    engine.Result `json:"result"`
}

// TimelineRequest asks for evaluations from From to To every StepMinutes.
type TimelineRequest struct {
	UserID      string        `json:"user_id"`
	Events      []event.Event `json:"events,omitempty"`
	From        time.Time     `json:"from"`
	To          time.Time     `json:"to"`
	StepMinutes float64       `json:"step_minutes"`
}

// Step returns the step as a duration.
func (r TimelineRequest) Step() time.Duration {
	return time.Duration(r.StepMinutes * float64(time.Minute))
}

// TimelineResponse is the ordered list of evaluations.
type TimelineResponse struct {
	Points []engine.Result `json:"points"`
}

// #endregion messages

// #region struct-conversion
// toStruct converts any JSON-encodable value into a Struct.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("encode struct: %w", err)
	}
	return s, nil
}

// fromStruct decodes a Struct into v.
func fromStruct(s *structpb.Struct, v any) error {
	if s == nil {
		s = &structpb.Struct{}
	}
	b, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("decode struct: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("unmarshal message: %w", err)
	}
	return nil
}

// #endregion struct-conversion
