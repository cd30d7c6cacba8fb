package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/engine"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/event"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/primitive"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture: a history,
// an optional config overlay and the checkpoints to evaluate it at.
type Fixture struct {
	Description string          `json:"description"`
	UserID      string          `json:"user_id"`
	Config      json.RawMessage `json:"config,omitempty"`
	Events      []event.Event   `json:"events"`
	Checkpoints []Checkpoint    `json:"checkpoints"`
}

// Checkpoint is one query time and what the estimate there should satisfy.
type Checkpoint struct {
	At     time.Time   `json:"at"`
	Expect Expectation `json:"expect"`
}

// Expectation lists checks for one checkpoint. Zero-valued fields are
// not checked.
type Expectation struct {
	Scores     map[primitive.Kind]Range `json:"scores,omitempty"`
	State      string                   `json:"state,omitempty"`
	Patterns   []string                 `json:"patterns,omitempty"`
	Skipped    *int                     `json:"skipped,omitempty"`
	EvalPassed *bool                    `json:"eval_passed,omitempty"`
}

// Range is an inclusive score interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies in r.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	for i, ev := range f.Events {
		if ev.ID == "" {
			return nil, fmt.Errorf("fixture %s: event %d has no event_id", path, i)
		}
	}
	return &f, nil
}

// EngineConfig overlays the fixture's config on the engine defaults.
func (f *Fixture) EngineConfig() (engine.Config, error) {
	return engine.ParseConfig(f.Config)
}

// History wraps the fixture's events.
func (f *Fixture) History() event.History {
	return event.NewHistory(f.Events)
}

// Save writes f as indented JSON.
func (f *Fixture) Save(path string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// #endregion fixture-loader
