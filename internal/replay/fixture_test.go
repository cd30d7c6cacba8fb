package replay

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/primitive"
)

func TestLoadFixture_SleepCaffeine(t *testing.T) {
	f, err := LoadFixture("testdata/sleep_caffeine.json")
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if f.UserID != "fixture-sleep-caffeine" {
		t.Errorf("user = %q", f.UserID)
	}
	if len(f.Events) != 2 || f.History().Len() != 2 {
		t.Fatalf("expected 2 events, got %d", len(f.Events))
	}
	if f.Events[0].End == nil {
		t.Error("sleep end timestamp not parsed")
	}
	if len(f.Checkpoints) != 2 {
		t.Fatalf("expected 2 checkpoints, got %d", len(f.Checkpoints))
	}
	r, ok := f.Checkpoints[0].Expect.Scores[primitive.Dopamine]
	if !ok || r.Min != 0.70 || r.Max != 0.82 {
		t.Errorf("dopamine range = %+v", r)
	}
	if f.Checkpoints[0].Expect.Skipped == nil || *f.Checkpoints[0].Expect.Skipped != 0 {
		t.Error("explicit skipped: 0 must be kept")
	}
	if f.Checkpoints[1].Expect.Patterns != nil {
		t.Error("absent patterns must stay unchecked")
	}
}

func TestLoadFixture_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadFixture(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("missing file should fail")
	}

	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte(`{"events": [`), 0o644)
	if _, err := LoadFixture(bad); err == nil {
		t.Error("truncated JSON should fail")
	}

	noID := filepath.Join(dir, "noid.json")
	os.WriteFile(noID, []byte(`{"events": [{"event_type": "caffeine", "timestamp": "2025-03-10T08:00:00Z", "properties": {"dose_mg": 50}}]}`), 0o644)
	if _, err := LoadFixture(noID); err == nil {
		t.Error("fixture events need stable ids")
	}
}

func TestFixture_ConfigOverlay(t *testing.T) {
	f := &Fixture{Config: []byte(`{"baselines": {"glucose": 0.6}}`)}
	cfg, err := f.EngineConfig()
	if err != nil {
		t.Fatalf("EngineConfig: %v", err)
	}
	if cfg.Baselines[primitive.Glucose] != 0.6 || cfg.Baselines[primitive.Dopamine] != 0.5 {
		t.Errorf("baselines = %v", cfg.Baselines)
	}

	f = &Fixture{}
	if _, err := f.EngineConfig(); err != nil {
		t.Errorf("empty config should give defaults: %v", err)
	}
}

func TestFixture_SaveRoundTrip(t *testing.T) {
	f, err := LoadFixture("testdata/caffeine_withdrawal.json")
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	path := filepath.Join(t.TempDir(), "out.json")
	if err := f.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	back, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(back.Events) != len(f.Events) || len(back.Checkpoints) != len(f.Checkpoints) {
		t.Fatal("saved fixture lost data")
	}
	if !back.Checkpoints[1].At.Equal(f.Checkpoints[1].At) {
		t.Error("checkpoint time changed")
	}
}
