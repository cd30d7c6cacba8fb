package logging

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/engine"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/event"
)

// #region helpers
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`CREATE TABLE adjustment_log (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		version_id TEXT NOT NULL,
		primitive  TEXT NOT NULL,
		source     TEXT NOT NULL,
		kind       TEXT NOT NULL,
		event_id   TEXT,
		original   REAL,
		adjusted   REAL,
		reason     TEXT,
		created_at TEXT NOT NULL
	)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

var t0 = time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC)

// richResult exercises inhibition, a pattern, a physiological floor and a
// skipped event.
func richResult(t *testing.T) engine.Result {
	t.Helper()
	var evs []event.Event
	for d := 0; d < 3; d++ {
		end := t0.Add(time.Duration(d-2) * 24 * time.Hour)
		evs = append(evs, event.Event{ID: "sleep-" + string(rune('a'+d)), Type: event.Sleep,
			Start: end.Add(-5 * time.Hour), End: &end, Properties: map[string]any{"quality": "poor"}})
	}
	evs = append(evs,
		event.Event{ID: "hrv", Type: event.HealthType(event.HRV), Start: t0.Add(30 * time.Minute),
			Properties: map[string]any{"value": 20.0}},
		event.Event{ID: "bad", Type: event.Caffeine, Start: t0, Properties: map[string]any{}},
	)
	e, err := engine.New(engine.DefaultConfig())
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return e.Estimate(event.NewHistory(evs), t0.Add(time.Hour))
}

// #endregion helpers

// #region log-adjustment-tests
func TestLogAdjustment_Success(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	orig, adj := 0.35, 0.6
	entry := AdjustmentEntry{
		VersionID: "v1",
		Primitive: "cortisol",
		Source:    SourcePhysiology,
		Kind:      "floor",
		EventID:   "hrv-1",
		Original:  &orig,
		Adjusted:  &adj,
		Reason:    "very low HRV",
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := LogAdjustment(db, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var versionID, kind string
	var adjusted float64
	db.QueryRow("SELECT version_id, kind, adjusted FROM adjustment_log").Scan(&versionID, &kind, &adjusted)
	if versionID != "v1" || kind != "floor" || adjusted != 0.6 {
		t.Errorf("row = %s %s %v", versionID, kind, adjusted)
	}
}

func TestLogAdjustment_ZeroCreatedAt(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	before := time.Now().UTC()
	if err := LogAdjustment(db, AdjustmentEntry{VersionID: "v2", Primitive: "dopamine", Source: SourceModifier, Kind: "low_glucose"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var createdAtStr string
	db.QueryRow("SELECT created_at FROM adjustment_log").Scan(&createdAtStr)
	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		t.Fatalf("parse created_at: %v", err)
	}
	if createdAt.Before(before) {
		t.Error("expected auto-filled created_at to be >= test start time")
	}
}

func TestLogAdjustment_NullOptionalFields(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	if err := LogAdjustment(db, AdjustmentEntry{VersionID: "v3", Primitive: "serotonin", Source: SourcePattern, Kind: "x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var eventID, reason sql.NullString
	var original, adjusted sql.NullFloat64
	db.QueryRow("SELECT event_id, reason, original, adjusted FROM adjustment_log").Scan(&eventID, &reason, &original, &adjusted)
	if eventID.Valid || reason.Valid || original.Valid || adjusted.Valid {
		t.Error("expected NULL optional columns")
	}
}

func TestLogAdjustment_Error(t *testing.T) {
	db := setupDB(t)
	db.Close() // close to force error

	if err := LogAdjustment(db, AdjustmentEntry{VersionID: "v4", Primitive: "dopamine", Source: SourcePattern, Kind: "x"}); err == nil {
		t.Fatal("expected error on closed db")
	}
}

// #endregion log-adjustment-tests

// #region entries-tests
func TestEntries_CoverResult(t *testing.T) {
	res := richResult(t)
	entries := Entries("v9", res)

	seen := map[string]int{}
	for _, e := range entries {
		if e.VersionID != "v9" {
			t.Fatalf("version not stamped: %+v", e)
		}
		seen[e.Source]++
	}
	if seen[SourceSkipped] != len(res.Skipped) || len(res.Skipped) != 1 {
		t.Errorf("skipped entries = %d, result has %d", seen[SourceSkipped], len(res.Skipped))
	}
	if seen[SourcePhysiology] != len(res.Physio) || len(res.Physio) == 0 {
		t.Errorf("physiology entries = %d, result has %d", seen[SourcePhysiology], len(res.Physio))
	}
	if seen[SourcePattern] == 0 {
		t.Errorf("expected sleep deprivation deltas, patterns = %+v", res.Patterns)
	}
}

func TestLogResult(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	res := richResult(t)
	n, err := LogResult(db, "v10", res)
	if err != nil {
		t.Fatalf("LogResult: %v", err)
	}
	var count int
	db.QueryRow("SELECT COUNT(*) FROM adjustment_log WHERE version_id = 'v10'").Scan(&count)
	if count != n || n != len(Entries("v10", res)) {
		t.Errorf("rows = %d, reported %d", count, n)
	}
}

func TestAdjustments_ReadBack(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	res := richResult(t)
	if _, err := LogResult(db, "v11", res); err != nil {
		t.Fatalf("LogResult: %v", err)
	}
	got, err := Adjustments(db, "v11")
	if err != nil {
		t.Fatalf("Adjustments: %v", err)
	}
	want := Entries("v11", res)
	if len(got) != len(want) {
		t.Fatalf("read %d rows, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Source != want[i].Source || got[i].Kind != want[i].Kind || got[i].Primitive != want[i].Primitive {
			t.Errorf("row %d = %+v, want %+v", i, got[i], want[i])
		}
		if (got[i].Adjusted == nil) != (want[i].Adjusted == nil) {
			t.Errorf("row %d adjusted nullness differs", i)
		}
		if got[i].CreatedAt.IsZero() {
			t.Errorf("row %d missing created_at", i)
		}
	}

	none, err := Adjustments(db, "missing")
	if err != nil || len(none) != 0 {
		t.Errorf("Adjustments(missing) = %v, %v", none, err)
	}
}

// #endregion entries-tests

// #region logger-tests
func TestLogger_WritesBothTargets(t *testing.T) {
	var stdout bytes.Buffer
	path := filepath.Join(t.TempDir(), "estimator.log")
	l, err := newLogger(&stdout, path, false)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	l.Info("estimate", "user", "alice")
	l.Debug("hidden")
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	for name, out := range map[string]string{"stdout": stdout.String(), "file": string(b)} {
		if !strings.Contains(out, "user=alice") {
			t.Errorf("%s missing record: %q", name, out)
		}
		if strings.Contains(out, "hidden") {
			t.Errorf("%s has debug record at info level", name)
		}
	}
}

func TestLogger_StdoutOnly(t *testing.T) {
	var stdout bytes.Buffer
	l, err := newLogger(&stdout, "", true)
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	l.Debug("visible")
	if !strings.Contains(stdout.String(), "visible") {
		t.Error("debug record missing")
	}
	if err := l.Close(); err != nil {
		t.Errorf("Close without file: %v", err)
	}
}

// #endregion logger-tests
