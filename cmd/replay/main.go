package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/engine"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/primitive"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/replay"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/state"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to estimator.db (DB mode)")
	userID := flag.String("user", "", "user whose snapshots to replay (DB mode)")
	last := flag.Int("last", 20, "number of most recent snapshots to replay (DB mode)")
	fixturePath := flag.String("fixture", "", "fixture JSON file or directory of fixtures (fixture mode)")
	flag.Parse()

	dbMode := *dbPath != "" && *userID != ""
	if dbMode == (*fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --db path/to/estimator.db --user id [--last N]")
		fmt.Fprintln(os.Stderr, "       replay --fixture path/to/fixture.json|dir")
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath)
	} else {
		exitCode = runDBMode(*dbPath, *userID, *last)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region db-mode

// runDBMode re-evaluates stored snapshots against the stored history and
// reports any score that moved.
func runDBMode(dbPath, userID string, last int) int {
	store, err := state.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 2
	}
	defer store.Close()

	snaps, err := store.ListSnapshots(userID, last)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list snapshots: %v\n", err)
		return 2
	}
	if len(snaps) == 0 {
		fmt.Fprintln(os.Stderr, "no snapshots found")
		return 0
	}
	h, err := store.History(userID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load history: %v\n", err)
		return 2
	}
	eng, err := engine.New(engine.DefaultConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine: %v\n", err)
		return 2
	}

	fmt.Printf("%-12s| %-20s| %-10s| %s\n", "Snapshot", "Query time", "Max diff", "Match")
	fmt.Printf("%-12s+%-21s+%-11s+%s\n", "------------", "---------------------", "-----------", "------")
	diverge := 0
	for i := len(snaps) - 1; i >= 0; i-- {
		snap := snaps[i]
		res := eng.Estimate(h, snap.QueryTime)
		diff := maxDiff(snap.Scores, res.Scores())
		match := "OK"
		if diff > 1e-9 {
			match = "DIFF"
			diverge++
		}
		fmt.Printf("%-12s| %-20s| %-10.2g| %s\n", short(snap.VersionID), snap.QueryTime.Format(time.RFC3339), diff, match)
	}
	fmt.Printf("\nSummary: %d total, %d match, %d diverge\n", len(snaps), len(snaps)-diverge, diverge)
	if diverge > 0 {
		return 1
	}
	return 0
}

func maxDiff(a, b primitive.Vector) float64 {
	var m float64
	for i := range a {
		d := a[i] - b[i]
		if d < 0 {
			d = -d
		}
		if d > m {
			m = d
		}
	}
	return m
}

func short(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// #endregion db-mode

// #region fixture-mode

func runFixtureMode(path string) int {
	paths := []string{path}
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		paths, _ = filepath.Glob(filepath.Join(path, "*.json"))
	}

	fmt.Printf("%-28s| %-20s| %s\n", "Fixture", "Checkpoint", "Result")
	fmt.Printf("%-28s+%-21s+%s\n", "----------------------------", "---------------------", "------")

	var total, failed int
	for _, p := range paths {
		f, err := replay.LoadFixture(p)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
			return 2
		}
		results, err := replay.RunFixture(f)
		if err != nil {
			fmt.Fprintf(os.Stderr, "run fixture %s: %v\n", p, err)
			return 2
		}
		name := strings.TrimSuffix(filepath.Base(p), ".json")
		for _, r := range results {
			status := "OK"
			if !r.Passed {
				status = "FAIL " + strings.Join(r.Failures, "; ")
			}
			fmt.Printf("%-28s| %-20s| %s\n", name, r.At.Format(time.RFC3339), status)
		}
		s := replay.Summarize(results)
		total += s.Checkpoints
		failed += s.Failed
	}

	fmt.Printf("\nSummary: %d checkpoints, %d passed, %d failed\n", total, total-failed, failed)
	if failed > 0 {
		return 1
	}
	return 0
}

// #endregion fixture-mode
