package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/engine"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/primitive"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/replay"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/state"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to estimator.db")
	userID := flag.String("user", "", "user to export")
	last := flag.Int("last", 4, "number of most recent snapshots to turn into checkpoints")
	tolerance := flag.Float64("tolerance", 0.02, "score range half-width in exported expectations")
	outPath := flag.String("out", "", "output fixture JSON path")
	flag.Parse()

	if *dbPath == "" || *userID == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/db --user id --out path/to/fixture.json [--last N] [--tolerance T]")
		os.Exit(2)
	}

	if err := run(*dbPath, *userID, *last, *tolerance, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region export

func run(dbPath, userID string, last int, tolerance float64, outPath string) error {
	store, err := state.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	evs, err := store.Events(userID)
	if err != nil {
		return err
	}
	if len(evs) == 0 {
		return fmt.Errorf("no events for %s", userID)
	}
	snaps, err := store.ListSnapshots(userID, last)
	if err != nil {
		return err
	}

	f := &replay.Fixture{
		Description: fmt.Sprintf("exported from %s for %s on %s", dbPath, userID, time.Now().UTC().Format(time.RFC3339)),
		UserID:      userID,
		Events:      evs,
	}

	// Snapshots come newest first; checkpoints run oldest first.
	for i := len(snaps) - 1; i >= 0; i-- {
		res, err := snaps[i].Result()
		if err != nil {
			return err
		}
		f.Checkpoints = append(f.Checkpoints, checkpoint(res, tolerance))
	}

	if err := f.Save(outPath); err != nil {
		return err
	}
	fmt.Printf("Exported %d events and %d checkpoints to %s\n", len(evs), len(f.Checkpoints), outPath)
	return nil
}

func checkpoint(res engine.Result, tol float64) replay.Checkpoint {
	scores := make(map[primitive.Kind]replay.Range, len(res.Estimates))
	for _, e := range res.Estimates {
		scores[e.Kind] = replay.Range{
			Min: primitive.Unit(e.Score - tol),
			Max: primitive.Unit(e.Score + tol),
		}
	}
	patterns := []string{}
	for _, p := range res.Patterns {
		patterns = append(patterns, string(p.Pattern))
	}
	skipped := len(res.Skipped)
	passed := res.Eval.Passed
	return replay.Checkpoint{
		At: res.At,
		Expect: replay.Expectation{
			Scores:     scores,
			State:      string(res.Balance.State),
			Patterns:   patterns,
			Skipped:    &skipped,
			EvalPassed: &passed,
		},
	}
}

// #endregion export
