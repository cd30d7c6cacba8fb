package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/logging"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/primitive"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/report"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/state"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to estimator.db")
	userID := flag.String("user", "", "user whose snapshots to list")
	last := flag.Int("last", 20, "show N most recent snapshots")
	version := flag.String("version", "", "show single snapshot detail")
	only := flag.String("primitive", "", "filter adjustment rows to one primitive")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" || (*userID == "" && *version == "") {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/estimator.db (--user id [--last N] | --version id [--primitive name]) [--json]")
		os.Exit(2)
	}
	if *only != "" {
		if _, err := primitive.ParseKind(*only); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(2)
		}
	}

	store, err := state.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if *version != "" {
		err = runDetailMode(store, *version, *only, *jsonOut)
	} else {
		err = runListMode(store, *userID, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	VersionID   string             `json:"version_id"`
	ParentID    string             `json:"parent_id,omitempty"`
	QueryTime   string             `json:"query_time"`
	State       string             `json:"state"`
	Scores      map[string]float64 `json:"scores"`
	Adjustments int                `json:"adjustments"`
	Active      bool               `json:"active"`
	CreatedAt   string             `json:"created_at"`
}

func runListMode(store *state.Store, userID string, last int, jsonOut bool) error {
	snaps, err := store.ListSnapshotsWithLog(userID, last)
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		fmt.Fprintln(os.Stderr, "no snapshots found")
		return nil
	}
	var active string
	if cur, err := store.GetCurrent(userID); err == nil {
		active = cur.VersionID
	}

	// Store returns DESC, reverse for chronological
	rows := make([]listRow, len(snaps))
	for i, s := range snaps {
		rows[len(snaps)-1-i] = listRow{
			VersionID:   s.VersionID,
			ParentID:    s.ParentID,
			QueryTime:   s.QueryTime.Format("2006-01-02T15:04:05Z"),
			State:       s.State,
			Scores:      s.Scores.Map(),
			Adjustments: s.Adjustments,
			Active:      s.VersionID == active,
			CreatedAt:   s.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	if jsonOut {
		return printJSON(rows)
	}
	printListTable(rows)
	return nil
}

func printListTable(rows []listRow) {
	kinds := primitive.All()
	fmt.Printf("%-10s  %-20s", "Version", "Query Time")
	for _, k := range kinds {
		fmt.Printf("  %5s", abbrev(k))
	}
	fmt.Printf("  %4s  %s\n", "Adj", "State")
	fmt.Printf("%s\n", strings.Repeat("-", 34+7*len(kinds)+24))

	for _, r := range rows {
		marker := " "
		if r.Active {
			marker = "*"
		}
		fmt.Printf("%-9s%s  %-20s", shortID(r.VersionID), marker, r.QueryTime)
		for _, k := range kinds {
			fmt.Printf("  %5.2f", r.Scores[k.String()])
		}
		fmt.Printf("  %4d  %s\n", r.Adjustments, r.State)
	}
	fmt.Println("\n* active snapshot")
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	VersionID   string                    `json:"version_id"`
	ParentID    string                    `json:"parent_id"`
	UserID      string                    `json:"user_id"`
	CreatedAt   string                    `json:"created_at"`
	Result      json.RawMessage           `json:"result"`
	Adjustments []logging.AdjustmentEntry `json:"adjustments"`
}

func runDetailMode(store *state.Store, versionID, only string, jsonOut bool) error {
	snap, err := store.GetSnapshot(versionID)
	if err != nil {
		return err
	}
	adjs, err := logging.Adjustments(store.DB(), snap.VersionID)
	if err != nil {
		return err
	}
	if only != "" {
		k, _ := primitive.ParseKind(only)
		kept := adjs[:0]
		for _, a := range adjs {
			if a.Primitive == k.String() || a.Primitive == "*" {
				kept = append(kept, a)
			}
		}
		adjs = kept
	}

	if jsonOut {
		return printJSON(detailOutput{
			VersionID:   snap.VersionID,
			ParentID:    snap.ParentID,
			UserID:      snap.UserID,
			CreatedAt:   snap.CreatedAt.Format("2006-01-02T15:04:05Z"),
			Result:      json.RawMessage(snap.ResultJSON),
			Adjustments: adjs,
		})
	}

	res, err := snap.Result()
	if err != nil {
		return err
	}
	fmt.Printf("Version:    %s\n", snap.VersionID)
	fmt.Printf("Parent:     %s\n", snap.ParentID)
	fmt.Printf("Created:    %s\n\n", snap.CreatedAt.Format("2006-01-02T15:04:05Z"))
	if err := report.Write(os.Stdout, snap.UserID, res, report.DefaultOptions()); err != nil {
		return err
	}

	fmt.Printf("\nAdjustment log (%d rows):\n", len(adjs))
	for _, a := range adjs {
		fmt.Printf("  %-11s %-16s %-32s %s%s\n", a.Source, a.Primitive, a.Kind, valueChange(a), reasonSuffix(a))
	}
	return nil
}

// #endregion detail-mode

// #region output

func valueChange(a logging.AdjustmentEntry) string {
	switch {
	case a.Original != nil && a.Adjusted != nil:
		return fmt.Sprintf("%.3f -> %.3f", *a.Original, *a.Adjusted)
	case a.Adjusted != nil:
		return fmt.Sprintf("%+.3f", *a.Adjusted)
	default:
		return "-"
	}
}

func reasonSuffix(a logging.AdjustmentEntry) string {
	var parts []string
	if a.EventID != "" {
		parts = append(parts, "event "+a.EventID)
	}
	if a.Reason != "" {
		parts = append(parts, a.Reason)
	}
	if len(parts) == 0 {
		return ""
	}
	return "  (" + strings.Join(parts, ": ") + ")"
}

func abbrev(k primitive.Kind) string {
	s := k.String()
	if len(s) > 5 {
		return s[:5]
	}
	return s
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
