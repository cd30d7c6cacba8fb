package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/codec"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/engine"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/event"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/logging"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/report"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/state"
)

// #region main
func main() {
	eventsPath := flag.String("events", "", "path to an events JSON document")
	userID := flag.String("user", "", "user id (defaults to the document's user_id)")
	atFlag := flag.String("at", "", "query time, RFC3339 (default now)")
	untilFlag := flag.String("until", "", "timeline end, RFC3339; prints one row per step")
	stepMin := flag.Float64("step", 60, "timeline step in minutes")
	dbPath := flag.String("db", envOr("ESTIMATOR_DB", ""), "SQLite store for events and snapshots")
	configPath := flag.String("config", envOr("ESTIMATOR_CONFIG", ""), "engine config JSON overlay")
	remote := flag.String("remote", envOr("ESTIMATOR_REMOTE", ""), "estimator service address; estimate remotely")
	persist := flag.Bool("persist", false, "store the snapshot (needs --db or --remote with a store)")
	jsonOut := flag.Bool("json", false, "output as JSON instead of a report")
	flag.Parse()

	if *eventsPath == "" && (*userID == "" || (*dbPath == "" && *remote == "")) {
		fmt.Fprintln(os.Stderr, "usage: estimate --events events.json [--at time] [--until time --step min] [--db path] [--persist] [--json]")
		fmt.Fprintln(os.Stderr, "       estimate --user id --db path [--at time] [--json]")
		fmt.Fprintln(os.Stderr, "       estimate --remote host:port (--events events.json | --user id) [--persist]")
		os.Exit(2)
	}

	at, err := parseTime(*atFlag, time.Now().UTC())
	if err != nil {
		fail(err)
	}

	var doc event.Document
	if *eventsPath != "" {
		doc, err = event.LoadDocument(*eventsPath)
		if err != nil {
			fail(err)
		}
	}
	if *userID == "" {
		*userID = doc.UserID
	}

	if *remote != "" {
		if err := runRemote(*remote, *userID, doc.Events, at, *persist, *jsonOut); err != nil {
			fail(err)
		}
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fail(err)
	}
	eng, err := engine.New(cfg)
	if err != nil {
		fail(err)
	}

	var store *state.Store
	h := doc.History()
	if *dbPath != "" {
		store, err = state.NewStore(*dbPath)
		if err != nil {
			fail(err)
		}
		defer store.Close()
		if len(doc.Events) > 0 {
			if _, err := store.AddEvents(*userID, doc.Events); err != nil {
				fail(err)
			}
		}
		if h, err = store.History(*userID); err != nil {
			fail(err)
		}
	}

	if *untilFlag != "" {
		until, err := parseTime(*untilFlag, at)
		if err != nil {
			fail(err)
		}
		points, err := eng.Timeline(h, at, until, time.Duration(*stepMin*float64(time.Minute)))
		if err != nil {
			fail(err)
		}
		if *jsonOut {
			printJSON(points)
			return
		}
		printTimeline(points)
		return
	}

	res := eng.Estimate(h, at)
	versionID := ""
	if *persist {
		if store == nil {
			fail(fmt.Errorf("--persist needs --db"))
		}
		versionID, err = persistResult(store, *userID, res)
		if err != nil {
			fail(err)
		}
	}
	output(*userID, versionID, res, *jsonOut)
}

// #endregion main

// #region modes
func runRemote(addr, userID string, evs []event.Event, at time.Time, persist, jsonOut bool) error {
	client, err := codec.NewClient(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	resp, err := client.Estimate(ctx, codec.EstimateRequest{UserID: userID, Events: evs, At: at, Persist: persist})
	if err != nil {
		return err
	}
	output(userID, resp.VersionID, resp.Result, jsonOut)
	return nil
}

func persistResult(store *state.Store, userID string, res engine.Result) (string, error) {
	rec, err := state.NewSnapshot(userID, res)
	if err != nil {
		return "", err
	}
	rec, err = store.CommitSnapshot(rec)
	if err != nil {
		return "", err
	}
	if _, err := logging.LogResult(store.DB(), rec.VersionID, res); err != nil {
		return "", err
	}
	return rec.VersionID, nil
}

// #endregion modes

// #region output
func output(userID, versionID string, res engine.Result, jsonOut bool) {
	if jsonOut {
		printJSON(codec.EstimateResponse{VersionID: versionID, Result: res})
		return
	}
	if err := report.Write(os.Stdout, userID, res, report.DefaultOptions()); err != nil {
		fail(err)
	}
	if versionID != "" {
		fmt.Printf("\nSnapshot: %s\n", versionID)
	}
}

func printTimeline(points []engine.Result) {
	fmt.Printf("%-20s", "Time")
	for _, e := range points[0].Estimates {
		fmt.Printf("  %8.8s", e.Kind)
	}
	fmt.Printf("  %s\n", "State")
	for _, p := range points {
		fmt.Printf("%-20s", p.At.UTC().Format("2006-01-02T15:04Z"))
		for _, e := range p.Estimates {
			fmt.Printf("  %8.3f", e.Score)
		}
		fmt.Printf("  %s\n", p.Balance.State)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fail(err)
	}
}

// #endregion output

// #region helpers
func loadConfig(path string) (engine.Config, error) {
	cfg := engine.DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = engine.LoadConfig(path); err != nil {
			return engine.Config{}, err
		}
	}
	if v := os.Getenv("ESTIMATOR_PARALLEL"); v != "" {
		p, err := strconv.ParseBool(v)
		if err != nil {
			return engine.Config{}, fmt.Errorf("ESTIMATOR_PARALLEL: %w", err)
		}
		cfg.Parallel = p
	}
	return cfg, nil
}

func parseTime(s string, fallback time.Time) (time.Time, error) {
	if s == "" {
		return fallback, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

// #endregion helpers
