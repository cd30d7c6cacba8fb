package logging

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/engine"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/primitive"
)

// #region log-adjustment
// LogAdjustment writes an entry to the adjustment_log table.
func LogAdjustment(db *sql.DB, entry AdjustmentEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO adjustment_log (version_id, primitive, source, kind, event_id, original, adjusted, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.VersionID,
		entry.Primitive,
		entry.Source,
		entry.Kind,
		nullIfEmpty(entry.EventID),
		nullIfNil(entry.Original),
		nullIfNil(entry.Adjusted),
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log adjustment: %w", err)
	}
	return nil
}

// #endregion log-adjustment

// #region entries
// Entries flattens everything res changed or dropped into log rows for
// versionID. Order follows the pipeline.
func Entries(versionID string, res engine.Result) []AdjustmentEntry {
	var out []AdjustmentEntry
	add := func(e AdjustmentEntry) {
		e.VersionID = versionID
		out = append(out, e)
	}

	for _, s := range res.Skipped {
		add(AdjustmentEntry{Primitive: "*", Source: SourceSkipped, Kind: s.EventType, EventID: s.EventID, Reason: s.Reason})
	}

	cls := res.Balance
	if cls.InhibitedDopamine {
		add(AdjustmentEntry{Primitive: primitive.Dopamine.String(), Source: SourceInhibition, Kind: "reciprocal_inhibition",
			Adjusted: ptr(cls.Dopamine), Reason: "serotonin above inhibition threshold"})
	}
	if cls.InhibitedSerotonin {
		add(AdjustmentEntry{Primitive: primitive.Serotonin.String(), Source: SourceInhibition, Kind: "reciprocal_inhibition",
			Adjusted: ptr(cls.Serotonin), Reason: "dopamine above inhibition threshold"})
	}

	for _, a := range res.Patterns {
		for _, k := range primitive.All() {
			if d := a.Deltas[k]; d != 0 {
				add(AdjustmentEntry{Primitive: k.String(), Source: SourcePattern, Kind: string(a.Pattern),
					Adjusted: ptr(d), Reason: a.Reason})
			}
		}
	}

	for _, r := range res.Modifiers {
		for _, k := range r.Targets {
			add(AdjustmentEntry{Primitive: k.String(), Source: SourceModifier, Kind: r.Name,
				Adjusted: ptr(r.Factor), Reason: r.Reason})
		}
	}

	for _, a := range res.Physio {
		add(AdjustmentEntry{Primitive: a.Primitive.String(), Source: SourcePhysiology, Kind: string(a.Kind),
			EventID: a.Source, Original: ptr(a.Original), Adjusted: ptr(a.Adjusted), Reason: a.Reason})
	}
	return out
}

// LogResult writes every entry for res in one transaction and returns the
// number of rows.
func LogResult(db *sql.DB, versionID string, res engine.Result) (int, error) {
	entries := Entries(versionID, res)
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, e := range entries {
		_, err := tx.Exec(
			`INSERT INTO adjustment_log (version_id, primitive, source, kind, event_id, original, adjusted, reason, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.VersionID, e.Primitive, e.Source, e.Kind, nullIfEmpty(e.EventID),
			nullIfNil(e.Original), nullIfNil(e.Adjusted), nullIfEmpty(e.Reason), now,
		)
		if err != nil {
			return 0, fmt.Errorf("log adjustment: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(entries), nil
}

// #endregion entries

// #region read
// Adjustments returns the rows logged for versionID in insertion order.
func Adjustments(db *sql.DB, versionID string) ([]AdjustmentEntry, error) {
	rows, err := db.Query(
		`SELECT version_id, primitive, source, kind, event_id, original, adjusted, reason, created_at
		 FROM adjustment_log WHERE version_id = ? ORDER BY id`, versionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query adjustments: %w", err)
	}
	defer rows.Close()

	var out []AdjustmentEntry
	for rows.Next() {
		var (
			e                  AdjustmentEntry
			eventID, reason    sql.NullString
			original, adjusted sql.NullFloat64
			created            string
		)
		if err := rows.Scan(&e.VersionID, &e.Primitive, &e.Source, &e.Kind, &eventID,
			&original, &adjusted, &reason, &created); err != nil {
			return nil, fmt.Errorf("scan adjustment: %w", err)
		}
		e.EventID = eventID.String
		e.Reason = reason.String
		if original.Valid {
			e.Original = ptr(original.Float64)
		}
		if adjusted.Valid {
			e.Adjusted = ptr(adjusted.Float64)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion read

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullIfNil(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func ptr(f float64) *float64 { return &f }

// #endregion helpers
