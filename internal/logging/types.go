package logging

import "time"

// #region adjustment-entry
// AdjustmentEntry is a single row in the adjustment_log table: one change
// applied to one primitive while producing a snapshot.
type AdjustmentEntry struct {
	VersionID string    `json:"version_id"`
	Primitive string    `json:"primitive"`
	Source    string    `json:"source"` // "pattern" | "modifier" | "physiology" | "inhibition" | "skipped"
	Kind      string    `json:"kind"`   // pattern name, rule name or constraint kind
	EventID   string    `json:"event_id,omitempty"`
	Original  *float64  `json:"original,omitempty"`
	Adjusted  *float64  `json:"adjusted,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// #endregion adjustment-entry

// Sources recorded in adjustment_log.source.
const (
	SourcePattern    = "pattern"
	SourceModifier   = "modifier"
	SourcePhysiology = "physiology"
	SourceInhibition = "inhibition"
	SourceSkipped    = "skipped"
)
