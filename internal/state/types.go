package state

import (
	"time"

	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/primitive"
)

// #region snapshot-record
// SnapshotRecord is one persisted estimate. Snapshots for a user form a
// chain through ParentID; the active pointer marks the current one.
type SnapshotRecord struct {
	VersionID  string
	ParentID   string
	UserID     string
	QueryTime  time.Time
	Scores     primitive.Vector
	Confidence primitive.Vector
	State      string // functional state label
	ResultJSON string
	CreatedAt  time.Time
}

// #endregion snapshot-record

// #region snapshot-with-log
// SnapshotWithLog pairs a snapshot with the adjustment rows written for it.
type SnapshotWithLog struct {
	SnapshotRecord
	Adjustments int
}

// #endregion snapshot-with-log
