package state

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/engine"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/event"
	"github.com/danielpatrickdp/primitive-state/go-estimator/internal/primitive"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS events (
	user_id         TEXT NOT NULL,
	event_id        TEXT NOT NULL,
	event_type      TEXT NOT NULL,
	start_time      TEXT NOT NULL,
	end_time        TEXT,
	properties_json TEXT NOT NULL,
	created_at      TEXT NOT NULL,
	PRIMARY KEY (user_id, event_id)
);

CREATE INDEX IF NOT EXISTS events_by_time ON events (user_id, start_time);

CREATE TABLE IF NOT EXISTS snapshots (
	version_id  TEXT PRIMARY KEY,
	parent_id   TEXT,
	user_id     TEXT NOT NULL,
	query_time  TEXT NOT NULL,
	scores      BLOB NOT NULL,
	confidence  BLOB NOT NULL,
	state       TEXT NOT NULL,
	result_json TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	FOREIGN KEY (parent_id) REFERENCES snapshots(version_id)
);

CREATE TABLE IF NOT EXISTS adjustment_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	version_id  TEXT NOT NULL,
	primitive   TEXT NOT NULL,
	source      TEXT NOT NULL,
	kind        TEXT NOT NULL,
	event_id    TEXT,
	original    REAL,
	adjusted    REAL,
	reason      TEXT,
	created_at  TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES snapshots(version_id)
);

CREATE TABLE IF NOT EXISTS active_snapshot (
	user_id     TEXT PRIMARY KEY,
	version_id  TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES snapshots(version_id)
);
`

// #endregion schema

// #region store-struct
// Store persists event histories and estimate snapshots in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion constructor

// #region events
// AddEvents upserts events for a user. Events without an ID get a fresh
// one. It returns the number of rows written.
func (s *Store) AddEvents(userID string, evs []event.Event) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, ev := range evs {
		if ev.ID == "" {
			ev.ID = uuid.NewString()
		}
		props := ev.Properties
		if props == nil {
			props = map[string]any{}
		}
		propsJSON, err := json.Marshal(props)
		if err != nil {
			return 0, fmt.Errorf("marshal properties %s: %w", ev.ID, err)
		}
		var endPtr interface{}
		if ev.End != nil {
			endPtr = ev.End.UTC().Format(time.RFC3339Nano)
		}
		_, err = tx.Exec(
			`INSERT INTO events (user_id, event_id, event_type, start_time, end_time, properties_json, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(user_id, event_id) DO UPDATE SET
			   event_type = excluded.event_type,
			   start_time = excluded.start_time,
			   end_time = excluded.end_time,
			   properties_json = excluded.properties_json`,
			userID, ev.ID, string(ev.Type), ev.Start.UTC().Format(time.RFC3339Nano), endPtr, string(propsJSON), now,
		)
		if err != nil {
			return 0, fmt.Errorf("insert event %s: %w", ev.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(evs), nil
}

// Events returns a user's stored events in time order.
func (s *Store) Events(userID string) ([]event.Event, error) {
	rows, err := s.db.Query(
		`SELECT event_id, event_type, start_time, end_time, properties_json
		 FROM events WHERE user_id = ? ORDER BY start_time, event_id`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []event.Event
	for rows.Next() {
		var ev event.Event
		var typ, startStr, propsJSON string
		var endStr sql.NullString
		if err := rows.Scan(&ev.ID, &typ, &startStr, &endStr, &propsJSON); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Type = event.NormalizeType(typ)
		ev.Start, _ = time.Parse(time.RFC3339Nano, startStr)
		if endStr.Valid {
			end, err := time.Parse(time.RFC3339Nano, endStr.String)
			if err == nil {
				ev.End = &end
			}
		}
		if err := json.Unmarshal([]byte(propsJSON), &ev.Properties); err != nil {
			return nil, fmt.Errorf("unmarshal properties %s: %w", ev.ID, err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// History loads a user's events as an event.History.
func (s *Store) History(userID string) (event.History, error) {
	evs, err := s.Events(userID)
	if err != nil {
		return event.History{}, err
	}
	return event.NewHistory(evs), nil
}

// Users lists every user with stored events.
func (s *Store) Users() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT user_id FROM events ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// #endregion events

// #region new-snapshot
// NewSnapshot builds an uncommitted snapshot of res with a fresh version ID.
func NewSnapshot(userID string, res engine.Result) (SnapshotRecord, error) {
	b, err := json.Marshal(res)
	if err != nil {
		return SnapshotRecord{}, fmt.Errorf("marshal result: %w", err)
	}
	return SnapshotRecord{
		VersionID:  uuid.New().String(),
		UserID:     userID,
		QueryTime:  res.At,
		Scores:     res.Scores(),
		Confidence: res.Confidences(),
		State:      string(res.Balance.State),
		ResultJSON: string(b),
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// Result decodes the stored evaluation.
func (r SnapshotRecord) Result() (engine.Result, error) {
	var res engine.Result
	if err := json.Unmarshal([]byte(r.ResultJSON), &res); err != nil {
		return engine.Result{}, fmt.Errorf("unmarshal result %s: %w", r.VersionID, err)
	}
	return res, nil
}

// #endregion new-snapshot

// #region commit-snapshot
// CommitSnapshot inserts rec and moves the user's active pointer to it
// atomically. An empty ParentID is filled from the current active snapshot.
func (s *Store) CommitSnapshot(rec SnapshotRecord) (SnapshotRecord, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return SnapshotRecord{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if rec.ParentID == "" {
		var parent string
		err := tx.QueryRow(`SELECT version_id FROM active_snapshot WHERE user_id = ?`, rec.UserID).Scan(&parent)
		switch {
		case err == sql.ErrNoRows:
		case err != nil:
			return SnapshotRecord{}, fmt.Errorf("get active: %w", err)
		default:
			rec.ParentID = parent
		}
	}

	var parentPtr interface{}
	if rec.ParentID != "" {
		parentPtr = rec.ParentID
	}

	_, err = tx.Exec(
		`INSERT INTO snapshots (version_id, parent_id, user_id, query_time, scores, confidence, state, result_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.VersionID, parentPtr, rec.UserID, rec.QueryTime.UTC().Format(time.RFC3339Nano),
		encodeVector(rec.Scores), encodeVector(rec.Confidence), rec.State, rec.ResultJSON,
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return SnapshotRecord{}, fmt.Errorf("insert snapshot: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO active_snapshot (user_id, version_id) VALUES (?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET version_id = excluded.version_id`,
		rec.UserID, rec.VersionID,
	)
	if err != nil {
		return SnapshotRecord{}, fmt.Errorf("set active: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return SnapshotRecord{}, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

// #endregion commit-snapshot

// #region get-snapshot
const snapshotColumns = `version_id, parent_id, user_id, query_time, scores, confidence, state, result_json, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (SnapshotRecord, error) {
	var rec SnapshotRecord
	var parentID sql.NullString
	var scores, confidence []byte
	var queryStr, createdStr string

	err := row.Scan(&rec.VersionID, &parentID, &rec.UserID, &queryStr, &scores, &confidence,
		&rec.State, &rec.ResultJSON, &createdStr)
	if err != nil {
		return SnapshotRecord{}, err
	}
	if parentID.Valid {
		rec.ParentID = parentID.String
	}
	rec.Scores = decodeVector(scores)
	rec.Confidence = decodeVector(confidence)
	rec.QueryTime, _ = time.Parse(time.RFC3339Nano, queryStr)
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return rec, nil
}

// GetCurrent reads the user's active snapshot.
func (s *Store) GetCurrent(userID string) (SnapshotRecord, error) {
	var versionID string
	err := s.db.QueryRow(`SELECT version_id FROM active_snapshot WHERE user_id = ?`, userID).Scan(&versionID)
	if err != nil {
		return SnapshotRecord{}, fmt.Errorf("get active for %s: %w", userID, err)
	}
	return s.GetSnapshot(versionID)
}

// GetSnapshot retrieves a snapshot by version ID.
func (s *Store) GetSnapshot(id string) (SnapshotRecord, error) {
	rec, err := scanSnapshot(s.db.QueryRow(
		`SELECT `+snapshotColumns+` FROM snapshots WHERE version_id = ?`, id,
	))
	if err != nil {
		return SnapshotRecord{}, fmt.Errorf("get snapshot %s: %w", id, err)
	}
	return rec, nil
}

// #endregion get-snapshot

// #region rollback
// Rollback points the user's active snapshot at an earlier version.
func (s *Store) Rollback(userID, targetVersionID string) error {
	var owner string
	err := s.db.QueryRow(
		`SELECT user_id FROM snapshots WHERE version_id = ?`, targetVersionID,
	).Scan(&owner)
	if err == sql.ErrNoRows {
		return fmt.Errorf("snapshot %s: %w", targetVersionID, err)
	}
	if err != nil {
		return fmt.Errorf("check snapshot: %w", err)
	}
	if owner != userID {
		return fmt.Errorf("snapshot %s belongs to %s, not %s", targetVersionID, owner, userID)
	}

	_, err = s.db.Exec(`UPDATE active_snapshot SET version_id = ? WHERE user_id = ?`, targetVersionID, userID)
	if err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// #endregion rollback

// #region list-snapshots
// ListSnapshots returns a user's most recent snapshots, newest first.
func (s *Store) ListSnapshots(userID string, limit int) ([]SnapshotRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+snapshotColumns+` FROM snapshots WHERE user_id = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`, userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var records []SnapshotRecord
	for rows.Next() {
		rec, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListSnapshotsWithLog is ListSnapshots plus the number of adjustment rows
// logged for each snapshot.
func (s *Store) ListSnapshotsWithLog(userID string, limit int) ([]SnapshotWithLog, error) {
	recs, err := s.ListSnapshots(userID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]SnapshotWithLog, 0, len(recs))
	for _, rec := range recs {
		var n int
		err := s.db.QueryRow(`SELECT COUNT(*) FROM adjustment_log WHERE version_id = ?`, rec.VersionID).Scan(&n)
		if err != nil {
			return nil, fmt.Errorf("count adjustments %s: %w", rec.VersionID, err)
		}
		out = append(out, SnapshotWithLog{SnapshotRecord: rec, Adjustments: n})
	}
	return out, nil
}

// #endregion list-snapshots

// #region vector-encoding
func encodeVector(v primitive.Vector) []byte {
	buf := make([]byte, primitive.Count*8)
	for i, f := range v {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(f))
	}
	return buf
}

func decodeVector(b []byte) primitive.Vector {
	var v primitive.Vector
	for i := range v {
		if i*8+8 <= len(b) {
			v[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
		}
	}
	return v
}

// #endregion vector-encoding
