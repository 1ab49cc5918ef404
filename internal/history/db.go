// Package history implements a sqlite-backed audit trail of sync cycles
// and conflicts, plus fuzzy link-suggestion support. It is secondary and
// non-authoritative: the tracked map and baseline store remain the source
// of truth for what is synced, while this package only records what
// happened, for diagnostics and for suggesting likely wiki-link targets.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the sqlite connection backing the audit trail.
type DB struct {
	conn *sql.DB
}

// CycleRecord is one row of the audit trail: an applied change to one page
// during one sync cycle.
type CycleRecord struct {
	ID        int64
	PageID    string
	Path      string
	Action    string // "push", "pull", "merge", "conflict", "move", "delete"
	Timestamp time.Time
	Details   string
}

// ConflictRecord tracks an unresolved conflict left on disk as inline
// conflict markers in the synced file, so `wikisync conflicts` can list
// and resolve it later.
type ConflictRecord struct {
	ID         int64
	PageID     string
	Path       string
	DetectedAt time.Time
	ResolvedAt time.Time
	Resolution string // "" while open, else "ours"/"theirs"/"manual"
}

// Open opens or creates the audit database at path.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("history: init schema: %w", err)
	}
	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sync_history (
		id INTEGER PRIMARY KEY,
		page_id TEXT NOT NULL,
		path TEXT NOT NULL,
		action TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		details TEXT
	);

	CREATE TABLE IF NOT EXISTS conflicts (
		id INTEGER PRIMARY KEY,
		page_id TEXT NOT NULL,
		path TEXT NOT NULL,
		detected_at INTEGER NOT NULL,
		resolved_at INTEGER,
		resolution TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_history_page ON sync_history(page_id);
	CREATE INDEX IF NOT EXISTS idx_conflicts_page ON conflicts(page_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// RecordCycle appends one audit entry.
func (db *DB) RecordCycle(rec CycleRecord) error {
	_, err := db.conn.Exec(
		`INSERT INTO sync_history (page_id, path, action, timestamp, details) VALUES (?, ?, ?, ?, ?)`,
		rec.PageID, rec.Path, rec.Action, rec.Timestamp.Unix(), rec.Details,
	)
	if err != nil {
		return fmt.Errorf("history: record cycle: %w", err)
	}
	return nil
}

// History returns the audit trail for a page, most recent first.
func (db *DB) History(pageID string) ([]CycleRecord, error) {
	rows, err := db.conn.Query(
		`SELECT id, page_id, path, action, timestamp, details FROM sync_history WHERE page_id = ? ORDER BY timestamp DESC`,
		pageID,
	)
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer rows.Close()

	var out []CycleRecord
	for rows.Next() {
		var r CycleRecord
		var ts int64
		var details sql.NullString
		if err := rows.Scan(&r.ID, &r.PageID, &r.Path, &r.Action, &ts, &details); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		r.Timestamp = time.Unix(ts, 0)
		r.Details = details.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecordConflict opens a new conflict record for a page.
func (db *DB) RecordConflict(pageID, path string, detectedAt time.Time) error {
	_, err := db.conn.Exec(
		`INSERT INTO conflicts (page_id, path, detected_at) VALUES (?, ?, ?)`,
		pageID, path, detectedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("history: record conflict: %w", err)
	}
	return nil
}

// ResolveConflict marks every open conflict for pageID resolved.
func (db *DB) ResolveConflict(pageID, resolution string, resolvedAt time.Time) error {
	_, err := db.conn.Exec(
		`UPDATE conflicts SET resolved_at = ?, resolution = ? WHERE page_id = ? AND resolved_at IS NULL`,
		resolvedAt.Unix(), resolution, pageID,
	)
	if err != nil {
		return fmt.Errorf("history: resolve conflict: %w", err)
	}
	return nil
}

// OpenConflicts returns every conflict that has not been resolved yet.
func (db *DB) OpenConflicts() ([]ConflictRecord, error) {
	rows, err := db.conn.Query(
		`SELECT id, page_id, path, detected_at FROM conflicts WHERE resolved_at IS NULL ORDER BY detected_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("history: query open conflicts: %w", err)
	}
	defer rows.Close()

	var out []ConflictRecord
	for rows.Next() {
		var r ConflictRecord
		var detected int64
		if err := rows.Scan(&r.ID, &r.PageID, &r.Path, &detected); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		r.DetectedAt = time.Unix(detected, 0)
		out = append(out, r)
	}
	return out, rows.Err()
}
