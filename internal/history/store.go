// Package history persists matrix run results in a SQLite database so past
// runs can be inspected after the workspace has been wiped.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/relmatrix/internal/matrix"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at TIMESTAMP NOT NULL,
	finished_at TIMESTAMP NOT NULL,
	total INTEGER NOT NULL,
	failed INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS run_leaves (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL REFERENCES runs(id),
	interface TEXT NOT NULL,
	version TEXT NOT NULL,
	role TEXT NOT NULL,
	charm TEXT NOT NULL,
	passed INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_run_leaves_run ON run_leaves(run_id);
`

// Store manages the SQLite database holding run history.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (creating if needed) the history database at dbPath and
// initializes its schema. ":memory:" is supported for tests.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A single connection serializes writes and keeps an in-memory database
	// alive across statements.
	db.SetMaxOpenConns(1)

	// busy_timeout first so subsequent statements wait on locks.
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("configure database: %w", err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunRecord summarizes one recorded matrix run.
type RunRecord struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Failed     int
}

// RecordRun stores one run and all its leaves, returning the run ID.
func (s *Store) RecordRun(started, finished time.Time, tree *matrix.ResultTree) (string, error) {
	runID := uuid.NewString()
	leaves := tree.Walk()

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO runs (id, started_at, finished_at, total, failed) VALUES (?, ?, ?, ?, ?)",
		runID, started.UTC(), finished.UTC(), len(leaves), len(tree.Failures()),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(
		"INSERT INTO run_leaves (run_id, interface, version, role, charm, passed) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return "", fmt.Errorf("prepare leaf insert: %w", err)
	}
	defer stmt.Close()

	for _, leaf := range leaves {
		if _, err := stmt.Exec(runID, leaf.Interface, leaf.Version, leaf.Role, leaf.Charm, leaf.Passed); err != nil {
			return "", fmt.Errorf("insert leaf: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit run: %w", err)
	}
	return runID, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		"SELECT id, started_at, finished_at, total, failed FROM runs ORDER BY started_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Total, &r.Failed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunLeaves returns every leaf of one recorded run, in insertion order.
func (s *Store) RunLeaves(runID string) ([]matrix.Leaf, error) {
	rows, err := s.db.Query(
		"SELECT interface, version, role, charm, passed FROM run_leaves WHERE run_id = ? ORDER BY id", runID)
	if err != nil {
		return nil, fmt.Errorf("query leaves: %w", err)
	}
	defer rows.Close()

	var leaves []matrix.Leaf
	for rows.Next() {
		var leaf matrix.Leaf
		if err := rows.Scan(&leaf.Interface, &leaf.Version, &leaf.Role, &leaf.Charm, &leaf.Passed); err != nil {
			return nil, fmt.Errorf("scan leaf: %w", err)
		}
		leaves = append(leaves, leaf)
	}
	return leaves, rows.Err()
}
