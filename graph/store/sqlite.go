package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // registers the pure-Go "sqlite" driver
)

var sqliteDDL = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		run_id      TEXT PRIMARY KEY,
		status      TEXT NOT NULL,
		failed_node TEXT NOT NULL DEFAULT '',
		cause       TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMP NOT NULL,
		updated_at  TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS snapshots (
		run_id   TEXT NOT NULL,
		step     INTEGER NOT NULL,
		node_id  TEXT NOT NULL,
		taken_at TIMESTAMP NOT NULL,
		state    TEXT NOT NULL,
		PRIMARY KEY (run_id, step)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_status_updated ON runs (status, updated_at)`,
}

// NewSQLiteStore opens (or creates) a SQLite-backed store at the given DSN.
//
// Use a file path for persistence, or "file:runs?mode=memory&cache=shared"
// for an in-memory database in tests. The modernc.org/sqlite driver is pure
// Go, so no cgo is required.
func NewSQLiteStore[S any](dsn string) (*SQLStore[S], error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// modernc.org/sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent runs.
	db.SetMaxOpenConns(1)

	st, err := newSQLStore[S](db, sqliteDDL)
	if err != nil {
		db.Close()
		return nil, err
	}
	return st, nil
}
