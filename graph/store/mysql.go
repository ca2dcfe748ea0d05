package store

import (
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql" // registers the "mysql" driver
)

var mysqlDDL = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		run_id      VARCHAR(64) PRIMARY KEY,
		status      VARCHAR(16) NOT NULL,
		failed_node VARCHAR(128) NOT NULL DEFAULT '',
		cause       TEXT NOT NULL,
		created_at  DATETIME(6) NOT NULL,
		updated_at  DATETIME(6) NOT NULL,
		INDEX idx_runs_status_updated (status, updated_at)
	)`,
	`CREATE TABLE IF NOT EXISTS snapshots (
		run_id   VARCHAR(64) NOT NULL,
		step     INT NOT NULL,
		node_id  VARCHAR(128) NOT NULL,
		taken_at DATETIME(6) NOT NULL,
		state    MEDIUMTEXT NOT NULL,
		PRIMARY KEY (run_id, step)
	)`,
}

// NewMySQLStore opens a MySQL-backed store.
//
// The DSN must include parseTime=true so DATETIME columns scan into
// time.Time, e.g. "user:pass@tcp(localhost:3306)/recommender?parseTime=true".
func NewMySQLStore[S any](dsn string) (*SQLStore[S], error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql database: %w", err)
	}

	st, err := newSQLStore[S](db, mysqlDDL)
	if err != nil {
		db.Close()
		return nil, err
	}
	return st, nil
}
