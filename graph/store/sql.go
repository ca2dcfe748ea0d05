package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SQLStore is a database-backed Store over database/sql. It is constructed
// through NewSQLiteStore or NewMySQLStore; the two dialects share all query
// logic and differ only in DDL.
//
// Schema:
//
//	runs      (run_id PK, status, failed_node, cause, created_at, updated_at)
//	snapshots (run_id, step, node_id, taken_at, state JSON; PK (run_id, step))
type SQLStore[S any] struct {
	db *sql.DB
}

func newSQLStore[S any](db *sql.DB, ddl []string) (*SQLStore[S], error) {
	for _, stmt := range ddl {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return &SQLStore[S]{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLStore[S]) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle so other stores (e.g. users) can share the
// same database.
func (s *SQLStore[S]) DB() *sql.DB {
	return s.db
}

// CreateRun implements Store.
func (s *SQLStore[S]) CreateRun(ctx context.Context, runID string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, status, failed_node, cause, created_at, updated_at) VALUES (?, ?, '', '', ?, ?)`,
		runID, string(RunPending), now, now)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// SetStatus implements Store.
func (s *SQLStore[S]) SetStatus(ctx context.Context, runID string, status RunStatus, failedNode, cause string) error {
	if status != RunFailed {
		failedNode, cause = "", ""
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, failed_node = ?, cause = ?, updated_at = ? WHERE run_id = ?`,
		string(status), failedNode, cause, time.Now().UTC(), runID)
	if err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetRun implements Store.
func (s *SQLStore[S]) GetRun(ctx context.Context, runID string) (RunInfo, error) {
	var info RunInfo
	var status string

	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, status, failed_node, cause, created_at, updated_at FROM runs WHERE run_id = ?`, runID)
	err := row.Scan(&info.RunID, &status, &info.FailedNode, &info.Cause, &info.CreatedAt, &info.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return RunInfo{}, ErrNotFound
	}
	if err != nil {
		return RunInfo{}, fmt.Errorf("failed to load run: %w", err)
	}

	info.Status = RunStatus(status)
	return info, nil
}

// SaveStep implements Store.
func (s *SQLStore[S]) SaveStep(ctx context.Context, runID string, step int, nodeID string, state S) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (run_id, step, node_id, taken_at, state) VALUES (?, ?, ?, ?, ?)`,
		runID, step, nodeID, time.Now().UTC(), string(data))
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// ListSteps implements Store.
func (s *SQLStore[S]) ListSteps(ctx context.Context, runID string) ([]StepRecord[S], error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT step, node_id, taken_at, state FROM snapshots WHERE run_id = ? ORDER BY step ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	records := make([]StepRecord[S], 0)
	for rows.Next() {
		var rec StepRecord[S]
		var data string
		if err := rows.Scan(&rec.Step, &rec.NodeID, &rec.At, &data); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &rec.State); err != nil {
			return nil, fmt.Errorf("failed to unmarshal state for step %d: %w", rec.Step, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// LoadLatest implements Store.
func (s *SQLStore[S]) LoadLatest(ctx context.Context, runID string) (S, int, error) {
	var zero S
	var step int
	var data string

	row := s.db.QueryRowContext(ctx,
		`SELECT step, state FROM snapshots WHERE run_id = ? ORDER BY step DESC LIMIT 1`, runID)
	err := row.Scan(&step, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, 0, ErrNotFound
	}
	if err != nil {
		return zero, 0, fmt.Errorf("failed to load latest snapshot: %w", err)
	}

	var state S
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return zero, 0, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return state, step, nil
}

// DeleteRun implements Store.
func (s *SQLStore[S]) DeleteRun(ctx context.Context, runID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("failed to delete snapshots: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}

// ExpiredRuns implements Store.
func (s *SQLStore[S]) ExpiredRuns(ctx context.Context, olderThan time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id FROM runs WHERE status IN (?, ?) AND updated_at < ?`,
		string(RunCompleted), string(RunFailed), olderThan.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query expired runs: %w", err)
	}
	defer rows.Close()

	var expired []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		expired = append(expired, id)
	}
	return expired, rows.Err()
}
