// Package store provides the run registry: persistence of run lifecycle
// records and per-step state snapshots for workflow executions.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested run ID does not exist or has been
// evicted.
var ErrNotFound = errors.New("not found")

// RunStatus is the lifecycle state of a workflow run.
type RunStatus string

// Run lifecycle states. Completed and Failed are terminal.
const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Terminal reports whether the status is a terminal state.
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunFailed
}

// RunInfo is the registry record for one run.
type RunInfo struct {
	RunID  string
	Status RunStatus

	// FailedNode names the node responsible for a failed run, empty
	// otherwise.
	FailedNode string

	// Cause is the failure cause message, empty for non-failed runs.
	Cause string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// StepRecord is one state snapshot, taken immediately after a node completed.
// Records are append-only: once written they are never modified.
type StepRecord[S any] struct {
	// Step is the 1-indexed execution step.
	Step int

	// NodeID names the node whose completion produced this snapshot.
	NodeID string

	// At is when the snapshot was taken.
	At time.Time

	// State is the full run state as of this point.
	State S
}

// Store persists run records and snapshot history.
//
// Implementations must be safe for concurrent use: the registry is the one
// structure shared by concurrent runs. Snapshot reads must return values
// isolated from subsequent writes (stores serialize state on write).
//
// Type parameter S is the state type to persist; it must be JSON-marshalable.
type Store[S any] interface {
	// CreateRun registers a new run in Pending status.
	CreateRun(ctx context.Context, runID string) error

	// SetStatus updates a run's lifecycle status. failedNode and cause are
	// recorded for RunFailed and ignored otherwise. Returns ErrNotFound for
	// unknown runs.
	SetStatus(ctx context.Context, runID string, status RunStatus, failedNode, cause string) error

	// GetRun returns the registry record for a run, or ErrNotFound.
	GetRun(ctx context.Context, runID string) (RunInfo, error)

	// SaveStep appends a snapshot for the given step. Steps are appended in
	// strict completion order within a run.
	SaveStep(ctx context.Context, runID string, step int, nodeID string, state S) error

	// ListSteps returns the run's snapshots in step order, or ErrNotFound
	// for unknown runs. A registered run with no snapshots yet returns an
	// empty slice.
	ListSteps(ctx context.Context, runID string) ([]StepRecord[S], error)

	// LoadLatest returns the most recent snapshot state and its step number,
	// or ErrNotFound when the run has no snapshots.
	LoadLatest(ctx context.Context, runID string) (state S, step int, err error)

	// DeleteRun evicts a run and its snapshot history. Deleting an unknown
	// run is not an error.
	DeleteRun(ctx context.Context, runID string) error

	// ExpiredRuns returns IDs of terminal runs last updated before the
	// cutoff, for retention eviction.
	ExpiredRuns(ctx context.Context, olderThan time.Time) ([]string, error)
}
