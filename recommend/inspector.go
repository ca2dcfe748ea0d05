package recommend

import (
	"context"
	"errors"
	"time"

	"github.com/gokul-gopan-k/agent-recommender/graph/store"
)

// Snapshot is one immutable record of RunState contents, taken immediately
// after a node completed.
type Snapshot struct {
	Node    string    `json:"node"`
	Step    int       `json:"step"`
	TakenAt time.Time `json:"taken_at"`
	State   RunState  `json:"state"`
}

// RunStates is the full inspection view of one run: its snapshot history in
// node-completion order plus terminal metadata. A failed run's history never
// includes the failing node, only the nodes that fully completed.
type RunStates struct {
	RunID  string          `json:"run_id"`
	Status store.RunStatus `json:"status"`

	// FailedNode and Cause are set for failed runs.
	FailedNode string `json:"failed_node,omitempty"`
	Cause      string `json:"cause,omitempty"`

	Snapshots []Snapshot `json:"snapshots"`
}

// GetStates returns the recorded snapshots for a run. It is read-only and
// returns a NotFoundError when the run ID is unknown or already evicted.
func (s *Service) GetStates(ctx context.Context, runID string) (RunStates, error) {
	info, err := s.store.GetRun(ctx, runID)
	if errors.Is(err, store.ErrNotFound) {
		return RunStates{}, &NotFoundError{RunID: runID}
	}
	if err != nil {
		return RunStates{}, err
	}

	steps, err := s.store.ListSteps(ctx, runID)
	if err != nil {
		return RunStates{}, err
	}

	snapshots := make([]Snapshot, 0, len(steps))
	for _, rec := range steps {
		snapshots = append(snapshots, Snapshot{
			Node:    rec.NodeID,
			Step:    rec.Step,
			TakenAt: rec.At,
			State:   rec.State,
		})
	}

	return RunStates{
		RunID:      info.RunID,
		Status:     info.Status,
		FailedNode: info.FailedNode,
		Cause:      info.Cause,
		Snapshots:  snapshots,
	}, nil
}
