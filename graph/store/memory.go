package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MemStore is an in-memory Store implementation.
//
// Designed for tests, development, and single-process deployments where runs
// only need to outlive the request by the retention window. State is stored
// as serialized JSON so snapshots are isolated from later mutation of the
// live state value.
//
// MemStore is safe for concurrent use.
type MemStore[S any] struct {
	mu    sync.RWMutex
	runs  map[string]RunInfo
	steps map[string][]memStep
}

type memStep struct {
	step   int
	nodeID string
	at     time.Time
	state  []byte
}

// NewMemStore creates an empty in-memory store.
func NewMemStore[S any]() *MemStore[S] {
	return &MemStore[S]{
		runs:  make(map[string]RunInfo),
		steps: make(map[string][]memStep),
	}
}

// CreateRun implements Store.
func (m *MemStore[S]) CreateRun(_ context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.runs[runID]; exists {
		return fmt.Errorf("run already exists: %s", runID)
	}

	now := time.Now()
	m.runs[runID] = RunInfo{RunID: runID, Status: RunPending, CreatedAt: now, UpdatedAt: now}
	m.steps[runID] = nil
	return nil
}

// SetStatus implements Store.
func (m *MemStore[S]) SetStatus(_ context.Context, runID string, status RunStatus, failedNode, cause string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, exists := m.runs[runID]
	if !exists {
		return ErrNotFound
	}

	info.Status = status
	info.UpdatedAt = time.Now()
	if status == RunFailed {
		info.FailedNode = failedNode
		info.Cause = cause
	}
	m.runs[runID] = info
	return nil
}

// GetRun implements Store.
func (m *MemStore[S]) GetRun(_ context.Context, runID string) (RunInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	info, exists := m.runs[runID]
	if !exists {
		return RunInfo{}, ErrNotFound
	}
	return info, nil
}

// SaveStep implements Store.
func (m *MemStore[S]) SaveStep(_ context.Context, runID string, step int, nodeID string, state S) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.runs[runID]; !exists {
		return ErrNotFound
	}

	m.steps[runID] = append(m.steps[runID], memStep{
		step:   step,
		nodeID: nodeID,
		at:     time.Now(),
		state:  data,
	})
	return nil
}

// ListSteps implements Store.
func (m *MemStore[S]) ListSteps(_ context.Context, runID string) ([]StepRecord[S], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, exists := m.runs[runID]; !exists {
		return nil, ErrNotFound
	}

	records := make([]StepRecord[S], 0, len(m.steps[runID]))
	for _, s := range m.steps[runID] {
		var state S
		if err := json.Unmarshal(s.state, &state); err != nil {
			return nil, fmt.Errorf("failed to unmarshal state for step %d: %w", s.step, err)
		}
		records = append(records, StepRecord[S]{Step: s.step, NodeID: s.nodeID, At: s.at, State: state})
	}
	return records, nil
}

// LoadLatest implements Store.
func (m *MemStore[S]) LoadLatest(_ context.Context, runID string) (S, int, error) {
	var zero S

	m.mu.RLock()
	defer m.mu.RUnlock()

	steps := m.steps[runID]
	if len(steps) == 0 {
		return zero, 0, ErrNotFound
	}

	last := steps[len(steps)-1]
	var state S
	if err := json.Unmarshal(last.state, &state); err != nil {
		return zero, 0, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return state, last.step, nil
}

// DeleteRun implements Store.
func (m *MemStore[S]) DeleteRun(_ context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.runs, runID)
	delete(m.steps, runID)
	return nil
}

// ExpiredRuns implements Store.
func (m *MemStore[S]) ExpiredRuns(_ context.Context, olderThan time.Time) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var expired []string
	for id, info := range m.runs {
		if info.Status.Terminal() && info.UpdatedAt.Before(olderThan) {
			expired = append(expired, id)
		}
	}
	return expired, nil
}
