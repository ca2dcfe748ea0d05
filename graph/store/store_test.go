package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

// testDoc stands in for workflow state in store tests.
type testDoc struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

// runStoreTests exercises the Store contract against any implementation.
func runStoreTests(t *testing.T, newStore func(t *testing.T) Store[testDoc]) {
	ctx := context.Background()

	t.Run("run lifecycle", func(t *testing.T) {
		st := newStore(t)

		if err := st.CreateRun(ctx, "r1"); err != nil {
			t.Fatalf("CreateRun failed: %v", err)
		}

		info, err := st.GetRun(ctx, "r1")
		if err != nil {
			t.Fatalf("GetRun failed: %v", err)
		}
		if info.Status != RunPending {
			t.Errorf("expected pending, got %s", info.Status)
		}

		if err := st.SetStatus(ctx, "r1", RunRunning, "", ""); err != nil {
			t.Fatalf("SetStatus failed: %v", err)
		}
		if err := st.SetStatus(ctx, "r1", RunFailed, "ranker", "boom"); err != nil {
			t.Fatalf("SetStatus failed: %v", err)
		}

		info, _ = st.GetRun(ctx, "r1")
		if info.Status != RunFailed || info.FailedNode != "ranker" || info.Cause != "boom" {
			t.Errorf("unexpected run info: %+v", info)
		}
	})

	t.Run("unknown run", func(t *testing.T) {
		st := newStore(t)

		if _, err := st.GetRun(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetRun: expected ErrNotFound, got %v", err)
		}
		if err := st.SetStatus(ctx, "missing", RunRunning, "", ""); !errors.Is(err, ErrNotFound) {
			t.Errorf("SetStatus: expected ErrNotFound, got %v", err)
		}
		if _, err := st.ListSteps(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("ListSteps: expected ErrNotFound, got %v", err)
		}
		if _, _, err := st.LoadLatest(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("LoadLatest: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("snapshots ordered by step", func(t *testing.T) {
		st := newStore(t)

		if err := st.CreateRun(ctx, "r2"); err != nil {
			t.Fatalf("CreateRun failed: %v", err)
		}
		for i, name := range []string{"first", "second", "third"} {
			if err := st.SaveStep(ctx, "r2", i+1, "node", testDoc{Name: name}); err != nil {
				t.Fatalf("SaveStep %d failed: %v", i+1, err)
			}
		}

		steps, err := st.ListSteps(ctx, "r2")
		if err != nil {
			t.Fatalf("ListSteps failed: %v", err)
		}
		if len(steps) != 3 {
			t.Fatalf("expected 3 steps, got %d", len(steps))
		}
		for i, want := range []string{"first", "second", "third"} {
			if steps[i].State.Name != want {
				t.Errorf("step %d: expected %q, got %q", i+1, want, steps[i].State.Name)
			}
		}

		latest, step, err := st.LoadLatest(ctx, "r2")
		if err != nil {
			t.Fatalf("LoadLatest failed: %v", err)
		}
		if step != 3 || latest.Name != "third" {
			t.Errorf("expected step 3 / third, got %d / %q", step, latest.Name)
		}
	})

	t.Run("snapshots are isolated from later mutation", func(t *testing.T) {
		st := newStore(t)

		if err := st.CreateRun(ctx, "r3"); err != nil {
			t.Fatalf("CreateRun failed: %v", err)
		}

		doc := testDoc{Name: "original", Tags: []string{"a"}}
		if err := st.SaveStep(ctx, "r3", 1, "node", doc); err != nil {
			t.Fatalf("SaveStep failed: %v", err)
		}

		doc.Name = "mutated"
		doc.Tags[0] = "z"

		steps, _ := st.ListSteps(ctx, "r3")
		if steps[0].State.Name != "original" || steps[0].State.Tags[0] != "a" {
			t.Errorf("snapshot leaked mutation: %+v", steps[0].State)
		}
	})

	t.Run("delete removes run and snapshots", func(t *testing.T) {
		st := newStore(t)

		if err := st.CreateRun(ctx, "r4"); err != nil {
			t.Fatalf("CreateRun failed: %v", err)
		}
		if err := st.SaveStep(ctx, "r4", 1, "node", testDoc{Name: "x"}); err != nil {
			t.Fatalf("SaveStep failed: %v", err)
		}

		if err := st.DeleteRun(ctx, "r4"); err != nil {
			t.Fatalf("DeleteRun failed: %v", err)
		}
		if _, err := st.GetRun(ctx, "r4"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
	})

	t.Run("expired runs", func(t *testing.T) {
		st := newStore(t)

		for _, id := range []string{"done", "dead", "live"} {
			if err := st.CreateRun(ctx, id); err != nil {
				t.Fatalf("CreateRun failed: %v", err)
			}
		}
		if err := st.SetStatus(ctx, "done", RunCompleted, "", ""); err != nil {
			t.Fatalf("SetStatus failed: %v", err)
		}
		if err := st.SetStatus(ctx, "dead", RunFailed, "n", "c"); err != nil {
			t.Fatalf("SetStatus failed: %v", err)
		}
		if err := st.SetStatus(ctx, "live", RunRunning, "", ""); err != nil {
			t.Fatalf("SetStatus failed: %v", err)
		}

		// Everything updated before this point is expired.
		expired, err := st.ExpiredRuns(ctx, time.Now().Add(time.Second))
		if err != nil {
			t.Fatalf("ExpiredRuns failed: %v", err)
		}

		got := make(map[string]bool, len(expired))
		for _, id := range expired {
			got[id] = true
		}
		if !got["done"] || !got["dead"] {
			t.Errorf("expected terminal runs to be expired, got %v", expired)
		}
		if got["live"] {
			t.Error("running run must not be expired")
		}

		// Nothing is older than the zero time.
		expired, err = st.ExpiredRuns(ctx, time.Time{})
		if err != nil {
			t.Fatalf("ExpiredRuns failed: %v", err)
		}
		if len(expired) != 0 {
			t.Errorf("expected no expired runs, got %v", expired)
		}
	})

	t.Run("duplicate run ID rejected", func(t *testing.T) {
		st := newStore(t)

		if err := st.CreateRun(ctx, "dup"); err != nil {
			t.Fatalf("CreateRun failed: %v", err)
		}
		if err := st.CreateRun(ctx, "dup"); err == nil {
			t.Error("expected error for duplicate run ID")
		}
	})
}

func TestRunStatus_Terminal(t *testing.T) {
	tests := []struct {
		status RunStatus
		want   bool
	}{
		{RunPending, false},
		{RunRunning, false},
		{RunCompleted, true},
		{RunFailed, true},
	}
	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("%s.Terminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}
