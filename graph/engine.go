package graph

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gokul-gopan-k/agent-recommender/graph/emit"
	"github.com/gokul-gopan-k/agent-recommender/graph/store"
)

// Reducer merges a node's partial state update into the current run state.
//
// The reducer is the write-ownership gate: it copies only the fields a delta
// actually set, so a node cannot clobber slots owned by other nodes.
type Reducer[S any] func(prev, delta S) S

// CauseCancelled is recorded as the failure cause when a run is abandoned
// because the caller's context was cancelled.
const CauseCancelled = "cancelled"

// Options configures engine execution behavior. Zero values are valid.
type Options struct {
	// MaxSteps bounds the number of node executions per run, guarding
	// against routing cycles. 0 disables the limit.
	MaxSteps int

	// NodeTimeout bounds each node execution. 0 disables the per-node
	// deadline; external-service nodes should always run with one.
	NodeTimeout time.Duration

	// Retry configures automatic retry of transient node failures.
	// Nil disables retries.
	Retry *RetryPolicy
}

// Engine executes a directed graph of nodes over a shared run state.
//
// The engine owns the run lifecycle (pending -> running -> completed|failed),
// threads one state value through the nodes in dependency order, persists a
// snapshot after every completed node, and records the failing node and cause
// when a run halts. The graph definition is immutable once runs start and is
// safely shared by concurrent runs; each run's state is run-local.
//
// Routing is resolved per node: an explicit NodeResult.Route wins, otherwise
// the first matching outgoing edge is followed. Keeping routing in the edge
// list (rather than hardcoding the chain) is what lets the same engine carry
// the conditional shortcuts the recommendation graph needs.
type Engine[S any] struct {
	mu sync.RWMutex

	reducer   Reducer[S]
	nodes     map[string]Node[S]
	edges     []Edge[S]
	startNode string

	store   store.Store[S]
	emitter emit.Emitter
	metrics *Metrics
	opts    Options
}

// New creates an Engine.
//
// The reducer and store are required for Run; the emitter and metrics are
// optional and may be nil. Validation happens when Run is called so graphs
// can be assembled incrementally.
func New[S any](reducer Reducer[S], st store.Store[S], emitter emit.Emitter, opts Options) *Engine[S] {
	return &Engine[S]{
		reducer: reducer,
		nodes:   make(map[string]Node[S]),
		edges:   make([]Edge[S], 0),
		store:   st,
		emitter: emitter,
		opts:    opts,
	}
}

// WithMetrics attaches a Prometheus metrics collector. Returns the engine for
// chaining during assembly.
func (e *Engine[S]) WithMetrics(m *Metrics) *Engine[S] {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.metrics = m
	return e
}

// Add registers a node under a unique ID.
func (e *Engine[S]) Add(nodeID string, node Node[S]) error {
	if nodeID == "" {
		return &EngineError{Message: "node ID cannot be empty"}
	}
	if node == nil {
		return &EngineError{Message: "node cannot be nil"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.nodes[nodeID]; exists {
		return &EngineError{Message: "duplicate node ID: " + nodeID, Code: "DUPLICATE_NODE"}
	}

	e.nodes[nodeID] = node
	return nil
}

// StartAt sets the entry node. The node must already be registered.
func (e *Engine[S]) StartAt(nodeID string) error {
	if nodeID == "" {
		return &EngineError{Message: "start node ID cannot be empty"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.nodes[nodeID]; !exists {
		return &EngineError{Message: "start node does not exist: " + nodeID, Code: "NODE_NOT_FOUND"}
	}

	e.startNode = nodeID
	return nil
}

// Connect adds an edge between two nodes. A nil predicate makes the edge
// unconditional. Edges are evaluated in registration order, first match wins,
// so register conditional shortcuts before the unconditional fallback.
func (e *Engine[S]) Connect(from, to string, predicate Predicate[S]) error {
	if from == "" {
		return &EngineError{Message: "from node ID cannot be empty"}
	}
	if to == "" {
		return &EngineError{Message: "to node ID cannot be empty"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.edges = append(e.edges, Edge[S]{From: from, To: to, When: predicate})
	return nil
}

// Run executes the workflow for one run from the start node to completion or
// failure.
//
// The run is registered in the store before the first node executes and its
// status is updated as execution progresses. After each node completes its
// merged state is persisted as a snapshot; the snapshot history is therefore
// exactly the list of nodes that fully completed, in completion order. A
// failing node halts the run: its name and the error cause are recorded on
// the run, no snapshot is taken for it, and downstream nodes never execute.
//
// Run is synchronous: when it returns, the run is terminal (completed or
// failed), never left running.
func (e *Engine[S]) Run(ctx context.Context, runID string, initial S) (S, error) {
	var zero S

	if err := e.validate(); err != nil {
		return zero, err
	}
	if runID == "" {
		return zero, &EngineError{Message: "run ID cannot be empty"}
	}

	if err := e.store.CreateRun(ctx, runID); err != nil {
		return zero, &EngineError{Message: "failed to register run: " + err.Error(), Code: "STORE_ERROR"}
	}
	if err := e.store.SetStatus(ctx, runID, store.RunRunning, "", ""); err != nil {
		return zero, &EngineError{Message: "failed to update run status: " + err.Error(), Code: "STORE_ERROR"}
	}

	e.metrics.RunStarted()
	defer e.metrics.RunEnded()
	e.emit(emit.Event{RunID: runID, Msg: "run started", NodeID: e.startNode})

	currentState := initial
	currentNode := e.startNode
	step := 0

	for {
		step++

		if e.opts.MaxSteps > 0 && step > e.opts.MaxSteps {
			err := &EngineError{Message: "run exceeded MaxSteps limit", Code: "MAX_STEPS_EXCEEDED"}
			e.failRun(ctx, runID, currentNode, err)
			return zero, err
		}

		if err := ctx.Err(); err != nil {
			e.failRun(ctx, runID, currentNode, errors.New(CauseCancelled))
			return zero, err
		}

		e.mu.RLock()
		nodeImpl, exists := e.nodes[currentNode]
		e.mu.RUnlock()

		if !exists {
			err := &EngineError{Message: "node not found during execution: " + currentNode, Code: "NODE_NOT_FOUND"}
			e.failRun(ctx, runID, currentNode, err)
			return zero, err
		}

		started := time.Now()
		result := e.runNodeWithRetry(ctx, runID, currentNode, nodeImpl, currentState, step)

		if result.Err != nil {
			e.metrics.StepObserved(currentNode, "error", time.Since(started))
			if ctxErr := ctx.Err(); ctxErr != nil {
				e.failRun(ctx, runID, currentNode, errors.New(CauseCancelled))
				return zero, ctxErr
			}
			e.failRun(ctx, runID, currentNode, result.Err)
			var nodeErr *NodeError
			if errors.As(result.Err, &nodeErr) && nodeErr.NodeID == currentNode {
				return zero, result.Err
			}
			return zero, &NodeError{NodeID: currentNode, Cause: result.Err}
		}

		currentState = e.reducer(currentState, result.Delta)

		if err := e.store.SaveStep(ctx, runID, step, currentNode, currentState); err != nil {
			storeErr := &EngineError{Message: "failed to save snapshot: " + err.Error(), Code: "STORE_ERROR"}
			e.failRun(ctx, runID, currentNode, storeErr)
			return zero, storeErr
		}

		e.metrics.StepObserved(currentNode, "success", time.Since(started))
		e.emit(emit.Event{RunID: runID, Step: step, NodeID: currentNode, Msg: "node completed"})

		if result.Route.Terminal {
			if err := e.store.SetStatus(ctx, runID, store.RunCompleted, "", ""); err != nil {
				return zero, &EngineError{Message: "failed to complete run: " + err.Error(), Code: "STORE_ERROR"}
			}
			e.metrics.RunFinished("completed")
			e.emit(emit.Event{RunID: runID, Step: step, NodeID: currentNode, Msg: "run completed"})
			return currentState, nil
		}

		if result.Route.To != "" {
			currentNode = result.Route.To
			continue
		}

		nextNode := e.evaluateEdges(currentNode, currentState)
		if nextNode == "" {
			err := &EngineError{Message: "no valid route from node: " + currentNode, Code: "NO_ROUTE"}
			e.failRun(ctx, runID, currentNode, err)
			return zero, err
		}

		currentNode = nextNode
	}
}

// runNodeWithRetry executes one node, retrying transient failures per the
// engine's retry policy. Backoff waits respect context cancellation.
func (e *Engine[S]) runNodeWithRetry(ctx context.Context, runID, nodeID string, node Node[S], state S, step int) NodeResult[S] {
	attempts := 1
	if e.opts.Retry != nil && e.opts.Retry.MaxAttempts > attempts {
		attempts = e.opts.Retry.MaxAttempts
	}

	var result NodeResult[S]
	for attempt := 0; attempt < attempts; attempt++ {
		result = executeNodeWithTimeout(ctx, node, nodeID, state, e.opts.NodeTimeout)
		if result.Err == nil {
			return result
		}

		retry := e.opts.Retry
		if retry == nil || retry.Retryable == nil || !retry.Retryable(result.Err) {
			return result
		}
		if attempt+1 >= attempts {
			return result
		}

		e.metrics.RetryRecorded(nodeID)
		e.emit(emit.Event{
			RunID:  runID,
			Step:   step,
			NodeID: nodeID,
			Msg:    "node retry",
			Meta:   map[string]interface{}{"attempt": attempt + 1, "error": result.Err.Error()},
		})

		delay := computeBackoff(attempt, retry.BaseDelay, retry.MaxDelay)
		select {
		case <-ctx.Done():
			result.Err = ctx.Err()
			return result
		case <-time.After(delay):
		}
	}

	return result
}

// failRun marks the run failed with the responsible node and cause. The
// status write uses a detached context so it survives caller cancellation;
// snapshots already appended stay intact.
func (e *Engine[S]) failRun(ctx context.Context, runID, nodeID string, cause error) {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}

	detached := context.WithoutCancel(ctx)
	if err := e.store.SetStatus(detached, runID, store.RunFailed, nodeID, msg); err != nil {
		e.emit(emit.Event{RunID: runID, NodeID: nodeID, Msg: "failed to record run failure", Meta: map[string]interface{}{"error": err.Error()}})
	}

	e.metrics.RunFinished("failed")
	e.emit(emit.Event{RunID: runID, NodeID: nodeID, Msg: "run failed", Meta: map[string]interface{}{"cause": msg}})
}

// evaluateEdges returns the first matching outgoing edge destination, or ""
// when no edge matches.
func (e *Engine[S]) evaluateEdges(fromNode string, state S) string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, edge := range e.edges {
		if edge.From != fromNode {
			continue
		}
		if edge.When == nil || edge.When(state) {
			return edge.To
		}
	}
	return ""
}

func (e *Engine[S]) validate() error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.reducer == nil {
		return &EngineError{Message: "reducer is required", Code: "MISSING_REDUCER"}
	}
	if e.store == nil {
		return &EngineError{Message: "store is required", Code: "MISSING_STORE"}
	}
	if e.startNode == "" {
		return &EngineError{Message: "start node not set (call StartAt before Run)", Code: "NO_START_NODE"}
	}
	if _, exists := e.nodes[e.startNode]; !exists {
		return &EngineError{Message: "start node does not exist: " + e.startNode, Code: "NODE_NOT_FOUND"}
	}
	if e.opts.Retry != nil {
		if err := e.opts.Retry.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine[S]) emit(event emit.Event) {
	if e.emitter != nil {
		e.emitter.Emit(event)
	}
}

// EngineError is an error from engine configuration or execution plumbing.
type EngineError struct {
	Message string
	Code    string
}

func (e *EngineError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}
