package graph

import "context"

// Node is one processing stage in the workflow graph.
//
// A node receives the current run state, performs its work (an LLM call,
// deterministic post-processing, or anything else), and returns a NodeResult
// carrying a partial state update. A node must only populate the state fields
// it owns; the engine merges the delta into the run state via the reducer.
//
// Type parameter S is the state type shared across the workflow.
type Node[S any] interface {
	// Run executes the node's logic with the given context and state.
	Run(ctx context.Context, state S) NodeResult[S]
}

// NodeResult is the output of a single node execution.
type NodeResult[S any] struct {
	// Delta is the partial state update produced by this node. It is merged
	// into the current state using the engine's reducer.
	Delta S

	// Route optionally overrides edge-based routing. The zero value defers
	// the next-hop decision to the graph's edge list, which is the normal
	// mode for nodes that should not know the topology they live in.
	Route Next

	// Err halts the run. The engine marks the run failed with this node's
	// name and the error as the cause; no snapshot is taken for the node.
	Err error
}

// Next specifies the next hop after a node completes.
//
// Routing precedence: Terminal stops the run, To jumps to a named node, and
// the zero value falls back to the edge list.
type Next struct {
	// To names the next node to execute. Mutually exclusive with Terminal.
	To string

	// Terminal marks the run complete.
	Terminal bool
}

// Stop returns a Next that terminates the run.
func Stop() Next {
	return Next{Terminal: true}
}

// Goto returns a Next that routes to the named node.
func Goto(nodeID string) Next {
	return Next{To: nodeID}
}

// NodeFunc adapts a plain function to the Node interface.
type NodeFunc[S any] func(ctx context.Context, state S) NodeResult[S]

// Run implements Node.
func (f NodeFunc[S]) Run(ctx context.Context, state S) NodeResult[S] {
	return f(ctx, state)
}

// NodeError is a structured error produced during node execution. The engine
// records NodeID and the wrapped cause on the run so failures are attributable
// to a specific stage.
type NodeError struct {
	NodeID string
	Code   string
	Cause  error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	msg := e.Code
	if e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.NodeID != "" {
		return "node " + e.NodeID + ": " + msg
	}
	return msg
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *NodeError) Unwrap() error {
	return e.Cause
}
