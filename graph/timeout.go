package graph

import (
	"context"
	"fmt"
	"time"
)

// executeNodeWithTimeout wraps a node execution in a bounded context.
//
// With a zero timeout the node runs against the parent context directly.
// Otherwise the node gets a deadline. A node that respected the deadline
// returns its own error, which is kept intact so retry predicates and error
// classification see the node's wrapping; only when the node swallowed the
// context error and reported success is a NodeError with code "NODE_TIMEOUT"
// synthesized, so the failure stays attributable.
func executeNodeWithTimeout[S any](
	ctx context.Context,
	node Node[S],
	nodeID string,
	state S,
	timeout time.Duration,
) NodeResult[S] {
	if timeout <= 0 {
		return node.Run(ctx, state)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := node.Run(timeoutCtx, state)

	if result.Err == nil && timeoutCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
		result.Err = &NodeError{
			NodeID: nodeID,
			Code:   "NODE_TIMEOUT",
			Cause:  fmt.Errorf("node %s exceeded timeout of %v: %w", nodeID, timeout, context.DeadlineExceeded),
		}
	}

	return result
}
