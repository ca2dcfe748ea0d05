// Package graph provides the workflow engine that sequences recommendation
// stages: a directed graph of named nodes, predicate edges, reducer-merged
// state deltas, and per-step state snapshots persisted through a store.
package graph

// Edge is a directed connection between two nodes.
//
// Edges are either unconditional (When == nil, always traversed) or
// conditional (traversed only when the predicate holds for the current
// state). At runtime the engine evaluates a node's outgoing edges in
// registration order and follows the first match, so conditional shortcuts
// must be registered before the unconditional fallback.
type Edge[S any] struct {
	// From is the source node ID.
	From string

	// To is the destination node ID.
	To string

	// When guards the edge. Nil means unconditional.
	When Predicate[S]
}

// Predicate decides whether an edge is traversed for a given state.
//
// Predicates must be pure: deterministic and free of side effects, so the
// same state always routes the same way.
type Predicate[S any] func(state S) bool
