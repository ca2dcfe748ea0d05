package graph

import "sort"

// Topology is the static node/edge structure of a graph, independent of any
// run. It is a pure snapshot of the definition: calling Topology twice on the
// same engine yields identical values.
type Topology struct {
	// Start is the entry node ID.
	Start string `json:"start"`

	// Nodes lists all registered node IDs, sorted for stable output.
	Nodes []string `json:"nodes"`

	// Edges lists directed edges in registration order.
	Edges []TopologyEdge `json:"edges"`
}

// TopologyEdge is one directed edge in a Topology.
type TopologyEdge struct {
	From string `json:"from"`
	To   string `json:"to"`

	// Conditional is true when the edge carries a predicate.
	Conditional bool `json:"conditional"`
}

// Topology returns the graph definition for rendering and inspection.
func (e *Engine[S]) Topology() Topology {
	e.mu.RLock()
	defer e.mu.RUnlock()

	nodes := make([]string, 0, len(e.nodes))
	for id := range e.nodes {
		nodes = append(nodes, id)
	}
	sort.Strings(nodes)

	edges := make([]TopologyEdge, 0, len(e.edges))
	for _, edge := range e.edges {
		edges = append(edges, TopologyEdge{
			From:        edge.From,
			To:          edge.To,
			Conditional: edge.When != nil,
		})
	}

	return Topology{Start: e.startNode, Nodes: nodes, Edges: edges}
}
