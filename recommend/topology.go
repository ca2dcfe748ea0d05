package recommend

import (
	"fmt"
	"strings"

	"github.com/gokul-gopan-k/agent-recommender/graph"
)

// TopologyDescription is the renderable view of the static workflow graph:
// its nodes, directed edges, and a mermaid diagram of the same. It is a pure
// function of the graph definition and identical on every call within a
// process lifetime.
type TopologyDescription struct {
	Start   string               `json:"start"`
	Nodes   []string             `json:"nodes"`
	Edges   []graph.TopologyEdge `json:"edges"`
	Mermaid string               `json:"mermaid"`
}

// Topology renders the workflow graph definition.
func (s *Service) Topology() TopologyDescription {
	topo := s.engine.Topology()
	return TopologyDescription{
		Start:   topo.Start,
		Nodes:   topo.Nodes,
		Edges:   topo.Edges,
		Mermaid: mermaid(topo),
	}
}

// mermaid renders the topology as a mermaid flowchart. Conditional edges are
// drawn dashed.
func mermaid(topo graph.Topology) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	sb.WriteString(fmt.Sprintf("    __start__([start]) --> %s\n", topo.Start))
	for _, edge := range topo.Edges {
		arrow := "-->"
		if edge.Conditional {
			arrow = "-.->"
		}
		sb.WriteString(fmt.Sprintf("    %s %s %s\n", edge.From, arrow, edge.To))
	}
	sb.WriteString(fmt.Sprintf("    %s --> __end__([end])\n", NodeFormatResponse))
	return sb.String()
}
