package graph

import (
	"github.com/sieve-kg/sieve/pkg/common"
)

// Export is the node-link JSON view of a graph. It is a derived snapshot;
// mutating it has no effect on the Graph.
type Export struct {
	Nodes []common.GraphNode `json:"nodes"`
	Edges []common.GraphEdge `json:"edges"`
	Stats Stats              `json:"stats"`
}

// Stats summarizes the composition of a graph.
type Stats struct {
	NodeCount       int            `json:"node_count"`
	EdgeCount       int            `json:"edge_count"`
	NodesByKind     map[string]int `json:"nodes_by_kind"`
	EdgesByRelation map[string]int `json:"edges_by_relation"`
}

// Export produces the exportable snapshot. Node and edge order is
// deterministic for a fixed set of applied hypotheses, independent of
// application order.
func (g *Graph) Export() Export {
	nodes := g.Nodes()
	edges := g.Edges()

	stats := Stats{
		NodeCount:       len(nodes),
		EdgeCount:       len(edges),
		NodesByKind:     make(map[string]int),
		EdgesByRelation: make(map[string]int),
	}
	for _, node := range nodes {
		stats.NodesByKind[string(node.Kind)]++
	}
	for _, edge := range edges {
		stats.EdgesByRelation[string(edge.Relation)]++
	}

	return Export{Nodes: nodes, Edges: edges, Stats: stats}
}
