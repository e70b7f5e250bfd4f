package graph

import "sort"

// Graph is an ordered, weighted, directed citation multigraph.
// It is built once and treated as read-only afterwards.
type Graph struct {
	Edges []Edge

	// Node index: ID -> position in first-encounter order.
	index map[string]int
	order []string

	outDegree map[string]int
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		Edges:     []Edge{},
		index:     make(map[string]int),
		order:     []string{},
		outDegree: make(map[string]int),
	}
}

// FromEdges builds a graph from an ordered edge list.
func FromEdges(edges []Edge) *Graph {
	g := NewGraph()
	for _, e := range edges {
		g.AddEdge(e.From, e.To)
	}
	return g
}

// AddNode registers a node without edges. Isolated nodes still need a cluster.
func (g *Graph) AddNode(id string) {
	if _, ok := g.index[id]; ok {
		return
	}
	g.index[id] = len(g.order)
	g.order = append(g.order, id)
}

// AddEdge appends a citation from -> to.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	g.Edges = append(g.Edges, Edge{From: from, To: to})
	g.outDegree[from]++
}

// HasNode reports whether id appears in the graph.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.index[id]
	return ok
}

// NumNodes returns the number of distinct nodes.
func (g *Graph) NumNodes() int {
	return len(g.order)
}

// Nodes returns node IDs in first-encounter order.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// SortedNodes returns node IDs in ascending order.
func (g *Graph) SortedNodes() []string {
	out := g.Nodes()
	sort.Strings(out)
	return out
}

// OutDegree is the number of edges id creates as citer, self-loops included.
func (g *Graph) OutDegree(id string) int {
	return g.outDegree[id]
}

// FractionalWeight returns 1/out-degree of source, or 0 if source cites nothing.
func (g *Graph) FractionalWeight(source string) float64 {
	d := g.outDegree[source]
	if d == 0 {
		return 0
	}
	return 1 / float64(d)
}
