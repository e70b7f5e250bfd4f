package graph

// Edge is a single citation: From cites To.
// Parallel edges between the same pair are kept; multiplicity matters for weighting.
type Edge struct {
	From string
	To   string
}

// Stats summarizes a graph snapshot.
type Stats struct {
	Nodes     int
	Edges     int
	SelfLoops int
	Sources   int
}
