package graph

// Stats reports node, edge and self-loop counts.
func (g *Graph) Stats() Stats {
	if g == nil {
		return Stats{}
	}
	s := Stats{
		Nodes:   len(g.order),
		Edges:   len(g.Edges),
		Sources: len(g.outDegree),
	}
	for _, e := range g.Edges {
		if e.From == e.To {
			s.SelfLoops++
		}
	}
	return s
}
