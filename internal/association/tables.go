// Package association aggregates citation edges into cluster-pair strengths.
package association

import (
	"citeclust/internal/graph"
	"citeclust/internal/partition"
)

// Pair is a directed (source-cluster, target-cluster) key.
type Pair struct {
	From partition.ClusterID
	To   partition.ClusterID
}

// Tables holds the Association Table and the Edge-Count Table.
// Both are keyed by the directed insertion pair and must not be mutated after Build.
type Tables struct {
	weight map[Pair]float64
	count  map[Pair]int
}

// Build aggregates every edge of g under the cluster pair given by p.
// Edges are visited in graph order so float accumulation is reproducible.
// Same-cluster edges are aggregated too; nothing ever queries them.
func Build(g *graph.Graph, p partition.Partition) (*Tables, error) {
	t := &Tables{
		weight: make(map[Pair]float64),
		count:  make(map[Pair]int),
	}

	for _, e := range g.Edges {
		from, err := p.Lookup(e.From)
		if err != nil {
			return nil, err
		}
		to, err := p.Lookup(e.To)
		if err != nil {
			return nil, err
		}

		key := Pair{From: from, To: to}
		t.weight[key] += g.FractionalWeight(e.From)
		t.count[key]++
	}

	return t, nil
}

// Weight returns the directed fractional weight sum for (from, to).
func (t *Tables) Weight(from, to partition.ClusterID) (float64, bool) {
	w, ok := t.weight[Pair{From: from, To: to}]
	return w, ok
}

// Count returns the directed raw edge count for (from, to).
func (t *Tables) Count(from, to partition.ClusterID) (int, bool) {
	n, ok := t.count[Pair{From: from, To: to}]
	return n, ok
}

// Association looks up (a,b), then (b,a). Missing in both orders is 0.
func (t *Tables) Association(a, b partition.ClusterID) float64 {
	if w, ok := t.weight[Pair{From: a, To: b}]; ok {
		return w
	}
	if w, ok := t.weight[Pair{From: b, To: a}]; ok {
		return w
	}
	return 0
}

// EdgeCount looks up (a,b), then (b,a). Missing in both orders is 1.
func (t *Tables) EdgeCount(a, b partition.ClusterID) int {
	if n, ok := t.count[Pair{From: a, To: b}]; ok {
		return n
	}
	if n, ok := t.count[Pair{From: b, To: a}]; ok {
		return n
	}
	return 1
}

// Score is Association / EdgeCount: the mean fractional weight per realizing edge.
// A pair with no edges scores exactly 0.
func (t *Tables) Score(small, large partition.ClusterID) float64 {
	return t.Association(small, large) / float64(t.EdgeCount(small, large))
}
