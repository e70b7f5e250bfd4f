// Package oracle produces the initial partition of a citation graph.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"citeclust/internal/graph"
	"citeclust/internal/partition"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// ErrInvalidResolution is returned for a negative resolution parameter.
var ErrInvalidResolution = errors.New("invalid resolution")

// Oracle assigns an initial cluster to every node of g.
type Oracle interface {
	Partition(ctx context.Context, g *graph.Graph, resolution float64) (partition.Partition, error)
}

// Func adapts a plain function to Oracle.
type Func func(ctx context.Context, g *graph.Graph, resolution float64) (partition.Partition, error)

// Partition calls f.
func (f Func) Partition(ctx context.Context, g *graph.Graph, resolution float64) (partition.Partition, error) {
	return f(ctx, g, resolution)
}

// CPM optimizes the Constant Potts Model on the citation graph taken as
// undirected. Parallel edges add weight; self-loops are ignored.
// Nodes are visited in sorted id order, so the result is reproducible.
type CPM struct {
	MaxSweeps int
	MaxLevels int
	logger    *zap.Logger
}

// NewCPM returns a CPM oracle with default iteration caps.
func NewCPM(logger *zap.Logger) *CPM {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CPM{MaxSweeps: 100, MaxLevels: 10, logger: logger}
}

// Partition runs local moving and connectivity refinement until no node moves.
// Cluster ids are dense, in first-encounter order of sorted node ids.
func (o *CPM) Partition(ctx context.Context, g *graph.Graph, resolution float64) (partition.Partition, error) {
	if resolution < 0 {
		return nil, fmt.Errorf("%w: %g", ErrInvalidResolution, resolution)
	}

	nodes := g.SortedNodes()
	wg := undirected(g, nodes)
	adj := adjacency(wg, len(nodes))
	comm := make([]int, len(nodes))
	for i := range comm {
		comm[i] = i
	}

	maxLevels := o.MaxLevels
	if maxLevels <= 0 {
		maxLevels = 1
	}

	for level := 0; level < maxLevels; level++ {
		moves, err := o.localMove(ctx, adj, comm, resolution)
		if err != nil {
			return nil, err
		}
		comm = refine(wg, comm)

		o.logger.Debug("CPM level done",
			zap.Int("level", level),
			zap.Int("moves", moves),
			zap.Int("communities", countCommunities(comm)))

		if moves == 0 {
			break
		}
	}

	p := make(partition.Partition, len(nodes))
	for i, n := range nodes {
		p[n] = partition.ClusterID(comm[i])
	}
	return p, nil
}

// neighbor is a weighted undirected link to another node index.
type neighbor struct {
	to     int
	weight float64
}

// undirected folds g into a weighted undirected graph over indices into nodes.
// Parallel and reciprocal citations add weight; self-loops are dropped.
func undirected(g *graph.Graph, nodes []string) *simple.WeightedUndirectedGraph {
	index := make(map[string]int64, len(nodes))
	for i, n := range nodes {
		index[n] = int64(i)
	}

	wg := simple.NewWeightedUndirectedGraph(0, 0)
	for i := range nodes {
		wg.AddNode(simple.Node(i))
	}
	for _, e := range g.Edges {
		u, v := index[e.From], index[e.To]
		if u == v {
			continue
		}
		w := 1.0
		if prev, ok := wg.Weight(u, v); ok {
			w += prev
		}
		wg.SetWeightedEdge(wg.NewWeightedEdge(simple.Node(u), simple.Node(v), w))
	}
	return wg
}

// adjacency flattens wg into rows sorted by neighbor index, so sweeps do not
// depend on map iteration order.
func adjacency(wg *simple.WeightedUndirectedGraph, n int) [][]neighbor {
	adj := make([][]neighbor, n)
	for u := 0; u < n; u++ {
		it := wg.From(int64(u))
		row := make([]neighbor, 0, it.Len())
		for it.Next() {
			v := it.Node().ID()
			w, _ := wg.Weight(int64(u), v)
			row = append(row, neighbor{to: int(v), weight: w})
		}
		sort.Slice(row, func(i, j int) bool { return row[i].to < row[j].to })
		adj[u] = row
	}
	return adj
}

const gainEps = 1e-12

// localMove sweeps nodes in index order, moving each to the community with the
// best CPM gain k_in(c) - resolution*|c|. Returns the number of accepted moves.
func (o *CPM) localMove(ctx context.Context, adj [][]neighbor, comm []int, resolution float64) (int, error) {
	n := len(comm)
	size := make([]int, n)
	for _, c := range comm {
		size[c]++
	}
	var empty []int
	for c := n - 1; c >= 0; c-- {
		if size[c] == 0 {
			empty = append(empty, c)
		}
	}

	maxSweeps := o.MaxSweeps
	if maxSweeps <= 0 {
		maxSweeps = 1 << 30
	}

	kin := make(map[int]float64)
	var seen []int

	total := 0
	for sweep := 0; sweep < maxSweeps; sweep++ {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		moves := 0
		for i := 0; i < n; i++ {
			curr := comm[i]
			size[curr]--

			clear(kin)
			seen = seen[:0]
			for _, nb := range adj[i] {
				c := comm[nb.to]
				if _, ok := kin[c]; !ok {
					seen = append(seen, c)
				}
				kin[c] += nb.weight
			}

			best := curr
			bestGain := kin[curr] - resolution*float64(size[curr])
			for _, c := range seen {
				if c == curr {
					continue
				}
				if gain := kin[c] - resolution*float64(size[c]); gain > bestGain+gainEps {
					best, bestGain = c, gain
				}
			}

			// A fresh singleton gains exactly 0.
			if size[curr] > 0 && bestGain < -gainEps && len(empty) > 0 {
				best = empty[len(empty)-1]
				empty = empty[:len(empty)-1]
			}

			if best != curr {
				comm[i] = best
				moves++
				if size[curr] == 0 {
					empty = append(empty, curr)
				}
			}
			size[best]++
		}

		total += moves
		if moves == 0 {
			break
		}
	}
	return total, nil
}

// refine splits each community into its connected components and relabels
// them consecutively in order of their lowest node index.
func refine(wg *simple.WeightedUndirectedGraph, comm []int) []int {
	intra := simple.NewUndirectedGraph()
	for i := range comm {
		intra.AddNode(simple.Node(i))
	}
	edges := wg.Edges()
	for edges.Next() {
		e := edges.Edge()
		if comm[e.From().ID()] == comm[e.To().ID()] {
			intra.SetEdge(intra.NewEdge(e.From(), e.To()))
		}
	}

	type component struct {
		lowest int64
		ids    []int64
	}
	var parts []component
	for _, cc := range topo.ConnectedComponents(intra) {
		c := component{lowest: cc[0].ID(), ids: make([]int64, 0, len(cc))}
		for _, n := range cc {
			id := n.ID()
			c.ids = append(c.ids, id)
			if id < c.lowest {
				c.lowest = id
			}
		}
		parts = append(parts, c)
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].lowest < parts[j].lowest })

	refined := make([]int, len(comm))
	for label, c := range parts {
		for _, id := range c.ids {
			refined[id] = label
		}
	}
	return refined
}

func countCommunities(comm []int) int {
	seen := make(map[int]struct{})
	for _, c := range comm {
		seen[c] = struct{}{}
	}
	return len(seen)
}
