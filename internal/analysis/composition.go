package analysis

import (
	"sort"

	"citeclust/internal/consolidate"
	"citeclust/internal/partition"
)

// ClusterSummary describes how one final cluster was assembled.
type ClusterSummary struct {
	Final    partition.ClusterID   // id in the final partition
	Origin   partition.ClusterID   // the large raw cluster it descends from
	Size     int                   // final node count
	Absorbed []partition.ClusterID // small raw clusters merged into it, ascending
	Gained   int                   // nodes contributed by absorbed clusters
}

// Composition summarizes the clusters of one run.
type Composition struct {
	Clusters   []ClusterSummary // ordered by final id
	Unassigned int
	Dropped    []partition.ClusterID // small raw clusters mapped to the sentinel
}

// Analyzer relates a raw partition, its merge mapping and the final partition.
type Analyzer struct {
	raw    partition.Partition
	final  partition.Partition
	merges consolidate.Mapping
}

// NewAnalyzer creates a new analyzer.
func NewAnalyzer(raw, final partition.Partition, merges consolidate.Mapping) *Analyzer {
	return &Analyzer{raw: raw, final: final, merges: merges}
}

// Compose traces every final cluster back to its raw origin.
func (a *Analyzer) Compose() *Composition {
	rawSizes := a.raw.Sizes()
	comp := &Composition{Unassigned: a.final.CountUnassigned()}

	byFinal := make(map[partition.ClusterID]*ClusterSummary)
	for node, f := range a.final {
		if f == partition.Unassigned {
			continue
		}
		s, ok := byFinal[f]
		if !ok {
			s = &ClusterSummary{Final: f, Origin: partition.Unassigned}
			byFinal[f] = s
		}
		s.Size++

		r := a.raw[node]
		if _, merged := a.merges[r]; !merged {
			s.Origin = r
		}
	}

	// Absorbed lists come from the mapping, not the nodes, so each small
	// cluster is listed once.
	originToFinal := make(map[partition.ClusterID]partition.ClusterID, len(byFinal))
	for f, s := range byFinal {
		originToFinal[s.Origin] = f
	}
	smalls := make([]partition.ClusterID, 0, len(a.merges))
	for small := range a.merges {
		smalls = append(smalls, small)
	}
	partition.SortIDs(smalls)

	for _, small := range smalls {
		large := a.merges[small]
		if large == partition.Unassigned {
			comp.Dropped = append(comp.Dropped, small)
			continue
		}
		if f, ok := originToFinal[large]; ok {
			s := byFinal[f]
			s.Absorbed = append(s.Absorbed, small)
			s.Gained += rawSizes[small]
		}
	}

	comp.Clusters = make([]ClusterSummary, 0, len(byFinal))
	for _, s := range byFinal {
		comp.Clusters = append(comp.Clusters, *s)
	}
	sort.Slice(comp.Clusters, func(i, j int) bool { return comp.Clusters[i].Final < comp.Clusters[j].Final })
	return comp
}
