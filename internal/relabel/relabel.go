// Package relabel applies the small-to-large mapping and renumbers the
// surviving clusters densely.
package relabel

import (
	"sort"

	"citeclust/internal/classify"
	"citeclust/internal/consolidate"
	"citeclust/internal/partition"
)

// Result is the terminal artifact of a consolidation pass.
type Result struct {
	Partition partition.Partition
	// K is the number of surviving clusters; final ids are 0..K-1.
	K int
	// Sizes is indexed by final id.
	Sizes []int
	// Labels maps pre-relabel cluster id to final id.
	Labels map[partition.ClusterID]partition.ClusterID
}

// Merge maps each node to its post-merge cluster without renumbering.
// Large clusters keep their id, mapped small clusters take their target,
// and unmergeable or unmapped small clusters become Unassigned. raw is not modified.
func Merge(raw partition.Partition, classes *classify.Classes, mapping consolidate.Mapping) partition.Partition {
	merged := make(partition.Partition, len(raw))
	for node, c := range raw {
		switch {
		case c == partition.Unassigned:
			merged[node] = partition.Unassigned
		case classes.IsLarge(c):
			merged[node] = c
		default:
			if target, ok := mapping[c]; ok {
				merged[node] = target
			} else {
				merged[node] = partition.Unassigned
			}
		}
	}
	return merged
}

// Renumber assigns dense ids 0..K-1 by descending size, ties by ascending old id.
// Unassigned nodes keep -1 and are not counted in K.
func Renumber(p partition.Partition) Result {
	sizes := p.Sizes()
	delete(sizes, partition.Unassigned)

	ids := make([]partition.ClusterID, 0, len(sizes))
	for id := range sizes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if sizes[ids[i]] != sizes[ids[j]] {
			return sizes[ids[i]] > sizes[ids[j]]
		}
		return ids[i] < ids[j]
	})

	res := Result{
		Partition: make(partition.Partition, len(p)),
		K:         len(ids),
		Sizes:     make([]int, len(ids)),
		Labels:    make(map[partition.ClusterID]partition.ClusterID, len(ids)),
	}
	for rank, id := range ids {
		res.Labels[id] = partition.ClusterID(rank)
		res.Sizes[rank] = sizes[id]
	}

	for node, c := range p {
		if c == partition.Unassigned {
			res.Partition[node] = partition.Unassigned
			continue
		}
		res.Partition[node] = res.Labels[c]
	}
	return res
}

// Apply is Merge followed by Renumber.
func Apply(raw partition.Partition, classes *classify.Classes, mapping consolidate.Mapping) Result {
	return Renumber(Merge(raw, classes, mapping))
}
