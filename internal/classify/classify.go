// Package classify splits clusters into large and small by node count and
// finds the small clusters with no citation link to any large cluster.
package classify

import (
	"errors"
	"fmt"
	"slices"

	"citeclust/internal/graph"
	"citeclust/internal/partition"
)

// ErrInvalidThreshold is returned for a negative minimum cluster size.
var ErrInvalidThreshold = errors.New("invalid minimum cluster size")

// Classes is the frozen classification of one raw partition. It is read-only
// after Classify returns and safe to share across goroutines.
// Large and Small are sorted ascending; that order is the tie-break order downstream.
type Classes struct {
	nmin        int
	sizes       map[partition.ClusterID]int
	largeIDs    []partition.ClusterID
	smallIDs    []partition.ClusterID
	unmergeable map[partition.ClusterID]struct{}

	large map[partition.ClusterID]struct{}
	small map[partition.ClusterID]struct{}
}

// ValidateThreshold rejects negative thresholds.
func ValidateThreshold(nmin int) error {
	if nmin < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidThreshold, nmin)
	}
	return nil
}

// BySize classifies the clusters of p. A cluster with size >= nmin is large.
// nmin of 0 or 1 makes every cluster large. The sentinel is never classified.
func BySize(p partition.Partition, nmin int) (*Classes, error) {
	if err := ValidateThreshold(nmin); err != nil {
		return nil, err
	}

	sizes := p.Sizes()
	delete(sizes, partition.Unassigned)

	c := &Classes{
		nmin:        nmin,
		sizes:       sizes,
		largeIDs:    []partition.ClusterID{},
		smallIDs:    []partition.ClusterID{},
		unmergeable: make(map[partition.ClusterID]struct{}),
		large:       make(map[partition.ClusterID]struct{}),
		small:       make(map[partition.ClusterID]struct{}),
	}

	for _, id := range p.Clusters() {
		if sizes[id] >= nmin {
			c.largeIDs = append(c.largeIDs, id)
			c.large[id] = struct{}{}
		} else {
			c.smallIDs = append(c.smallIDs, id)
			c.small[id] = struct{}{}
		}
	}

	return c, nil
}

// Classify runs BySize and then marks unmergeable clusters against g.
func Classify(g *graph.Graph, p partition.Partition, nmin int) (*Classes, error) {
	c, err := BySize(p, nmin)
	if err != nil {
		return nil, err
	}
	if err := c.MarkUnmergeable(g, p); err != nil {
		return nil, err
	}
	return c, nil
}

// MarkUnmergeable scans g once for small<->large edges in either direction.
// Small clusters never seen on the small side of such an edge are unmergeable.
func (c *Classes) MarkUnmergeable(g *graph.Graph, p partition.Partition) error {
	linked := make(map[partition.ClusterID]struct{})

	for _, e := range g.Edges {
		from, err := p.Lookup(e.From)
		if err != nil {
			return err
		}
		to, err := p.Lookup(e.To)
		if err != nil {
			return err
		}

		switch {
		case c.IsSmall(from) && c.IsLarge(to):
			linked[from] = struct{}{}
		case c.IsLarge(from) && c.IsSmall(to):
			linked[to] = struct{}{}
		}
	}

	c.unmergeable = make(map[partition.ClusterID]struct{})
	for _, s := range c.smallIDs {
		if _, ok := linked[s]; !ok {
			c.unmergeable[s] = struct{}{}
		}
	}
	return nil
}

// IsLarge reports whether id is in the large set.
func (c *Classes) IsLarge(id partition.ClusterID) bool {
	_, ok := c.large[id]
	return ok
}

// IsSmall reports whether id is in the small set.
func (c *Classes) IsSmall(id partition.ClusterID) bool {
	_, ok := c.small[id]
	return ok
}

// IsUnmergeable reports whether id is small with no link to a large cluster.
func (c *Classes) IsUnmergeable(id partition.ClusterID) bool {
	_, ok := c.unmergeable[id]
	return ok
}

// NMin returns the threshold the clusters were classified with.
func (c *Classes) NMin() int {
	return c.nmin
}

// NumClusters returns the number of classified clusters, sentinel excluded.
func (c *Classes) NumClusters() int {
	return len(c.sizes)
}

// Size returns the node count of cluster id in the raw partition.
func (c *Classes) Size(id partition.ClusterID) int {
	return c.sizes[id]
}

// Large returns a copy of the large cluster ids, ascending.
func (c *Classes) Large() []partition.ClusterID {
	return slices.Clone(c.largeIDs)
}

// Small returns a copy of the small cluster ids, ascending.
func (c *Classes) Small() []partition.ClusterID {
	return slices.Clone(c.smallIDs)
}

// Unmergeable returns the unmergeable small cluster ids, ascending.
func (c *Classes) Unmergeable() []partition.ClusterID {
	out := make([]partition.ClusterID, 0, len(c.unmergeable))
	for _, s := range c.smallIDs {
		if c.IsUnmergeable(s) {
			out = append(out, s)
		}
	}
	return out
}

// Mergeable returns small clusters that are not unmergeable, ascending.
func (c *Classes) Mergeable() []partition.ClusterID {
	out := make([]partition.ClusterID, 0, len(c.smallIDs)-len(c.unmergeable))
	for _, s := range c.smallIDs {
		if !c.IsUnmergeable(s) {
			out = append(out, s)
		}
	}
	return out
}
