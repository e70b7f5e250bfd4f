package partition

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// ClusterID labels a cluster. Only equality matters until relabeling.
type ClusterID int64

// Unassigned marks nodes that belong to no surviving cluster.
const Unassigned ClusterID = -1

// ErrMissingAssignment is returned when a graph node has no cluster.
var ErrMissingAssignment = errors.New("missing cluster assignment")

// Partition maps every node to exactly one cluster.
type Partition map[string]ClusterID

// Lookup returns the cluster of node, failing with ErrMissingAssignment.
func (p Partition) Lookup(node string) (ClusterID, error) {
	c, ok := p[node]
	if !ok {
		return Unassigned, fmt.Errorf("%w: node %q", ErrMissingAssignment, node)
	}
	return c, nil
}

// Sizes counts nodes per cluster. The sentinel is counted like any other key.
func (p Partition) Sizes() map[ClusterID]int {
	sizes := make(map[ClusterID]int)
	for _, c := range p {
		sizes[c]++
	}
	return sizes
}

// Clusters returns the distinct non-sentinel cluster ids in ascending order.
func (p Partition) Clusters() []ClusterID {
	seen := make(map[ClusterID]struct{})
	for _, c := range p {
		if c != Unassigned {
			seen[c] = struct{}{}
		}
	}
	out := make([]ClusterID, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	SortIDs(out)
	return out
}

// CountUnassigned returns how many nodes carry the sentinel.
func (p Partition) CountUnassigned() int {
	n := 0
	for _, c := range p {
		if c == Unassigned {
			n++
		}
	}
	return n
}

// Nodes returns node ids in ascending order.
func (p Partition) Nodes() []string {
	out := make([]string, 0, len(p))
	for n := range p {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Covers checks that every node in nodes is assigned.
func (p Partition) Covers(nodes []string) error {
	for _, n := range nodes {
		if _, err := p.Lookup(n); err != nil {
			return err
		}
	}
	return nil
}

// SortIDs sorts cluster ids ascending in place.
func SortIDs(ids []ClusterID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

// WriteCSV writes "node,cluster" rows sorted by node id.
func (p Partition) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"node", "cluster"}); err != nil {
		return err
	}
	for _, n := range p.Nodes() {
		if err := cw.Write([]string{n, strconv.FormatInt(int64(p[n]), 10)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
