package classify

import (
	"testing"

	"citeclust/internal/graph"
	"citeclust/internal/partition"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBySize(t *testing.T) {
	p := partition.Partition{"a": 7, "b": 7, "c": 3, "d": 9, "e": 9, "f": 9, "g": partition.Unassigned}

	tests := []struct {
		name      string
		nmin      int
		wantLarge []partition.ClusterID
		wantSmall []partition.ClusterID
	}{
		{"zero makes everything large", 0, []partition.ClusterID{3, 7, 9}, []partition.ClusterID{}},
		{"one makes everything large", 1, []partition.ClusterID{3, 7, 9}, []partition.ClusterID{}},
		{"threshold is inclusive", 2, []partition.ClusterID{7, 9}, []partition.ClusterID{3}},
		{"three", 3, []partition.ClusterID{9}, []partition.ClusterID{3, 7}},
		{"above total node count", 100, []partition.ClusterID{}, []partition.ClusterID{3, 7, 9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := BySize(p, tt.nmin)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLarge, c.Large())
			assert.Equal(t, tt.wantSmall, c.Small())

			// Disjoint and exhaustive, sentinel excluded.
			assert.Equal(t, 3, len(c.Large())+len(c.Small()))
			assert.False(t, c.IsLarge(partition.Unassigned))
			assert.False(t, c.IsSmall(partition.Unassigned))
			for _, id := range c.Large() {
				assert.False(t, c.IsSmall(id))
			}
		})
	}
}

func TestBySize_NegativeThreshold(t *testing.T) {
	_, err := BySize(partition.Partition{"a": 0}, -1)
	assert.ErrorIs(t, err, ErrInvalidThreshold)
}

func TestClassify_Unmergeable(t *testing.T) {
	// Clusters: 0 large {a,b}, 1 small {c} linked via incoming edge,
	// 2 small {d} linked via outgoing edge, 3 small {e} only linked to small 1.
	g := graph.FromEdges([]graph.Edge{
		{From: "a", To: "c"},
		{From: "d", To: "b"},
		{From: "e", To: "c"},
		{From: "a", To: "b"},
	})
	p := partition.Partition{"a": 0, "b": 0, "c": 1, "d": 2, "e": 3}

	c, err := Classify(g, p, 2)
	require.NoError(t, err)

	assert.Equal(t, []partition.ClusterID{0}, c.Large())
	assert.Equal(t, []partition.ClusterID{1, 2, 3}, c.Small())
	assert.True(t, c.IsUnmergeable(3))
	assert.False(t, c.IsUnmergeable(1))
	assert.False(t, c.IsUnmergeable(2))
	assert.Equal(t, []partition.ClusterID{3}, c.Unmergeable())
	assert.Equal(t, []partition.ClusterID{1, 2}, c.Mergeable())
}

func TestClassify_NoLargeClusters(t *testing.T) {
	g := graph.FromEdges([]graph.Edge{{From: "a", To: "b"}})
	p := partition.Partition{"a": 0, "b": 1}

	c, err := Classify(g, p, 5)
	require.NoError(t, err)
	assert.Empty(t, c.Large())
	assert.Equal(t, []partition.ClusterID{0, 1}, c.Unmergeable())
	assert.Empty(t, c.Mergeable())
}

func TestClassify_MissingAssignment(t *testing.T) {
	g := graph.FromEdges([]graph.Edge{{From: "a", To: "b"}})

	_, err := Classify(g, partition.Partition{"a": 0}, 1)
	assert.ErrorIs(t, err, partition.ErrMissingAssignment)
}

func TestClasses_AccessorsReturnCopies(t *testing.T) {
	p := partition.Partition{"a": 0, "b": 0, "c": 1}
	c, err := BySize(p, 2)
	require.NoError(t, err)

	large := c.Large()
	large[0] = 42
	small := c.Small()
	small[0] = 42

	assert.Equal(t, []partition.ClusterID{0}, c.Large())
	assert.Equal(t, []partition.ClusterID{1}, c.Small())
	assert.Equal(t, 2, c.NMin())
	assert.Equal(t, 2, c.NumClusters())
	assert.Equal(t, 2, c.Size(0))
	assert.Equal(t, 1, c.Size(1))
}
