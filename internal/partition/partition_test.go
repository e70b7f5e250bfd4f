package partition

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartition_Lookup(t *testing.T) {
	p := Partition{"a": 0, "b": Unassigned}

	c, err := p.Lookup("a")
	require.NoError(t, err)
	assert.Equal(t, ClusterID(0), c)

	c, err = p.Lookup("b")
	require.NoError(t, err)
	assert.Equal(t, Unassigned, c)

	_, err = p.Lookup("z")
	assert.True(t, errors.Is(err, ErrMissingAssignment))
	assert.ErrorContains(t, err, `"z"`)
}

func TestPartition_SizesAndClusters(t *testing.T) {
	p := Partition{"a": 3, "b": 3, "c": 1, "d": Unassigned}

	assert.Equal(t, map[ClusterID]int{3: 2, 1: 1, Unassigned: 1}, p.Sizes())
	assert.Equal(t, []ClusterID{1, 3}, p.Clusters())
	assert.Equal(t, 1, p.CountUnassigned())
	assert.Equal(t, []string{"a", "b", "c", "d"}, p.Nodes())
}

func TestPartition_Covers(t *testing.T) {
	p := Partition{"a": 0}
	assert.NoError(t, p.Covers([]string{"a"}))
	assert.ErrorIs(t, p.Covers([]string{"a", "b"}), ErrMissingAssignment)
}

func TestPartition_WriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Partition{"b": Unassigned, "a": 4}.WriteCSV(&buf))
	assert.Equal(t, "node,cluster\na,4\nb,-1\n", buf.String())
}
