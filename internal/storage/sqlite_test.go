package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"citeclust/internal/consolidate"
	"citeclust/internal/graph"
	"citeclust/internal/partition"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_SaveGraph_SnapshotSync(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Initial snapshot: duplicate a->b, isolated z.
	g1 := graph.FromEdges([]graph.Edge{{From: "a", To: "b"}, {From: "a", To: "b"}, {From: "b", To: "c"}})
	g1.AddNode("z")
	require.NoError(t, store.SaveGraph(ctx, g1))

	loaded, err := store.LoadGraph(ctx)
	require.NoError(t, err)
	assert.Equal(t, g1.Edges, loaded.Edges)
	assert.Equal(t, g1.Nodes(), loaded.Nodes())
	assert.Equal(t, 2, loaded.OutDegree("a"))

	// New snapshot replaces the old one entirely.
	g2 := graph.FromEdges([]graph.Edge{{From: "c", To: "b"}})
	require.NoError(t, store.SaveGraph(ctx, g2))

	loaded, err = store.LoadGraph(ctx)
	require.NoError(t, err)
	assert.Equal(t, []graph.Edge{{From: "c", To: "b"}}, loaded.Edges)
	assert.False(t, loaded.HasNode("z"))
}

func TestSQLiteStore_SaveGraph_EmptySnapshotClearsData(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveGraph(ctx, graph.FromEdges([]graph.Edge{{From: "x", To: "y"}})))
	require.NoError(t, store.SaveGraph(ctx, graph.NewGraph()))

	loaded, err := store.LoadGraph(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded.Edges)
	assert.Zero(t, loaded.NumNodes())
}

func TestSQLiteStore_Runs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	older := &Run{Mode: "field", Resolution: 0.001, NMin: 50, Workers: 4, CreatedAt: time.Now().Add(-time.Hour).UTC()}
	require.NoError(t, store.CreateRun(ctx, older))
	require.NotEmpty(t, older.ID)

	newer := &Run{Mode: "topic", Resolution: 0.1, NMin: 5, Workers: 2}
	require.NoError(t, store.CreateRun(ctx, newer))

	require.NoError(t, store.UpdateRunStats(ctx, older.ID, 12, 3))

	got, err := store.GetRun(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, "field", got.Mode)
	assert.InDelta(t, 0.001, got.Resolution, 1e-12)
	assert.Equal(t, 50, got.NMin)
	assert.Equal(t, 12, got.Clusters)
	assert.Equal(t, 3, got.Unassigned)

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer.ID, runs[0].ID)

	_, err = store.GetRun(ctx, "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.ErrorIs(t, store.UpdateRunStats(ctx, "nope", 1, 1), ErrRunNotFound)
}

func TestSQLiteStore_PartitionsAndMerges(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	raw := partition.Partition{"a": 0, "b": 1, "c": 2}
	final := partition.Partition{"a": 0, "b": 0, "c": partition.Unassigned}

	require.NoError(t, store.SavePartition(ctx, "run-1", StageRaw, raw))
	require.NoError(t, store.SavePartition(ctx, "run-1", StageFinal, final))

	got, err := store.LoadPartition(ctx, "run-1", StageRaw)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	got, err = store.LoadPartition(ctx, "run-1", StageFinal)
	require.NoError(t, err)
	assert.Equal(t, final, got)

	// Saving again replaces the stage.
	require.NoError(t, store.SavePartition(ctx, "run-1", StageFinal, partition.Partition{"a": 0}))
	got, err = store.LoadPartition(ctx, "run-1", StageFinal)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = store.LoadPartition(ctx, "run-2", StageRaw)
	assert.Error(t, err)

	merges := consolidate.Mapping{1: 0, 2: partition.Unassigned}
	require.NoError(t, store.SaveMerges(ctx, "run-1", merges))
	gotMerges, err := store.LoadMerges(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, merges, gotMerges)
}
