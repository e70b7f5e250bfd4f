package storage

import (
	"context"
	"time"

	"citeclust/internal/consolidate"
	"citeclust/internal/graph"
	"citeclust/internal/partition"
)

// Stage names a stored partition.
type Stage string

const (
	StageRaw   Stage = "raw"
	StageFinal Stage = "final"
)

// Run records the parameters and outcome of one clustering pass.
type Run struct {
	ID         string
	Mode       string
	Resolution float64
	NMin       int
	Workers    int
	Clusters   int // final K
	Unassigned int // nodes mapped to the sentinel
	CreatedAt  time.Time
}

// Store combines graph and partition storage capabilities.
type Store interface {
	CitationStore
	PartitionStore
	Close() error
}

// CitationStore persists the citation snapshot.
type CitationStore interface {
	// SaveGraph replaces the stored snapshot with g, preserving edge order.
	SaveGraph(ctx context.Context, g *graph.Graph) error

	// LoadGraph reads the snapshot back in insertion order.
	LoadGraph(ctx context.Context) (*graph.Graph, error)
}

// PartitionStore persists runs and their partitions.
type PartitionStore interface {
	CreateRun(ctx context.Context, run *Run) error
	UpdateRunStats(ctx context.Context, id string, clusters, unassigned int) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context) ([]*Run, error)

	// SavePartition replaces the partition stored for (runID, stage).
	SavePartition(ctx context.Context, runID string, stage Stage, p partition.Partition) error
	LoadPartition(ctx context.Context, runID string, stage Stage) (partition.Partition, error)

	// SaveMerges replaces the small-to-large mapping of a run.
	SaveMerges(ctx context.Context, runID string, m consolidate.Mapping) error
	LoadMerges(ctx context.Context, runID string) (consolidate.Mapping, error)
}
