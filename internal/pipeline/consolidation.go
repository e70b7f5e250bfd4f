// Package pipeline wires the oracle, association model, classifier,
// consolidation engine and relabeler into one pass.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"citeclust/internal/association"
	"citeclust/internal/classify"
	"citeclust/internal/consolidate"
	"citeclust/internal/graph"
	"citeclust/internal/oracle"
	"citeclust/internal/partition"
	"citeclust/internal/relabel"

	"go.uber.org/zap"
)

// Stats summarizes one consolidation pass.
type Stats struct {
	Clusters    int // distinct raw clusters
	Small       int // raw clusters below NMin
	Unmergeable int // small clusters with no link to a large one
	Merged      int // small clusters absorbed by a large one
	Unassigned  int // nodes mapped to the sentinel
	K           int // final cluster count
}

// Report is everything a pass produced. Raw is never modified.
type Report struct {
	Raw     partition.Partition
	Classes *classify.Classes
	Mapping consolidate.Mapping
	Result  relabel.Result
	Stats   Stats
}

// Final is the terminal partition.
func (r *Report) Final() partition.Partition {
	return r.Result.Partition
}

// Consolidator merges undersized clusters of a raw partition.
type Consolidator struct {
	nmin   int
	engine *consolidate.Engine
	logger *zap.Logger
}

// NewConsolidator validates nmin up front; a negative value is ErrInvalidThreshold.
func NewConsolidator(nmin, workers int, logger *zap.Logger) (*Consolidator, error) {
	if err := classify.ValidateThreshold(nmin); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consolidator{
		nmin:   nmin,
		engine: consolidate.NewEngine(workers, logger),
		logger: logger,
	}, nil
}

// Run performs one pass over g and raw. Either a full final partition is
// returned or an error; there are no partial results.
func (c *Consolidator) Run(ctx context.Context, g *graph.Graph, raw partition.Partition) (*Report, error) {
	if err := raw.Covers(g.Nodes()); err != nil {
		return nil, err
	}

	// 1. Association model
	tables, err := association.Build(g, raw)
	if err != nil {
		return nil, fmt.Errorf("association stage: %w", err)
	}

	// 2. Size classes and unmergeable clusters
	classes, err := classify.Classify(g, raw, c.nmin)
	if err != nil {
		return nil, fmt.Errorf("classify stage: %w", err)
	}
	c.logger.Info("Classified clusters",
		zap.Int("clusters", classes.NumClusters()),
		zap.Int("large", len(classes.Large())),
		zap.Int("small", len(classes.Small())),
		zap.Int("unmergeable", len(classes.Unmergeable())),
		zap.Int("nmin", c.nmin))

	// 3. Score small clusters; tables and classes are frozen from here on
	start := time.Now()
	mapping, err := c.engine.Run(ctx, classes, tables)
	if err != nil {
		return nil, fmt.Errorf("merge stage: %w", err)
	}
	c.logger.Info("Merged small clusters",
		zap.Int("small", len(mapping)),
		zap.Int("workers", c.engine.Workers()),
		zap.Duration("elapsed", time.Since(start)))

	// 4. Relabel
	result := relabel.Apply(raw, classes, mapping)

	mergeable := classes.Mergeable()
	small := classes.Small()
	stats := Stats{
		Clusters:    classes.NumClusters(),
		Small:       len(small),
		Unmergeable: len(small) - len(mergeable),
		Merged:      len(mergeable),
		Unassigned:  result.Partition.CountUnassigned(),
		K:           result.K,
	}
	c.logger.Info("Relabeled partition",
		zap.Int("unassigned", stats.Unassigned),
		zap.Int("nodes", len(result.Partition)),
		zap.Int("k", stats.K))

	return &Report{
		Raw:     raw,
		Classes: classes,
		Mapping: mapping,
		Result:  result,
		Stats:   stats,
	}, nil
}

// Pipeline runs the community oracle and then consolidation.
type Pipeline struct {
	Oracle       oracle.Oracle
	Consolidator *Consolidator
	Resolution   float64
	logger       *zap.Logger
}

func NewPipeline(o oracle.Oracle, c *Consolidator, resolution float64, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{Oracle: o, Consolidator: c, Resolution: resolution, logger: logger}
}

// Run partitions g with the oracle and consolidates the result.
func (p *Pipeline) Run(ctx context.Context, g *graph.Graph) (*Report, error) {
	start := time.Now()
	raw, err := p.Oracle.Partition(ctx, g, p.Resolution)
	if err != nil {
		return nil, fmt.Errorf("partition stage: %w", err)
	}
	p.logger.Info("Initial partition ready",
		zap.Float64("resolution", p.Resolution),
		zap.Int("nodes", len(raw)),
		zap.Int("clusters", len(raw.Clusters())),
		zap.Duration("elapsed", time.Since(start)))

	return p.Consolidator.Run(ctx, g, raw)
}
