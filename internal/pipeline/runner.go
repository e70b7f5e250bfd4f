package pipeline

import (
	"context"
	"errors"
	"fmt"

	"citeclust/internal/config"
	"citeclust/internal/oracle"
	"citeclust/internal/storage"

	"go.uber.org/zap"
)

// ErrEmptyGraph is returned when no citations have been imported.
var ErrEmptyGraph = errors.New("citation graph is empty")

// Runner executes passes against a store and records every run.
type Runner struct {
	store  storage.Store
	oracle oracle.Oracle
	logger *zap.Logger
}

func NewRunner(store storage.Store, o oracle.Oracle, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{store: store, oracle: o, logger: logger}
}

// Cluster loads the stored citation snapshot, partitions it, consolidates the
// result and stores raw partition, merges and final partition under a new run.
func (r *Runner) Cluster(ctx context.Context, params config.Params) (*storage.Run, *Report, error) {
	g, err := r.store.LoadGraph(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load graph: %w", err)
	}
	if g.NumNodes() == 0 {
		return nil, nil, ErrEmptyGraph
	}

	cons, err := NewConsolidator(params.NMin, params.WorkerCount, r.logger)
	if err != nil {
		return nil, nil, err
	}

	run := &storage.Run{
		Mode:       params.Mode,
		Resolution: params.Resolution,
		NMin:       params.NMin,
		Workers:    params.WorkerCount,
	}
	if err := r.store.CreateRun(ctx, run); err != nil {
		return nil, nil, fmt.Errorf("failed to create run: %w", err)
	}
	logger := r.logger.With(zap.String("run", run.ID))
	logger.Info("Run started",
		zap.String("mode", run.Mode),
		zap.Float64("resolution", run.Resolution),
		zap.Int("nmin", run.NMin))

	raw, err := r.oracle.Partition(ctx, g, params.Resolution)
	if err != nil {
		return run, nil, fmt.Errorf("partition stage: %w", err)
	}
	// Stored before consolidating so a failed pass can be retried from it.
	if err := r.store.SavePartition(ctx, run.ID, storage.StageRaw, raw); err != nil {
		return run, nil, fmt.Errorf("failed to save raw partition: %w", err)
	}

	report, err := cons.Run(ctx, g, raw)
	if err != nil {
		return run, nil, err
	}
	if err := r.persist(ctx, run, report); err != nil {
		return run, nil, err
	}
	return run, report, nil
}

// Reconsolidate recomputes the final partition of an existing run from its
// stored raw partition. workers <= 0 keeps the run's recorded worker count.
func (r *Runner) Reconsolidate(ctx context.Context, runID string, workers int) (*storage.Run, *Report, error) {
	run, err := r.store.GetRun(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	if workers <= 0 {
		workers = run.Workers
	}

	g, err := r.store.LoadGraph(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load graph: %w", err)
	}
	raw, err := r.store.LoadPartition(ctx, run.ID, storage.StageRaw)
	if err != nil {
		return nil, nil, err
	}

	cons, err := NewConsolidator(run.NMin, workers, r.logger.With(zap.String("run", run.ID)))
	if err != nil {
		return nil, nil, err
	}
	report, err := cons.Run(ctx, g, raw)
	if err != nil {
		return run, nil, err
	}
	if err := r.persist(ctx, run, report); err != nil {
		return run, nil, err
	}
	return run, report, nil
}

func (r *Runner) persist(ctx context.Context, run *storage.Run, report *Report) error {
	if err := r.store.SaveMerges(ctx, run.ID, report.Mapping); err != nil {
		return fmt.Errorf("failed to save merges: %w", err)
	}
	if err := r.store.SavePartition(ctx, run.ID, storage.StageFinal, report.Final()); err != nil {
		return fmt.Errorf("failed to save final partition: %w", err)
	}
	if err := r.store.UpdateRunStats(ctx, run.ID, report.Stats.K, report.Stats.Unassigned); err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	run.Clusters = report.Stats.K
	run.Unassigned = report.Stats.Unassigned
	return nil
}
