// Package consolidate picks, for every small cluster, the large cluster it is
// most strongly associated with.
package consolidate

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"citeclust/internal/classify"
	"citeclust/internal/partition"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrWorkerFailure is returned when a scoring task crashes. The pass is pure,
// so callers may retry it from scratch with the same inputs.
var ErrWorkerFailure = errors.New("consolidation worker failed")

// Scorer rates how strongly a small cluster is associated with a large one.
type Scorer interface {
	Score(small, large partition.ClusterID) float64
}

// Mapping assigns each small cluster its target large cluster, or partition.Unassigned.
type Mapping map[partition.ClusterID]partition.ClusterID

// BestTarget returns the large cluster maximizing scorer.Score(small, l).
// Ties go to the first maximum in the order of large. Empty large yields Unassigned.
func BestTarget(small partition.ClusterID, large []partition.ClusterID, scorer Scorer) partition.ClusterID {
	if len(large) == 0 {
		return partition.Unassigned
	}

	best := large[0]
	bestScore := scorer.Score(small, best)
	for _, l := range large[1:] {
		if s := scorer.Score(small, l); s > bestScore {
			best, bestScore = l, s
		}
	}
	return best
}

// Engine runs BestTarget over all small clusters on a fixed-size worker pool.
type Engine struct {
	workers int
	logger  *zap.Logger
}

// NewEngine creates an engine. workers <= 0 means one worker per CPU.
func NewEngine(workers int, logger *zap.Logger) *Engine {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{workers: workers, logger: logger}
}

// Workers returns the pool size.
func (e *Engine) Workers() int {
	return e.workers
}

// Run scores every mergeable small cluster in classes; unmergeable ones map to
// partition.Unassigned. classes and scorer are shared read-only across workers.
// The result does not depend on worker count or completion order.
func (e *Engine) Run(ctx context.Context, classes *classify.Classes, scorer Scorer) (Mapping, error) {
	large := classes.Large()
	mergeable := classes.Mergeable()
	targets := make([]partition.ClusterID, len(mergeable))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(e.workers)

	for i, s := range mergeable {
		i, s := i, s
		eg.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: small cluster %d: %v", ErrWorkerFailure, s, r)
				}
			}()
			if err := egCtx.Err(); err != nil {
				return err
			}
			// Each task owns exactly one slot.
			targets[i] = BestTarget(s, large, scorer)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	small := classes.Small()
	mapping := make(Mapping, len(small))
	for _, s := range small {
		mapping[s] = partition.Unassigned
	}
	for i, s := range mergeable {
		mapping[s] = targets[i]
	}

	e.logger.Debug("Scored small clusters",
		zap.Int("small", len(small)),
		zap.Int("merged", len(mergeable)),
		zap.Int("unmergeable", len(small)-len(mergeable)),
		zap.Int("workers", e.workers))

	return mapping, nil
}
