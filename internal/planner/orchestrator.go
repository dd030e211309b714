package planner

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/ssongk/daytrip/internal/types"
)

// SearchTask is one independently schedulable slot search within a wave.
type SearchTask struct {
	Spec types.SlotSpec
	Run  func(ctx context.Context) (types.Place, error)
}

// Orchestrator executes the search tasks of one wave (one day's slots)
// concurrently and joins them before route optimization. Results are keyed
// by task index, never by completion order. The first failure cancels the
// remaining siblings and fails the wave as a whole.
type Orchestrator struct {
	maxConcurrent int
	logger        *slog.Logger
}

func NewOrchestrator(maxConcurrent int, logger *slog.Logger) *Orchestrator {
	if maxConcurrent <= 0 {
		maxConcurrent = 5
	}
	return &Orchestrator{maxConcurrent: maxConcurrent, logger: logger}
}

// RunWave dispatches all tasks and returns their places in input order, or
// the first error. Sibling tasks share only read-only snapshot inputs;
// each result is written to its own index.
func (o *Orchestrator) RunWave(ctx context.Context, tasks []SearchTask) ([]types.Place, error) {
	results := make([]types.Place, len(tasks))

	g, waveCtx := errgroup.WithContext(ctx)
	g.SetLimit(o.maxConcurrent)
	for i, task := range tasks {
		g.Go(func() error {
			place, err := task.Run(waveCtx)
			if err != nil {
				return fmt.Errorf("wave task day %d position %d: %w", task.Spec.Day, task.Spec.Position, err)
			}
			results[i] = place
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		o.logger.WarnContext(ctx, "wave failed", slog.Any("error", err))
		return nil, err
	}
	return results, nil
}
