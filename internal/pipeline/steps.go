// Package pipeline runs the two stages of the system: the build run that
// compiles a rubric and indexes its exemplars, and the evaluate run that
// scores one application against them.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// step is one named stage of a run.
type step struct {
	name string
	run  func(ctx context.Context) error
}

// runSteps executes steps in order and stops at the first failure.
func runSteps(ctx context.Context, log *zap.Logger, steps []step) error {
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}

		started := time.Now()
		if err := s.run(ctx); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}

		log.Info("pipeline step",
			zap.String("name", s.name),
			zap.Duration("took", time.Since(started)),
		)
	}
	return nil
}
