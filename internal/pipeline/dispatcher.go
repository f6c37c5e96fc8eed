package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/spigell/rubric-evaluator/internal/logger"
)

// Run kinds.
const (
	KindBuild    = "build"
	KindEvaluate = "evaluate"
)

const DefaultMaxConcurrent = 2

// RunFunc is the body of a background run. log carries the run's fields.
type RunFunc func(ctx context.Context, log *zap.Logger) error

// Dispatcher starts runs in the background and returns immediately. The
// outcome of a run is only visible in logs and in what the run delivers.
type Dispatcher struct {
	ctx    context.Context
	cancel context.CancelFunc
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
	logger *zap.Logger
}

// NewDispatcher bounds concurrent runs to maxConcurrent. Runs inherit values
// from parent but are cancelled only by Cancel.
func NewDispatcher(parent context.Context, maxConcurrent int, log *zap.Logger) *Dispatcher {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	return &Dispatcher{
		ctx:    ctx,
		cancel: cancel,
		sem:    semaphore.NewWeighted(int64(maxConcurrent)),
		logger: log,
	}
}

// Submit schedules fn and returns its run id.
func (d *Dispatcher) Submit(kind string, fn RunFunc) string {
	id := uuid.NewString()
	log := logger.WithFields(d.logger, logger.RunFields(kind, id)...)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		if err := d.sem.Acquire(d.ctx, 1); err != nil {
			log.Warn("run cancelled before start", zap.Error(err))
			return
		}
		defer d.sem.Release(1)

		started := time.Now()
		log.Info("run started")
		if err := fn(d.ctx, log); err != nil {
			log.Error("run failed", zap.Error(err), zap.Duration("took", time.Since(started)))
			return
		}
		log.Info("run finished", zap.Duration("took", time.Since(started)))
	}()

	log.Info("run accepted")
	return id
}

// Wait blocks until every submitted run has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Cancel cancels running runs and drops queued ones.
func (d *Dispatcher) Cancel() {
	d.cancel()
}
