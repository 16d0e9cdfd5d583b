package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/carebridge/notification-engine/internal/observability"
	"go.uber.org/zap"
)

const defaultSweepInterval = 30 * time.Second

// Locker serializes sweep passes across instances. The redis mutex
// implements it in production.
type Locker interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// Runner drives the processor on a fixed interval. Only one instance
// holds the lock per pass; the others skip and wait for the next tick.
type Runner struct {
	processor *Processor
	lock      Locker
	logger    *zap.Logger
	metrics   *observability.Metrics
	interval  time.Duration
}

func NewRunner(processor *Processor, lock Locker, interval time.Duration, logger *zap.Logger) (*Runner, error) {
	if processor == nil {
		return nil, fmt.Errorf("processor is required")
	}
	if lock == nil {
		return nil, fmt.Errorf("locker is required")
	}
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Runner{
		processor: processor,
		lock:      lock,
		logger:    logger,
		interval:  interval,
	}, nil
}

func (r *Runner) SetMetrics(metrics *observability.Metrics) {
	if r == nil {
		return
	}
	r.metrics = metrics
	if r.processor != nil {
		r.processor.SetMetrics(metrics)
	}
}

func (r *Runner) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Run an initial pass so already-due rows do not wait for the first
	// ticker edge.
	r.runOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.runOnce(ctx)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	acquired, err := r.lock.TryLock(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Error("failed to acquire sweep lock", zap.Error(err))
		}
		return
	}
	if !acquired {
		r.logger.Debug("sweep lock held elsewhere, skipping pass")
		return
	}
	defer func() {
		if err := r.lock.Unlock(ctx); err != nil && ctx.Err() == nil {
			r.logger.Error("failed to release sweep lock", zap.Error(err))
		}
	}()

	r.runSweep(ctx, KindScheduled, r.processor.ProcessScheduled)
	r.runSweep(ctx, KindRetry, r.processor.RetryFailed)
	r.runSweep(ctx, KindStalled, r.processor.RescueStalled)
}

func (r *Runner) runSweep(ctx context.Context, kind string, sweep func(context.Context) (int, error)) {
	claimed, err := sweep(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.logger.Error("sweep pass failed",
				zap.String("kind", kind),
				zap.Error(err),
			)
		}
		if r.metrics != nil {
			r.metrics.IncSweepRun(kind, "error")
		}
		return
	}

	if claimed > 0 {
		r.logger.Info("sweep pass finished",
			zap.String("kind", kind),
			zap.Int("claimed", claimed),
		)
	}
	if r.metrics != nil {
		r.metrics.IncSweepRun(kind, "ok")
	}
}
