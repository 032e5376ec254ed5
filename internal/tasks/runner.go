// Package tasks runs the fire-and-forget side effects that follow a
// verified payment: provider orders, voucher consumption, loyalty accrual.
// Failures are logged and counted, never propagated to the webhook response.
package tasks

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/util"
)

type Runner struct {
	wg     sync.WaitGroup
	logger *zap.Logger
}

func NewRunner() *Runner {
	return &Runner{logger: util.GetLogger()}
}

// Go runs fn detached from the caller's request context. A stuck task blocks
// only itself; panics are recovered and recorded like any other failure.
func (r *Runner) Go(name string, fn func(ctx context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				util.SideEffectFailuresTotal.WithLabelValues(name).Inc()
				r.logger.Error("Background task panicked",
					zap.String("task", name),
					zap.Any("panic", rec))
			}
		}()

		if err := fn(context.Background()); err != nil {
			util.SideEffectFailuresTotal.WithLabelValues(name).Inc()
			r.logger.Error("Background task failed",
				zap.String("task", name),
				zap.Error(err))
		}
	}()
}

// Wait blocks until all in-flight tasks finish. Used on shutdown.
func (r *Runner) Wait() {
	r.wg.Wait()
}
