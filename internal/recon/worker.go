package recon

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kwesidadzie/bundlehub-backend/pkg/config"
	"github.com/kwesidadzie/bundlehub-backend/pkg/db/models"
	"github.com/kwesidadzie/bundlehub-backend/pkg/logger"
	"github.com/kwesidadzie/bundlehub-backend/pkg/metrics"
)

const (
	phaseDispatch = "dispatch"
	phaseStatus   = "status_refresh"

	lockName = "recon-worker"
)

// orderSource lists the orders each reconciliation phase works through.
type orderSource interface {
	ListDispatchable(ctx context.Context, limit int) ([]models.Order, error)
	ListForStatusRefresh(ctx context.Context, olderThan time.Time, limit int) ([]models.Order, error)
}

// dispatcher is the slice of the provider dispatcher the worker drives.
type dispatcher interface {
	Dispatch(ctx context.Context, orderID uuid.UUID) error
	RefreshStatus(ctx context.Context, orderID uuid.UUID) error
}

// locker takes the cross-instance lock so only one worker reconciles at a
// time. A nil locker limits single-flight to the local process.
type locker interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	LockKey(name string) string
}

// Worker periodically sweeps orders that settlement left behind: phase one
// re-dispatches paid orders with no upstream reference, phase two refreshes
// the delivery status of dispatched orders. A tick that arrives while the
// previous one still runs is skipped, never queued.
type Worker struct {
	orders   orderSource
	dispatch dispatcher
	lock     locker
	cfg      config.ReconConfig
	metrics  *metrics.ReconWorkerMetrics
	logg     *logger.Logger
	running  atomic.Bool
	now      func() time.Time
}

// NewWorker wires the reconciliation worker.
func NewWorker(orders orderSource, dispatch dispatcher, lock locker, cfg config.ReconConfig, m *metrics.ReconWorkerMetrics, logg *logger.Logger) (*Worker, error) {
	if orders == nil {
		return nil, fmt.Errorf("order source required")
	}
	if dispatch == nil {
		return nil, fmt.Errorf("dispatcher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("recon interval must be positive")
	}
	return &Worker{
		orders:   orders,
		dispatch: dispatch,
		lock:     lock,
		cfg:      cfg,
		metrics:  m,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// Run ticks immediately, then on every interval until the context ends.
func (w *Worker) Run(ctx context.Context) {
	w.logg.Info(ctx, "reconciliation worker started")
	w.Tick(ctx)

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.logg.Info(ctx, "reconciliation worker stopped")
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick runs one reconciliation pass. Overlapping ticks are dropped, both
// in-process and across instances via the shared lock.
func (w *Worker) Tick(ctx context.Context) {
	if !w.running.CompareAndSwap(false, true) {
		w.metrics.IncSkippedTick()
		w.logg.Warn(ctx, "previous reconciliation tick still running, skipping")
		return
	}
	defer w.running.Store(false)

	if w.lock != nil {
		key := w.lock.LockKey(lockName)
		acquired, err := w.lock.SetNX(ctx, key, w.now().Unix(), w.cfg.Interval)
		if err != nil {
			w.logg.Error(ctx, "failed to acquire reconciliation lock", err)
			return
		}
		if !acquired {
			w.metrics.IncSkippedTick()
			return
		}
		defer func() {
			if err := w.lock.Del(ctx, key); err != nil {
				w.logg.Error(ctx, "failed to release reconciliation lock", err)
			}
		}()
	}

	w.dispatchPhase(ctx)
	w.statusPhase(ctx)
}

func (w *Worker) dispatchPhase(ctx context.Context) {
	started := w.now()
	defer func() { w.metrics.ObservePhase(phaseDispatch, w.now().Sub(started)) }()

	orders, err := w.orders.ListDispatchable(ctx, w.cfg.DispatchBatchSize)
	if err != nil {
		w.logg.Error(ctx, "failed to list dispatchable orders", err)
		return
	}
	for _, order := range orders {
		lctx := w.logg.WithOrderID(ctx, order.ID.String())
		if err := w.dispatch.Dispatch(ctx, order.ID); err != nil {
			// Per-order isolation: one failed order never stops the batch.
			w.metrics.IncFailure(phaseDispatch)
			w.logg.Error(lctx, "reconciliation dispatch failed", err)
			continue
		}
		w.metrics.IncProcessed(phaseDispatch)
	}
}

func (w *Worker) statusPhase(ctx context.Context) {
	started := w.now()
	defer func() { w.metrics.ObservePhase(phaseStatus, w.now().Sub(started)) }()

	cutoff := w.now().Add(-w.cfg.StatusCheckInterval)
	orders, err := w.orders.ListForStatusRefresh(ctx, cutoff, w.cfg.StatusBatchSize)
	if err != nil {
		w.logg.Error(ctx, "failed to list orders for status refresh", err)
		return
	}
	for _, order := range orders {
		lctx := w.logg.WithOrderID(ctx, order.ID.String())
		if err := w.dispatch.RefreshStatus(ctx, order.ID); err != nil {
			w.metrics.IncFailure(phaseStatus)
			w.logg.Error(lctx, "status refresh failed", err)
			continue
		}
		w.metrics.IncProcessed(phaseStatus)
	}
}
