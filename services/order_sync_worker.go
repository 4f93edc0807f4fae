package services

import (
	"context"
	"time"

	"payment-service/models"
	"payment-service/repository"

	"go.uber.org/zap"
)

const (
	defaultPollInterval = time.Second
	baseRetryDelay      = 5 * time.Second
)

// OrderSyncWorker drains the order_sync_tasks outbox: it claims due tasks,
// delivers them to the order service, and reschedules failures with
// exponential backoff. Because tasks are persisted, in-flight retries
// survive a process restart.
type OrderSyncWorker struct {
	tasks        repository.SyncTaskRepository
	orders       OrderNotifier
	logger       *zap.Logger
	pollInterval time.Duration
}

func NewOrderSyncWorker(tasks repository.SyncTaskRepository, orders OrderNotifier, logger *zap.Logger) *OrderSyncWorker {
	return &OrderSyncWorker{
		tasks:        tasks,
		orders:       orders,
		logger:       logger,
		pollInterval: defaultPollInterval,
	}
}

// Start runs the dispatch loop until ctx is cancelled.
func (w *OrderSyncWorker) Start(ctx context.Context) {
	go func() {
		w.logger.Info("order sync worker started")
		for {
			select {
			case <-ctx.Done():
				w.logger.Info("order sync worker stopping")
				return
			default:
			}

			processed, err := w.ProcessOne(ctx)
			if err != nil {
				w.logger.Error("order sync poll failed", zap.Error(err))
			}
			if !processed {
				select {
				case <-ctx.Done():
					return
				case <-time.After(w.pollInterval):
				}
			}
		}
	}()
}

// ProcessOne claims and dispatches at most one due task. It reports whether
// a task was claimed.
func (w *OrderSyncWorker) ProcessOne(ctx context.Context) (bool, error) {
	task, err := w.tasks.ClaimDue(ctx, time.Now())
	if err != nil {
		return false, err
	}
	if task == nil {
		return false, nil
	}

	if err := w.orders.UpdatePaymentStatus(ctx, task.OrderID, task.PaymentStatus, task.PaymentID); err != nil {
		w.handleFailure(ctx, task, err)
		return true, nil
	}

	if err := w.tasks.MarkDone(ctx, task.ID); err != nil {
		return true, err
	}
	w.logger.Info("order payment status propagated",
		zap.String("order_id", task.OrderID),
		zap.Int("attempts", task.Attempts+1))
	return true, nil
}

func (w *OrderSyncWorker) handleFailure(ctx context.Context, task *models.OrderSyncTask, cause error) {
	attempts := task.Attempts + 1
	if attempts >= models.MaxSyncAttempts {
		w.logger.Error("order sync exhausted retries, manual intervention needed",
			zap.String("order_id", task.OrderID),
			zap.Int("attempts", attempts),
			zap.Error(cause))
		if err := w.tasks.MarkFailed(ctx, task.ID, cause.Error()); err != nil {
			w.logger.Error("failed to mark sync task failed", zap.String("task_id", task.ID), zap.Error(err))
		}
		return
	}

	delay := baseRetryDelay << uint(task.Attempts)
	w.logger.Warn("order sync attempt failed, rescheduling",
		zap.String("order_id", task.OrderID),
		zap.Int("attempts", attempts),
		zap.Duration("retry_in", delay),
		zap.Error(cause))
	if err := w.tasks.Reschedule(ctx, task.ID, attempts, time.Now().Add(delay), cause.Error()); err != nil {
		w.logger.Error("failed to reschedule sync task", zap.String("task_id", task.ID), zap.Error(err))
	}
}
