package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"finanzas/internal/amqp"
	"finanzas/internal/ledger"
)

// Store is what the worker needs from a backend
type Store interface {
	ledger.TransactionDeleter
	ledger.TransactionFinder
}

// CompensationWorker removes rows that a failed upload could not delete
// in-process.
type CompensationWorker struct {
	store       Store
	maxAttempts int

	completed atomic.Int64
	abandoned atomic.Int64
}

func NewCompensationWorker(store Store, maxAttempts int) *CompensationWorker {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &CompensationWorker{store: store, maxAttempts: maxAttempts}
}

// Handle deletes the message's rows and verifies none remain. An error
// means the message should be delivered again.
func (w *CompensationWorker) Handle(ctx context.Context, msg *amqp.CompensationMessage) error {
	if msg.Attempt >= w.maxAttempts {
		w.abandoned.Add(1)
		// Nothing else will retry these; they need manual cleanup
		slog.ErrorContext(ctx, "Giving up on compensation, rows remain orphaned",
			"request_id", msg.RequestID,
			"user_id", msg.UserID,
			"attempt", msg.Attempt,
			"orphaned_ids", msg.IDs,
			"reason", msg.Reason)
		return nil
	}

	deleted, err := w.store.DeleteTransactions(ctx, msg.UserID, msg.IDs)
	if err != nil {
		return fmt.Errorf("delete orphaned transactions: %w", err)
	}

	remaining, err := w.store.FindTransactions(ctx, msg.UserID, msg.IDs)
	if err != nil {
		return fmt.Errorf("verify compensation: %w", err)
	}
	if len(remaining) > 0 {
		return fmt.Errorf("verify compensation: %d of %d rows still present", len(remaining), len(msg.IDs))
	}

	w.completed.Add(1)
	slog.InfoContext(ctx, "Compensation completed",
		"request_id", msg.RequestID,
		"user_id", msg.UserID,
		"requested", len(msg.IDs),
		"deleted", deleted,
		"attempt", msg.Attempt)
	return nil
}

// Stats returns how many messages were completed and abandoned
func (w *CompensationWorker) Stats() (completed, abandoned int64) {
	return w.completed.Load(), w.abandoned.Load()
}
