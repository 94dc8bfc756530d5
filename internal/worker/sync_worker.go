// Package worker mirrors stored expenses into a spreadsheet. It reacts
// to AMQP events and sweeps the pending queue as a backstop for lost
// messages.
package worker

import (
	"context"
	"errors"
	"fmt"

	"smartreceipt/internal/amqp"
	"smartreceipt/internal/core"
	"smartreceipt/internal/log"
	"smartreceipt/internal/sheets"
	"smartreceipt/internal/store"
)

// SyncStore is the sync-bookkeeping slice of the SQLite repository.
type SyncStore interface {
	GetExpense(ctx context.Context, id string) (core.Expense, error)
	GetPendingSync(ctx context.Context, limit int) ([]core.Expense, error)
	MarkSynced(ctx context.Context, id string) error
	MarkSyncError(ctx context.Context, id string) error
}

type SyncWorker struct {
	store     SyncStore
	appender  sheets.RowAppender
	batchSize int
	logger    *log.Logger
}

func NewSyncWorker(st SyncStore, appender sheets.RowAppender, batchSize int, logger *log.Logger) *SyncWorker {
	return &SyncWorker{
		store:     st,
		appender:  appender,
		batchSize: batchSize,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent processes one expense event from the queue. The mirror is
// append-only: deletes are acknowledged and logged, never propagated.
func (w *SyncWorker) HandleEvent(ctx context.Context, msg *amqp.ExpenseEventMessage) error {
	w.logger.InfoContext(ctx, "Processing expense event",
		log.FieldExpenseID, msg.ExpenseID,
		log.FieldOperation, msg.Action)

	if msg.Action == amqp.ActionDeleted {
		w.logger.InfoContext(ctx, "Delete event acknowledged, sheet row kept",
			log.FieldExpenseID, msg.ExpenseID)
		return nil
	}

	expense, err := w.store.GetExpense(ctx, msg.ExpenseID)
	if errors.Is(err, store.ErrNotFound) {
		// Row was deleted between publish and consume
		w.logger.WarnContext(ctx, "Expense vanished before sync, skipping",
			log.FieldExpenseID, msg.ExpenseID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get expense: %w", err)
	}

	return w.mirror(ctx, expense)
}

// ProcessPending sweeps one batch of unsynced expenses. Called on a
// timer as a backstop for lost events.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.store.GetPendingSync(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending expenses: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	w.logger.InfoContext(ctx, "Processing pending expenses", "count", len(pending))
	for _, e := range pending {
		if err := w.mirror(ctx, e); err != nil {
			w.logger.ErrorContext(ctx, "Failed to mirror expense",
				log.FieldExpenseID, e.ID,
				log.FieldError, err)
		}
	}
	return nil
}

// StartupSyncCheck drains a larger batch once at worker startup to
// recover from downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.store.GetPendingSync(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending expenses for startup check: %w", err)
	}
	if len(pending) == 0 {
		w.logger.InfoContext(ctx, "No pending expenses found on startup")
		return nil
	}

	w.logger.InfoContext(ctx, "Found pending expenses on startup", "count", len(pending))

	synced := 0
	failed := 0
	for _, e := range pending {
		if err := w.mirror(ctx, e); err != nil {
			w.logger.ErrorContext(ctx, "Failed to mirror expense during startup",
				log.FieldExpenseID, e.ID,
				log.FieldError, err)
			failed++
			continue
		}
		synced++
	}

	w.logger.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", synced,
		"errors", failed)
	return nil
}

func (w *SyncWorker) mirror(ctx context.Context, e core.Expense) error {
	ref, err := w.appender.AppendExpenseRow(ctx, e)
	if err != nil {
		if markErr := w.store.MarkSyncError(ctx, e.ID); markErr != nil {
			w.logger.ErrorContext(ctx, "Failed to mark sync error",
				log.FieldExpenseID, e.ID,
				log.FieldError, markErr)
		}
		return fmt.Errorf("append to sheet: %w", err)
	}

	if err := w.store.MarkSynced(ctx, e.ID); err != nil {
		// The row is in the sheet; only the bookkeeping failed
		w.logger.ErrorContext(ctx, "Failed to mark as synced",
			log.FieldExpenseID, e.ID,
			log.FieldError, err)
	}

	w.logger.InfoContext(ctx, "Expense mirrored",
		log.FieldExpenseID, e.ID,
		log.FieldSheetsRef, ref,
		log.FieldAmountCents, e.Amount.Cents)
	return nil
}
