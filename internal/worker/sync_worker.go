// Package worker mirrors committed transaction writes into a spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/sheets"
)

type (
	// Reader is the part of the transaction store the worker needs.
	Reader interface {
		GetTransaction(ctx context.Context, id, ownerID int64) (core.Transaction, error)
		AllTransactions(ctx context.Context, ownerID int64) ([]core.Transaction, error)
	}

	// EventSource delivers transaction events; *amqp.Client implements it.
	EventSource interface {
		Consume(ctx context.Context, handler amqp.Handler) error
	}
)

// Stats counts handled events since start.
type Stats struct {
	Processed int64
	Failed    int64
}

type SyncWorker struct {
	txs    Reader
	mirror sheets.Mirror
	logger *applog.Logger

	statsEvery time.Duration
	processed  atomic.Int64
	failed     atomic.Int64
}

func NewSyncWorker(txs Reader, mirror sheets.Mirror, logger *applog.Logger) *SyncWorker {
	return &SyncWorker{
		txs:        txs,
		mirror:     mirror,
		logger:     logger.WithComponent(applog.ComponentWorker),
		statsEvery: 15 * time.Minute,
	}
}

// HandleEvent applies one event to the mirror. The store, not the event, is
// the source of truth: a created or updated row that no longer exists is
// removed from the mirror.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev amqp.TransactionEvent) error {
	err := w.apply(ctx, ev)
	if err != nil {
		w.failed.Add(1)
		return err
	}
	w.processed.Add(1)
	return nil
}

func (w *SyncWorker) apply(ctx context.Context, ev amqp.TransactionEvent) error {
	logger := w.logger
	if ev.RequestID != "" {
		logger = logger.With(applog.FieldRequestID, ev.RequestID)
	}
	if ev.Kind == amqp.EventDeleted {
		if err := w.mirror.DeleteByID(ctx, ev.ID); err != nil {
			return fmt.Errorf("delete mirrored transaction %d: %w", ev.ID, err)
		}
		logger.InfoContext(ctx, "Removed mirrored transaction",
			applog.FieldTransactionID, ev.ID, applog.FieldOperation, applog.OpDelete)
		return nil
	}

	t, err := w.txs.GetTransaction(ctx, ev.ID, ev.OwnerID)
	if errors.Is(err, core.ErrNotFound) {
		logger.InfoContext(ctx, "Transaction gone before sync, removing from mirror",
			applog.FieldTransactionID, ev.ID, applog.FieldEventKind, ev.Kind)
		return w.mirror.DeleteByID(ctx, ev.ID)
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	if err := w.mirror.Upsert(ctx, t); err != nil {
		return fmt.Errorf("mirror transaction %d: %w", t.ID, err)
	}
	logger.InfoContext(ctx, "Mirrored transaction",
		applog.NewFields().
			WithTransaction(t.ID, t.Type.String(), t.Amount.Cents, t.Category).
			WithUser(t.OwnerID).
			WithOperation(applog.OpSync).
			ToSlice()...)
	return nil
}

// ResyncOwner rewrites every transaction of ownerID into the mirror; it
// recovers rows whose events were lost while the worker was down.
func (w *SyncWorker) ResyncOwner(ctx context.Context, ownerID int64) (int, error) {
	txs, err := w.txs.AllTransactions(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("load transactions of owner %d: %w", ownerID, err)
	}
	// Oldest first so appended rows keep chronological order.
	for i := len(txs) - 1; i >= 0; i-- {
		if err := w.mirror.Upsert(ctx, txs[i]); err != nil {
			return len(txs) - 1 - i, fmt.Errorf("mirror transaction %d: %w", txs[i].ID, err)
		}
	}
	w.logger.InfoContext(ctx, "Owner resync completed", applog.FieldUserID, ownerID, "count", len(txs))
	return len(txs), nil
}

func (w *SyncWorker) Stats() Stats {
	return Stats{Processed: w.processed.Load(), Failed: w.failed.Load()}
}

// Run prepares the mirror and consumes events until ctx ends. A consumer
// failure stops the periodic stats reporter as well.
func (w *SyncWorker) Run(ctx context.Context, src EventSource) error {
	if err := w.mirror.EnsureHeader(ctx); err != nil {
		return fmt.Errorf("prepare mirror: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return src.Consume(gctx, w.HandleEvent)
	})
	g.Go(func() error {
		ticker := time.NewTicker(w.statsEvery)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				s := w.Stats()
				w.logger.InfoContext(gctx, "Worker stats", "processed", s.Processed, "failed", s.Failed)
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}
