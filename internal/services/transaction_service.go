package services

import (
	"context"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/store"
)

type (
	// Publisher announces committed writes; *amqp.Client implements it.
	Publisher interface {
		Publish(ctx context.Context, ev amqp.TransactionEvent) error
	}

	// Invalidator drops derived data of an owner; *analytics.Engine
	// implements it.
	Invalidator interface {
		Invalidate(ownerID int64)
	}
)

// TransactionService orchestrates transaction writes across the store, the
// analytics cache and the event bus. Publishing is best effort: a committed
// write is never reported as failed.
type TransactionService struct {
	txs       store.TransactionStore
	publisher Publisher
	derived   Invalidator
	logger    *applog.Logger
}

// NewTransactionService accepts nil publisher and invalidator.
func NewTransactionService(txs store.TransactionStore, publisher Publisher, derived Invalidator, logger *applog.Logger) *TransactionService {
	return &TransactionService{
		txs:       txs,
		publisher: publisher,
		derived:   derived,
		logger:    logger.WithComponent(applog.ComponentTransaction),
	}
}

func (s *TransactionService) Create(ctx context.Context, ownerID int64, in core.TransactionInput) (core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}
	t, err := s.txs.CreateTransaction(ctx, ownerID, in)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.afterWrite(ctx, amqp.EventCreated, t.ID, ownerID)
	s.logger.InfoContext(ctx, "Transaction created",
		applog.NewFields().
			WithUser(ownerID).
			WithTransaction(t.ID, t.Type.String(), t.Amount.Cents, t.Category).
			WithOperation(applog.OpCreate).
			ToSlice()...)
	return t, nil
}

func (s *TransactionService) List(ctx context.Context, ownerID int64, f core.ListFilter) ([]core.Transaction, error) {
	return s.txs.ListTransactions(ctx, ownerID, f.Normalize())
}

func (s *TransactionService) Get(ctx context.Context, id, ownerID int64) (core.Transaction, error) {
	return s.txs.GetTransaction(ctx, id, ownerID)
}

func (s *TransactionService) Update(ctx context.Context, id, ownerID int64, in core.TransactionInput) (core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}
	t, err := s.txs.UpdateTransaction(ctx, id, ownerID, in)
	if err != nil {
		return core.Transaction{}, err
	}

	s.afterWrite(ctx, amqp.EventUpdated, t.ID, ownerID)
	return t, nil
}

func (s *TransactionService) Delete(ctx context.Context, id, ownerID int64) error {
	if err := s.txs.DeleteTransaction(ctx, id, ownerID); err != nil {
		return err
	}
	s.afterWrite(ctx, amqp.EventDeleted, id, ownerID)
	return nil
}

func (s *TransactionService) afterWrite(ctx context.Context, kind amqp.EventKind, id, ownerID int64) {
	if s.derived != nil {
		s.derived.Invalidate(ownerID)
	}
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, amqp.NewTransactionEvent(kind, id, ownerID).WithRequestID(trace.GetRequestID(ctx))); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish transaction event",
			applog.FieldError, err,
			applog.FieldEventKind, kind,
			applog.FieldTransactionID, id,
			applog.FieldUserID, ownerID)
	}
}
