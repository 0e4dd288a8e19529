// Package store defines the persistence ports for users and transactions.
//
// Every transaction operation is scoped by owner id: a record that exists but
// belongs to someone else is reported exactly like a missing one.
package store

import (
	"context"

	"fintrack/internal/core"
)

type (
	UserStore interface {
		// CreateUser fails with core.ErrDuplicateEmail when email is taken.
		CreateUser(ctx context.Context, name, email, passwordHash string) (core.User, error)
		FindUserByEmail(ctx context.Context, email string) (core.User, error)
		FindUserByID(ctx context.Context, id int64) (core.User, error)
	}

	TransactionStore interface {
		CreateTransaction(ctx context.Context, ownerID int64, in core.TransactionInput) (core.Transaction, error)
		// ListTransactions orders by date descending, then id descending.
		ListTransactions(ctx context.Context, ownerID int64, f core.ListFilter) ([]core.Transaction, error)
		GetTransaction(ctx context.Context, id, ownerID int64) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, id, ownerID int64, in core.TransactionInput) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, id, ownerID int64) error
		// AllTransactions returns the full owner-scoped set, most recent first.
		AllTransactions(ctx context.Context, ownerID int64) ([]core.Transaction, error)
	}

	// Store is what a backend provides to the application.
	Store interface {
		UserStore
		TransactionStore
		Ping(ctx context.Context) error
		Close() error
	}
)
