// Package memory is a process-local Store used by tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

type Store struct {
	mu      sync.RWMutex
	now     func() time.Time
	lastUID int64
	lastTID int64
	users   map[int64]core.User
	byEmail map[string]int64
	txs     map[int64]core.Transaction
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		now:     time.Now,
		users:   make(map[int64]core.User),
		byEmail: make(map[string]int64),
		txs:     make(map[int64]core.Transaction),
	}
}

// WithClock sets the time source used for server-assigned timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) CreateUser(_ context.Context, name, email, passwordHash string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[email]; taken {
		return core.User{}, core.ErrDuplicateEmail
	}
	s.lastUID++
	u := core.User{
		ID:           s.lastUID,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    s.now().UTC(),
	}
	s.users[u.ID] = u
	s.byEmail[email] = u.ID
	return u, nil
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return core.User{}, fmt.Errorf("user %q: %w", email, core.ErrNotFound)
	}
	return s.users[id], nil
}

func (s *Store) FindUserByID(_ context.Context, id int64) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, fmt.Errorf("user %d: %w", id, core.ErrNotFound)
	}
	return u, nil
}

func (s *Store) CreateTransaction(_ context.Context, ownerID int64, in core.TransactionInput) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[ownerID]; !ok {
		return core.Transaction{}, fmt.Errorf("owner %d: %w", ownerID, core.ErrNotFound)
	}
	now := s.now()
	s.lastTID++
	t := core.Transaction{
		ID:        s.lastTID,
		OwnerID:   ownerID,
		Title:     in.Title,
		Amount:    in.Amount,
		Category:  in.Category,
		Type:      in.Type,
		Note:      copyNote(in.Note),
		Date:      in.DateOrNow(now),
		CreatedAt: now.UTC(),
	}
	s.txs[t.ID] = t
	return clone(t), nil
}

func (s *Store) ListTransactions(_ context.Context, ownerID int64, f core.ListFilter) ([]core.Transaction, error) {
	f = f.Normalize()
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.ownedLocked(ownerID, f)
	if f.Skip >= len(matched) {
		return []core.Transaction{}, nil
	}
	end := f.Skip + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[f.Skip:end], nil
}

func (s *Store) GetTransaction(_ context.Context, id, ownerID int64) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.txs[id]
	if !ok || t.OwnerID != ownerID {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return clone(t), nil
}

func (s *Store) UpdateTransaction(_ context.Context, id, ownerID int64, in core.TransactionInput) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txs[id]
	if !ok || t.OwnerID != ownerID {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	t.Title = in.Title
	t.Amount = in.Amount
	t.Category = in.Category
	t.Type = in.Type
	t.Note = copyNote(in.Note)
	t.Date = in.DateOrNow(s.now())
	s.txs[id] = t
	return clone(t), nil
}

func (s *Store) DeleteTransaction(_ context.Context, id, ownerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txs[id]
	if !ok || t.OwnerID != ownerID {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	delete(s.txs, id)
	return nil
}

func (s *Store) AllTransactions(_ context.Context, ownerID int64) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ownedLocked(ownerID, core.ListFilter{}), nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// ownedLocked returns the owner's matching transactions, sorted. Caller holds mu.
func (s *Store) ownedLocked(ownerID int64, f core.ListFilter) []core.Transaction {
	out := make([]core.Transaction, 0)
	for _, t := range s.txs {
		if t.OwnerID == ownerID && f.Matches(t) {
			out = append(out, clone(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func clone(t core.Transaction) core.Transaction {
	t.Note = copyNote(t.Note)
	return t
}

func copyNote(n *string) *string {
	if n == nil {
		return nil
	}
	v := *n
	return &v
}
