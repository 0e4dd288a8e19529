// Package storetest holds the behaviour every store.Store backend must share.
// Backends embed Suite in their own tests and supply a constructor.
package storetest

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/suite"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

type Suite struct {
	suite.Suite

	// NewStore returns an empty store; cleanup runs in TearDownTest.
	NewStore func() (store.Store, func())

	Store   store.Store
	cleanup func()
	ctx     context.Context
}

func (s *Suite) SetupTest() {
	s.ctx = context.Background()
	s.Store, s.cleanup = s.NewStore()
}

func (s *Suite) TearDownTest() {
	if s.Store != nil {
		s.Require().NoError(s.Store.Close())
	}
	if s.cleanup != nil {
		s.cleanup()
	}
}

func (s *Suite) newUser() core.User {
	u, err := s.Store.CreateUser(s.ctx, gofakeit.Name(), gofakeit.Email(), "$2a$04$fakehash")
	s.Require().NoError(err)
	return u
}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
	return &t
}

func (s *Suite) create(owner int64, typ core.TransactionType, cat string, cents int64, date *time.Time) core.Transaction {
	tx, err := s.Store.CreateTransaction(s.ctx, owner, core.TransactionInput{
		Title:    gofakeit.Word(),
		Amount:   core.Cents(cents),
		Category: cat,
		Type:     typ,
		Date:     date,
	})
	s.Require().NoError(err)
	return tx
}

func (s *Suite) TestCreateAndFindUser() {
	u, err := s.Store.CreateUser(s.ctx, "Ada", "ada@example.com", "hash")
	s.Require().NoError(err)
	s.Positive(u.ID)
	s.Equal("Ada", u.Name)
	s.False(u.CreatedAt.IsZero())

	byEmail, err := s.Store.FindUserByEmail(s.ctx, "ada@example.com")
	s.Require().NoError(err)
	s.Equal(u.ID, byEmail.ID)
	s.Equal("hash", byEmail.PasswordHash)

	byID, err := s.Store.FindUserByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal("ada@example.com", byID.Email)
}

func (s *Suite) TestDuplicateEmail() {
	_, err := s.Store.CreateUser(s.ctx, "A", "dup@example.com", "h")
	s.Require().NoError(err)

	_, err = s.Store.CreateUser(s.ctx, "B", "dup@example.com", "h")
	s.ErrorIs(err, core.ErrDuplicateEmail)
	s.ErrorIs(err, core.ErrConflict)

	// Emails compare exactly as stored.
	_, err = s.Store.CreateUser(s.ctx, "C", "Dup@example.com", "h")
	s.NoError(err)
}

func (s *Suite) TestUserNotFound() {
	_, err := s.Store.FindUserByEmail(s.ctx, "ghost@example.com")
	s.ErrorIs(err, core.ErrNotFound)

	_, err = s.Store.FindUserByID(s.ctx, 999)
	s.ErrorIs(err, core.ErrNotFound)
}

func (s *Suite) TestCreateTransactionDefaults() {
	u := s.newUser()
	before := time.Now().Add(-time.Second)

	note := "monthly"
	tx, err := s.Store.CreateTransaction(s.ctx, u.ID, core.TransactionInput{
		Title:    "Salary",
		Amount:   core.Cents(500000),
		Category: "job",
		Type:     core.Income,
		Note:     &note,
	})
	s.Require().NoError(err)

	s.Positive(tx.ID)
	s.Equal(u.ID, tx.OwnerID)
	s.Equal(int64(500000), tx.Amount.Cents)
	s.Equal(core.Income, tx.Type)
	s.Require().NotNil(tx.Note)
	s.Equal("monthly", *tx.Note)
	s.True(tx.Date.After(before), "date defaults to now")
	s.True(tx.CreatedAt.After(before))

	got, err := s.Store.GetTransaction(s.ctx, tx.ID, u.ID)
	s.Require().NoError(err)
	s.Equal(tx.Title, got.Title)
	s.Equal(tx.Amount, got.Amount)
	s.WithinDuration(tx.Date, got.Date, time.Millisecond)
	s.Require().NotNil(got.Note)
	s.Equal("monthly", *got.Note)
}

func (s *Suite) TestDatesKeepMicroseconds() {
	u := s.newUser()
	d := time.Date(2025, 3, 10, 8, 30, 0, 123456789, time.UTC)

	tx := s.create(u.ID, core.Income, "salary", 100, &d)
	got, err := s.Store.GetTransaction(s.ctx, tx.ID, u.ID)
	s.Require().NoError(err)
	want := time.Date(2025, 3, 10, 8, 30, 0, 123456000, time.UTC)
	s.True(want.Equal(tx.Date), "create returned %v", tx.Date)
	s.True(want.Equal(got.Date), "stored %v", got.Date)
}

func (s *Suite) TestCreateTransactionKeepsDateAndNilNote() {
	u := s.newUser()
	d := day(2024, time.February, 29)

	tx := s.create(u.ID, core.Expense, "food", 1999, d)
	got, err := s.Store.GetTransaction(s.ctx, tx.ID, u.ID)
	s.Require().NoError(err)
	s.True(d.Equal(got.Date), "want %v got %v", d, got.Date)
	s.Nil(got.Note)
	s.Equal(int64(1999), got.Amount.Cents)
}

func (s *Suite) TestListOrderingAndFilters() {
	u := s.newUser()
	a := s.create(u.ID, core.Expense, "food", 100, day(2025, 1, 10))
	b := s.create(u.ID, core.Income, "job", 200, day(2025, 3, 1))
	c := s.create(u.ID, core.Expense, "rent", 300, day(2025, 2, 1))
	d := s.create(u.ID, core.Expense, "food", 400, day(2025, 2, 1)) // same date as c, higher id

	all, err := s.Store.ListTransactions(s.ctx, u.ID, core.ListFilter{})
	s.Require().NoError(err)
	s.Equal([]int64{b.ID, d.ID, c.ID, a.ID}, ids(all))

	exp := core.Expense
	food := "food"
	got, err := s.Store.ListTransactions(s.ctx, u.ID, core.ListFilter{Type: &exp, Category: &food})
	s.Require().NoError(err)
	s.Equal([]int64{d.ID, a.ID}, ids(got))

	inc := core.Income
	got, err = s.Store.ListTransactions(s.ctx, u.ID, core.ListFilter{Type: &inc, Category: &food})
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *Suite) TestListPagination() {
	u := s.newUser()
	var created []core.Transaction
	for i := 1; i <= 5; i++ {
		created = append(created, s.create(u.ID, core.Expense, "misc", int64(i), day(2025, 1, i)))
	}

	page, err := s.Store.ListTransactions(s.ctx, u.ID, core.ListFilter{Skip: 1, Limit: 2})
	s.Require().NoError(err)
	s.Equal([]int64{created[3].ID, created[2].ID}, ids(page))

	page, err = s.Store.ListTransactions(s.ctx, u.ID, core.ListFilter{Skip: 10, Limit: 2})
	s.Require().NoError(err)
	s.Empty(page)

	page, err = s.Store.ListTransactions(s.ctx, u.ID, core.ListFilter{Skip: -3, Limit: 100000})
	s.Require().NoError(err)
	s.Len(page, 5)
}

func (s *Suite) TestOwnerIsolation() {
	alice := s.newUser()
	bob := s.newUser()
	tx := s.create(alice.ID, core.Expense, "food", 500, nil)

	_, err := s.Store.GetTransaction(s.ctx, tx.ID, bob.ID)
	s.ErrorIs(err, core.ErrNotFound)

	_, err = s.Store.UpdateTransaction(s.ctx, tx.ID, bob.ID, core.TransactionInput{
		Title: "stolen", Amount: core.Cents(1), Category: "x", Type: core.Income,
	})
	s.ErrorIs(err, core.ErrNotFound)

	s.ErrorIs(s.Store.DeleteTransaction(s.ctx, tx.ID, bob.ID), core.ErrNotFound)

	list, err := s.Store.ListTransactions(s.ctx, bob.ID, core.ListFilter{})
	s.Require().NoError(err)
	s.Empty(list)

	all, err := s.Store.AllTransactions(s.ctx, bob.ID)
	s.Require().NoError(err)
	s.Empty(all)

	// Alice's record is untouched.
	got, err := s.Store.GetTransaction(s.ctx, tx.ID, alice.ID)
	s.Require().NoError(err)
	s.Equal(tx.Title, got.Title)
}

func (s *Suite) TestUpdateReplacesFields() {
	u := s.newUser()
	note := "old"
	orig, err := s.Store.CreateTransaction(s.ctx, u.ID, core.TransactionInput{
		Title: "Groceries", Amount: core.Cents(4550), Category: "food", Type: core.Expense,
		Note: &note, Date: day(2025, 1, 5),
	})
	s.Require().NoError(err)

	upd, err := s.Store.UpdateTransaction(s.ctx, orig.ID, u.ID, core.TransactionInput{
		Title: "Bonus", Amount: core.Cents(100000), Category: "job", Type: core.Income,
		Date: day(2025, 6, 1),
	})
	s.Require().NoError(err)
	s.Equal(orig.ID, upd.ID)
	s.Equal("Bonus", upd.Title)
	s.Equal(int64(100000), upd.Amount.Cents)
	s.Equal("job", upd.Category)
	s.Equal(core.Income, upd.Type)
	s.Nil(upd.Note)
	s.True(day(2025, 6, 1).Equal(upd.Date))

	got, err := s.Store.GetTransaction(s.ctx, orig.ID, u.ID)
	s.Require().NoError(err)
	s.Equal("Bonus", got.Title)
	s.Nil(got.Note)
	s.WithinDuration(orig.CreatedAt, got.CreatedAt, time.Millisecond, "created_at is immutable")
	s.Equal(u.ID, got.OwnerID)
}

func (s *Suite) TestUpdateWithoutDateResetsToNow() {
	u := s.newUser()
	orig := s.create(u.ID, core.Expense, "food", 100, day(2020, 1, 1))
	before := time.Now().Add(-time.Second)

	upd, err := s.Store.UpdateTransaction(s.ctx, orig.ID, u.ID, core.TransactionInput{
		Title: "t", Amount: core.Cents(100), Category: "food", Type: core.Expense,
	})
	s.Require().NoError(err)
	s.True(upd.Date.After(before))
}

func (s *Suite) TestDelete() {
	u := s.newUser()
	tx := s.create(u.ID, core.Expense, "food", 100, nil)

	s.Require().NoError(s.Store.DeleteTransaction(s.ctx, tx.ID, u.ID))

	_, err := s.Store.GetTransaction(s.ctx, tx.ID, u.ID)
	s.ErrorIs(err, core.ErrNotFound)
	s.ErrorIs(s.Store.DeleteTransaction(s.ctx, tx.ID, u.ID), core.ErrNotFound)
}

func (s *Suite) TestAllTransactions() {
	u := s.newUser()
	other := s.newUser()
	for i := 0; i < 3; i++ {
		s.create(u.ID, core.Income, fmt.Sprintf("c%d", i), 100, nil)
	}
	s.create(other.ID, core.Income, "x", 100, nil)

	all, err := s.Store.AllTransactions(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Len(all, 3)
	for _, tx := range all {
		s.Equal(u.ID, tx.OwnerID)
	}
}

func (s *Suite) TestPing() {
	s.NoError(s.Store.Ping(s.ctx))
}

func ids(txs []core.Transaction) []int64 {
	out := make([]int64, len(txs))
	for i, t := range txs {
		out[i] = t.ID
	}
	return out
}
