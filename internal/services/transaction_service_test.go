package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/store/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []amqp.TransactionEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev amqp.TransactionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

type recordingInvalidator struct{ owners []int64 }

func (r *recordingInvalidator) Invalidate(ownerID int64) { r.owners = append(r.owners, ownerID) }

func fixtureInput() core.TransactionInput {
	return core.TransactionInput{
		Title:    gofakeit.ProductName(),
		Amount:   core.Cents(int64(gofakeit.Number(1, 100000))),
		Category: gofakeit.RandomString([]string{"food", "rent", "salary"}),
		Type:     core.Expense,
	}
}

func newTxService(t *testing.T, pub Publisher, inv Invalidator) (*TransactionService, int64) {
	t.Helper()
	st := memory.New()
	u, err := st.CreateUser(context.Background(), "Owner", gofakeit.Email(), "hash")
	require.NoError(t, err)
	return NewTransactionService(st, pub, inv, applog.Discard()), u.ID
}

func TestTransactionLifecyclePublishesEvents(t *testing.T) {
	pub := &recordingPublisher{}
	inv := &recordingInvalidator{}
	svc, owner := newTxService(t, pub, inv)
	ctx := context.Background()

	created, err := svc.Create(ctx, owner, fixtureInput())
	require.NoError(t, err)

	in := fixtureInput()
	in.Title = "renamed"
	updated, err := svc.Update(ctx, created.ID, owner, in)
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)

	got, err := svc.Get(ctx, created.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)

	require.NoError(t, svc.Delete(ctx, created.ID, owner))
	_, err = svc.Get(ctx, created.ID, owner)
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.Len(t, pub.events, 3)
	kinds := []amqp.EventKind{pub.events[0].Kind, pub.events[1].Kind, pub.events[2].Kind}
	assert.Equal(t, []amqp.EventKind{amqp.EventCreated, amqp.EventUpdated, amqp.EventDeleted}, kinds)
	for _, ev := range pub.events {
		assert.Equal(t, created.ID, ev.ID)
		assert.Equal(t, owner, ev.OwnerID)
	}
	assert.Equal(t, []int64{owner, owner, owner}, inv.owners)
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc, owner := newTxService(t, pub, nil)

	created, err := svc.Create(context.Background(), owner, fixtureInput())
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Len(t, pub.events, 1)
}

func TestFailedWritesAreSilent(t *testing.T) {
	pub := &recordingPublisher{}
	inv := &recordingInvalidator{}
	svc, owner := newTxService(t, pub, inv)
	ctx := context.Background()

	bad := fixtureInput()
	bad.Title = " "
	_, err := svc.Create(ctx, owner, bad)
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = svc.Update(ctx, 404, owner, fixtureInput())
	assert.ErrorIs(t, err, core.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, 404, owner), core.ErrNotFound)

	assert.Empty(t, pub.events)
	assert.Empty(t, inv.owners)
}

func TestOwnershipIsolation(t *testing.T) {
	svc, owner := newTxService(t, nil, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, owner, fixtureInput())
	require.NoError(t, err)

	other := owner + 1
	_, err = svc.Get(ctx, created.ID, other)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, created.ID, other), core.ErrNotFound)

	list, err := svc.List(ctx, other, core.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestListNormalizesFilter(t *testing.T) {
	svc, owner := newTxService(t, nil, nil)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, owner, fixtureInput())
		require.NoError(t, err)
	}

	list, err := svc.List(ctx, owner, core.ListFilter{Skip: -5, Limit: -1})
	require.NoError(t, err)
	assert.Len(t, list, 3)

	list, err = svc.List(ctx, owner, core.ListFilter{Skip: 1, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
