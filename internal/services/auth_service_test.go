package services

import (
	"context"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"fintrack/internal/core"
	"fintrack/internal/credential"
	applog "fintrack/internal/log"
	"fintrack/internal/store/memory"
	"fintrack/internal/token"
)

func newAuth(t *testing.T) (*AuthService, *memory.Store) {
	t.Helper()
	st := memory.New()
	issuer, err := token.NewIssuer(token.Config{Secret: []byte("0123456789abcdef0123"), TTL: time.Hour, Issuer: "test"})
	require.NoError(t, err)
	return NewAuthService(st, credential.NewHasher(bcrypt.MinCost), issuer, applog.Discard()), st
}

func publicMessage(t *testing.T, err error) string {
	t.Helper()
	msg, ok := core.PublicMessage(err)
	require.True(t, ok, "error %v carries no public message", err)
	return msg
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAuth(t)
	ctx := context.Background()
	email := gofakeit.Email()

	sess, err := svc.Register(ctx, "  Ada  ", email, "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "Ada", sess.User.Name)
	assert.Equal(t, email, sess.User.Email)
	assert.NotEqual(t, "secret1", sess.User.PasswordHash)

	id, err := svc.Resolve(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, id)

	login, err := svc.Login(ctx, email, "secret1")
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, login.User.ID)

	me, err := svc.Me(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, email, me.Email)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newAuth(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "", gofakeit.Email(), "secret1")
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.Equal(t, "Name is required", publicMessage(t, err))

	_, err = svc.Register(ctx, "Bob", "   ", "secret1")
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.Equal(t, "Email is required", publicMessage(t, err))

	_, err = svc.Register(ctx, "Bob", gofakeit.Email(), "12345")
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.Equal(t, "Password must be at least 6 characters", publicMessage(t, err))

	_, err = svc.Register(ctx, "Bob", gofakeit.Email(), "123456")
	assert.NoError(t, err, "exactly six characters is enough")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newAuth(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "A", "a@example.com", "secret1")
	require.NoError(t, err)

	// A taken email wins over a short password.
	_, err = svc.Register(ctx, "B", "a@example.com", "x")
	assert.ErrorIs(t, err, core.ErrConflict)
	assert.Equal(t, "Email already registered", publicMessage(t, err))

	_, err = svc.Register(ctx, "C", "A@example.com", "secret1")
	assert.NoError(t, err, "emails compare case-sensitively")
}

func TestLoginFailuresLookAlike(t *testing.T) {
	svc, _ := newAuth(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "A", "a@example.com", "secret1")
	require.NoError(t, err)

	_, wrongPw := svc.Login(ctx, "a@example.com", "secret2")
	_, unknown := svc.Login(ctx, "nobody@example.com", "secret1")

	for _, err := range []error{wrongPw, unknown} {
		assert.ErrorIs(t, err, core.ErrUnauthorized)
		assert.Equal(t, "Invalid email or password", publicMessage(t, err))
	}
}

func TestMeForMissingUser(t *testing.T) {
	svc, _ := newAuth(t)
	_, err := svc.Me(context.Background(), 999)
	assert.ErrorIs(t, err, core.ErrUnauthorized)
}

func TestResolveRejectsGarbage(t *testing.T) {
	svc, _ := newAuth(t)
	_, err := svc.Resolve("not-a-token")
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}
