package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestIssueResolveRoundTrip(t *testing.T) {
	iss, err := NewIssuer(Config{Secret: testSecret, TTL: time.Hour, Issuer: "fintrack"})
	require.NoError(t, err)

	raw, exp, err := iss.Issue(42)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	id, err := iss.Resolve(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestNewIssuerRejectsEmptySecret(t *testing.T) {
	_, err := NewIssuer(Config{})
	assert.Error(t, err)
}

func TestNewIssuerDefaultTTL(t *testing.T) {
	iss, err := NewIssuer(Config{Secret: testSecret})
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, iss.ttl)
}

func TestResolveExpired(t *testing.T) {
	issuedAt := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	iss, err := NewIssuer(Config{Secret: testSecret, TTL: time.Minute}, WithClock(fixedClock(issuedAt)))
	require.NoError(t, err)
	raw, _, err := iss.Issue(7)
	require.NoError(t, err)

	later, err := NewIssuer(Config{Secret: testSecret, TTL: time.Minute}, WithClock(fixedClock(issuedAt.Add(2*time.Minute))))
	require.NoError(t, err)

	_, err = later.Resolve(raw)
	assert.ErrorIs(t, err, core.ErrTokenExpired)
	assert.ErrorIs(t, err, core.ErrUnauthorized)
}

func TestResolveForgedSignature(t *testing.T) {
	a, err := NewIssuer(Config{Secret: testSecret})
	require.NoError(t, err)
	b, err := NewIssuer(Config{Secret: []byte("another-secret-another-secret")})
	require.NoError(t, err)

	raw, _, err := b.Issue(1)
	require.NoError(t, err)

	_, err = a.Resolve(raw)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestResolveRejectsNoneAlgorithm(t *testing.T) {
	iss, err := NewIssuer(Config{Secret: testSecret})
	require.NoError(t, err)

	claims := jwt.RegisteredClaims{
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = iss.Resolve(raw)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestResolveBadSubject(t *testing.T) {
	iss, err := NewIssuer(Config{Secret: testSecret})
	require.NoError(t, err)

	for _, sub := range []string{"", "abc", "-3", "0"} {
		claims := jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
		require.NoError(t, err)

		_, err = iss.Resolve(raw)
		assert.ErrorIs(t, err, core.ErrTokenInvalid, "subject %q", sub)
	}
}

func TestResolveMissingExpiry(t *testing.T) {
	iss, err := NewIssuer(Config{Secret: testSecret})
	require.NoError(t, err)

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "1"}).SignedString(testSecret)
	require.NoError(t, err)

	_, err = iss.Resolve(raw)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestResolveWrongIssuer(t *testing.T) {
	a, err := NewIssuer(Config{Secret: testSecret, Issuer: "fintrack"})
	require.NoError(t, err)
	b, err := NewIssuer(Config{Secret: testSecret, Issuer: "someone-else"})
	require.NoError(t, err)

	raw, _, err := b.Issue(1)
	require.NoError(t, err)

	_, err = a.Resolve(raw)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestResolveGarbage(t *testing.T) {
	iss, err := NewIssuer(Config{Secret: testSecret})
	require.NoError(t, err)

	for _, raw := range []string{"", "not.a.jwt", "abc"} {
		_, err := iss.Resolve(raw)
		assert.ErrorIs(t, err, core.ErrTokenInvalid)
	}
}
