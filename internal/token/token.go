// Package token issues and resolves signed bearer tokens.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"fintrack/internal/core"
)

// Config is fixed for the lifetime of an Issuer.
type Config struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
}

const DefaultTTL = 24 * time.Hour

// Issuer signs HS256 tokens carrying the user id as subject.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// Option customizes an Issuer.
type Option func(*Issuer)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

func NewIssuer(cfg Config, opts ...Option) (*Issuer, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token secret is empty")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	i := &Issuer{secret: secret, ttl: ttl, issuer: cfg.Issuer, now: time.Now}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Issue returns a signed token for userID and its expiry.
func (i *Issuer) Issue(userID int64) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		Issuer:    i.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Resolve validates raw and returns the user id it names.
// Expired tokens yield core.ErrTokenExpired; every other failure
// yields core.ErrTokenInvalid.
func (i *Issuer) Resolve(raw string) (int64, error) {
	if raw == "" {
		return 0, core.ErrTokenInvalid
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}

	var claims jwt.RegisteredClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return 0, core.ErrTokenExpired
		}
		return 0, core.ErrTokenInvalid
	}
	if !tok.Valid {
		return 0, core.ErrTokenInvalid
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, core.ErrTokenInvalid
	}
	return id, nil
}
