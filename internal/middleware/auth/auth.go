// Package auth resolves bearer tokens into the acting user id.
package auth

import (
	"context"
	"net/http"
	"strings"

	"fintrack/internal/core"
)

// Resolver turns a raw token into a user id.
type Resolver interface {
	Resolve(token string) (int64, error)
}

type contextKey struct{}

// WithUserID stores the authenticated user id in ctx.
func WithUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// UserID returns the authenticated user id set by Middleware.
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(contextKey{}).(int64)
	return id, ok && id > 0
}

// BearerToken extracts the credentials of an "Authorization: Bearer" header.
// The scheme is matched case-insensitively.
func BearerToken(r *http.Request) (string, bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Middleware rejects requests without a valid bearer token. onError writes
// the response for a core.ErrUnauthorized-wrapped error.
func Middleware(resolver Resolver, onError func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := BearerToken(r)
			if !ok {
				onError(w, r, core.Unauthorized("Not authenticated"))
				return
			}
			id, err := resolver.Resolve(raw)
			if err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
		})
	}
}
