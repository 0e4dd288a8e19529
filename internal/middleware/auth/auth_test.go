package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"fintrack/internal/core"
)

type resolverFunc func(string) (int64, error)

func (f resolverFunc) Resolve(s string) (int64, error) { return f(s) }

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def", "abc.def", true},
		{"bearer abc", "abc", true},
		{"Bearer   spaced  ", "spaced", true},
		{"Basic dXNlcjpwYXNz", "", false},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			r.Header.Set("Authorization", tc.header)
		}
		got, ok := BearerToken(r)
		assert.Equal(t, tc.ok, ok, tc.header)
		assert.Equal(t, tc.want, got, tc.header)
	}
}

func TestMiddleware(t *testing.T) {
	resolver := resolverFunc(func(tok string) (int64, error) {
		switch tok {
		case "good":
			return 7, nil
		case "old":
			return 0, core.ErrTokenExpired
		}
		return 0, core.ErrTokenInvalid
	})

	var gotErr error
	onError := func(w http.ResponseWriter, r *http.Request, err error) {
		gotErr = err
		w.WriteHeader(http.StatusUnauthorized)
	}

	var gotID int64
	h := Middleware(resolver, onError)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = UserID(r.Context())
	}))

	cases := []struct {
		name    string
		header  string
		code    int
		wantErr error
		wantID  int64
	}{
		{"valid", "Bearer good", http.StatusOK, nil, 7},
		{"missing", "", http.StatusUnauthorized, core.ErrUnauthorized, 0},
		{"expired", "Bearer old", http.StatusUnauthorized, core.ErrTokenExpired, 0},
		{"forged", "Bearer forged", http.StatusUnauthorized, core.ErrTokenInvalid, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gotErr, gotID = nil, 0
			r := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, r)

			assert.Equal(t, tc.code, rec.Code)
			assert.Equal(t, tc.wantID, gotID)
			if tc.wantErr != nil {
				assert.True(t, errors.Is(gotErr, tc.wantErr), "got %v", gotErr)
			}
		})
	}
}

func TestUserIDMissing(t *testing.T) {
	_, ok := UserID(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.False(t, ok)
}
