package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"fintrack/internal/core"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{"validation", core.Invalid("title is required"), http.StatusBadRequest, "title is required"},
		{"duplicate email", &core.Error{Kind: core.ErrDuplicateEmail, Message: "Email already registered"}, http.StatusBadRequest, "Email already registered"},
		{"bare conflict", fmt.Errorf("insert: %w", core.ErrConflict), http.StatusBadRequest, "Invalid request"},
		{"expired token", fmt.Errorf("resolve: %w", core.ErrTokenExpired), http.StatusUnauthorized, "Could not validate credentials"},
		{"unauthorized message", core.Unauthorized("Invalid email or password"), http.StatusUnauthorized, "Invalid email or password"},
		{"not found", fmt.Errorf("transaction 3: %w", core.ErrNotFound), http.StatusNotFound, "Not found"},
		{"upstream hides detail", &core.Error{Kind: core.ErrUpstream, Message: "key sk-123 rejected"}, http.StatusBadGateway, "AI service unavailable"},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, detail := statusFor(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantDetail, detail)
		})
	}
}

func TestWriteErrorInternalDetailNeverLeaks(t *testing.T) {
	s := &Server{}
	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)

	s.writeError(rr, r, fmt.Errorf("query: %w", errors.New("pq: password authentication failed")))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"detail":"Internal server error"}`, rr.Body.String())
}

func TestDecodeJSONRejectsOversizedBody(t *testing.T) {
	body := `{"question":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/ai/ask", strings.NewReader(body))

	var req askRequest
	err := decodeJSON(rr, r, &req)
	assert.True(t, errors.Is(err, core.ErrValidation))
}
