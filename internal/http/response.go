package http

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

type (
	errorResponse struct {
		Detail string `json:"detail"`
	}

	messageResponse struct {
		Message string `json:"message"`
	}
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"Internal server error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// statusFor maps an error to its status code and the message the client sees.
// Only core.Error messages and fixed strings ever leave the process.
func statusFor(err error) (int, string) {
	msg, public := core.PublicMessage(err)
	var (
		status   int
		fallback string
	)
	switch {
	case errors.Is(err, core.ErrValidation), errors.Is(err, core.ErrConflict):
		status, fallback = http.StatusBadRequest, "Invalid request"
	case errors.Is(err, core.ErrUnauthorized):
		status, fallback = http.StatusUnauthorized, "Could not validate credentials"
	case errors.Is(err, core.ErrNotFound):
		status, fallback = http.StatusNotFound, "Not found"
	case errors.Is(err, core.ErrUpstream):
		return http.StatusBadGateway, "AI service unavailable"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
	if !public {
		msg = fallback
	}
	return status, msg
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	if status >= http.StatusInternalServerError {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, applog.ComponentHTTP, r.Method+" "+r.Pattern, nil)
	}
	writeJSON(w, status, errorResponse{Detail: msg})
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if _, ok := core.PublicMessage(err); ok {
			return err
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return core.Invalid("Request body too large")
		}
		return core.Invalid("Invalid request body")
	}
	return nil
}
