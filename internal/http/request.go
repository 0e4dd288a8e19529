package http

import (
	"bytes"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"
)

// Layouts accepted for a transaction date. Values without an offset are UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// requestTime is a timestamp as sent by clients.
type requestTime struct{ time.Time }

func (t *requestTime) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(bytes.TrimSpace(b), `"`))
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if v, err := time.Parse(layout, s); err == nil {
			t.Time = v.UTC().Truncate(core.DatePrecision)
			return nil
		}
	}
	return core.Invalid("date must be an ISO 8601 date or datetime")
}

type transactionRequest struct {
	Title    string       `json:"title"`
	Amount   *core.Money  `json:"amount"`
	Category string       `json:"category"`
	Type     string       `json:"type"`
	Note     *string      `json:"note"`
	Date     *requestTime `json:"date"`
}

// toInput converts the body into a domain input; field rules are checked by
// the service.
func (req transactionRequest) toInput() (core.TransactionInput, error) {
	if req.Amount == nil {
		return core.TransactionInput{}, core.Invalid("amount is required")
	}
	typ, err := core.ParseTransactionType(req.Type)
	if err != nil {
		return core.TransactionInput{}, err
	}
	in := core.TransactionInput{
		Title:    sanitizeInput(req.Title),
		Amount:   *req.Amount,
		Category: sanitizeInput(req.Category),
		Type:     typ,
	}
	if req.Note != nil {
		note := sanitizeInput(*req.Note)
		in.Note = &note
	}
	if req.Date != nil && !req.Date.IsZero() {
		d := req.Date.Time
		in.Date = &d
	}
	return in, nil
}

// parseListFilter reads skip, limit, type and category. Empty values are
// treated as absent.
func parseListFilter(q url.Values) (core.ListFilter, error) {
	var f core.ListFilter
	if v := strings.TrimSpace(q.Get("skip")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, core.Invalid("skip must be an integer")
		}
		f.Skip = n
	}
	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, core.Invalid("limit must be an integer")
		}
		f.Limit = n
	}
	if v := strings.TrimSpace(q.Get("type")); v != "" {
		typ, err := core.ParseTransactionType(v)
		if err != nil {
			return f, err
		}
		f.Type = &typ
	}
	if v := q.Get("category"); v != "" {
		f.Category = &v
	}
	return f.Normalize(), nil
}

// pathID parses the {id} wildcard. Anything but a positive integer cannot
// name a transaction.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &core.Error{Kind: core.ErrNotFound, Message: "Transaction not found"}
	}
	return id, nil
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
