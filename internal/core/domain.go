package core

import (
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	// DefaultListLimit is used when a list request carries no limit.
	DefaultListLimit = 100
	// MaxListLimit caps the page size of a single list call.
	MaxListLimit = 1000
)

type (
	TransactionType string

	User struct {
		ID           int64
		Name         string
		Email        string
		PasswordHash string
		CreatedAt    time.Time
	}

	Transaction struct {
		ID        int64
		OwnerID   int64
		Title     string
		Amount    Money
		Category  string
		Type      TransactionType
		Note      *string
		Date      time.Time // occurrence date
		CreatedAt time.Time
	}

	// TransactionInput is the full field set accepted by create and update.
	// A nil Date means "now".
	TransactionInput struct {
		Title    string
		Amount   Money
		Category string
		Type     TransactionType
		Note     *string
		Date     *time.Time
	}

	ListFilter struct {
		Type     *TransactionType
		Category *string
		Skip     int
		Limit    int
	}
)

// ParseTransactionType accepts the lower-case wire form, ignoring surrounding
// whitespace and case.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", Invalid("type must be 'income' or 'expense'")
	}
	return t, nil
}

func (t TransactionType) IsValid() bool {
	return t == Income || t == Expense
}

func (t TransactionType) String() string { return string(t) }

// Validate checks the fields a caller controls.
func (in TransactionInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return Invalid("title is required")
	}
	if strings.TrimSpace(in.Category) == "" {
		return Invalid("category is required")
	}
	if !in.Type.IsValid() {
		return Invalid("type must be 'income' or 'expense'")
	}
	if err := in.Amount.Validate(); err != nil {
		return err
	}
	return nil
}

// Normalize returns a copy with defaults applied: pagination bounds clamped.
func (f ListFilter) Normalize() ListFilter {
	if f.Skip < 0 {
		f.Skip = 0
	}
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	return f
}

// Matches reports whether t passes the type and category filters.
func (f ListFilter) Matches(t Transaction) bool {
	if f.Type != nil && t.Type != *f.Type {
		return false
	}
	if f.Category != nil && t.Category != *f.Category {
		return false
	}
	return true
}

// DatePrecision is the finest date resolution every store keeps; postgres
// timestamptz stops at microseconds.
const DatePrecision = time.Microsecond

// DateOrNow resolves the occurrence date of an input, truncated to
// DatePrecision.
func (in TransactionInput) DateOrNow(now time.Time) time.Time {
	if in.Date == nil || in.Date.IsZero() {
		return now.UTC().Truncate(DatePrecision)
	}
	return in.Date.UTC().Truncate(DatePrecision)
}
