// Package sheets defines the spreadsheet mirror of the transaction table.
package sheets

import (
	"context"
	"time"

	"fintrack/internal/core"
)

// Mirror keeps one spreadsheet row per transaction, keyed by the id column.
type Mirror interface {
	// EnsureHeader writes Header into the first row when the sheet is empty.
	EnsureHeader(ctx context.Context) error
	// Upsert rewrites the row of t.ID in place or appends it.
	Upsert(ctx context.Context, t core.Transaction) error
	// DeleteByID removes the row of id. A missing row is not an error.
	DeleteByID(ctx context.Context, id int64) error
}

// Header is the first row of a mirrored sheet. Column A holds the id.
var Header = []any{"ID", "Owner", "Date", "Type", "Title", "Category", "Amount", "Note", "Created At"}

// RowValues renders t in Header order.
func RowValues(t core.Transaction) []any {
	note := ""
	if t.Note != nil {
		note = *t.Note
	}
	return []any{
		t.ID,
		t.OwnerID,
		t.Date.UTC().Format("2006-01-02"),
		t.Type.String(),
		t.Title,
		t.Category,
		t.Amount.Float(),
		note,
		t.CreatedAt.UTC().Format(time.RFC3339),
	}
}
