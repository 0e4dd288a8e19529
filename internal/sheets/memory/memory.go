// Package memory is an in-process sheets.Mirror used when no spreadsheet is
// configured and in tests.
package memory

import (
	"context"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/sheets"
)

type Mirror struct {
	mu     sync.Mutex
	header bool
	ids    []int64
	rows   map[int64][]any
}

var _ sheets.Mirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{rows: map[int64][]any{}}
}

func (m *Mirror) EnsureHeader(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.header = true
	return nil
}

func (m *Mirror) Upsert(_ context.Context, t core.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[t.ID]; !ok {
		m.ids = append(m.ids, t.ID)
	}
	m.rows[t.ID] = sheets.RowValues(t)
	return nil
}

func (m *Mirror) DeleteByID(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return nil
	}
	delete(m.rows, id)
	for i, v := range m.ids {
		if v == id {
			m.ids = append(m.ids[:i], m.ids[i+1:]...)
			break
		}
	}
	return nil
}

// Rows returns the sheet content in row order, header first when present.
func (m *Mirror) Rows() [][]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]any, 0, len(m.ids)+1)
	if m.header {
		out = append(out, append([]any(nil), sheets.Header...))
	}
	for _, id := range m.ids {
		out = append(out, append([]any(nil), m.rows[id]...))
	}
	return out
}
