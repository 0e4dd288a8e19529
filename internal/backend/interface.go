// Package backend builds the storage and mirror adapters selected by
// configuration.
package backend

import (
	"context"
	"slices"

	"fintrack/internal/sheets"
	"fintrack/internal/store"
)

// CleanupFunc releases what a factory opened.
type CleanupFunc func() error

// Result contains the store and its cleanup function.
type Result struct {
	Store   store.Store
	Cleanup CleanupFunc
}

// Factory creates adapters based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
	CreateMirror(ctx context.Context, config MirrorConfig) (sheets.Mirror, error)
}

type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Postgres specific
	DatabaseURL string
}

// MirrorConfig selects the spreadsheet mirror. Without a spreadsheet id the
// in-memory mirror is used.
type MirrorConfig struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
}

type BackendType string

const (
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
	MemoryBackend   BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	return slices.Contains(BackendTypes(), bt)
}

// BackendTypes lists every supported backend.
func BackendTypes() []BackendType {
	return []BackendType{SQLiteBackend, PostgresBackend, MemoryBackend}
}
