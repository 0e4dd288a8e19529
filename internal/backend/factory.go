package backend

import (
	"context"
	"fmt"

	applog "fintrack/internal/log"
	"fintrack/internal/sheets"
	gsheet "fintrack/internal/sheets/google"
	sheetsmem "fintrack/internal/sheets/memory"
	"fintrack/internal/store/memory"
	"fintrack/internal/store/postgres"
	"fintrack/internal/store/sqlite"
)

type DefaultFactory struct {
	logger *applog.Logger
}

func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(applog.ComponentBackend)}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case PostgresBackend:
		return f.createPostgresBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*Result, error) {
	st, err := sqlite.Open(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &Result{Store: st, Cleanup: st.Close}, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (*Result, error) {
	st, err := postgres.Open(ctx, config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Postgres store: %w", err)
	}
	f.logger.Info("Initialized Postgres backend")
	return &Result{Store: st, Cleanup: st.Close}, nil
}

func (f *DefaultFactory) createMemoryBackend() (*Result, error) {
	st := memory.New()
	f.logger.Warn("Initialized memory backend; data is lost on restart")
	return &Result{Store: st, Cleanup: st.Close}, nil
}

func (f *DefaultFactory) CreateMirror(ctx context.Context, config MirrorConfig) (sheets.Mirror, error) {
	if config.SpreadsheetID == "" {
		f.logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, mirroring in memory")
		return sheetsmem.New(), nil
	}

	cli, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      config.SpreadsheetID,
		SheetName:          config.SheetName,
		ServiceAccountJSON: config.ServiceAccountJSON,
		ServiceAccountFile: config.ServiceAccountFile,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets mirror", "sheet", config.SheetName)
	return cli, nil
}
