package backend

import (
	"fmt"
	"strings"

	"fintrack/internal/config"
)

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %q (valid: %s)", appConfig.DataBackend, validTypes())
	}

	return Config{
		Type:         backendType,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		DatabaseURL:  appConfig.DatabaseURL,
	}, nil
}

// MirrorFromAppConfig extracts the spreadsheet mirror settings.
func MirrorFromAppConfig(appConfig *config.Config) MirrorConfig {
	return MirrorConfig{
		SpreadsheetID:      appConfig.GoogleSpreadsheetID,
		SheetName:          appConfig.GoogleSheetName,
		ServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		ServiceAccountFile: appConfig.GoogleServiceAccountFile,
	}
}

func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for postgres backend")
		}
	case MemoryBackend:
	}
	return nil
}

func validTypes() string {
	names := make([]string, 0, len(BackendTypes()))
	for _, t := range BackendTypes() {
		names = append(names, t.String())
	}
	return strings.Join(names, ", ")
}
