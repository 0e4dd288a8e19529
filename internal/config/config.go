// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"

	minSecretBytes = 16
)

type Config struct {
	// HTTP Server
	Port           string
	AllowedOrigins []string
	TrustedProxies []string
	RateLimitRPM   int

	// Storage
	DataBackend  string
	SQLiteDBPath string
	DatabaseURL  string

	// Auth
	JWTSecret  string
	JWTIssuer  string
	TokenTTL   time.Duration
	BcryptCost int

	// Advisory gateway (any OpenAI-compatible endpoint)
	AIAPIURL  string
	AIAPIKey  string
	AIModel   string
	AITimeout time.Duration

	// Analytics cache
	AnalyticsCacheTTL  time.Duration
	CacheSweepSchedule string

	// AMQP; publishing is disabled when AMQPURL is empty.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8000"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		TrustedProxies: getEnvList("TRUSTED_PROXIES", nil),
		RateLimitRPM:   getEnvInt("RATE_LIMIT_PER_MINUTE", 20),

		DataBackend:  getEnv("DATA_BACKEND", BackendSQLite),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/fintrack.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		JWTSecret:  getEnv("JWT_SECRET", ""),
		JWTIssuer:  getEnv("JWT_ISSUER", "fintrack"),
		TokenTTL:   getEnvDuration("TOKEN_TTL", 24*time.Hour),
		BcryptCost: getEnvInt("BCRYPT_COST", 10),

		AIAPIURL:  getEnv("AI_API_URL", "https://api.groq.com/openai/v1"),
		AIAPIKey:  getEnv("AI_API_KEY", ""),
		AIModel:   getEnv("AI_MODEL", "llama-3.1-8b-instant"),
		AITimeout: getEnvDuration("AI_TIMEOUT", 30*time.Second),

		AnalyticsCacheTTL:  getEnvDuration("ANALYTICS_CACHE_TTL", time.Minute),
		CacheSweepSchedule: getEnv("CACHE_SWEEP_SCHEDULE", "@every 5m"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "fintrack"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "transaction_events"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Transactions"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// Validate checks the settings the API server needs and reports every
// problem at once.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	errs = append(errs, c.validateStorage()...)

	if c.JWTSecret == "" {
		if c.DataBackend != BackendMemory {
			errs = append(errs, "JWT_SECRET is required")
		}
	} else if len(c.JWTSecret) < minSecretBytes {
		errs = append(errs, fmt.Sprintf("JWT_SECRET must be at least %d bytes", minSecretBytes))
	}
	if c.TokenTTL < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid token TTL %v: must be at least 1 minute", c.TokenTTL))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Sprintf("invalid bcrypt cost %d: must be between 4 and 31", c.BcryptCost))
	}

	if u, err := url.Parse(c.AIAPIURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Sprintf("invalid AI API URL '%s': must be an absolute http(s) URL", c.AIAPIURL))
	}
	if c.AIModel == "" {
		errs = append(errs, "AI model cannot be empty")
	}
	if c.AITimeout <= 0 {
		errs = append(errs, fmt.Sprintf("invalid AI timeout %v: must be positive", c.AITimeout))
	}

	if c.RateLimitRPM < 1 {
		errs = append(errs, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitRPM))
	}
	if c.AnalyticsCacheTTL <= 0 {
		errs = append(errs, fmt.Sprintf("invalid analytics cache TTL %v: must be positive", c.AnalyticsCacheTTL))
	}
	if _, err := cron.ParseStandard(c.CacheSweepSchedule); err != nil {
		errs = append(errs, fmt.Sprintf("invalid cache sweep schedule '%s': %v", c.CacheSweepSchedule, err))
	}

	errs = append(errs, c.validateAMQP()...)
	errs = append(errs, c.validateLogging()...)

	return joinErrors(errs)
}

// ValidateWorker checks the settings of the sheet mirror worker.
func (c *Config) ValidateWorker() error {
	var errs []string

	errs = append(errs, c.validateStorage()...)
	if c.DataBackend == BackendMemory {
		errs = append(errs, "the mirror worker needs a shared data backend (sqlite or postgres), not memory")
	}
	if c.AMQPURL == "" {
		errs = append(errs, "AMQP_URL is required for the mirror worker")
	}
	errs = append(errs, c.validateAMQP()...)

	if c.GoogleSpreadsheetID != "" {
		if c.GoogleSheetName == "" {
			errs = append(errs, "Google sheet name cannot be empty when a spreadsheet is configured")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			errs = append(errs, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided")
		}
		if c.GoogleServiceAccountFile != "" && c.GoogleServiceAccountJSON == "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); err != nil {
				errs = append(errs, fmt.Sprintf("Google service account file is not readable: %s", c.GoogleServiceAccountFile))
			}
		}
	}
	errs = append(errs, c.validateLogging()...)

	return joinErrors(errs)
}

// ValidateStorage checks only what a store connection needs.
func (c *Config) ValidateStorage() error {
	return joinErrors(c.validateStorage())
}

func (c *Config) validateStorage() []string {
	var errs []string
	switch c.DataBackend {
	case BackendMemory:
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL is required when using postgres backend")
		} else if u, err := url.Parse(c.DatabaseURL); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			errs = append(errs, "invalid DATABASE_URL: must be a postgres:// URL")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of [%s %s %s]",
			c.DataBackend, BackendMemory, BackendSQLite, BackendPostgres))
	}
	return errs
}

func (c *Config) validateAMQP() []string {
	if c.AMQPURL == "" {
		return nil
	}
	var errs []string
	if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
		errs = append(errs, fmt.Sprintf("invalid AMQP URL: %v", err))
	} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
		errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
	}
	if c.AMQPExchange == "" {
		errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
	}
	if c.AMQPQueue == "" {
		errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
	}
	return errs
}

func (c *Config) validateLogging() []string {
	var errs []string
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}
	return errs
}

func joinErrors(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping empty items.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
