package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fintrack/internal/advisor"
	"fintrack/internal/amqp"
	"fintrack/internal/analytics"
	"fintrack/internal/backend"
	"fintrack/internal/cache"
	"fintrack/internal/config"
	"fintrack/internal/credential"
	apphttp "fintrack/internal/http"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/token"
)

const (
	reportCacheSize = 1000
	shutdownTimeout = 30 * time.Second
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()
	logger := applog.FromSettings(cfg.LogLevel, cfg.LogFormat)
	applog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("Server exited with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg *config.Config, logger *applog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Failed to close store", applog.FieldError, err)
		}
	}()

	issuer, err := newIssuer(cfg, logger)
	if err != nil {
		return err
	}

	reportCache := cache.NewLRUCache[analytics.Report](reportCacheSize, cfg.AnalyticsCacheTTL)
	caches := cache.NewManager(logger)
	caches.Register(reportCache)
	if err := caches.StartCleanup(cfg.CacheSweepSchedule); err != nil {
		return err
	}
	defer caches.Stop()
	engine := analytics.NewEngine(res.Store, reportCache, logger)

	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			return fmt.Errorf("connect to AMQP broker: %w", err)
		}
		defer client.Close()
		publisher = client
		logger.Info("Publishing transaction events", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	hasher := credential.NewHasher(cfg.BcryptCost)
	completer := advisor.NewOpenAIClient(advisor.ClientConfig{
		BaseURL: cfg.AIAPIURL,
		APIKey:  cfg.AIAPIKey,
		Model:   cfg.AIModel,
		Timeout: cfg.AITimeout,
	}, logger)
	if cfg.AIAPIKey == "" {
		logger.Warn("AI_API_KEY is empty; advisory requests will likely be rejected upstream")
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Auth:         services.NewAuthService(res.Store, hasher, issuer, logger),
		Transactions: services.NewTransactionService(res.Store, publisher, engine, logger),
		Reports:      engine,
		Advisor:      advisor.NewGateway(completer, engine, res.Store),
		Store:        res.Store,
		Logger:       logger,
	}, apphttp.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		TrustedProxies: cfg.TrustedProxies,
		AuthRateLimit:  cfg.RateLimitRPM,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting fintrack server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newIssuer builds the token issuer. The memory backend may run without a
// configured secret; tokens then die with the process.
func newIssuer(cfg *config.Config, logger *applog.Logger) (*token.Issuer, error) {
	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate token secret: %w", err)
		}
		logger.Warn("JWT_SECRET not set; using an ephemeral secret")
	}
	return token.NewIssuer(token.Config{Secret: secret, TTL: cfg.TokenTTL, Issuer: cfg.JWTIssuer})
}
