package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"fintrack/internal/amqp"
	"fintrack/internal/backend"
	"fintrack/internal/config"
	applog "fintrack/internal/log"
	"fintrack/internal/worker"
)

func main() {
	resyncOwner := flag.Int64("resync-owner", 0, "mirror every transaction of this user id, then exit")
	flag.Parse()

	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()
	logger := applog.FromSettings(cfg.LogLevel, cfg.LogFormat).WithComponent(applog.ComponentWorker)
	applog.SetDefault(logger)

	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	if err := run(cfg, logger, *resyncOwner); err != nil {
		logger.Error("Worker exited with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped")
}

func run(cfg *config.Config, logger *applog.Logger, resyncOwner int64) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	factory := backend.NewFactory(logger)
	res, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Failed to close store", applog.FieldError, err)
		}
	}()

	mirror, err := factory.CreateMirror(ctx, backend.MirrorFromAppConfig(cfg))
	if err != nil {
		return err
	}
	w := worker.NewSyncWorker(res.Store, mirror, logger)

	if resyncOwner > 0 {
		if err := mirror.EnsureHeader(ctx); err != nil {
			return err
		}
		n, err := w.ResyncOwner(ctx, resyncOwner)
		if err != nil {
			return err
		}
		logger.Info("Resync completed", applog.FieldUserID, resyncOwner, "rows", n)
		return nil
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	logger.Info("Starting fintrack-worker", "queue", cfg.AMQPQueue)
	if err := w.Run(ctx, client); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	s := w.Stats()
	logger.Info("Worker totals", "processed", s.Processed, "failed", s.Failed)
	return nil
}
