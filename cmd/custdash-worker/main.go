package main

import (
	"context"
	"errors"
	"os"
	"time"

	"custdash/internal/cli"
	applog "custdash/internal/log"
	"custdash/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting custdash-worker", applog.FieldOperation, applog.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger)
	if err := cfg.RequireAMQP(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	result := cli.InitBackend(context.Background(), logger, cfg)
	defer func() {
		if err := result.Close(); err != nil {
			logger.Error("Failed to close backend", applog.FieldError, err)
		}
	}()
	if result.Sink == nil {
		logger.Error("Data backend does not accept writes",
			"backend", cfg.DataBackend,
			"error_type", applog.ErrorTypeConfiguration)
		os.Exit(1)
	}

	amqpClient := cli.InitAMQP(logger, cfg)
	defer amqpClient.Close()

	ingestWorker := worker.NewIngestWorker(result.Sink, logger)

	ctx, done := cli.GracefulShutdown(logger, 15*time.Second, nil)

	// Consume reconnects on its own and only returns on cancellation.
	err := amqpClient.Consume(ctx, cfg.IngestPrefetch, ingestWorker.HandleMessage)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", applog.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)

	processed, rejected := ingestWorker.Stats()
	logger.Info("Worker stopped",
		"processed", processed,
		"rejected", rejected)
}
