// Command custdash-import loads a db.json style document into the data
// backend, either directly or through the broker when AMQP_URL is set.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"custdash/internal/cli"
	applog "custdash/internal/log"
	"custdash/internal/services"
	"custdash/internal/sources/memory"
)

func main() {
	cli.LoadEnvFile()

	path := flag.String("file", "data/db.json", "JSON document with customers and transactions")
	viaBroker := flag.Bool("amqp", false, "publish records to the broker instead of writing the backend")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall import timeout")
	flag.Parse()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	f, err := os.Open(*path)
	if err != nil {
		logger.Error("Failed to open import file", applog.FieldError, err, "file", *path)
		os.Exit(1)
	}
	doc, err := memory.Decode(f)
	f.Close()
	if err != nil {
		logger.Error("Failed to decode import file", applog.FieldError, err, "file", *path)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var svc *services.IngestService
	if *viaBroker {
		if err := cfg.RequireAMQP(); err != nil {
			logger.Error("Configuration validation failed", applog.FieldError, err)
			os.Exit(1)
		}
		client := cli.InitAMQP(logger, cfg)
		defer client.Close()
		svc = services.NewIngestService(nil, client, logger)
	} else {
		result := cli.InitBackend(ctx, logger, cfg)
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
		svc = services.NewIngestService(result.Sink, nil, logger)
	}

	res, err := svc.ImportDocument(ctx, doc.Customers, doc.Transactions)
	if err != nil {
		logger.Error("Import failed",
			applog.FieldError, err,
			"customers", res.Customers,
			"transactions", res.Transactions)
		os.Exit(1)
	}
	logger.Info("Import finished",
		"file", *path,
		"customers", res.Customers,
		"transactions", res.Transactions,
		"via_broker", *viaBroker)
}
