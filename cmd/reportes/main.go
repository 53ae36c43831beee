package main

import (
	"context"
	"errors"
	"os"
	"time"

	"reportes/internal/amqp"
	"reportes/internal/blob"
	"reportes/internal/cli"
	apphttp "reportes/internal/http"
	applog "reportes/internal/log"
	"reportes/internal/metrics"
	"reportes/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp, os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	be := cli.InitBackend(ctx, logger, cfg)
	defer be.Close()

	m := metrics.New()

	// Async exports need both the queue and the artifact store.
	var (
		jobs    services.JobPublisher
		exports blob.Store
	)
	if cfg.ExportsEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		jobs = client

		exports, err = blob.Open(ctx, cli.BlobConfig(cfg))
		if err != nil {
			logger.Error("Failed to open export store", "error", err, "driver", cfg.BlobDriver)
			os.Exit(1)
		}
		logger.Info("Asynchronous exports enabled", "exchange", cfg.AMQPExchange, "blob_driver", cfg.BlobDriver)
	} else {
		logger.Info("Asynchronous exports disabled - no AMQP_URL provided")
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:             ":" + cfg.Port,
		Opener:           be.Opener,
		Reports:          services.NewReportService(jobs, m),
		Exports:          exports,
		Metrics:          m,
		Logger:           applog.New(applog.Config{Component: applog.ComponentHTTP, Level: applog.ParseLevel(cfg.LogLevel), Output: os.Stdout}),
		QueryTimeout:     cfg.QueryTimeout,
		DashboardRefresh: cfg.DashboardRefresh,
		ExportRateLimit:  cfg.ExportRateLimit,
	})

	logger.Info("Starting reportes server", "port", cfg.Port, "backend", cfg.DataBackend, "pushdown", cfg.ReportPushdown)
	if err := srv.Run(ctx, 30*time.Second); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
