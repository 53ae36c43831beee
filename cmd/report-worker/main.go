package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"reportes/internal/amqp"
	"reportes/internal/blob"
	"reportes/internal/cli"
	applog "reportes/internal/log"
	"reportes/internal/metrics"
	"reportes/internal/services"
	gsheet "reportes/internal/sheets/google"
	"reportes/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker, os.Getenv("LOG_LEVEL"))
	logger.Info("Starting report-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if !cfg.ExportsEnabled() {
		logger.Error("report-worker requires AMQP_URL")
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	be := cli.InitBackend(ctx, logger, cfg)
	defer be.Close()

	store, err := blob.Open(ctx, cli.BlobConfig(cfg))
	if err != nil {
		logger.Error("Failed to open export store", "error", err, "driver", cfg.BlobDriver)
		os.Exit(1)
	}

	// Left as an untyped nil when disabled so the worker sees no publisher.
	var sheets services.SheetsPublisher
	if cfg.SheetsEnabled() {
		pub, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets publisher", "error", err)
			os.Exit(1)
		}
		sheets = pub
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	m := metrics.New()
	w := worker.NewExportWorker(be.Opener, services.NewReportService(nil, m), store, sheets, m, cfg.QueryTimeout)

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", m.Handler())
	metricsSrv := &http.Server{Addr: ":" + cfg.Port, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.ConsumeWithReconnect(gctx, w.HandleExportRequest)
	})
	g.Go(func() error {
		logger.Info("Worker metrics listening", "addr", metricsSrv.Addr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}
	logger.Info("report-worker stopped")
}
