package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"reportes/internal/amqp"
	"reportes/internal/blob"
	applog "reportes/internal/log"
	"reportes/internal/metrics"
	"reportes/internal/services"
	"reportes/internal/source"
)

// ExportWorker builds queued export jobs and stores the artifacts under
// blob.ExportKey(job_id).
type ExportWorker struct {
	opener  source.Opener
	reports *services.ReportService
	store   blob.Store
	sheets  services.SheetsPublisher
	metrics *metrics.Metrics
	timeout time.Duration
}

// NewExportWorker wires the worker. sheets may be nil, in which case
// sheets jobs are rejected. timeout <= 0 disables the per-job deadline.
func NewExportWorker(opener source.Opener, reports *services.ReportService, store blob.Store, sheets services.SheetsPublisher, m *metrics.Metrics, timeout time.Duration) *ExportWorker {
	return &ExportWorker{
		opener:  opener,
		reports: reports,
		store:   store,
		sheets:  sheets,
		metrics: m,
		timeout: timeout,
	}
}

// HandleExportRequest processes a single export job from AMQP. Jobs that can
// never succeed are marked permanent so the broker drops them.
func (w *ExportWorker) HandleExportRequest(ctx context.Context, msg *amqp.ExportRequestMessage) (err error) {
	defer func() { w.metrics.ObserveJob(msg.Kind, err) }()

	kind, err := services.ParseExportKind(msg.Kind)
	if err != nil {
		return amqp.Permanent(err)
	}
	if kind == services.ExportSheets && w.sheets == nil {
		return amqp.Permanent(fmt.Errorf("job %s: google sheets publishing is not configured", msg.JobID))
	}

	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	start := time.Now()
	sess, err := w.opener.Open(ctx)
	if err != nil {
		return fmt.Errorf("job %s: open session: %w", msg.JobID, err)
	}
	defer sess.Close()

	art, err := w.reports.BuildExport(ctx, sess, kind, w.sheets)
	if err != nil {
		return fmt.Errorf("job %s: %w", msg.JobID, err)
	}

	err = w.store.Put(ctx, blob.Object{
		Key:         blob.ExportKey(msg.JobID),
		ContentType: art.ContentType,
		Filename:    art.Filename,
		Data:        art.Data,
	})
	if err != nil {
		return fmt.Errorf("job %s: store artifact: %w", msg.JobID, err)
	}

	slog.InfoContext(ctx, "Export job stored",
		applog.FieldJobID, msg.JobID,
		applog.FieldKind, msg.Kind,
		applog.FieldBytes, len(art.Data),
		"queued_for", start.Sub(msg.RequestedAt).Round(time.Millisecond),
		"build_time", time.Since(start).Round(time.Millisecond))
	return nil
}
