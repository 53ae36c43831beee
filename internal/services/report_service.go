package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"reportes/internal/amqp"
	"reportes/internal/core"
	"reportes/internal/export"
	applog "reportes/internal/log"
	"reportes/internal/metrics"
	"reportes/internal/source"
)

// ExportKind is the artifact requested through the asynchronous export queue.
type ExportKind string

const (
	ExportPDF    ExportKind = "pdf"
	ExportXLSX   ExportKind = "xlsx"
	ExportSheets ExportKind = "sheets"
)

var (
	ErrUnknownExportKind = errors.New("unknown export kind")
	ErrExportsDisabled   = errors.New("asynchronous exports are not configured")
)

func ParseExportKind(s string) (ExportKind, error) {
	switch k := ExportKind(s); k {
	case ExportPDF, ExportXLSX, ExportSheets:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownExportKind, s)
	}
}

// Artifact is a fully built download.
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

// JobPublisher enqueues export requests.
type JobPublisher interface {
	PublishExportRequest(ctx context.Context, msg *amqp.ExportRequestMessage) error
}

// SheetsPublisher writes report tables to an online spreadsheet.
type SheetsPublisher interface {
	PublishReport(ctx context.Context, total int, tables []export.Sheet, at time.Time) (string, error)
}

// ReportService runs the aggregation pipeline over a caller-owned session
// and feeds the exporters.
type ReportService struct {
	jobs    JobPublisher
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewReportService accepts a nil publisher (exports disabled) and nil metrics.
func NewReportService(jobs JobPublisher, m *metrics.Metrics) *ReportService {
	return &ReportService{jobs: jobs, metrics: m, now: time.Now}
}

// Snapshot gathers everything the general report needs: total, the five
// dimensions, both top-10 rankings and the grouped genders.
func (s *ReportService) Snapshot(ctx context.Context, sess source.Aggregator) (core.Snapshot, error) {
	total, err := sess.Total(ctx)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("count participants: %w", err)
	}

	results := make(core.DimensionResults, len(core.ReportDimensions()))
	for _, dim := range core.ReportDimensions() {
		rows, err := sess.Aggregate(ctx, dim)
		if err != nil {
			return core.Snapshot{}, fmt.Errorf("aggregate %s: %w", dim, err)
		}
		results[dim] = rows
	}

	return core.Snapshot{
		Total:           total,
		Results:         results,
		TopInstitutions: core.Top(results[core.DimensionInstitution], core.TopN),
		TopActivities:   core.Top(results[core.DimensionActivity], core.TopN),
		Genders:         core.GroupByGender(results[core.DimensionGender]),
	}, nil
}

// DimensionRows returns one dimension, truncated to top rows when top > 0.
func (s *ReportService) DimensionRows(ctx context.Context, sess source.Aggregator, dim core.Dimension, top int) ([]core.AggregateRow, error) {
	var (
		rows []core.AggregateRow
		err  error
	)
	if top > 0 {
		rows, err = sess.AggregateTop(ctx, dim, top)
	} else {
		rows, err = sess.Aggregate(ctx, dim)
	}
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", dim, err)
	}
	return rows, nil
}

// GenderGroups returns the three normalized gender buckets.
func (s *ReportService) GenderGroups(ctx context.Context, sess source.Aggregator) ([]core.AggregateRow, error) {
	rows, err := s.DimensionRows(ctx, sess, core.DimensionGender, 0)
	if err != nil {
		return nil, err
	}
	return core.GroupByGender(rows), nil
}

// DimensionWorkbook exports one dimension as a single-sheet workbook.
func (s *ReportService) DimensionWorkbook(ctx context.Context, sess source.Aggregator, dim core.Dimension, top int) (art Artifact, err error) {
	defer s.observe(ctx, "xlsx", time.Now(), &art, &err)

	rows, err := s.DimensionRows(ctx, sess, dim, top)
	if err != nil {
		return Artifact{}, err
	}
	data, err := export.BuildWorkbook([]export.Sheet{export.DimensionSheet(dim, rows)})
	if err != nil {
		return Artifact{}, fmt.Errorf("build %s workbook: %w", dim, err)
	}
	return Artifact{Filename: WorkbookFilename(dim, top), ContentType: export.ContentTypeXLSX, Data: data}, nil
}

// WorkbookFilename is categorias.xlsx, or top10_instituciones.xlsx for a top-10 export.
func WorkbookFilename(dim core.Dimension, top int) string {
	if top > 0 {
		return "top" + strconv.Itoa(top) + "_" + dim.Filename()
	}
	return dim.Filename()
}

// CombinedWorkbook exports all five dimensions as one workbook.
func (s *ReportService) CombinedWorkbook(ctx context.Context, sess source.Aggregator) (art Artifact, err error) {
	defer s.observe(ctx, "xlsx", time.Now(), &art, &err)

	results := make(core.DimensionResults, len(core.ReportDimensions()))
	for _, dim := range core.ReportDimensions() {
		rows, err := sess.Aggregate(ctx, dim)
		if err != nil {
			return Artifact{}, fmt.Errorf("aggregate %s: %w", dim, err)
		}
		results[dim] = rows
	}
	data, err := export.BuildCombinedWorkbook(results)
	if err != nil {
		return Artifact{}, fmt.Errorf("build combined workbook: %w", err)
	}
	return Artifact{Filename: export.CombinedWorkbookName, ContentType: export.ContentTypeXLSX, Data: data}, nil
}

// GeneralReport builds the PDF with tables and charts.
func (s *ReportService) GeneralReport(ctx context.Context, sess source.Aggregator) (art Artifact, err error) {
	defer s.observe(ctx, "pdf", time.Now(), &art, &err)

	snap, err := s.Snapshot(ctx, sess)
	if err != nil {
		return Artifact{}, err
	}
	data, err := export.BuildReport(snap, export.ReportOptions{Compress: true, GeneratedAt: s.now()})
	if err != nil {
		return Artifact{}, fmt.Errorf("build general report: %w", err)
	}
	return Artifact{Filename: export.GeneralReportName, ContentType: export.ContentTypePDF, Data: data}, nil
}

// PublishSheets pushes the current tables to Google Sheets and returns a
// small JSON receipt with the spreadsheet URL.
func (s *ReportService) PublishSheets(ctx context.Context, sess source.Aggregator, pub SheetsPublisher) (art Artifact, err error) {
	defer s.observe(ctx, "sheets", time.Now(), &art, &err)

	if pub == nil {
		return Artifact{}, errors.New("google sheets publisher is not configured")
	}
	snap, err := s.Snapshot(ctx, sess)
	if err != nil {
		return Artifact{}, err
	}
	tables := make([]export.Sheet, 0, len(core.ReportDimensions()))
	for _, dim := range core.ReportDimensions() {
		tables = append(tables, export.DimensionSheet(dim, snap.Results[dim]))
	}
	at := s.now()
	url, err := pub.PublishReport(ctx, snap.Total, tables, at)
	if err != nil {
		return Artifact{}, fmt.Errorf("publish to sheets: %w", err)
	}
	receipt, err := json.Marshal(map[string]any{
		"url":                url,
		"total_adolescentes": snap.Total,
		"publicado":          at.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("encode receipt: %w", err)
	}
	return Artifact{Filename: "publicacion_sheets.json", ContentType: "application/json", Data: receipt}, nil
}

// BuildExport builds the artifact for an asynchronous job kind.
func (s *ReportService) BuildExport(ctx context.Context, sess source.Aggregator, kind ExportKind, pub SheetsPublisher) (Artifact, error) {
	switch kind {
	case ExportPDF:
		return s.GeneralReport(ctx, sess)
	case ExportXLSX:
		return s.CombinedWorkbook(ctx, sess)
	case ExportSheets:
		return s.PublishSheets(ctx, sess, pub)
	default:
		return Artifact{}, fmt.Errorf("%w: %q", ErrUnknownExportKind, kind)
	}
}

// RequestExport enqueues a job and returns its id.
func (s *ReportService) RequestExport(ctx context.Context, kind ExportKind) (string, error) {
	if _, err := ParseExportKind(string(kind)); err != nil {
		return "", err
	}
	if s.jobs == nil {
		return "", ErrExportsDisabled
	}
	jobID := uuid.NewString()
	if err := s.jobs.PublishExportRequest(ctx, amqp.NewExportRequestMessage(jobID, string(kind))); err != nil {
		return "", fmt.Errorf("enqueue %s export: %w", kind, err)
	}
	slog.InfoContext(ctx, "Export requested", applog.FieldJobID, jobID, applog.FieldKind, kind)
	return jobID, nil
}

func (s *ReportService) observe(ctx context.Context, format string, start time.Time, art *Artifact, err *error) {
	s.metrics.ObserveRender(format, start, *err)
	if *err == nil {
		applog.LogArtifact(ctx, format, art.Filename, len(art.Data))
	}
}
