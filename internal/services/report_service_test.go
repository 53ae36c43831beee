package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"reportes/internal/amqp"
	"reportes/internal/core"
	"reportes/internal/export"
	"reportes/internal/source"
	"reportes/internal/source/memory"
)

func scenarioSession(t *testing.T) source.Session {
	t.Helper()
	store := memory.New([]core.ParticipantRecord{
		{ID: 1, Categoria: "A", Institucion: "X", Actividad: "P1", Genero: "Mujer", TramoEdad: core.Bracket13To15},
		{ID: 2, Categoria: "A", Institucion: "Y", Actividad: "P2", Genero: "Varon", TramoEdad: core.Bracket16To18},
		{ID: 3, Categoria: "B", Institucion: "X", Actividad: "P1", Genero: "f", TramoEdad: core.Bracket13To15},
	})
	sess, err := store.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { sess.Close() })
	return sess
}

func TestSnapshotScenario(t *testing.T) {
	svc := NewReportService(nil, nil)
	snap, err := svc.Snapshot(context.Background(), scenarioSession(t))
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Total != 3 {
		t.Errorf("Total = %d, want 3", snap.Total)
	}
	wantCat := []core.AggregateRow{{Value: "A", Count: 2}, {Value: "B", Count: 1}}
	if diff := cmp.Diff(wantCat, snap.Results[core.DimensionCategory]); diff != "" {
		t.Errorf("category mismatch (-want +got):\n%s", diff)
	}
	wantGender := []core.AggregateRow{{Value: "mujer", Count: 2}, {Value: "varon", Count: 1}, {Value: "otros", Count: 0}}
	if diff := cmp.Diff(wantGender, snap.Genders); diff != "" {
		t.Errorf("gender mismatch (-want +got):\n%s", diff)
	}
	if len(snap.TopInstitutions) != 2 || snap.TopInstitutions[0].Value != "X" {
		t.Errorf("unexpected top institutions: %+v", snap.TopInstitutions)
	}
}

func TestDimensionWorkbook(t *testing.T) {
	svc := NewReportService(nil, nil)
	sess := scenarioSession(t)

	art, err := svc.DimensionWorkbook(context.Background(), sess, core.DimensionInstitution, core.TopN)
	if err != nil {
		t.Fatalf("DimensionWorkbook: %v", err)
	}
	if art.Filename != "top10_instituciones.xlsx" || art.ContentType != export.ContentTypeXLSX {
		t.Errorf("unexpected artifact headers: %s %s", art.Filename, art.ContentType)
	}
	f, err := excelize.OpenReader(bytes.NewReader(art.Data))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()
	rows, _ := f.GetRows("Institución")
	want := [][]string{{"Institución", "Cantidad"}, {"X", "2"}, {"Y", "1"}}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestWorkbookFilename(t *testing.T) {
	tests := []struct {
		dim  core.Dimension
		top  int
		want string
	}{
		{core.DimensionCategory, 0, "categorias.xlsx"},
		{core.DimensionAgeBracket, 0, "tramo_edad.xlsx"},
		{core.DimensionActivity, 10, "top10_actividades.xlsx"},
	}
	for _, tt := range tests {
		if got := WorkbookFilename(tt.dim, tt.top); got != tt.want {
			t.Errorf("WorkbookFilename(%s, %d) = %s, want %s", tt.dim, tt.top, got, tt.want)
		}
	}
}

func TestCombinedWorkbookAndReport(t *testing.T) {
	svc := NewReportService(nil, nil)
	sess := scenarioSession(t)
	ctx := context.Background()

	xlsx, err := svc.CombinedWorkbook(ctx, sess)
	if err != nil {
		t.Fatalf("CombinedWorkbook: %v", err)
	}
	if xlsx.Filename != "reporte_completo.xlsx" {
		t.Errorf("filename = %s", xlsx.Filename)
	}

	pdf, err := svc.GeneralReport(ctx, sess)
	if err != nil {
		t.Fatalf("GeneralReport: %v", err)
	}
	if pdf.Filename != "reporte_general.pdf" || !bytes.HasPrefix(pdf.Data, []byte("%PDF-")) {
		t.Errorf("unexpected pdf artifact %s (%d bytes)", pdf.Filename, len(pdf.Data))
	}
}

type failingSession struct{ source.Session }

var errDB = errors.New("database unavailable")

func (failingSession) Total(context.Context) (int, error) { return 0, errDB }
func (failingSession) Aggregate(context.Context, core.Dimension) ([]core.AggregateRow, error) {
	return nil, errDB
}
func (failingSession) AggregateTop(context.Context, core.Dimension, int) ([]core.AggregateRow, error) {
	return nil, errDB
}

func TestDataAccessErrorsPropagate(t *testing.T) {
	svc := NewReportService(nil, nil)
	ctx := context.Background()
	sess := failingSession{}

	if _, err := svc.GeneralReport(ctx, sess); !errors.Is(err, errDB) {
		t.Errorf("GeneralReport err = %v", err)
	}
	if _, err := svc.CombinedWorkbook(ctx, sess); !errors.Is(err, errDB) {
		t.Errorf("CombinedWorkbook err = %v", err)
	}
	if _, err := svc.DimensionRows(ctx, sess, core.DimensionCategory, 10); !errors.Is(err, errDB) {
		t.Errorf("DimensionRows err = %v", err)
	}
}

type recordingPublisher struct {
	msgs []*amqp.ExportRequestMessage
	err  error
}

func (p *recordingPublisher) PublishExportRequest(_ context.Context, msg *amqp.ExportRequestMessage) error {
	p.msgs = append(p.msgs, msg)
	return p.err
}

func TestRequestExport(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc := NewReportService(pub, nil)

	id, err := svc.RequestExport(ctx, ExportPDF)
	if err != nil {
		t.Fatalf("RequestExport: %v", err)
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("job id %q is not a uuid", id)
	}
	if len(pub.msgs) != 1 || pub.msgs[0].JobID != id || pub.msgs[0].Kind != "pdf" {
		t.Errorf("unexpected published messages: %+v", pub.msgs)
	}

	if _, err := svc.RequestExport(ctx, ExportKind("docx")); !errors.Is(err, ErrUnknownExportKind) {
		t.Errorf("unknown kind err = %v", err)
	}
	if _, err := NewReportService(nil, nil).RequestExport(ctx, ExportXLSX); !errors.Is(err, ErrExportsDisabled) {
		t.Errorf("disabled err = %v", err)
	}
	pub.err = errors.New("broker down")
	if _, err := svc.RequestExport(ctx, ExportXLSX); err == nil {
		t.Error("expected publish error")
	}
}

type fakeSheets struct {
	total  int
	tables []export.Sheet
}

func (f *fakeSheets) PublishReport(_ context.Context, total int, tables []export.Sheet, _ time.Time) (string, error) {
	f.total, f.tables = total, tables
	return "https://docs.google.com/spreadsheets/d/abc", nil
}

func TestBuildExportSheets(t *testing.T) {
	svc := NewReportService(nil, nil)
	svc.now = func() time.Time { return time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC) }
	pub := &fakeSheets{}

	art, err := svc.BuildExport(context.Background(), scenarioSession(t), ExportSheets, pub)
	if err != nil {
		t.Fatalf("BuildExport: %v", err)
	}
	if pub.total != 3 || len(pub.tables) != 5 {
		t.Errorf("published total=%d tables=%d", pub.total, len(pub.tables))
	}
	var receipt map[string]any
	if err := json.Unmarshal(art.Data, &receipt); err != nil {
		t.Fatalf("receipt is not JSON: %v", err)
	}
	if receipt["url"] != "https://docs.google.com/spreadsheets/d/abc" || receipt["publicado"] != "2025-05-01T00:00:00Z" {
		t.Errorf("unexpected receipt: %v", receipt)
	}

	if _, err := svc.BuildExport(context.Background(), scenarioSession(t), ExportSheets, nil); err == nil {
		t.Error("expected error without publisher")
	}
	if _, err := svc.BuildExport(context.Background(), scenarioSession(t), ExportKind("zip"), nil); !errors.Is(err, ErrUnknownExportKind) {
		t.Errorf("unknown kind err = %v", err)
	}
}
