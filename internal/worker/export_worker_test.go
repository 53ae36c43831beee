package worker

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"reportes/internal/amqp"
	"reportes/internal/blob"
	"reportes/internal/core"
	"reportes/internal/export"
	"reportes/internal/services"
	"reportes/internal/source"
	"reportes/internal/source/memory"
)

func newWorker(t *testing.T, sheets services.SheetsPublisher) (*ExportWorker, blob.Store) {
	t.Helper()
	store, err := blob.NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	data := memory.New([]core.ParticipantRecord{
		{ID: 1, Categoria: "A", Institucion: "X", Actividad: "P1", Genero: "Mujer"},
		{ID: 2, Categoria: "B", Institucion: "Y", Actividad: "P2", Genero: "M"},
	})
	return NewExportWorker(data, services.NewReportService(nil, nil), store, sheets, nil, time.Minute), store
}

func TestHandleExportRequestStoresArtifact(t *testing.T) {
	w, store := newWorker(t, nil)
	ctx := context.Background()

	for kind, wantName := range map[string]string{
		"pdf":  export.GeneralReportName,
		"xlsx": export.CombinedWorkbookName,
	} {
		msg := amqp.NewExportRequestMessage("job-"+kind, kind)
		if err := w.HandleExportRequest(ctx, msg); err != nil {
			t.Fatalf("HandleExportRequest(%s): %v", kind, err)
		}
		obj, err := store.Get(ctx, blob.ExportKey(msg.JobID))
		if err != nil {
			t.Fatalf("Get(%s): %v", kind, err)
		}
		if obj.Filename != wantName || len(obj.Data) == 0 {
			t.Errorf("%s artifact = %s (%d bytes)", kind, obj.Filename, len(obj.Data))
		}
	}
}

type stubSheets struct{ calls int }

func (s *stubSheets) PublishReport(context.Context, int, []export.Sheet, time.Time) (string, error) {
	s.calls++
	return "https://docs.google.com/spreadsheets/d/x", nil
}

func TestHandleExportRequestSheets(t *testing.T) {
	pub := &stubSheets{}
	w, store := newWorker(t, pub)
	ctx := context.Background()

	msg := amqp.NewExportRequestMessage("job-sheets", "sheets")
	if err := w.HandleExportRequest(ctx, msg); err != nil {
		t.Fatalf("HandleExportRequest: %v", err)
	}
	if pub.calls != 1 {
		t.Errorf("publisher calls = %d, want 1", pub.calls)
	}
	obj, err := store.Get(ctx, blob.ExportKey("job-sheets"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(obj.Data, []byte("docs.google.com")) {
		t.Errorf("receipt missing url: %s", obj.Data)
	}
}

func TestHandleExportRequestPermanentFailures(t *testing.T) {
	w, _ := newWorker(t, nil)
	ctx := context.Background()

	err := w.HandleExportRequest(ctx, amqp.NewExportRequestMessage("j1", "docx"))
	if !amqp.IsPermanent(err) || !errors.Is(err, services.ErrUnknownExportKind) {
		t.Errorf("unknown kind err = %v, want permanent", err)
	}
	err = w.HandleExportRequest(ctx, amqp.NewExportRequestMessage("j2", "sheets"))
	if !amqp.IsPermanent(err) {
		t.Errorf("unconfigured sheets err = %v, want permanent", err)
	}
}

type brokenOpener struct{}

func (brokenOpener) Open(context.Context) (source.Session, error) {
	return nil, errors.New("too many connections")
}
func (brokenOpener) Ping(context.Context) error { return nil }

func TestHandleExportRequestTransientFailure(t *testing.T) {
	store, _ := blob.NewLocal(t.TempDir())
	w := NewExportWorker(brokenOpener{}, services.NewReportService(nil, nil), store, nil, nil, 0)

	err := w.HandleExportRequest(context.Background(), amqp.NewExportRequestMessage("j3", "pdf"))
	if err == nil || amqp.IsPermanent(err) {
		t.Fatalf("err = %v, want retryable error", err)
	}
	if _, err := store.Get(context.Background(), blob.ExportKey("j3")); !errors.Is(err, blob.ErrNotFound) {
		t.Errorf("no artifact should be stored, got %v", err)
	}
}
