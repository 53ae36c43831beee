package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	goption "google.golang.org/api/option"

	"reportes/internal/core"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	old := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	defer os.Setenv("GOOGLE_APPLICATION_CREDENTIALS", old)
	os.Unsetenv("GOOGLE_APPLICATION_CREDENTIALS")

	_, err := New(context.Background(), Config{SpreadsheetID: "id"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = New(context.Background(), Config{SpreadsheetID: "id", CredentialsFile: "/nonexistent/sa.json"})
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQuoteSheet(t *testing.T) {
	tests := map[string]string{
		"Categoría":     "'Categoría'",
		"Tramo de edad": "'Tramo de edad'",
		"O'Higgins":     "'O''Higgins'",
	}
	for in, want := range tests {
		if got := quoteSheet(in); got != want {
			t.Errorf("quoteSheet(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTables(t *testing.T) {
	tables := Tables(core.DimensionResults{
		core.DimensionGender: {{Value: "Mujer", Count: 2}},
	})
	if len(tables) != 5 {
		t.Fatalf("tables = %d, want 5", len(tables))
	}
	last := tableValues(tables[4])
	if len(last) != 2 || last[0][0] != "Género" || last[1][0] != "Mujer" || last[1][1] != 2 {
		t.Errorf("unexpected gender values: %v", last)
	}
	if got := tableValues(tables[0]); len(got) != 1 {
		t.Errorf("empty table should only carry its header, got %v", got)
	}
}

// fakeSheets answers the four Sheets endpoints used by PublishReport.
type fakeSheets struct {
	mu       sync.Mutex
	calls    []string
	added    []string
	written  []string
	existing []string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	body, _ := io.ReadAll(r.Body)
	path := r.URL.Path
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/v4/spreadsheets/sheet-id"):
		f.calls = append(f.calls, "get")
		var sheets []map[string]any
		for _, title := range f.existing {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": title}})
		}
		json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sheet-id", "sheets": sheets})
	case strings.HasSuffix(path, "/values:batchClear"):
		f.calls = append(f.calls, "clear")
		io.WriteString(w, `{}`)
	case strings.HasSuffix(path, "/values:batchUpdate"):
		f.calls = append(f.calls, "write")
		var req struct {
			Data []struct {
				Range string `json:"range"`
			} `json:"data"`
		}
		json.Unmarshal(body, &req)
		for _, d := range req.Data {
			f.written = append(f.written, d.Range)
		}
		io.WriteString(w, `{}`)
	case strings.HasSuffix(path, ":batchUpdate"):
		f.calls = append(f.calls, "add")
		var req struct {
			Requests []struct {
				AddSheet struct {
					Properties struct {
						Title string `json:"title"`
					} `json:"properties"`
				} `json:"addSheet"`
			} `json:"requests"`
		}
		json.Unmarshal(body, &req)
		for _, r := range req.Requests {
			f.added = append(f.added, r.AddSheet.Properties.Title)
		}
		io.WriteString(w, `{}`)
	default:
		http.Error(w, "unexpected "+r.Method+" "+path, http.StatusNotFound)
	}
}

func TestPublishReport(t *testing.T) {
	fake := &fakeSheets{existing: []string{"Resumen", "Categoría"}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	p, err := New(context.Background(), Config{
		SpreadsheetID: "sheet-id",
		Options: []goption.ClientOption{
			goption.WithEndpoint(srv.URL + "/"),
			goption.WithHTTPClient(srv.Client()),
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	results := core.DimensionResults{core.DimensionCategory: {{Value: "A", Count: 2}}}
	url, err := p.PublishReport(context.Background(), 2, Tables(results), time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("PublishReport: %v", err)
	}
	if !strings.HasSuffix(url, "/sheet-id") {
		t.Errorf("url = %q", url)
	}

	wantCalls := "get,add,clear,write"
	if got := strings.Join(fake.calls, ","); got != wantCalls {
		t.Errorf("calls = %s, want %s", got, wantCalls)
	}
	if got := strings.Join(fake.added, ","); got != "Institución,Actividad,Edad,Género" {
		t.Errorf("added sheets = %s", got)
	}
	if len(fake.written) != 6 || fake.written[0] != "'Resumen'!A1" {
		t.Errorf("written ranges = %v", fake.written)
	}
}

func TestPublishReport_NilService(t *testing.T) {
	p := &Publisher{spreadsheetID: "x"}
	if _, err := p.PublishReport(context.Background(), 0, nil, time.Now()); err == nil {
		t.Fatal("expected error with nil service")
	}
}
