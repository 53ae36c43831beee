package export

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"reportes/internal/core"
)

func scenarioResults() core.DimensionResults {
	return core.DimensionResults{
		core.DimensionCategory:    {{Value: "A", Count: 2}, {Value: "B", Count: 1}},
		core.DimensionInstitution: {{Value: "X", Count: 2}, {Value: "Y", Count: 1}},
		core.DimensionActivity:    {{Value: "P1", Count: 2}, {Value: "P2", Count: 1}},
		core.DimensionAgeBracket:  {{Value: "13 a 15", Count: 2}, {Value: "16 a 18", Count: 1}},
		core.DimensionGender:      {{Value: "Mujer", Count: 1}, {Value: "Varon", Count: 1}, {Value: "f", Count: 1}},
	}
}

func TestBuildCombinedWorkbookRoundTrip(t *testing.T) {
	data, err := BuildCombinedWorkbook(scenarioResults())
	if err != nil {
		t.Fatalf("BuildCombinedWorkbook: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	wantSheets := []string{"Categoría", "Institución", "Actividad", "Edad", "Género"}
	if diff := cmp.Diff(wantSheets, f.GetSheetList()); diff != "" {
		t.Fatalf("sheet list mismatch (-want +got):\n%s", diff)
	}

	rows, err := f.GetRows("Categoría")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	want := [][]string{{"Categoría", "Cantidad"}, {"A", "2"}, {"B", "1"}}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("Categoría rows mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildCombinedWorkbookMissingDimension(t *testing.T) {
	data, err := BuildCombinedWorkbook(core.DimensionResults{})
	if err != nil {
		t.Fatalf("BuildCombinedWorkbook: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if n := len(f.GetSheetList()); n != 5 {
		t.Fatalf("sheets = %d, want 5", n)
	}
	rows, _ := f.GetRows("Edad")
	if len(rows) != 1 {
		t.Errorf("empty dimension should have only its header, got %v", rows)
	}
}

func TestBuildWorkbookErrors(t *testing.T) {
	if _, err := BuildWorkbook(nil); !errors.Is(err, ErrNoSheets) {
		t.Errorf("err = %v, want ErrNoSheets", err)
	}
	dup := []Sheet{{Name: "A", Header: "a"}, {Name: "A", Header: "a"}}
	if _, err := BuildWorkbook(dup); err == nil {
		t.Error("expected error for duplicate sheet names")
	}
}

func TestBuildWorkbookSingleSheet(t *testing.T) {
	data, err := BuildWorkbook([]Sheet{DimensionSheet(core.DimensionInstitution, []core.AggregateRow{{Value: "X", Count: 7}})})
	if err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if diff := cmp.Diff([]string{"Institución"}, f.GetSheetList()); diff != "" {
		t.Fatalf("sheet list mismatch (-want +got):\n%s", diff)
	}
	v, _ := f.GetCellValue("Institución", "B2")
	if v != "7" {
		t.Errorf("B2 = %q, want 7", v)
	}
}

func TestBuildReport(t *testing.T) {
	snap := core.Snapshot{
		Total:           3,
		Results:         scenarioResults(),
		TopInstitutions: []core.AggregateRow{{Value: "X", Count: 2}, {Value: "Y", Count: 1}},
		TopActivities:   []core.AggregateRow{{Value: "P1", Count: 2}, {Value: "P2", Count: 1}},
		Genders:         core.GroupByGender(scenarioResults()[core.DimensionGender]),
	}
	data, err := BuildReport(snap, ReportOptions{Compress: false})
	if err != nil {
		t.Fatalf("BuildReport: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatal("output is not a PDF")
	}
	for _, want := range []string{"Total de adolescentes: 3", "66.67%", "33.33%", "Adolescentes por Categor"} {
		if !bytes.Contains(data, []byte(want)) {
			t.Errorf("pdf does not contain %q", want)
		}
	}
}

func TestBuildReportZeroTotal(t *testing.T) {
	snap := core.Snapshot{
		Results: core.DimensionResults{core.DimensionCategory: {{Value: "A", Count: 3}}},
		Genders: core.GroupByGender(nil),
	}
	data, err := BuildReport(snap, ReportOptions{Compress: false})
	if err != nil {
		t.Fatalf("BuildReport: %v", err)
	}
	// Denominator falls back to 1.
	for _, want := range []string{"Total de adolescentes: 0", "300.00%", "Sin datos"} {
		if !bytes.Contains(data, []byte(want)) {
			t.Errorf("pdf does not contain %q", want)
		}
	}
}
