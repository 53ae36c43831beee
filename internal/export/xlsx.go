// Package export builds the downloadable report artifacts.
package export

import (
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"reportes/internal/core"
)

const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypePDF  = "application/pdf"

	CombinedWorkbookName = "reporte_completo.xlsx"
	countHeader          = "Cantidad"
)

var ErrNoSheets = errors.New("workbook needs at least one sheet")

// Sheet is one worksheet: a header row, then one (value, count) row per aggregate.
type Sheet struct {
	Name   string
	Header string
	Rows   []core.AggregateRow
}

// DimensionSheet names a sheet after the dimension.
func DimensionSheet(dim core.Dimension, rows []core.AggregateRow) Sheet {
	return Sheet{Name: dim.Sheet(), Header: dim.Label(), Rows: rows}
}

// BuildWorkbook writes one worksheet per sheet, in order, and returns the
// complete xlsx file.
func BuildWorkbook(sheets []Sheet) ([]byte, error) {
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	seen := make(map[string]struct{}, len(sheets))
	for i, sh := range sheets {
		if _, dup := seen[sh.Name]; dup {
			return nil, fmt.Errorf("duplicate sheet name %q", sh.Name)
		}
		seen[sh.Name] = struct{}{}

		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sh.Name); err != nil {
				return nil, fmt.Errorf("rename first sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sh.Name); err != nil {
			return nil, fmt.Errorf("create sheet %q: %w", sh.Name, err)
		}
		if err := writeSheet(f, sh, headerStyle); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sh Sheet, headerStyle int) error {
	head := []any{sh.Header, countHeader}
	if err := f.SetSheetRow(sh.Name, "A1", &head); err != nil {
		return fmt.Errorf("write header of %q: %w", sh.Name, err)
	}
	if err := f.SetCellStyle(sh.Name, "A1", "B1", headerStyle); err != nil {
		return fmt.Errorf("style header of %q: %w", sh.Name, err)
	}
	for i, r := range sh.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{r.Value, r.Count}
		if err := f.SetSheetRow(sh.Name, cell, &row); err != nil {
			return fmt.Errorf("write row %d of %q: %w", i+2, sh.Name, err)
		}
	}
	if err := f.SetColWidth(sh.Name, "A", "A", 40); err != nil {
		return fmt.Errorf("size columns of %q: %w", sh.Name, err)
	}
	return nil
}

// BuildCombinedWorkbook writes the five report dimensions as five sheets.
// A dimension missing from results yields a sheet with only its header.
func BuildCombinedWorkbook(results core.DimensionResults) ([]byte, error) {
	dims := core.ReportDimensions()
	sheets := make([]Sheet, 0, len(dims))
	for _, dim := range dims {
		sheets = append(sheets, DimensionSheet(dim, results[dim]))
	}
	return BuildWorkbook(sheets)
}
