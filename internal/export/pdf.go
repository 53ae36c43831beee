package export

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"

	"reportes/internal/chart"
	"reportes/internal/core"
)

const (
	GeneralReportName = "reporte_general.pdf"
	reportTitle       = "Reporte General de Adolescentes"
)

// ReportOptions tunes the document builder.
type ReportOptions struct {
	// Compress enables stream compression. Tests disable it to inspect text.
	Compress bool
	// GeneratedAt is printed under the title when set.
	GeneratedAt time.Time
}

// DefaultReportOptions compresses and stamps the current time.
func DefaultReportOptions() ReportOptions {
	return ReportOptions{Compress: true, GeneratedAt: time.Now()}
}

type chartSpec struct {
	name   string
	title  string
	rows   []core.AggregateRow
	pie    bool
	widthR float64 // share of the printable width
}

// BuildReport renders the general report: total, five percentage tables,
// two top-10 bar charts and the grouped gender pie. The document is built
// fully in memory; on error nothing is returned.
func BuildReport(snap core.Snapshot, opts ReportOptions) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(opts.Compress)
	pdf.SetTitle(reportTitle, true)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 8, tr("Página ")+strconv.Itoa(pdf.PageNo())+"/{nb}", "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(reportTitle), "", 1, "C", false, 0, "")
	if !opts.GeneratedAt.IsZero() {
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(0, 6, tr("Generado el "+opts.GeneratedAt.Format("02/01/2006 15:04")), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Total de adolescentes: "+strconv.Itoa(snap.Total), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	bundle := core.NewReportBundle(snap.Total, snap.Results)
	for _, table := range bundle.Tables {
		writeTable(pdf, tr, table)
	}

	charts := []chartSpec{
		{name: "top_instituciones", title: "Top 10 Instituciones", rows: snap.TopInstitutions, widthR: 1},
		{name: "top_actividades", title: "Top 10 Actividades", rows: snap.TopActivities, widthR: 1},
		{name: "genero_agrupado", title: "Género (agrupado)", rows: snap.Genders, pie: true, widthR: 0.7},
	}
	for _, c := range charts {
		if err := embedChart(pdf, c); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeTable(pdf *fpdf.Fpdf, tr func(string) string, table core.ReportTable) {
	lm, _, rm, _ := pdf.GetMargins()
	pageW, _ := pdf.GetPageSize()
	width := pageW - lm - rm
	labelW, countW := width*0.6, width*0.2
	pctW := width - labelW - countW

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 8, tr(table.Title), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(labelW, 6, tr(table.Dimension.Label()), "1", 0, "L", true, 0, "")
	pdf.CellFormat(countW, 6, "Cantidad", "1", 0, "R", true, 0, "")
	pdf.CellFormat(pctW, 6, "Porcentaje", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	if len(table.Rows) == 0 {
		pdf.CellFormat(width, 6, "Sin datos", "1", 1, "C", false, 0, "")
	}
	for _, r := range table.Rows {
		pdf.CellFormat(labelW, 6, tr(r.Label), "1", 0, "L", false, 0, "")
		pdf.CellFormat(countW, 6, strconv.Itoa(r.Count), "1", 0, "R", false, 0, "")
		pdf.CellFormat(pctW, 6, core.FormatPercentage(r.Percentage), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)
}

func embedChart(pdf *fpdf.Fpdf, c chartSpec) error {
	var (
		img  []byte
		err  error
		w, h = float64(chart.BarWidth), float64(chart.BarHeight)
	)
	if c.pie {
		img, err = chart.RenderPie(c.title, core.Labels(c.rows), core.Counts(c.rows))
		w, h = float64(chart.PieWidth), float64(chart.PieHeight)
	} else {
		img, err = chart.RenderBar(c.title, core.Labels(c.rows), core.Counts(c.rows))
	}
	if err != nil {
		return fmt.Errorf("chart %s: %w", c.name, err)
	}

	opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	pdf.RegisterImageOptionsReader(c.name, opts, bytes.NewReader(img))
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("register chart %s: %w", c.name, err)
	}

	lm, _, rm, _ := pdf.GetMargins()
	pageW, _ := pdf.GetPageSize()
	width := (pageW - lm - rm) * c.widthR
	height := width * h / w
	x := lm + ((pageW-lm-rm)-width)/2
	pdf.ImageOptions(c.name, x, 0, width, height, true, opts, 0, "")
	pdf.Ln(4)
	return nil
}
