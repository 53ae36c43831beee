// Package google publishes report tables to a Google Spreadsheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"reportes/internal/core"
	"reportes/internal/export"
)

// SummarySheet is the tab holding the total and the publication time.
const SummarySheet = "Resumen"

// Publisher overwrites one tab per report table on every publication.
type Publisher struct {
	svc           *gsheet.Service
	spreadsheetID string
}

// Config holds explicit construction parameters.
type Config struct {
	SpreadsheetID   string
	CredentialsJSON string
	CredentialsFile string
	// Options replace credential handling; tests point the client at a fake endpoint.
	Options []goption.ClientOption
}

// New creates a publisher using Service Account credentials.
func New(ctx context.Context, cfg Config) (*Publisher, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	opts := cfg.Options
	if len(opts) == 0 {
		creds, err := loadCredentials(ctx, cfg.CredentialsJSON, cfg.CredentialsFile)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets publisher ready", "spreadsheet_id", cfg.SpreadsheetID)
	return &Publisher{svc: svc, spreadsheetID: cfg.SpreadsheetID}, nil
}

// NewFromEnv reads GOOGLE_SPREADSHEET_ID and the service account from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Publisher, error) {
	return New(ctx, Config{
		SpreadsheetID:   strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID")),
		CredentialsJSON: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")),
		CredentialsFile: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")),
	})
}

func loadCredentials(ctx context.Context, inline, file string) ([]byte, error) {
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case inline != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		return []byte(inline), nil
	case file != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", file)
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// PublishReport writes a summary tab plus one tab per table, creating
// missing tabs and clearing stale rows first. It returns the spreadsheet URL.
func (p *Publisher) PublishReport(ctx context.Context, total int, tables []export.Sheet, at time.Time) (string, error) {
	if p.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	names := make([]string, 0, len(tables)+1)
	names = append(names, SummarySheet)
	for _, t := range tables {
		names = append(names, t.Name)
	}
	if err := p.ensureSheets(ctx, names); err != nil {
		return "", err
	}

	ranges := make([]string, len(names))
	for i, n := range names {
		ranges[i] = quoteSheet(n)
	}
	_, err := p.svc.Spreadsheets.Values.BatchClear(p.spreadsheetID, &gsheet.BatchClearValuesRequest{Ranges: ranges}).
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("clear report sheets: %w", err)
	}

	data := make([]*gsheet.ValueRange, 0, len(names))
	data = append(data, &gsheet.ValueRange{Range: quoteSheet(SummarySheet) + "!A1", Values: summaryValues(total, at)})
	for _, t := range tables {
		data = append(data, &gsheet.ValueRange{Range: quoteSheet(t.Name) + "!A1", Values: tableValues(t)})
	}
	_, err = p.svc.Spreadsheets.Values.BatchUpdate(p.spreadsheetID, &gsheet.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data:             data,
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("write report sheets: %w", err)
	}

	slog.InfoContext(ctx, "Report published to Google Sheets",
		"spreadsheet_id", p.spreadsheetID,
		"sheets", len(names),
		"total", total)
	return "https://docs.google.com/spreadsheets/d/" + p.spreadsheetID, nil
}

func (p *Publisher) ensureSheets(ctx context.Context, names []string) error {
	ss, err := p.svc.Spreadsheets.Get(p.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet %s: %w", p.spreadsheetID, err)
	}
	existing := make(map[string]struct{}, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			existing[sh.Properties.Title] = struct{}{}
		}
	}

	var reqs []*gsheet.Request
	for _, n := range names {
		if _, ok := existing[n]; ok {
			continue
		}
		reqs = append(reqs, &gsheet.Request{AddSheet: &gsheet.AddSheetRequest{
			Properties: &gsheet.SheetProperties{Title: n},
		}})
	}
	if len(reqs) == 0 {
		return nil
	}
	_, err = p.svc.Spreadsheets.BatchUpdate(p.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{Requests: reqs}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("add report sheets: %w", err)
	}
	return nil
}

// quoteSheet wraps a tab name for A1 notation, doubling embedded quotes.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func summaryValues(total int, at time.Time) [][]any {
	return [][]any{
		{"Total de adolescentes", total},
		{"Actualizado", at.Format(time.RFC3339)},
	}
}

func tableValues(t export.Sheet) [][]any {
	values := make([][]any, 0, len(t.Rows)+1)
	values = append(values, []any{t.Header, "Cantidad"})
	for _, r := range t.Rows {
		values = append(values, []any{r.Value, r.Count})
	}
	return values
}

// Tables converts dimension results into publishable tables, in report order.
func Tables(results core.DimensionResults) []export.Sheet {
	dims := core.ReportDimensions()
	out := make([]export.Sheet, 0, len(dims))
	for _, d := range dims {
		out = append(out, export.DimensionSheet(d, results[d]))
	}
	return out
}
