package core

import "strconv"

// TopN is the truncation used by the top-10 reports and charts.
const TopN = 10

// DimensionResults holds one aggregate per report dimension.
type DimensionResults map[Dimension][]AggregateRow

// Snapshot is everything the general report needs, gathered once per request.
type Snapshot struct {
	Total           int
	Results         DimensionResults
	TopInstitutions []AggregateRow
	TopActivities   []AggregateRow
	Genders         []AggregateRow // bucketed, GenderBuckets order
}

// PercentRow is a table line of the general report.
type PercentRow struct {
	Label      string
	Count      int
	Percentage float64
}

// ReportTable is one titled percentage table.
type ReportTable struct {
	Dimension Dimension
	Title     string
	Rows      []PercentRow
}

// ReportBundle is the ordered set of percentage tables of the general report.
// Every percentage shares the same denominator so tables are comparable.
type ReportBundle struct {
	Total  int
	Tables []ReportTable
}

// NewReportBundle builds one table per report dimension, in report order.
// Missing dimensions yield empty tables.
func NewReportBundle(total int, results DimensionResults) ReportBundle {
	bundle := ReportBundle{Total: total}
	for _, dim := range ReportDimensions() {
		rows := results[dim]
		table := ReportTable{Dimension: dim, Title: dim.Title(), Rows: make([]PercentRow, 0, len(rows))}
		for _, r := range rows {
			table.Rows = append(table.Rows, PercentRow{
				Label:      r.Value,
				Count:      r.Count,
				Percentage: Percentage(r.Count, total),
			})
		}
		bundle.Tables = append(bundle.Tables, table)
	}
	return bundle
}

// Percentage returns count/total*100, using 1 as denominator when total is zero.
func Percentage(count, total int) float64 {
	if total == 0 {
		total = 1
	}
	return float64(count) / float64(total) * 100
}

// FormatPercentage renders p with two decimals and a percent sign.
func FormatPercentage(p float64) string {
	return strconv.FormatFloat(p, 'f', 2, 64) + "%"
}
