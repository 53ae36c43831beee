// Package chart renders bar and pie charts to PNG.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	BarWidth  = 800
	BarHeight = 400
	PieWidth  = 500
	PieHeight = 400

	maxLabelRunes    = 22
	placeholderLabel = "Sin datos"
)

var (
	ErrMismatchedSeries = errors.New("labels and values differ in length")
	ErrNegativeValue    = errors.New("pie chart value is negative")
)

var (
	barColor         = drawing.ColorFromHex("4e79a7")
	placeholderColor = drawing.ColorFromHex("d3d3d3")
	pieColors        = []drawing.Color{
		drawing.ColorFromHex("e15759"),
		drawing.ColorFromHex("4e79a7"),
		drawing.ColorFromHex("bab0ac"),
		drawing.ColorFromHex("59a14f"),
		drawing.ColorFromHex("f28e2b"),
		drawing.ColorFromHex("76b7b2"),
	}
)

// RenderBar draws one bar per label. Empty or all-zero series produce a
// placeholder chart instead of an error.
func RenderBar(title string, labels []string, values []float64) ([]byte, error) {
	if len(labels) != len(values) {
		return nil, fmt.Errorf("bar chart %q: %w (%d labels, %d values)", title, ErrMismatchedSeries, len(labels), len(values))
	}

	bars := make([]gochart.Value, 0, len(values))
	lo, hi := 0.0, 0.0
	for i, v := range values {
		bars = append(bars, gochart.Value{
			Label: truncate(labels[i]),
			Value: v,
			Style: gochart.Style{FillColor: barColor, StrokeColor: barColor},
		})
		lo, hi = min(lo, v), max(hi, v)
	}
	if isDegenerate(values) {
		bars = []gochart.Value{placeholder()}
		hi = 1
	}

	c := gochart.BarChart{
		Title:      title,
		Width:      BarWidth,
		Height:     BarHeight,
		BarWidth:   barWidth(len(bars)),
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Bottom: 10}},
		YAxis: gochart.YAxis{
			Range:          &gochart.ContinuousRange{Min: lo, Max: hi},
			ValueFormatter: integerFormatter,
		},
		Bars: bars,
	}
	if len(bars) > 6 {
		c.XAxis = gochart.Style{TextRotationDegrees: 45}
		c.Background.Padding.Bottom = 80
	}

	var buf bytes.Buffer
	if err := c.Render(gochart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render bar chart %q: %w", title, err)
	}
	return buf.Bytes(), nil
}

// RenderPie draws one slice per label. Negative values are rejected;
// empty or all-zero series produce a placeholder chart.
func RenderPie(title string, labels []string, values []float64) ([]byte, error) {
	if len(labels) != len(values) {
		return nil, fmt.Errorf("pie chart %q: %w (%d labels, %d values)", title, ErrMismatchedSeries, len(labels), len(values))
	}

	slices := make([]gochart.Value, 0, len(values))
	for i, v := range values {
		if v < 0 {
			return nil, fmt.Errorf("pie chart %q, %q = %v: %w", title, labels[i], v, ErrNegativeValue)
		}
		// Zero slices render as invisible wedges with overlapping labels.
		if v == 0 {
			continue
		}
		color := pieColors[i%len(pieColors)]
		slices = append(slices, gochart.Value{
			Label: truncate(labels[i]),
			Value: v,
			Style: gochart.Style{FillColor: color, StrokeColor: drawing.ColorWhite},
		})
	}
	if len(slices) == 0 {
		slices = []gochart.Value{placeholder()}
	}

	c := gochart.PieChart{
		Title:      title,
		Width:      PieWidth,
		Height:     PieHeight,
		Background: gochart.Style{Padding: gochart.Box{Top: 40}},
		Values:     slices,
	}

	var buf bytes.Buffer
	if err := c.Render(gochart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render pie chart %q: %w", title, err)
	}
	return buf.Bytes(), nil
}

func isDegenerate(values []float64) bool {
	for _, v := range values {
		if v != 0 {
			return false
		}
	}
	return true
}

func placeholder() gochart.Value {
	return gochart.Value{
		Label: placeholderLabel,
		Value: 1,
		Style: gochart.Style{FillColor: placeholderColor, StrokeColor: placeholderColor},
	}
}

func barWidth(n int) int {
	if n <= 0 {
		return 60
	}
	w := (BarWidth - 120) / n * 2 / 3
	return max(10, min(60, w))
}

func truncate(label string) string {
	r := []rune(label)
	if len(r) <= maxLabelRunes {
		return label
	}
	return string(r[:maxLabelRunes-3]) + "..."
}

func integerFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', 0, 64)
	}
	return ""
}
