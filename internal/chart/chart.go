package chart

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"customer-insights/internal/dataset"
)

// Column names the analytics charts read.
const (
	ColumnAge           = "Age"
	ColumnGender        = "Gender"
	ColumnAnnualIncome  = "Annual Income (k$)"
	ColumnSpendingScore = "Spending Score (1-100)"
)

const (
	chartHeight   = 480
	minChartWidth = 640
	histogramBins = 20
)

// ErrUnknownChart is returned for chart ids missing from the catalog.
var ErrUnknownChart = errors.New("unknown chart")

// Spec describes one chart on the analytics page.
type Spec struct {
	ID     string `json:"id"`
	Header string `json:"header"`
	Title  string `json:"title"`
}

var catalog = []Spec{
	{ID: "age-spending", Header: "Bar graph of Age Groups and Spending Scores", Title: "Age vs Spending Score"},
	{ID: "gender-spending", Header: "Bar graph of Gender and Spending Scores", Title: "Gender vs Spending Score"},
	{ID: "income-spending", Header: "Scatter graph of Annual Income and Spending Scores", Title: "Annual Income and Spending Scores"},
	{ID: "age-histogram", Header: "Histogram of Age", Title: "Distribution of Customer Ages"},
}

// Catalog lists the available charts in display order.
func Catalog() []Spec {
	out := make([]Spec, len(catalog))
	copy(out, catalog)
	return out
}

// Render draws the chart with the given id from t as a PNG image.
func Render(id string, t dataset.Table) ([]byte, error) {
	var spec *Spec
	for i := range catalog {
		if catalog[i].ID == id {
			spec = &catalog[i]
			break
		}
	}
	if spec == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChart, id)
	}

	switch spec.ID {
	case "age-spending":
		return numericBars(t, ColumnAge, ColumnSpendingScore, spec.Title)
	case "gender-spending":
		return categoryBars(t, ColumnGender, ColumnSpendingScore, spec.Title)
	case "income-spending":
		return scatter(t, ColumnAnnualIncome, ColumnSpendingScore, spec.Title)
	default:
		return histogram(t, ColumnAge, histogramBins, spec.Title)
	}
}

// numericBars sums y per distinct numeric x, ordered by x.
func numericBars(t dataset.Table, xCol, yCol, title string) ([]byte, error) {
	xs, err := t.Floats(xCol)
	if err != nil {
		return nil, err
	}
	ys, err := t.Floats(yCol)
	if err != nil {
		return nil, err
	}

	sums := map[float64]float64{}
	for i := range xs {
		sums[xs[i]] += ys[i]
	}
	keys := make([]float64, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	sort.Float64s(keys)

	values := make([]gochart.Value, len(keys))
	for i, k := range keys {
		values[i] = gochart.Value{Label: strconv.FormatFloat(k, 'f', -1, 64), Value: sums[k]}
	}
	return bars(title, values)
}

// categoryBars sums y per distinct text value of x, ordered by label.
func categoryBars(t dataset.Table, xCol, yCol, title string) ([]byte, error) {
	xs, err := t.Column(xCol)
	if err != nil {
		return nil, err
	}
	ys, err := t.Floats(yCol)
	if err != nil {
		return nil, err
	}

	sums := map[string]float64{}
	for i := range xs {
		sums[xs[i]] += ys[i]
	}
	labels := make([]string, 0, len(sums))
	for k := range sums {
		labels = append(labels, k)
	}
	sort.Strings(labels)

	values := make([]gochart.Value, len(labels))
	for i, l := range labels {
		values[i] = gochart.Value{Label: l, Value: sums[l]}
	}
	return bars(title, values)
}

func histogram(t dataset.Table, col string, bins int, title string) ([]byte, error) {
	xs, err := t.Floats(col)
	if err != nil {
		return nil, err
	}
	if len(xs) == 0 {
		return nil, fmt.Errorf("column %q has no values", col)
	}

	lo, hi := bounds(xs)
	width := (hi - lo) / float64(bins)
	if width == 0 {
		bins, width = 1, 1
	}

	counts := make([]float64, bins)
	for _, x := range xs {
		i := int((x - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		counts[i]++
	}

	values := make([]gochart.Value, bins)
	for i := range counts {
		start := lo + float64(i)*width
		values[i] = gochart.Value{
			Label: fmt.Sprintf("%.0f-%.0f", start, start+width),
			Value: counts[i],
			Style: gochart.Style{StrokeColor: drawing.ColorBlack, StrokeWidth: 1.5, FillColor: gochart.ColorBlue},
		}
	}
	return bars(title, values)
}

func bars(title string, values []gochart.Value) ([]byte, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("chart %q has no data", title)
	}

	maxValue := 0.0
	for _, v := range values {
		maxValue = math.Max(maxValue, v.Value)
	}
	if maxValue <= 0 {
		maxValue = 1
	}
	for i := range values {
		if values[i].Style.FillColor.IsZero() {
			values[i].Style.FillColor = viridis(values[i].Value, 0, maxValue)
		}
	}

	const barWidth, barSpacing = 24, 6
	width := len(values)*(barWidth+barSpacing) + 120
	if width < minChartWidth {
		width = minChartWidth
	}

	bc := gochart.BarChart{
		Title:      title,
		Background: gochart.Style{Padding: gochart.Box{Top: 48, Left: 16, Right: 16, Bottom: 24}},
		Width:      width,
		Height:     chartHeight,
		BarWidth:   barWidth,
		BarSpacing: barSpacing,
		YAxis:      gochart.YAxis{Range: &gochart.ContinuousRange{Min: 0, Max: maxValue * 1.1}},
		Bars:       values,
	}

	var buf bytes.Buffer
	if err := bc.Render(gochart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render %q: %w", title, err)
	}
	return buf.Bytes(), nil
}

func scatter(t dataset.Table, xCol, yCol, title string) ([]byte, error) {
	xs, err := t.Floats(xCol)
	if err != nil {
		return nil, err
	}
	ys, err := t.Floats(yCol)
	if err != nil {
		return nil, err
	}
	if len(xs) == 0 {
		return nil, fmt.Errorf("chart %q has no data", title)
	}

	xlo, xhi := padded(bounds(xs))
	ylo, yhi := padded(bounds(ys))

	ch := gochart.Chart{
		Title:      title,
		Background: gochart.Style{Padding: gochart.Box{Top: 48, Left: 16, Right: 16, Bottom: 24}},
		Width:      800,
		Height:     chartHeight,
		XAxis:      gochart.XAxis{Name: "Annual Income of Customer", Range: &gochart.ContinuousRange{Min: xlo, Max: xhi}},
		YAxis:      gochart.YAxis{Name: "Spending Score", Range: &gochart.ContinuousRange{Min: ylo, Max: yhi}},
		Series: []gochart.Series{
			gochart.ContinuousSeries{
				Name:    title,
				XValues: xs,
				YValues: ys,
				Style: gochart.Style{
					StrokeWidth: gochart.Disabled,
					DotWidth:    4,
					DotColorProvider: func(_, _ gochart.Range, _ int, x, _ float64) drawing.Color {
						return viridis(x, xlo, xhi)
					},
				},
			},
		},
	}

	var buf bytes.Buffer
	if err := ch.Render(gochart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render %q: %w", title, err)
	}
	return buf.Bytes(), nil
}

func bounds(vs []float64) (float64, float64) {
	lo, hi := vs[0], vs[0]
	for _, v := range vs[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func padded(lo, hi float64) (float64, float64) {
	pad := (hi - lo) * 0.05
	if pad == 0 {
		pad = 1
	}
	return lo - pad, hi + pad
}

func viridis(v, lo, hi float64) drawing.Color {
	if hi <= lo {
		return gochart.Viridis(0, 0, 1)
	}
	return gochart.Viridis(v, lo, hi)
}
