// Hand-rolled SVG line charts. The charts are two-series comparisons
// rendered as polylines with a shared y-axis, enough for eyeballing the
// A/B shape without pulling in a plotting stack.

package report

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/FuShang114/mooncell-admission-sim/sim"
)

const (
	chartWidth   = 1000
	chartHeight  = 320
	marginLeft   = 55
	marginRight  = 20
	marginTop    = 30
	marginBottom = 40

	colorA = "#ef4444"
	colorB = "#2563eb"
)

// ChartSeries is one named line of the comparison chart.
type ChartSeries struct {
	Label  string
	Values []float64
}

// WriteComparisonSVG renders two series against a shared axis and writes
// the chart to path.
func WriteComparisonSVG(path, title, yLabel string, a, b ChartSeries) error {
	var sb strings.Builder

	plotW := chartWidth - marginLeft - marginRight
	plotH := chartHeight - marginTop - marginBottom

	maxY := 1.0
	for _, v := range a.Values {
		maxY = math.Max(maxY, v)
	}
	for _, v := range b.Values {
		maxY = math.Max(maxY, v)
	}
	maxY *= 1.08

	maxN := max(len(a.Values), len(b.Values))
	if maxN < 2 {
		maxN = 2
	}

	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		chartWidth, chartHeight, chartWidth, chartHeight)
	fmt.Fprintf(&sb, `<rect width="%d" height="%d" fill="#ffffff"/>`+"\n", chartWidth, chartHeight)
	fmt.Fprintf(&sb, `<text x="%d" y="20" font-family="sans-serif" font-size="14" fill="#111">%s</text>`+"\n",
		marginLeft, title)

	// Horizontal gridlines with y-axis labels.
	for i := 0; i <= 4; i++ {
		y := marginTop + plotH - plotH*i/4
		val := maxY * float64(i) / 4.0
		fmt.Fprintf(&sb, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="#e5e7eb"/>`+"\n",
			marginLeft, y, chartWidth-marginRight, y)
		fmt.Fprintf(&sb, `<text x="%d" y="%d" font-family="sans-serif" font-size="10" fill="#666" text-anchor="end">%.0f</text>`+"\n",
			marginLeft-6, y+4, val)
	}
	fmt.Fprintf(&sb, `<text x="14" y="%d" font-family="sans-serif" font-size="11" fill="#444" transform="rotate(-90 14 %d)">%s</text>`+"\n",
		marginTop+plotH/2, marginTop+plotH/2, yLabel)
	fmt.Fprintf(&sb, `<text x="%d" y="%d" font-family="sans-serif" font-size="11" fill="#444">second</text>`+"\n",
		marginLeft+plotW/2, chartHeight-10)

	writeLine := func(s ChartSeries, color string) {
		if len(s.Values) == 0 {
			return
		}
		pts := make([]string, 0, len(s.Values))
		for i, v := range s.Values {
			x := float64(marginLeft) + float64(plotW)*float64(i)/float64(maxN-1)
			y := float64(marginTop) + float64(plotH)*(1.0-v/maxY)
			pts = append(pts, fmt.Sprintf("%.1f,%.1f", x, y))
		}
		fmt.Fprintf(&sb, `<polyline points="%s" fill="none" stroke="%s" stroke-width="1.5"/>`+"\n",
			strings.Join(pts, " "), color)
	}
	writeLine(a, colorA)
	writeLine(b, colorB)

	// Legend, top right.
	legendX := chartWidth - marginRight - 220
	fmt.Fprintf(&sb, `<rect x="%d" y="8" width="12" height="3" fill="%s"/>`+"\n", legendX, colorA)
	fmt.Fprintf(&sb, `<text x="%d" y="14" font-family="sans-serif" font-size="11" fill="#333">%s</text>`+"\n", legendX+18, a.Label)
	fmt.Fprintf(&sb, `<rect x="%d" y="22" width="12" height="3" fill="%s"/>`+"\n", legendX, colorB)
	fmt.Fprintf(&sb, `<text x="%d" y="28" font-family="sans-serif" font-size="11" fill="#333">%s</text>`+"\n", legendX+18, b.Label)

	sb.WriteString("</svg>\n")

	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("writing SVG chart %s: %w", path, err)
	}
	return nil
}

// SeriesFrom extracts one chart series from a per-second time series.
func SeriesFrom(label string, recs []sim.SecondRecord, pick func(sim.SecondRecord) float64) ChartSeries {
	vals := make([]float64, len(recs))
	for i, r := range recs {
		vals[i] = pick(r)
	}
	return ChartSeries{Label: label, Values: vals}
}
