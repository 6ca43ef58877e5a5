package report

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FuShang114/mooncell-admission-sim/sim"
)

func sampleResult(name string, seconds int) sim.RunResult {
	res := sim.RunResult{
		Name:            name,
		Accepted:        1000,
		Rejected:        50,
		ActualRPM:       600,
		ActualTPM:       250000,
		RPMUtil:         0.8,
		TPMUtil:         0.6,
		CompositeUtil:   0.6,
		MaxUtil:         0.8,
		SuccessRate:     0.95,
		P95LatencyMs:    800,
		P95TTFTMs:       300,
		PeakConcurrency: 40,
		RejectsByReason: map[sim.RejectReason]int{
			sim.ReasonQueueTimeout: 50,
			sim.ReasonBurst:        12,
		},
	}
	for i := 0; i < seconds; i++ {
		res.Timeseries = append(res.Timeseries, sim.SecondRecord{
			Second: i, Accepted: 10 + i, Rejected: i % 3,
			ControllerLimit: 95, P95LatencyMs: float64(500 + i),
		})
	}
	return res
}

func TestWriteTimeseriesCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ts.csv")
	a := sampleResult("fixed", 5)
	b := sampleResult("aimd", 3) // shorter series pads with zeros

	require.NoError(t, WriteTimeseriesCSV(path, a, b))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	assert.Len(t, rows, 6) // header + 5 seconds
	assert.Equal(t, "second", rows[0][0])
	assert.Len(t, rows[0], 13)
	assert.Equal(t, "10", rows[1][1]) // a_accepted at second 0
	assert.Equal(t, "0", rows[5][7])  // padded b_accepted at second 4
}

func TestWriteSummaryCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.csv")
	require.NoError(t, WriteSummaryCSV(path, []sim.RunResult{
		sampleResult("one", 2), sampleResult("two", 2),
	}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.Equal(t, "one", rows[1][0])
	assert.Equal(t, "two", rows[2][0])
}

func TestWriteComparisonSVG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chart.svg")
	a := SeriesFrom("fixed", sampleResult("fixed", 20).Timeseries,
		func(r sim.SecondRecord) float64 { return float64(r.Accepted) })
	b := SeriesFrom("aimd", sampleResult("aimd", 20).Timeseries,
		func(r sim.SecondRecord) float64 { return r.P95LatencyMs })

	require.NoError(t, WriteComparisonSVG(path, "test chart", "value", a, b))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	svg := string(data)
	assert.True(t, strings.HasPrefix(svg, "<svg"))
	assert.Contains(t, svg, "polyline")
	assert.Contains(t, svg, "#ef4444")
	assert.Contains(t, svg, "#2563eb")
	assert.Contains(t, svg, "test chart")
}

func TestWriteComparisonSVG_EmptySeries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.svg")
	err := WriteComparisonSVG(path, "empty", "y", ChartSeries{Label: "a"}, ChartSeries{Label: "b"})
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "</svg>")
}

func TestWriteABMarkdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.md")
	a := sampleResult("fixed", 3)
	b := sampleResult("aimd", 3)
	b.ActualRPM = 660
	b.FinalBoundaries = []int{300, 1200, 3800}
	b.FinalShares = []float64{0.3, 0.3, 0.25, 0.15}
	b.FinalAlpha = 0.92

	require.NoError(t, WriteABMarkdown(path, "Test report", a, b, []string{"chart.svg"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	md := string(data)
	assert.Contains(t, md, "# Test report")
	assert.Contains(t, md, "+10.0%") // 660 vs 600 RPM
	assert.Contains(t, md, "QUEUE_TIMEOUT")
	assert.Contains(t, md, "chart.svg")
	assert.Contains(t, md, "0.92")
}

func TestWriteSweepMarkdown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweep.md")
	labels := []string{"r1", "r2"}
	as := []sim.RunResult{sampleResult("a1", 1), sampleResult("a2", 1)}
	bs := []sim.RunResult{sampleResult("b1", 1), sampleResult("b2", 1)}

	require.NoError(t, WriteSweepMarkdown(path, "Sweep", labels, as, bs, "trad", "pool"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "| r1 |")
	assert.Contains(t, string(data), "trad RPM")

	// Mismatched lengths are an error, not a partial file.
	err = WriteSweepMarkdown(path, "bad", labels, as[:1], bs, "a", "b")
	assert.Error(t, err)
}
