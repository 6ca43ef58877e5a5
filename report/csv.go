// Package report renders simulation outcomes to files: paired per-second
// CSV time series, summary tables, SVG line charts and Markdown A/B
// reports. Everything returns errors; callers decide whether a failed
// artifact aborts the run.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/FuShang114/mooncell-admission-sim/sim"
)

// WriteTimeseriesCSV writes the paired per-second series of two runs to
// one CSV, aligned by second. Shorter runs pad missing rows with zeros so
// the file stays rectangular.
func WriteTimeseriesCSV(path string, a, b sim.RunResult) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating timeseries CSV %s: %w", path, err)
	}
	defer file.Close() //nolint:errcheck // flushed before close

	w := csv.NewWriter(file)
	header := []string{
		"second",
		"a_accepted", "a_rejected", "a_limit", "a_p95_latency_ms", "a_p95_ttft_ms", "a_gc",
		"b_accepted", "b_rejected", "b_limit", "b_p95_latency_ms", "b_p95_ttft_ms", "b_gc",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	n := max(len(a.Timeseries), len(b.Timeseries))
	for i := 0; i < n; i++ {
		var ra, rb sim.SecondRecord
		if i < len(a.Timeseries) {
			ra = a.Timeseries[i]
		}
		if i < len(b.Timeseries) {
			rb = b.Timeseries[i]
		}
		row := []string{
			strconv.Itoa(i),
			strconv.Itoa(ra.Accepted), strconv.Itoa(ra.Rejected), strconv.Itoa(ra.ControllerLimit),
			fmt.Sprintf("%.1f", ra.P95LatencyMs), fmt.Sprintf("%.1f", ra.P95TTFTMs), strconv.Itoa(ra.GCEvents),
			strconv.Itoa(rb.Accepted), strconv.Itoa(rb.Rejected), strconv.Itoa(rb.ControllerLimit),
			fmt.Sprintf("%.1f", rb.P95LatencyMs), fmt.Sprintf("%.1f", rb.P95TTFTMs), strconv.Itoa(rb.GCEvents),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing CSV row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing timeseries CSV %s: %w", path, err)
	}
	return nil
}

// WriteSummaryCSV writes one row per run with the headline aggregates.
func WriteSummaryCSV(path string, results []sim.RunResult) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating summary CSV %s: %w", path, err)
	}
	defer file.Close() //nolint:errcheck // flushed before close

	w := csv.NewWriter(file)
	header := []string{
		"name", "accepted", "rejected", "actual_rpm", "actual_tpm",
		"rpm_util", "tpm_util", "composite_util", "max_util",
		"success_rate", "avg_latency_ms", "p95_latency_ms", "p99_latency_ms",
		"p95_ttft_ms", "p95_queue_ms", "peak_concurrency", "sim_gc_avg", "sim_gc_peak",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing summary header: %w", err)
	}
	for _, r := range results {
		row := []string{
			r.Name,
			strconv.Itoa(r.Accepted), strconv.Itoa(r.Rejected),
			fmt.Sprintf("%.1f", r.ActualRPM), fmt.Sprintf("%.0f", r.ActualTPM),
			fmt.Sprintf("%.4f", r.RPMUtil), fmt.Sprintf("%.4f", r.TPMUtil),
			fmt.Sprintf("%.4f", r.CompositeUtil), fmt.Sprintf("%.4f", r.MaxUtil),
			fmt.Sprintf("%.4f", r.SuccessRate),
			fmt.Sprintf("%.1f", r.AvgLatencyMs), fmt.Sprintf("%.1f", r.P95LatencyMs),
			fmt.Sprintf("%.1f", r.P99LatencyMs), fmt.Sprintf("%.1f", r.P95TTFTMs),
			fmt.Sprintf("%.1f", r.P95QueueWaitMs),
			strconv.Itoa(r.PeakConcurrency),
			fmt.Sprintf("%.3f", r.SimGCAvgFreq), fmt.Sprintf("%.3f", r.SimGCPeakFreq),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing summary row for %s: %w", r.Name, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing summary CSV %s: %w", path, err)
	}
	return nil
}
