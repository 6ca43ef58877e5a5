// Markdown report builders for the experiment commands. Each builder
// takes finished RunResults and produces a self-contained report with a
// comparison table and relative gains.

package report

import (
	"fmt"
	"os"
	"strings"

	"github.com/FuShang114/mooncell-admission-sim/sim"
)

// gain formats b relative to a as a signed percentage.
func gain(a, b float64) string {
	if a == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%+.1f%%", (b/a-1.0)*100.0)
}

// WriteABMarkdown writes the two-run comparison report. The images slice
// lists chart files (relative paths) to embed.
func WriteABMarkdown(path, title string, a, b sim.RunResult, images []string) error {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", title)
	fmt.Fprintf(&sb, "Comparing `%s` (A) against `%s` (B).\n\n", a.Name, b.Name)

	sb.WriteString("| Metric | A | B | B vs A |\n")
	sb.WriteString("|---|---:|---:|---:|\n")
	rows := []struct {
		label string
		va    float64
		vb    float64
		fmtS  string
	}{
		{"Accepted requests", float64(a.Accepted), float64(b.Accepted), "%.0f"},
		{"Accepted RPM", a.ActualRPM, b.ActualRPM, "%.1f"},
		{"Accepted TPM", a.ActualTPM, b.ActualTPM, "%.0f"},
		{"RPM utilization", a.RPMUtil, b.RPMUtil, "%.3f"},
		{"TPM utilization", a.TPMUtil, b.TPMUtil, "%.3f"},
		{"Composite utilization", a.CompositeUtil, b.CompositeUtil, "%.3f"},
		{"Success rate", a.SuccessRate, b.SuccessRate, "%.3f"},
		{"p95 latency (ms)", a.P95LatencyMs, b.P95LatencyMs, "%.1f"},
		{"p95 TTFT (ms)", a.P95TTFTMs, b.P95TTFTMs, "%.1f"},
		{"p95 queue wait (ms)", a.P95QueueWaitMs, b.P95QueueWaitMs, "%.1f"},
		{"Sim GC avg freq", a.SimGCAvgFreq, b.SimGCAvgFreq, "%.3f"},
		{"Peak concurrency", float64(a.PeakConcurrency), float64(b.PeakConcurrency), "%.0f"},
	}
	for _, r := range rows {
		fmt.Fprintf(&sb, "| %s | "+r.fmtS+" | "+r.fmtS+" | %s |\n",
			r.label, r.va, r.vb, gain(r.va, r.vb))
	}
	sb.WriteString("\n")

	writeRejectTable(&sb, "A rejections by reason", a.RejectsByReason)
	writeRejectTable(&sb, "B rejections by reason", b.RejectsByReason)

	if len(b.FinalBoundaries) > 0 {
		fmt.Fprintf(&sb, "## Final adaptive state (B)\n\n")
		fmt.Fprintf(&sb, "- Bucket boundaries: %v\n", b.FinalBoundaries)
		fmt.Fprintf(&sb, "- Bucket shares: %s\n", formatShares(b.FinalShares))
		if b.FinalAlpha > 0 {
			fmt.Fprintf(&sb, "- Suppression alpha: %.3f\n", b.FinalAlpha)
		}
		sb.WriteString("\n")
	}

	if len(images) > 0 {
		sb.WriteString("## Charts\n\n")
		for _, img := range images {
			fmt.Fprintf(&sb, "![%s](%s)\n\n", img, img)
		}
	}

	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("writing report %s: %w", path, err)
	}
	return nil
}

func writeRejectTable(sb *strings.Builder, title string, rejects map[sim.RejectReason]int) {
	if len(rejects) == 0 {
		return
	}
	fmt.Fprintf(sb, "## %s\n\n", title)
	sb.WriteString("| Reason | Count |\n|---|---:|\n")
	for _, reason := range []sim.RejectReason{
		sim.ReasonConcurrency, sim.ReasonBurst, sim.ReasonRateRPM,
		sim.ReasonRateTPM, sim.ReasonQueueTimeout, sim.ReasonBudgetBlock,
	} {
		if n, ok := rejects[reason]; ok {
			fmt.Fprintf(sb, "| %s | %d |\n", reason, n)
		}
	}
	sb.WriteString("\n")
}

func formatShares(shares []float64) string {
	parts := make([]string, len(shares))
	for i, s := range shares {
		parts[i] = fmt.Sprintf("%.3f", s)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// WriteSweepMarkdown writes a multi-row comparison table for sweep-style
// experiments, one paired row per scenario label.
func WriteSweepMarkdown(path, title string, labels []string, as, bs []sim.RunResult, aName, bName string) error {
	if len(labels) != len(as) || len(labels) != len(bs) {
		return fmt.Errorf("sweep report: mismatched lengths (%d labels, %d/%d results)", len(labels), len(as), len(bs))
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", title)
	fmt.Fprintf(&sb, "| Scenario | %s RPM | %s RPM | RPM gain | %s p95 (ms) | %s p95 (ms) | %s GC | %s GC |\n",
		aName, bName, aName, bName, aName, bName)
	sb.WriteString("|---|---:|---:|---:|---:|---:|---:|---:|\n")
	for i, label := range labels {
		a, b := as[i], bs[i]
		fmt.Fprintf(&sb, "| %s | %.1f | %.1f | %s | %.1f | %.1f | %.3f | %.3f |\n",
			label, a.ActualRPM, b.ActualRPM, gain(a.ActualRPM, b.ActualRPM),
			a.P95LatencyMs, b.P95LatencyMs, a.SimGCAvgFreq, b.SimGCAvgFreq)
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("writing report %s: %w", path, err)
	}
	return nil
}
