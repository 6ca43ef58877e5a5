package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/FuShang114/mooncell-admission-sim/report"
	"github.com/FuShang114/mooncell-admission-sim/sim"
	"github.com/FuShang114/mooncell-admission-sim/sim/workload"
)

var (
	sweepQPS      int
	sweepDuration int
)

// sweepCmd sweeps the long-request ratio and compares the traditional
// strict path against the pool-first strategy at each mix.
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Sweep long-request ratios comparing traditional vs pool-first admission",
	RunE: func(cmd *cobra.Command, args []string) error {
		ratios := []float64{0.05, 0.15, 0.25, 0.35, 0.50, 0.65}

		var labels []string
		var tradResults, poolResults []sim.RunResult
		var allResults []sim.RunResult

		for i, ratio := range ratios {
			cfg := sim.DefaultSimConfig()
			cfg.Seed = 2200 + int64(i)

			requests := workload.GenerateLongRatio(sweepDuration, sweepQPS, ratio, workloadRNG(cfg.Seed))

			trad := sim.NewSimulator(cfg, fleetFor(""), sim.NewFixedController(95),
				nil, sim.NewTraditionalPolicy(), requests)
			resTrad, err := trad.Run(fmt.Sprintf("trad_r%.2f", ratio))
			if err != nil {
				return err
			}

			pool := sim.NewSimulator(cfg, fleetFor(""), sim.NewFixedController(95),
				nil, sim.NewPoolFirstPolicy(48, 95), requests)
			resPool, err := pool.Run(fmt.Sprintf("pool_r%.2f", ratio))
			if err != nil {
				return err
			}

			labels = append(labels, fmt.Sprintf("long ratio %.2f", ratio))
			tradResults = append(tradResults, resTrad)
			poolResults = append(poolResults, resPool)
			allResults = append(allResults, resTrad, resPool)

			logrus.Infof("sweep ratio=%.2f: trad rpm=%.1f gc=%.3f | pool rpm=%.1f gc=%.3f",
				ratio, resTrad.ActualRPM, resTrad.SimGCAvgFreq, resPool.ActualRPM, resPool.SimGCAvgFreq)
		}

		if err := report.WriteSummaryCSV(outPath("sweep_summary.csv"), allResults); err != nil {
			return err
		}
		return report.WriteSweepMarkdown(outPath("sweep_report.md"),
			"Long-request ratio sweep: traditional vs pool-first", labels,
			tradResults, poolResults, "traditional", "pool-first")
	},
}

func init() {
	sweepCmd.Flags().IntVar(&sweepQPS, "qps", 140, "Mean arrival rate per second")
	sweepCmd.Flags().IntVar(&sweepDuration, "duration", 180, "Sweep run duration in virtual seconds")
}
