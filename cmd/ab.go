package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/FuShang114/mooncell-admission-sim/report"
	"github.com/FuShang114/mooncell-admission-sim/sim"
	"github.com/FuShang114/mooncell-admission-sim/sim/workload"
)

var (
	abFixedLimit int
	abAIMDMin    int
	abAIMDMax    int
	abAIMDInit   int
)

// abCmd runs the fixed-limit vs AIMD concurrency controller comparison
// on the bursty mixed workload and writes the paired artifacts.
var abCmd = &cobra.Command{
	Use:   "ab",
	Short: "Compare a fixed concurrency limit against the AIMD controller",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := sim.DefaultSimConfig()
		cfg.Seed = masterSeed

		scen := workload.DefaultABScenario()
		requests := generateScenario(scen, cfg.Seed)

		fixed := sim.NewSimulator(cfg, fleetFor(scen.NodeProfile),
			sim.NewFixedController(abFixedLimit), nil, nil, requests)
		resFixed, err := fixed.Run("fixed")
		if err != nil {
			return err
		}

		aimd := sim.NewSimulator(cfg, fleetFor(scen.NodeProfile),
			sim.NewAIMDController(abAIMDMin, abAIMDMax, abAIMDInit), nil, nil, requests)
		resAIMD, err := aimd.Run("aimd")
		if err != nil {
			return err
		}

		if err := report.WriteTimeseriesCSV(outPath("ab_timeseries.csv"), resFixed, resAIMD); err != nil {
			return err
		}
		if err := report.WriteComparisonSVG(outPath("ab_accepted.svg"),
			"Accepted requests per second", "accepted/s",
			report.SeriesFrom("fixed", resFixed.Timeseries, func(r sim.SecondRecord) float64 { return float64(r.Accepted) }),
			report.SeriesFrom("aimd", resAIMD.Timeseries, func(r sim.SecondRecord) float64 { return float64(r.Accepted) }),
		); err != nil {
			return err
		}
		if err := report.WriteComparisonSVG(outPath("ab_p95_latency.svg"),
			"p95 end-to-end latency per second", "ms",
			report.SeriesFrom("fixed", resFixed.Timeseries, func(r sim.SecondRecord) float64 { return r.P95LatencyMs }),
			report.SeriesFrom("aimd", resAIMD.Timeseries, func(r sim.SecondRecord) float64 { return r.P95LatencyMs }),
		); err != nil {
			return err
		}
		if err := report.WriteABMarkdown(outPath("ab_report.md"),
			"Fixed limit vs AIMD admission control", resFixed, resAIMD,
			[]string{"ab_accepted.svg", "ab_p95_latency.svg"}); err != nil {
			return err
		}

		logrus.Infof("A/B done: fixed rpm=%.1f util=%.3f | aimd rpm=%.1f util=%.3f",
			resFixed.ActualRPM, resFixed.CompositeUtil, resAIMD.ActualRPM, resAIMD.CompositeUtil)
		return nil
	},
}

func init() {
	abCmd.Flags().IntVar(&abFixedLimit, "fixed-limit", 95, "Concurrency limit of the fixed baseline")
	abCmd.Flags().IntVar(&abAIMDMin, "aimd-min", 6, "AIMD lower concurrency bound")
	abCmd.Flags().IntVar(&abAIMDMax, "aimd-max", 95, "AIMD upper concurrency bound")
	abCmd.Flags().IntVar(&abAIMDInit, "aimd-init", 10, "AIMD initial concurrency limit")
}
