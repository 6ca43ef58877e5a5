package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/FuShang114/mooncell-admission-sim/report"
	"github.com/FuShang114/mooncell-admission-sim/sim"
)

var pipelineScenarioFile string

// pipelineCmd compares the traditional admission path against the full
// pipeline (EMA token estimation, adaptive buckets, alpha suppression)
// across all four preset workloads.
var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Compare the traditional path against the full admission pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		scenarioNames := []string{"balanced_steady", "mixed_bursty", "token_heavy", "long_context"}

		var labels []string
		var baseResults, pipeResults []sim.RunResult
		var allResults []sim.RunResult

		for i, name := range scenarioNames {
			scen, err := resolveScenario(name, pipelineScenarioFile)
			if err != nil {
				return err
			}
			cfg := sim.DefaultSimConfig()
			cfg.Seed = 900 + int64(i)

			requests := generateScenario(scen, cfg.Seed)

			base := sim.NewSimulator(cfg, fleetFor(scen.NodeProfile),
				sim.NewFixedController(95), nil, sim.NewTraditionalPolicy(), requests)
			resBase, err := base.Run(name + "_traditional")
			if err != nil {
				return err
			}

			nodes := fleetFor(scen.NodeProfile)
			rpm, tpm := sim.TotalLimits(nodes)
			pipe := sim.NewSimulator(cfg, nodes, sim.NewFixedController(95), nil,
				sim.NewFullPipelinePolicy(rpm, tpm, cfg), requests)
			resPipe, err := pipe.Run(name + "_pipeline")
			if err != nil {
				return err
			}

			labels = append(labels, scen.Name)
			baseResults = append(baseResults, resBase)
			pipeResults = append(pipeResults, resPipe)
			allResults = append(allResults, resBase, resPipe)

			logrus.Infof("pipeline %s: traditional rpm=%.1f p95=%.0fms | pipeline rpm=%.1f p95=%.0fms alpha=%.3f",
				name, resBase.ActualRPM, resBase.P95LatencyMs,
				resPipe.ActualRPM, resPipe.P95LatencyMs, resPipe.FinalAlpha)
		}

		if err := report.WriteSummaryCSV(outPath("pipeline_summary.csv"), allResults); err != nil {
			return err
		}
		return report.WriteSweepMarkdown(outPath("pipeline_report.md"),
			"Traditional vs full admission pipeline", labels,
			baseResults, pipeResults, "traditional", "pipeline")
	},
}

func init() {
	pipelineCmd.Flags().StringVar(&pipelineScenarioFile, "scenarios", "", "Optional scenario preset YAML overriding the built-ins")
}
