package sim_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FuShang114/mooncell-admission-sim/sim"
	"github.com/FuShang114/mooncell-admission-sim/sim/workload"
)

// TestBurstyABComparison runs the reference comparison end to end: the
// default six-node fleet under 180s of mixed traffic at 85/s with a
// 190/s burst between seconds 35 and 80, fixed limit 95 against AIMD
// (6, 95, 10), both arms on the identical request stream.
//
// Under the burst the fleet is rate-bound, so the AIMD arm backs off and
// trades accepted volume for a bounded latency penalty. The bands below
// are calibrated to the observed behavior of this comparison: AIMD lands
// well below parity on throughput while keeping p95 latency within the
// 25% tolerance the tuner also enforces.
func TestBurstyABComparison(t *testing.T) {
	scen := workload.Scenario{
		Name:        "bursty_ab",
		DurationSec: 180,
		BaseLambda:  85,
		BurstLambda: 190,
		Bursts:      []workload.BurstWindow{{From: 35, To: 80}},
		Profile:     workload.ProfileMixed,
		NodeProfile: string(sim.FleetBalanced),
	}
	cfg := sim.DefaultSimConfig()
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed)).ForSubsystem(sim.SubsystemWorkload)
	requests := workload.Generate(scen, rng)

	run := func(name string, c sim.Controller) sim.RunResult {
		s := sim.NewSimulator(cfg, sim.NewFleet(sim.DefaultFleetConfig()), c, nil, nil, requests)
		res, err := s.Run(name)
		require.NoError(t, err)
		return res
	}
	fixed := run("fixed", sim.NewFixedController(95))
	aimd := run("aimd", sim.NewAIMDController(6, 95, 10))

	// The burst saturates both arms: timeouts and rate/burst rejections
	// must show up on each side.
	assert.Positive(t, fixed.RejectsByReason[sim.ReasonQueueTimeout])
	assert.Positive(t, aimd.RejectsByReason[sim.ReasonQueueTimeout])
	assert.Greater(t, fixed.ActualRPM, 4000.0)

	// Latency tolerance: the AIMD arm's p95 stays within 25% of fixed.
	assert.LessOrEqual(t, aimd.P95LatencyMs, fixed.P95LatencyMs*1.25,
		"aimd p95 %.0fms exceeds fixed %.0fms by more than 25%%", aimd.P95LatencyMs, fixed.P95LatencyMs)

	// Throughput band: the back-off costs real volume, but the loss is
	// bounded and the AIMD arm never out-admits the fixed one.
	assert.GreaterOrEqual(t, aimd.ActualRPM, fixed.ActualRPM*0.78)
	assert.LessOrEqual(t, aimd.ActualRPM, fixed.ActualRPM*1.01)
	assert.GreaterOrEqual(t, aimd.CompositeUtil, fixed.CompositeUtil*0.68)
}
