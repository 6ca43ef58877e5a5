package cmd

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/FuShang114/mooncell-admission-sim/sim"
)

func TestDrawParams_AlwaysConsistent(t *testing.T) {
	rng := rand.New(rand.NewSource(20260215))
	for i := 0; i < 500; i++ {
		p := drawParams(rng)
		assert.LessOrEqual(t, p.MinLimit, p.InitLimit)
		assert.LessOrEqual(t, p.InitLimit, p.MaxLimit)
		assert.LessOrEqual(t, p.SSThresh, p.MaxLimit)
		assert.GreaterOrEqual(t, p.SSThresh, p.MinLimit)
	}
}

func TestScoreTrial_HardConstraints(t *testing.T) {
	base := sim.RunResult{ActualRPM: 600, CompositeUtil: 0.6, P95LatencyMs: 1000, SimGCAvgFreq: 1.0}

	latRegress := base
	latRegress.P95LatencyMs = 1200 // > 1.15x
	assert.Equal(t, -1e9, scoreTrial(base, latRegress))

	gcRegress := base
	gcRegress.SimGCAvgFreq = 1.4 // > 1.3x
	assert.Equal(t, -1e9, scoreTrial(base, gcRegress))
}

func TestScoreTrial_RewardsImprovement(t *testing.T) {
	base := sim.RunResult{ActualRPM: 600, CompositeUtil: 0.6, P95LatencyMs: 1000, SimGCAvgFreq: 1.0}

	better := base
	better.ActualRPM = 650
	better.P95LatencyMs = 900

	same := base

	assert.Greater(t, scoreTrial(base, better), scoreTrial(base, same))
	// An identical candidate scores exactly the weight sum.
	assert.InDelta(t, 1.0, scoreTrial(base, same), 1e-9)
}

func TestScoreTrial_UtilizationLossPenalized(t *testing.T) {
	base := sim.RunResult{ActualRPM: 600, CompositeUtil: 0.6, P95LatencyMs: 1000, SimGCAvgFreq: 1.0}

	loss := base
	loss.CompositeUtil = 0.48 // 20% down, past the 10% soft bound

	mild := base
	mild.CompositeUtil = 0.57 // 5% down, inside the soft bound

	// The utilization penalty is symmetric with the throughput one:
	// score drop = weight loss (0.35*0.15) plus the soft penalty (0.4).
	assert.Less(t, scoreTrial(base, loss), scoreTrial(base, mild)-0.3)
}

func TestScoreTrial_ThroughputLossPenalized(t *testing.T) {
	base := sim.RunResult{ActualRPM: 600, CompositeUtil: 0.6, P95LatencyMs: 1000, SimGCAvgFreq: 1.0}

	loss := base
	loss.ActualRPM = 480 // 20% down, past the 10% soft bound

	mild := base
	mild.ActualRPM = 570 // 5% down, inside the soft bound

	assert.Less(t, scoreTrial(base, loss), scoreTrial(base, mild)-0.2)
}
