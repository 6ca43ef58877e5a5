package workload

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func TestGenerate_SortedAndDeterministic(t *testing.T) {
	scen := DefaultABScenario()

	a := Generate(scen, newRNG(42))
	b := Generate(scen, newRNG(42))
	require.NotEmpty(t, a)
	require.Equal(t, len(a), len(b))

	for i := range a {
		assert.Equal(t, a[i].ID, b[i].ID)
		assert.Equal(t, a[i].InputTokens, b[i].InputTokens)
		assert.Equal(t, a[i].ArrivalTime, b[i].ArrivalTime)
	}
	for i := 1; i < len(a); i++ {
		assert.LessOrEqual(t, a[i-1].ArrivalTime, a[i].ArrivalTime)
	}
}

func TestGenerate_BurstWindowsRaiseRate(t *testing.T) {
	scen := Scenario{
		Name: "burst", DurationSec: 100,
		BaseLambda: 50, BurstLambda: 200,
		Bursts:  []BurstWindow{{From: 40, To: 60}},
		Profile: ProfileMixed,
	}
	reqs := Generate(scen, newRNG(7))

	perSec := make([]int, scen.DurationSec)
	for _, r := range reqs {
		perSec[int(r.ArrivalTime)]++
	}

	calm, burst := 0, 0
	for s := 0; s < 40; s++ {
		calm += perSec[s]
	}
	for s := 40; s < 60; s++ {
		burst += perSec[s]
	}
	// Mean 50/s outside the window, 200/s inside.
	assert.InDelta(t, 50.0, float64(calm)/40.0, 10.0)
	assert.InDelta(t, 200.0, float64(burst)/20.0, 25.0)
}

func TestGenerate_WindowLambdaOverride(t *testing.T) {
	scen := Scenario{
		Name: "spike", DurationSec: 30,
		BaseLambda: 40, BurstLambda: 100,
		Bursts:  []BurstWindow{{From: 10, To: 20, Lambda: 300}},
		Profile: ProfileShort,
	}
	assert.Equal(t, 40, scen.lambdaAt(5))
	assert.Equal(t, 300, scen.lambdaAt(15))
	assert.Equal(t, 40, scen.lambdaAt(25))
}

func TestGenerate_ProfileRanges(t *testing.T) {
	tests := []struct {
		profile    TokenProfile
		inMin, inMax   int
		outMin, outMax int
		anyLong    bool
	}{
		{ProfileShort, 30, 140, 80, 320, false},
		{ProfileMixed, 40, 1100, 80, 2600, true},
		{ProfileLong, 260, 1600, 700, 4200, true},
		{ProfileTokenHeavy, 180, 920, 700, 2800, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.profile), func(t *testing.T) {
			scen := Scenario{Name: "p", DurationSec: 20, BaseLambda: 50, BurstLambda: 50, Profile: tt.profile}
			reqs := Generate(scen, newRNG(3))

			sawLong := false
			for _, r := range reqs {
				assert.GreaterOrEqual(t, r.InputTokens, tt.inMin)
				assert.LessOrEqual(t, r.InputTokens, tt.inMax)
				assert.GreaterOrEqual(t, r.OutputTokens, tt.outMin)
				assert.LessOrEqual(t, r.OutputTokens, tt.outMax)
				sawLong = sawLong || r.Long
			}
			assert.Equal(t, tt.anyLong, sawLong)
		})
	}
}

func TestGenerate_DerivedShape(t *testing.T) {
	scen := Scenario{Name: "s", DurationSec: 10, BaseLambda: 60, BurstLambda: 60, Profile: ProfileMixed}
	for _, r := range Generate(scen, newRNG(11)) {
		assert.Equal(t, max(4, r.OutputTokens/32), r.StreamChunks)
		assert.Greater(t, r.TTFTDelay, 0.0)
		assert.GreaterOrEqual(t, r.ServiceTime, r.TTFTDelay+0.02)
	}
}

func TestGenerateLongRatio_MixAndRanges(t *testing.T) {
	reqs := GenerateLongRatio(60, 100, 0.30, newRNG(19))
	require.NotEmpty(t, reqs)

	longCount := 0
	for _, r := range reqs {
		if r.Long {
			longCount++
			assert.GreaterOrEqual(t, r.InputTokens, 450)
			assert.LessOrEqual(t, r.OutputTokens, 5200)
		} else {
			assert.LessOrEqual(t, r.InputTokens, 180)
			assert.LessOrEqual(t, r.OutputTokens, 420)
		}
	}
	ratio := float64(longCount) / float64(len(reqs))
	assert.InDelta(t, 0.30, ratio, 0.04)

	for i := 1; i < len(reqs); i++ {
		assert.LessOrEqual(t, reqs[i-1].ArrivalTime, reqs[i].ArrivalTime)
	}
}
