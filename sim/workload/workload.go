// Package workload generates synthetic request streams for the
// admission simulator: per-second Gaussian-perturbed arrival counts with
// configurable burst windows, and token-size profiles matching the
// traffic classes observed at the gateway.
package workload

import (
	"math/rand"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/FuShang114/mooncell-admission-sim/sim"
)

// TokenProfile selects the input/output token-size mixture.
type TokenProfile string

const (
	ProfileMixed      TokenProfile = "mixed"       // 50% short, 35% medium, 15% long
	ProfileShort      TokenProfile = "short"       // chat-style short turns
	ProfileLong       TokenProfile = "long"        // long-context completions
	ProfileTokenHeavy TokenProfile = "token_heavy" // uniformly token-heavy
)

// BurstWindow raises the arrival rate for seconds in [From, To). A
// window-level Lambda overrides the scenario's burst lambda when set.
type BurstWindow struct {
	From   int `yaml:"from"`
	To     int `yaml:"to"`
	Lambda int `yaml:"lambda,omitempty"`
}

// Scenario describes one generated workload.
type Scenario struct {
	Name        string        `yaml:"name"`
	DurationSec int           `yaml:"duration_sec"`
	BaseLambda  int           `yaml:"base_lambda"`  // mean arrivals/second outside bursts
	BurstLambda int           `yaml:"burst_lambda"` // mean arrivals/second inside bursts
	Bursts      []BurstWindow `yaml:"bursts"`
	Profile     TokenProfile  `yaml:"token_profile"`
	NodeProfile string        `yaml:"node_profile"`
}

// DefaultABScenario is the 180s mixed+burst workload of the baseline A/B
// comparison: lambda 85 with two burst windows at 190 and a late spike
// at 260.
func DefaultABScenario() Scenario {
	return Scenario{
		Name:        "ab_mixed_bursty",
		DurationSec: 180,
		BaseLambda:  85,
		BurstLambda: 190,
		Bursts: []BurstWindow{
			{From: 35, To: 80},
			{From: 115, To: 155},
			{From: 155, To: 175, Lambda: 260},
		},
		Profile:     ProfileMixed,
		NodeProfile: string(sim.FleetBalanced),
	}
}

// lambdaAt returns the scenario's arrival rate for a given second.
func (s Scenario) lambdaAt(sec int) int {
	for _, b := range s.Bursts {
		if b.From <= sec && sec < b.To {
			if b.Lambda > 0 {
				return b.Lambda
			}
			return s.BurstLambda
		}
	}
	return s.BaseLambda
}

// randIntIn returns a uniform int in [lo, hi], matching the inclusive
// ranges the profiles are specified with.
func randIntIn(rng *rand.Rand, lo, hi int) int {
	return lo + rng.Intn(hi-lo+1)
}

// sampleTokens draws input/output token counts for one request and
// reports whether it falls in the long class.
func sampleTokens(rng *rand.Rand, profile TokenProfile) (inTok, outTok int, long bool) {
	p := rng.Float64()
	switch profile {
	case ProfileShort:
		return randIntIn(rng, 30, 140), randIntIn(rng, 80, 320), false
	case ProfileLong:
		if p < 0.45 {
			return randIntIn(rng, 260, 800), randIntIn(rng, 700, 2200), true
		}
		return randIntIn(rng, 800, 1600), randIntIn(rng, 1700, 4200), true
	case ProfileTokenHeavy:
		return randIntIn(rng, 180, 920), randIntIn(rng, 700, 2800), false
	default: // ProfileMixed
		switch {
		case p < 0.5:
			return randIntIn(rng, 40, 160), randIntIn(rng, 80, 260), false
		case p < 0.85:
			return randIntIn(rng, 160, 420), randIntIn(rng, 260, 900), false
		default:
			return randIntIn(rng, 420, 1100), randIntIn(rng, 900, 2600), true
		}
	}
}

// finishRequest derives the streaming shape from the output length: one
// chunk per ~32 output tokens, TTFT growing with chunk count up to a
// cap, and a service time that always covers the TTFT.
func finishRequest(rng *rand.Rand, id int64, arrival float64, inTok, outTok int, long bool) *sim.Request {
	chunks := max(4, outTok/32)
	ttft := 0.035 + min(0.25, float64(chunks)*0.0024) + rng.Float64()*0.03
	service := max(ttft+0.02, 0.08+float64(chunks)*0.012+rng.Float64()*0.1)
	return &sim.Request{
		ID:           id,
		ArrivalTime:  arrival,
		InputTokens:  inTok,
		OutputTokens: outTok,
		StreamChunks: chunks,
		TTFTDelay:    ttft,
		ServiceTime:  service,
		Long:         long,
	}
}

// Generate produces the scenario's request stream, sorted by arrival
// time. The per-second count is Gaussian around the active lambda with
// 12% relative deviation, floored at one.
func Generate(s Scenario, rng *rand.Rand) []*sim.Request {
	reqs := make([]*sim.Request, 0, s.DurationSec*s.BaseLambda)
	var id int64
	for sec := 0; sec < s.DurationSec; sec++ {
		lam := float64(s.lambdaAt(sec))
		n := max(1, int(rng.NormFloat64()*lam*0.12+lam))
		for i := 0; i < n; i++ {
			arrival := float64(sec) + rng.Float64()
			inTok, outTok, long := sampleTokens(rng, s.Profile)
			reqs = append(reqs, finishRequest(rng, id, arrival, inTok, outTok, long))
			id++
		}
	}
	sort.SliceStable(reqs, func(i, j int) bool { return reqs[i].ArrivalTime < reqs[j].ArrivalTime })
	logrus.Debugf("scenario %q: generated %d requests over %ds", s.Name, len(reqs), s.DurationSec)
	return reqs
}

// GenerateLongRatio produces a steady stream where each request is long
// with probability longRatio, used by the pool-vs-traditional sweeps.
// The long class is heavier than ProfileLong's lower band on purpose:
// the sweep is about protecting short requests from long ones.
func GenerateLongRatio(durationSec, qps int, longRatio float64, rng *rand.Rand) []*sim.Request {
	reqs := make([]*sim.Request, 0, durationSec*qps)
	var id int64
	for sec := 0; sec < durationSec; sec++ {
		lam := float64(qps)
		n := max(1, int(rng.NormFloat64()*lam*0.09+lam))
		for i := 0; i < n; i++ {
			arrival := float64(sec) + rng.Float64()
			long := rng.Float64() < longRatio
			var inTok, outTok int
			if long {
				inTok = randIntIn(rng, 450, 1700)
				outTok = randIntIn(rng, 1400, 5200)
			} else {
				inTok = randIntIn(rng, 50, 180)
				outTok = randIntIn(rng, 120, 420)
			}
			chunks := max(4, outTok/32)
			ttft := 0.035 + min(0.34, float64(chunks)*0.0028) + rng.Float64()*0.03
			service := max(ttft+0.02, 0.08+float64(chunks)*0.012+rng.Float64()*0.12)
			reqs = append(reqs, &sim.Request{
				ID:           id,
				ArrivalTime:  arrival,
				InputTokens:  inTok,
				OutputTokens: outTok,
				StreamChunks: chunks,
				TTFTDelay:    ttft,
				ServiceTime:  service,
				Long:         long,
			})
			id++
		}
	}
	sort.SliceStable(reqs, func(i, j int) bool { return reqs[i].ArrivalTime < reqs[j].ArrivalTime })
	return reqs
}
