package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFIFOPolicy_Defaults(t *testing.T) {
	p := NewFIFOPolicy(DefaultSimConfig())
	assert.Equal(t, 1.2, p.QueueTimeout())
	assert.Equal(t, 3, p.SampleSize())
	assert.Equal(t, 0, p.PickIndex([]*Request{req(1, 0), req(2, 0)}))
	assert.True(t, p.AcquireSlot())
	assert.True(t, p.Admit(0, 1000))
}

func TestTraditionalPolicy_LongRequestChurn(t *testing.T) {
	p := NewTraditionalPolicy()
	assert.Equal(t, 0.8, p.QueueTimeout())
	assert.Equal(t, 2, p.SampleSize())

	short := &Request{StreamChunks: 20}
	long := &Request{StreamChunks: 20, Long: true}
	assert.Equal(t, int64(0), p.ExtraHeapChurn(short))
	assert.Equal(t, int64(20*700), p.ExtraHeapChurn(long))
	assert.Equal(t, 0.30, p.HeapDecay())
}

func TestPoolFirstPolicy_SlotLifecycle(t *testing.T) {
	p := NewPoolFirstPolicy(2, 3)

	// Core slots are reused first.
	assert.True(t, p.AcquireSlot())
	assert.True(t, p.AcquireSlot())
	assert.Equal(t, 2, p.Active())
	assert.Equal(t, 2, p.Allocated())

	// Pool grows past core up to max.
	assert.True(t, p.AcquireSlot())
	assert.Equal(t, 3, p.Allocated())
	assert.False(t, p.AcquireSlot())

	// Release returns slots for reuse without shrinking the pool.
	p.ReleaseSlot()
	assert.Equal(t, 2, p.Active())
	assert.Equal(t, 3, p.Allocated())
	assert.True(t, p.AcquireSlot())
}

func TestPoolFirstPolicy_CoreClampedToMax(t *testing.T) {
	p := NewPoolFirstPolicy(100, 10)
	assert.Equal(t, 10, p.Allocated())
}

func TestPoolFirstPolicy_PicksFirstShortRequest(t *testing.T) {
	p := NewPoolFirstPolicy(48, 95)

	queue := []*Request{
		{ID: 1, Long: true},
		{ID: 2, Long: true},
		{ID: 3, Long: false},
	}
	assert.Equal(t, 2, p.PickIndex(queue))

	// All long: fall back to the head.
	allLong := []*Request{{ID: 1, Long: true}, {ID: 2, Long: true}}
	assert.Equal(t, 0, p.PickIndex(allLong))

	// The scan is bounded by the lookahead.
	deep := make([]*Request, 40)
	for i := range deep {
		deep[i] = &Request{ID: int64(i), Long: true}
	}
	deep[35] = &Request{ID: 35, Long: false} // beyond Lookahead=32
	assert.Equal(t, 0, p.PickIndex(deep))
}

func TestFullPipeline_EstimateAndEMA(t *testing.T) {
	cfg := DefaultSimConfig()
	p := NewFullPipelinePolicy(8000, 3_000_000, cfg)

	r := &Request{InputTokens: 100, OutputTokens: 200}
	// raw = 100 + int(200*0.85) = 270; est = 270 * 1.0 * 1.08 = 291.
	assert.Equal(t, 291, p.EstimateTokens(r))

	// Feedback with actual 300 tokens moves the EMA toward 300/270.
	p.OnResult(r, true)
	est2 := p.EstimateTokens(r)
	assert.Greater(t, est2, 291)

	// Rejected attempts leave the estimator untouched.
	before := p.EstimateTokens(r)
	p.OnResult(r, false)
	assert.Equal(t, before, p.EstimateTokens(r))
}

func TestFullPipeline_AlphaBounds(t *testing.T) {
	cfg := DefaultSimConfig()
	p := NewFullPipelinePolicy(8000, 3_000_000, cfg)

	hot := WindowMetrics{P95TTFTMs: 2000, GCFrequency: 3.0, RejectRate: 0.8}
	for i := 0; i < 100; i++ {
		p.OnWindow(hot)
	}
	assert.InDelta(t, 0.65, p.Alpha(), 1e-9)

	cool := WindowMetrics{P95TTFTMs: 500, GCFrequency: 0.2, RejectRate: 0.1}
	for i := 0; i < 100; i++ {
		p.OnWindow(cool)
	}
	assert.InDelta(t, 1.0, p.Alpha(), 1e-9)
}

func TestFullPipeline_AlphaScalesBucketBudget(t *testing.T) {
	cfg := DefaultSimConfig()
	p := NewFullPipelinePolicy(8000, 3_000_000, cfg)

	hot := WindowMetrics{P95TTFTMs: 2000, GCFrequency: 3.0, RejectRate: 0.8}
	p.OnWindow(hot)

	assert.Less(t, p.buckets.TotalRPM, 8000)
	assert.Less(t, p.buckets.TotalTPM, 3_000_000)
	assert.Equal(t, int(8000*p.Alpha()), p.buckets.TotalRPM)
}

func TestFullPipeline_NeutralWindowHoldsAlpha(t *testing.T) {
	cfg := DefaultSimConfig()
	p := NewFullPipelinePolicy(8000, 3_000_000, cfg)
	p.alpha = 0.8

	// Between the tighten and relax bands nothing moves.
	p.OnWindow(WindowMetrics{P95TTFTMs: 1300, GCFrequency: 1.5, RejectRate: 0.45})
	assert.InDelta(t, 0.8, p.Alpha(), 1e-9)
}

func TestFullPipeline_AdaptiveState(t *testing.T) {
	cfg := DefaultSimConfig()
	p := NewFullPipelinePolicy(8000, 3_000_000, cfg)

	boundaries, shares, alpha := p.AdaptiveState()
	assert.Len(t, boundaries, NumBuckets-1)
	assert.Len(t, shares, NumBuckets)
	assert.Equal(t, 1.0, alpha)
}
