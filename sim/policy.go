// Implements the admission-strategy policies. A Policy shapes how the
// run driver treats the queue (timeout, which request to try next), the
// selector (sample size), and the per-request budget gate. The variants
// mirror the resource-acquisition strategies under comparison: plain
// FIFO, traditional strict-cap, pool-first, and the full pipeline with
// token estimation, adaptive buckets and alpha suppression.

package sim

import "github.com/sirupsen/logrus"

// Policy is the admission-strategy extension point. The Simulator calls
// these hooks from the tick loop; implementations must be flat value
// types selected at construction.
type Policy interface {
	// QueueTimeout is the queue-wait threshold in seconds.
	QueueTimeout() float64
	// SampleSize is k for the power-of-k node selector.
	SampleSize() int
	// PickIndex chooses which queued request to try next; 0 is the head.
	PickIndex(queue []*Request) int
	// EstimateTokens is the token cost charged against budgets.
	EstimateTokens(req *Request) int
	// AcquireSlot reserves a policy-level execution slot, if the policy
	// pools them. Must be balanced by ReleaseSlot.
	AcquireSlot() bool
	ReleaseSlot()
	// Admit is the per-request budget gate, checked after slot
	// acquisition and before node selection.
	Admit(now float64, estTokens int) bool
	// OnResult reports the admission outcome for estimator feedback.
	OnResult(req *Request, accepted bool)
	// OnWindow runs once per adaptation window with that window's metrics.
	OnWindow(m WindowMetrics)
	// ExtraHeapChurn adds policy-modeled allocation churn for one
	// accepted request, on top of the base young-heap formula.
	ExtraHeapChurn(req *Request) int64
	// HeapDecay is the surviving-heap fraction after a simulated GC.
	HeapDecay() float64
}

// === FIFO (default) ===

// FIFOPolicy is the neutral strategy: head-of-queue order, no slots, no
// budget gate. Timeout and sample size come from the run config.
type FIFOPolicy struct {
	Timeout float64
	Sample  int
}

// NewFIFOPolicy creates the default policy from the run config.
func NewFIFOPolicy(cfg SimConfig) *FIFOPolicy {
	return &FIFOPolicy{Timeout: cfg.QueueTimeoutSec, Sample: cfg.SampleSize}
}

func (p *FIFOPolicy) QueueTimeout() float64             { return p.Timeout }
func (p *FIFOPolicy) SampleSize() int                   { return p.Sample }
func (p *FIFOPolicy) PickIndex([]*Request) int          { return 0 }
func (p *FIFOPolicy) EstimateTokens(req *Request) int   { return req.TotalTokens() }
func (p *FIFOPolicy) AcquireSlot() bool                 { return true }
func (p *FIFOPolicy) ReleaseSlot()                      {}
func (p *FIFOPolicy) Admit(float64, int) bool           { return true }
func (p *FIFOPolicy) OnResult(*Request, bool)           {}
func (p *FIFOPolicy) OnWindow(WindowMetrics)            {}
func (p *FIFOPolicy) ExtraHeapChurn(*Request) int64     { return 0 }
func (p *FIFOPolicy) HeapDecay() float64                { return 0.35 }

// === Traditional ===

// TraditionalPolicy is the strict baseline: short queue timeout, k=2
// sampling, head-of-queue only, no adaptive component. It also models
// the heavier allocation churn the traditional path shows under long
// streaming requests (buffers are not reused across requests).
type TraditionalPolicy struct {
	FIFOPolicy
}

// NewTraditionalPolicy creates the traditional strategy.
func NewTraditionalPolicy() *TraditionalPolicy {
	return &TraditionalPolicy{FIFOPolicy{Timeout: 0.8, Sample: 2}}
}

func (p *TraditionalPolicy) ExtraHeapChurn(req *Request) int64 {
	if req.Long {
		return int64(req.StreamChunks) * 700
	}
	return 0
}

func (p *TraditionalPolicy) HeapDecay() float64 { return 0.30 }

// === Pool-first ===

// PoolFirstPolicy acquires from a slot pool before touching any node: an
// idle slot is reused, else the pool grows up to MaxSize, else the
// attempt fails. It prefers the first non-long queued request within a
// bounded lookahead to protect short-request latency, and tolerates a
// longer queue wait.
type PoolFirstPolicy struct {
	Core      int // slots pre-allocated at start
	MaxSize   int // hard pool ceiling
	Lookahead int // how deep PickIndex scans for a non-long request

	allocated int
	active    int
	idle      int
}

// NewPoolFirstPolicy creates the pool with core idle slots.
func NewPoolFirstPolicy(core, maxSize int) *PoolFirstPolicy {
	if core > maxSize {
		core = maxSize
	}
	return &PoolFirstPolicy{
		Core:      core,
		MaxSize:   maxSize,
		Lookahead: 32,
		allocated: core,
		idle:      core,
	}
}

func (p *PoolFirstPolicy) QueueTimeout() float64 { return 1.4 }
func (p *PoolFirstPolicy) SampleSize() int       { return 4 }

// PickIndex returns the index of the first non-long request within the
// lookahead bound, falling back to the head.
func (p *PoolFirstPolicy) PickIndex(queue []*Request) int {
	limit := min(p.Lookahead, len(queue))
	for i := 0; i < limit; i++ {
		if !queue[i].Long {
			return i
		}
	}
	return 0
}

func (p *PoolFirstPolicy) EstimateTokens(req *Request) int { return req.TotalTokens() }

// AcquireSlot reuses an idle slot, else grows the pool, else fails.
func (p *PoolFirstPolicy) AcquireSlot() bool {
	if p.idle > 0 {
		p.idle--
		p.active++
		return true
	}
	if p.allocated < p.MaxSize {
		p.allocated++
		p.active++
		return true
	}
	return false
}

// ReleaseSlot returns a slot to the idle set.
func (p *PoolFirstPolicy) ReleaseSlot() {
	if p.active > 0 {
		p.active--
		p.idle++
	}
}

func (p *PoolFirstPolicy) Admit(float64, int) bool       { return true }
func (p *PoolFirstPolicy) OnResult(*Request, bool)       {}
func (p *PoolFirstPolicy) OnWindow(WindowMetrics)        {}
func (p *PoolFirstPolicy) ExtraHeapChurn(*Request) int64 { return 0 }
func (p *PoolFirstPolicy) HeapDecay() float64            { return 0.38 }

// Active reports the number of slots currently checked out.
func (p *PoolFirstPolicy) Active() int { return p.active }

// Allocated reports the current pool size (idle + active).
func (p *PoolFirstPolicy) Allocated() int { return p.allocated }

// === Full pipeline ===

// FullPipelinePolicy composes the complete admission chain: EMA-corrected
// token estimation, adaptive size buckets as the budget gate, and a
// global suppression multiplier alpha that scales the RPM/TPM budget fed
// to the buckets. Alpha tightens by 8% when TTFT, simulated-GC frequency
// or the reject rate cross their thresholds, and relaxes by +0.02 per
// window otherwise.
type FullPipelinePolicy struct {
	Timeout float64
	Sample  int

	baseRPM int
	baseTPM int
	alpha   float64
	buckets *AdaptiveBucketAllocator

	estRatioEMA float64
}

// NewFullPipelinePolicy creates the pipeline over the fleet's total
// budget, with alpha starting fully relaxed.
func NewFullPipelinePolicy(totalRPM, totalTPM int, cfg SimConfig) *FullPipelinePolicy {
	return &FullPipelinePolicy{
		Timeout:     cfg.QueueTimeoutSec,
		Sample:      cfg.SampleSize,
		baseRPM:     totalRPM,
		baseTPM:     totalTPM,
		alpha:       1.0,
		buckets:     NewAdaptiveBucketAllocator(totalRPM, totalTPM),
		estRatioEMA: 1.0,
	}
}

func (p *FullPipelinePolicy) QueueTimeout() float64    { return p.Timeout }
func (p *FullPipelinePolicy) SampleSize() int          { return p.Sample }
func (p *FullPipelinePolicy) PickIndex([]*Request) int { return 0 }

// rawEstimate is the uncorrected cost guess: full input plus a
// discounted output, since output length is only partly predictable at
// admission time.
func rawEstimate(req *Request) int {
	return max(1, req.InputTokens+int(float64(req.OutputTokens)*0.85))
}

// EstimateTokens returns the EMA-corrected cost estimate with a 8%
// safety margin, and books the arrival into the bucket statistics.
func (p *FullPipelinePolicy) EstimateTokens(req *Request) int {
	est := int(max(1.0, float64(rawEstimate(req))*p.estRatioEMA*1.08))
	p.buckets.RecordArrival(est)
	return est
}

func (p *FullPipelinePolicy) AcquireSlot() bool { return true }
func (p *FullPipelinePolicy) ReleaseSlot()      {}

// Admit charges the estimate against the size bucket's budget; a blocked
// bucket counts toward that bucket's reject risk.
func (p *FullPipelinePolicy) Admit(now float64, estTokens int) bool {
	b := p.buckets.BucketOf(estTokens)
	if p.buckets.CanAdmit(now, b, estTokens) {
		p.buckets.Consume(b, estTokens)
		p.buckets.RecordAccept(estTokens)
		return true
	}
	p.buckets.RecordReject(estTokens)
	return false
}

// OnResult feeds the realized token usage back into the estimator EMA.
func (p *FullPipelinePolicy) OnResult(req *Request, accepted bool) {
	if !accepted {
		return
	}
	ratio := float64(req.TotalTokens()) / float64(rawEstimate(req))
	p.estRatioEMA = 0.9*p.estRatioEMA + 0.1*ratio
}

// OnWindow adjusts alpha from the window's health signals, re-balances
// the buckets, and applies the new alpha to the bucket budgets.
func (p *FullPipelinePolicy) OnWindow(m WindowMetrics) {
	switch {
	case m.P95TTFTMs > 1400 || m.GCFrequency > 1.8 || m.RejectRate > 0.50:
		p.alpha = max(0.65, p.alpha*0.92)
	case m.P95TTFTMs < 1150 && m.GCFrequency < 1.2 && m.RejectRate < 0.40:
		p.alpha = min(1.0, p.alpha+0.02)
	}
	p.buckets.OnWindowEnd()
	p.buckets.TotalRPM = int(float64(p.baseRPM) * p.alpha)
	p.buckets.TotalTPM = int(float64(p.baseTPM) * p.alpha)
	logrus.Debugf("pipeline window: alpha=%.3f boundaries=%v", p.alpha, p.buckets.Boundaries())
}

func (p *FullPipelinePolicy) ExtraHeapChurn(*Request) int64 { return 0 }
func (p *FullPipelinePolicy) HeapDecay() float64            { return 0.35 }

// Alpha reports the current suppression multiplier.
func (p *FullPipelinePolicy) Alpha() float64 { return p.alpha }

// AdaptiveState exposes the final bucket state for run reporting.
func (p *FullPipelinePolicy) AdaptiveState() (boundaries []int, shares []float64, alpha float64) {
	return p.buckets.Boundaries(), p.buckets.Shares(), p.alpha
}
