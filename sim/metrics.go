// Implements the metrics window and the run-level aggregates. The window
// accumulates per-second counters and latency samples, finalizes them
// into one SecondRecord per second, and hands the finished window to the
// controller/allocator as the congestion feedback signal.
//
// The "simulated GC" counter lives here as well: a synthetic
// young-generation heap fed by stream-chunk and output-token volume that
// emits one event per threshold crossing. It is a deliberately simplified
// proxy for allocation pressure, not a hook into the real runtime.

package sim

// youngHeapThreshold is the simulated young-generation size that triggers
// one GC event when crossed.
const youngHeapThreshold = 3_000_000

// WindowMetrics is the congestion signal computed from one finished
// metrics window and fed to Controller.Update and Policy.OnWindow.
type WindowMetrics struct {
	RateLimitFraction float64 // rate-limited admission failures / decisions this window
	BurstFraction     float64 // burst-rejected admission failures / decisions this window
	P95LatencyMs      float64 // p95 end-to-end latency of completions this window
	P95TTFTMs         float64 // p95 time-to-first-token of completions this window
	GCFrequency       float64 // simulated GC events this window
	RejectRate        float64 // terminal rejections / (accepted + rejected) this window
}

// SecondRecord is one row of the per-second time series.
type SecondRecord struct {
	Second          int     `json:"second"`
	Accepted        int     `json:"accepted"`
	Rejected        int     `json:"rejected"`
	BurstRejects    int     `json:"burst_reject"`
	RateRejects     int     `json:"rate_reject"`
	P95LatencyMs    float64 `json:"p95_latency_ms"`
	P95TTFTMs       float64 `json:"p95_ttft_ms"`
	P95QueueWaitMs  float64 `json:"p95_queue_ms"`
	ControllerLimit int     `json:"controller_limit"`
	GCEvents        int     `json:"sim_gc_freq"`
}

// RunResult is the aggregate outcome of one simulation run plus its
// per-second time series.
type RunResult struct {
	Name           string
	Accepted       int
	Rejected       int
	AcceptedTokens int64

	ActualRPM     float64
	ActualTPM     float64
	TokensPerSec  float64
	RPMUtil       float64
	TPMUtil       float64
	ConcUtil      float64
	CompositeUtil float64 // min of the resource utilizations: the binding constraint
	MaxUtil       float64 // max(rpmUtil, tpmUtil): headroom view used by the bucket experiments

	SuccessRate float64
	RejectRate  float64

	AvgLatencyMs   float64
	P50LatencyMs   float64
	P95LatencyMs   float64
	P99LatencyMs   float64
	P95TTFTMs      float64
	AvgQueueWaitMs float64
	P95QueueWaitMs float64

	PeakConcurrency int
	AllocationUnits int64
	RejectsByReason map[RejectReason]int

	SimGCAvgFreq  float64
	SimGCPeakFreq float64

	Timeseries []SecondRecord

	// Final adaptive state, when the run used an adaptive component.
	FinalBoundaries []int
	FinalShares     []float64
	FinalAlpha      float64
}

// Metrics is the single accumulator owned by one Simulator. All fields
// are mutated only by the tick loop.
type Metrics struct {
	Accepted        int
	Rejected        int
	AcceptedTokens  int64
	RejectsByReason map[RejectReason]int
	PeakConcurrency int
	AllocationUnits int64

	latenciesMs  []float64
	ttftMs       []float64
	queueWaitMs  []float64
	timeseries   []SecondRecord
	totalGCCount int

	// Current-second window state, reset on every rollover.
	secAccepted  int
	secRejected  int
	secBurst     int
	secRateLimit int
	secGC        int
	secLat       []float64
	secTTFT      []float64
	secQueue     []float64

	youngHeap int64
}

// NewMetrics creates an empty accumulator.
func NewMetrics() *Metrics {
	return &Metrics{RejectsByReason: make(map[RejectReason]int)}
}

// RecordAccept books one admitted request: throughput counters, the
// allocation-unit proxy, and the simulated young-heap churn. extraHeap
// adds policy-modeled churn on top of the base formula and decay is the
// surviving fraction multiplier applied on a GC event.
func (m *Metrics) RecordAccept(req *Request, extraHeap int64, decay float64) {
	m.Accepted++
	m.secAccepted++
	m.AcceptedTokens += int64(req.TotalTokens())
	m.AllocationUnits += int64(req.StreamChunks*3 + 8)

	m.youngHeap += int64(req.StreamChunks*1024+req.OutputTokens*16) + extraHeap
	if m.youngHeap > youngHeapThreshold {
		m.secGC++
		m.totalGCCount++
		m.youngHeap = int64(float64(m.youngHeap) * decay)
	}
}

// RecordAttemptFailure books one failed admission attempt (the head
// request stays queued). Rate and burst failures feed the controller's
// congestion fractions for the current window.
func (m *Metrics) RecordAttemptFailure(reason RejectReason) {
	m.RejectsByReason[reason]++
	switch reason {
	case ReasonRateRPM, ReasonRateTPM:
		m.secRateLimit++
	case ReasonBurst:
		m.secBurst++
	}
}

// RecordTimeout books one terminal QUEUE_TIMEOUT rejection.
func (m *Metrics) RecordTimeout() {
	m.Rejected++
	m.secRejected++
	m.RejectsByReason[ReasonQueueTimeout]++
}

// RecordCompletion books the latency samples of one finished request.
func (m *Metrics) RecordCompletion(f *Inflight) {
	lat := (f.FinishTime - f.Req.ArrivalTime) * 1000.0
	ttft := (f.StartTime - f.Req.ArrivalTime + f.Req.TTFTDelay) * 1000.0
	wait := (f.StartTime - f.Req.ArrivalTime) * 1000.0
	m.latenciesMs = append(m.latenciesMs, lat)
	m.ttftMs = append(m.ttftMs, ttft)
	m.queueWaitMs = append(m.queueWaitMs, wait)
	m.secLat = append(m.secLat, lat)
	m.secTTFT = append(m.secTTFT, ttft)
	m.secQueue = append(m.secQueue, wait)
}

// ObserveConcurrency tracks the peak total in-flight count.
func (m *Metrics) ObserveConcurrency(total int) {
	if total > m.PeakConcurrency {
		m.PeakConcurrency = total
	}
}

// WindowSnapshot computes the congestion signal for the current second
// without resetting it. The caller feeds this to Controller.Update and
// then commits the second with the post-update limit.
func (m *Metrics) WindowSnapshot() WindowMetrics {
	decisions := max(1, m.secAccepted+m.secRejected)
	return WindowMetrics{
		RateLimitFraction: float64(m.secRateLimit) / float64(decisions),
		BurstFraction:     float64(m.secBurst) / float64(decisions),
		P95LatencyMs:      Percentile(m.secLat, 95),
		P95TTFTMs:         Percentile(m.secTTFT, 95),
		GCFrequency:       float64(m.secGC),
		RejectRate:        float64(m.secRejected) / float64(decisions),
	}
}

// CommitSecond appends the finished second to the time series and resets
// the per-second state. controllerLimit is the limit in force after the
// window's controller update, which is what the time series reports.
func (m *Metrics) CommitSecond(second, controllerLimit int, w WindowMetrics) {
	m.timeseries = append(m.timeseries, SecondRecord{
		Second:          second,
		Accepted:        m.secAccepted,
		Rejected:        m.secRejected,
		BurstRejects:    m.secBurst,
		RateRejects:     m.secRateLimit,
		P95LatencyMs:    w.P95LatencyMs,
		P95TTFTMs:       w.P95TTFTMs,
		P95QueueWaitMs:  Percentile(m.secQueue, 95),
		ControllerLimit: controllerLimit,
		GCEvents:        m.secGC,
	})
	m.secAccepted, m.secRejected, m.secBurst, m.secRateLimit, m.secGC = 0, 0, 0, 0, 0
	m.secLat, m.secTTFT, m.secQueue = nil, nil, nil
}

// Finalize folds the accumulator into a RunResult. elapsed is the virtual
// duration of the run, nodes the fleet the run was admitted against.
func (m *Metrics) Finalize(name string, elapsed float64, nodes []*Node) RunResult {
	if elapsed < 1.0 {
		elapsed = 1.0
	}
	totalRPM, totalTPM := TotalLimits(nodes)
	totalConc := 0
	for _, n := range nodes {
		totalConc += n.MaxPhysicalConcurrency
	}

	actualRPM := float64(m.Accepted) * 60.0 / elapsed
	actualTPM := float64(m.AcceptedTokens) * 60.0 / elapsed
	rpmUtil := min(1.0, actualRPM/float64(totalRPM))
	tpmUtil := min(1.0, actualTPM/float64(totalTPM))
	concUtil := min(1.0, float64(m.PeakConcurrency)/float64(totalConc))

	decisions := max(1, m.Accepted+m.Rejected)

	gcAvg, gcPeak := 0.0, 0.0
	for _, rec := range m.timeseries {
		gcAvg += float64(rec.GCEvents)
		gcPeak = max(gcPeak, float64(rec.GCEvents))
	}
	if len(m.timeseries) > 0 {
		gcAvg /= float64(len(m.timeseries))
	}

	return RunResult{
		Name:            name,
		Accepted:        m.Accepted,
		Rejected:        m.Rejected,
		AcceptedTokens:  m.AcceptedTokens,
		ActualRPM:       actualRPM,
		ActualTPM:       actualTPM,
		TokensPerSec:    actualTPM / 60.0,
		RPMUtil:         rpmUtil,
		TPMUtil:         tpmUtil,
		ConcUtil:        concUtil,
		CompositeUtil:   min(rpmUtil, min(tpmUtil, concUtil)),
		MaxUtil:         max(rpmUtil, tpmUtil),
		SuccessRate:     float64(m.Accepted) / float64(decisions),
		RejectRate:      float64(m.Rejected) / float64(decisions),
		AvgLatencyMs:    Mean(m.latenciesMs),
		P50LatencyMs:    Percentile(m.latenciesMs, 50),
		P95LatencyMs:    Percentile(m.latenciesMs, 95),
		P99LatencyMs:    Percentile(m.latenciesMs, 99),
		P95TTFTMs:       Percentile(m.ttftMs, 95),
		AvgQueueWaitMs:  Mean(m.queueWaitMs),
		P95QueueWaitMs:  Percentile(m.queueWaitMs, 95),
		PeakConcurrency: m.PeakConcurrency,
		AllocationUnits: m.AllocationUnits,
		RejectsByReason: m.RejectsByReason,
		SimGCAvgFreq:    gcAvg,
		SimGCPeakFreq:   gcPeak,
		Timeseries:      m.timeseries,
	}
}
