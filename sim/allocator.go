// Implements the bucket allocators, which partition the fleet's total
// RPM/TPM budget across four size-keyed buckets. The static variant uses
// fixed boundaries and shares; the adaptive variant re-estimates
// boundaries from the observed token-size distribution and re-balances
// shares from windowed accept/reject counters.

package sim

import "github.com/sirupsen/logrus"

// NumBuckets is the fixed number of size buckets.
const NumBuckets = 4

const (
	bucketHistoryCap = 12000 // bounded token-size history, oldest evicted first
	bucketMinHistory = 200   // below this, boundary re-estimation is skipped

	boundaryKeepWeight  = 0.7  // smoothing: weight on the old boundary
	boundaryMaxStep     = 0.15 // per-window boundary movement cap, fraction of old value
	boundaryFloor       = 32   // boundaries never drop below this token count
	minShare            = 0.10
	maxShare            = 0.50
	shareMaxStepPerWind = 0.05
)

// BucketAllocator partitions rate/token budget across size buckets. Any
// type with these operations is a valid plug-in. The Record* hooks feed
// the adaptive variant's window counters and are no-ops on the static
// one.
type BucketAllocator interface {
	BucketOf(tokens int) int
	CanAdmit(now float64, bucket, tokens int) bool
	Consume(bucket, tokens int)
	OnWindowEnd()

	RecordArrival(tokens int)
	RecordAccept(tokens int)
	RecordReject(tokens int)

	Boundaries() []int
	Shares() []float64
}

// === Static ===

// StaticBucketAllocator holds fixed boundaries and shares. Each bucket
// owns independent RPM/TPM token buckets refilled continuously at
// total*share/60 per second with capacity 3x the per-second rate, enough
// to absorb short bursts without letting an idle bucket hoard budget.
type StaticBucketAllocator struct {
	TotalRPM int
	TotalTPM int

	boundaries [NumBuckets - 1]int
	shares     [NumBuckets]float64
	rpmTokens  [NumBuckets]float64
	tpmTokens  [NumBuckets]float64
	lastRefill float64
}

// NewStaticBucketAllocator creates the static allocator with the
// baseline boundaries and shares.
func NewStaticBucketAllocator(totalRPM, totalTPM int) *StaticBucketAllocator {
	return &StaticBucketAllocator{
		TotalRPM:   totalRPM,
		TotalTPM:   totalTPM,
		boundaries: [NumBuckets - 1]int{256, 1024, 4096},
		shares:     [NumBuckets]float64{0.35, 0.35, 0.20, 0.10},
	}
}

// BucketOf maps a total-token count to its size bucket.
func (a *StaticBucketAllocator) BucketOf(tokens int) int {
	for i, b := range a.boundaries {
		if tokens <= b {
			return i
		}
	}
	return NumBuckets - 1
}

// refill advances every bucket's RPM/TPM budget, clamped to 3x the
// per-second refill rate.
func (a *StaticBucketAllocator) refill(now float64) {
	dt := now - a.lastRefill
	if dt <= 0 {
		return
	}
	for i := 0; i < NumBuckets; i++ {
		rpmRate := float64(a.TotalRPM) * a.shares[i] / 60.0
		tpmRate := float64(a.TotalTPM) * a.shares[i] / 60.0
		a.rpmTokens[i] = min(rpmRate*3, a.rpmTokens[i]+dt*rpmRate)
		a.tpmTokens[i] = min(tpmRate*3, a.tpmTokens[i]+dt*tpmRate)
	}
	a.lastRefill = now
}

// CanAdmit refills and checks both of the bucket's budgets.
func (a *StaticBucketAllocator) CanAdmit(now float64, bucket, tokens int) bool {
	a.refill(now)
	return a.rpmTokens[bucket] >= 1.0 && a.tpmTokens[bucket] >= float64(tokens)
}

// Consume charges one request and its token cost to the bucket.
func (a *StaticBucketAllocator) Consume(bucket, tokens int) {
	a.rpmTokens[bucket] -= 1.0
	a.tpmTokens[bucket] -= float64(tokens)
}

func (a *StaticBucketAllocator) OnWindowEnd() {}

func (a *StaticBucketAllocator) RecordArrival(int) {}
func (a *StaticBucketAllocator) RecordAccept(int)  {}
func (a *StaticBucketAllocator) RecordReject(int)  {}

// Boundaries returns a copy of the current bucket boundaries.
func (a *StaticBucketAllocator) Boundaries() []int {
	out := make([]int, NumBuckets-1)
	copy(out, a.boundaries[:])
	return out
}

// Shares returns a copy of the current bucket shares.
func (a *StaticBucketAllocator) Shares() []float64 {
	out := make([]float64, NumBuckets)
	copy(out, a.shares[:])
	return out
}

// === Adaptive ===

// AdaptiveBucketAllocator adds per-window adaptation on top of the
// static budget mechanics: boundaries track the 40th/75th/92nd
// percentiles of observed token sizes and shares shift toward the
// buckets driving accepted throughput, both with smoothing and step caps
// against oscillation.
type AdaptiveBucketAllocator struct {
	StaticBucketAllocator

	tokenHist []int
	histStart int // ring-buffer read offset once the history cap is hit

	winArrival [NumBuckets]int
	winAccept  [NumBuckets]int
	winTokens  [NumBuckets]int64
	winReject  [NumBuckets]int
}

// NewAdaptiveBucketAllocator creates the adaptive allocator. Its initial
// boundaries are deliberately offset from the static baseline so that
// convergence is observable.
func NewAdaptiveBucketAllocator(totalRPM, totalTPM int) *AdaptiveBucketAllocator {
	a := &AdaptiveBucketAllocator{
		StaticBucketAllocator: *NewStaticBucketAllocator(totalRPM, totalTPM),
	}
	a.boundaries = [NumBuckets - 1]int{300, 1200, 3800}
	return a
}

// RecordArrival books one arrival into the window counters and the
// bounded token-size history.
func (a *AdaptiveBucketAllocator) RecordArrival(tokens int) {
	a.winArrival[a.BucketOf(tokens)]++
	if len(a.tokenHist) < bucketHistoryCap {
		a.tokenHist = append(a.tokenHist, tokens)
	} else {
		a.tokenHist[a.histStart] = tokens
		a.histStart = (a.histStart + 1) % bucketHistoryCap
	}
}

// RecordAccept books one accepted request into the window counters.
func (a *AdaptiveBucketAllocator) RecordAccept(tokens int) {
	b := a.BucketOf(tokens)
	a.winAccept[b]++
	a.winTokens[b] += int64(tokens)
}

// RecordReject books one rejected request into the window counters.
func (a *AdaptiveBucketAllocator) RecordReject(tokens int) {
	a.winReject[a.BucketOf(tokens)]++
}

// smoothBoundary moves old toward target with 0.7/0.3 smoothing, clamped
// to +-15% of the old value per window and floored at boundaryFloor.
func smoothBoundary(old, target int) int {
	raw := int(boundaryKeepWeight*float64(old) + (1-boundaryKeepWeight)*float64(target))
	step := int(float64(old) * boundaryMaxStep)
	lo := max(boundaryFloor, old-step)
	hi := old + step
	return max(lo, min(hi, raw))
}

// updateBoundaries re-estimates the three boundaries from the token-size
// history. The update is rejected wholesale if smoothing would break the
// strict ordering b1 < b2 < b3.
func (a *AdaptiveBucketAllocator) updateBoundaries() {
	if len(a.tokenHist) < bucketMinHistory {
		return
	}
	p40 := int(Percentile(a.tokenHist, 40))
	p75 := int(Percentile(a.tokenHist, 75))
	p92 := int(Percentile(a.tokenHist, 92))
	b1 := smoothBoundary(a.boundaries[0], p40)
	b2 := smoothBoundary(a.boundaries[1], max(p40+64, p75))
	b3 := smoothBoundary(a.boundaries[2], max(p75+256, p92))
	if b1 < b2 && b2 < b3 {
		a.boundaries = [NumBuckets - 1]int{b1, b2, b3}
	} else {
		logrus.Debugf("bucket boundary update rejected: %d %d %d not strictly increasing", b1, b2, b3)
	}
}

// updateShares re-balances the four shares from the window counters:
// score each bucket by arrival, accept and token share minus reject
// risk, clamp to the share band, normalize, then move each share at most
// +-0.05 toward its target and renormalize.
func (a *AdaptiveBucketAllocator) updateShares() {
	const eps = 1e-9
	var arrivalSum, acceptSum, tokenSum float64
	for i := 0; i < NumBuckets; i++ {
		arrivalSum += float64(a.winArrival[i])
		acceptSum += float64(a.winAccept[i])
		tokenSum += float64(a.winTokens[i])
	}
	arrivalSum += eps
	acceptSum += eps
	tokenSum += eps

	var target [NumBuckets]float64
	sum := 0.0
	for i := 0; i < NumBuckets; i++ {
		arrivalShare := float64(a.winArrival[i]) / arrivalSum
		acceptShare := float64(a.winAccept[i]) / acceptSum
		tokenShare := float64(a.winTokens[i]) / tokenSum
		risk := float64(a.winReject[i]) / float64(max(1, a.winArrival[i]))
		score := 0.35*arrivalShare + 0.35*acceptShare + 0.20*tokenShare - 0.25*risk
		target[i] = max(minShare, min(maxShare, score))
		sum += target[i]
	}

	updatedSum := 0.0
	for i := 0; i < NumBuckets; i++ {
		delta := target[i]/sum - a.shares[i]
		delta = max(-shareMaxStepPerWind, min(shareMaxStepPerWind, delta))
		a.shares[i] += delta
		updatedSum += a.shares[i]
	}
	for i := 0; i < NumBuckets; i++ {
		a.shares[i] /= updatedSum
	}
}

// OnWindowEnd runs one re-balance: boundary re-estimation, share
// re-balancing, then a window-counter reset.
func (a *AdaptiveBucketAllocator) OnWindowEnd() {
	a.updateBoundaries()
	a.updateShares()
	a.winArrival = [NumBuckets]int{}
	a.winAccept = [NumBuckets]int{}
	a.winTokens = [NumBuckets]int64{}
	a.winReject = [NumBuckets]int{}
}
