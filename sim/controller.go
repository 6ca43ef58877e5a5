// Implements the Controller variants that produce the global concurrency
// ceiling: a fixed baseline and an AIMD congestion controller with a
// fully tunable parameter set.

package sim

import "github.com/sirupsen/logrus"

// Controller produces the global concurrency ceiling. CurrentLimit gates
// admission on every tick; Update runs once per metrics window. Any type
// with these two methods is a valid plug-in.
type Controller interface {
	CurrentLimit() int
	Update(second int, m WindowMetrics)
}

// === Fixed ===

// FixedController is the degenerate baseline: a constant ceiling and a
// no-op update.
type FixedController struct {
	Limit int
}

// NewFixedController creates a controller pinned at limit.
func NewFixedController(limit int) *FixedController {
	return &FixedController{Limit: limit}
}

func (c *FixedController) CurrentLimit() int { return c.Limit }

func (c *FixedController) Update(_ int, _ WindowMetrics) {}

// === AIMD ===

// AIMDParams holds every tunable of the AIMD controller. The zero value
// is not usable; start from DefaultAIMDParams.
type AIMDParams struct {
	MinLimit  int `json:"min_c" yaml:"min_c"`
	MaxLimit  int `json:"max_c" yaml:"max_c"`
	InitLimit int `json:"init_c" yaml:"init_c"`
	SSThresh  int `json:"ssthresh" yaml:"ssthresh"`

	DecreaseFactor  float64 `json:"decrease_factor" yaml:"decrease_factor"`
	CooldownWindows int     `json:"cooldown_windows" yaml:"cooldown_windows"`

	RateLimitThreshold float64 `json:"rate_limit_threshold" yaml:"rate_limit_threshold"`
	BurstThreshold     float64 `json:"burst_threshold" yaml:"burst_threshold"`
	P95ThresholdMs     float64 `json:"p95_threshold_ms" yaml:"p95_threshold_ms"`
	GCThreshold        float64 `json:"gc_threshold" yaml:"gc_threshold"`

	SlowStartFactor float64 `json:"slow_start_factor" yaml:"slow_start_factor"`
	AIStep          float64 `json:"ai_step" yaml:"ai_step"`
}

// DefaultAIMDParams returns the untuned controller constants.
func DefaultAIMDParams(minLimit, maxLimit, initLimit int) AIMDParams {
	return AIMDParams{
		MinLimit:           minLimit,
		MaxLimit:           maxLimit,
		InitLimit:          initLimit,
		SSThresh:           32,
		DecreaseFactor:     0.7,
		CooldownWindows:    2,
		RateLimitThreshold: 0.06,
		BurstThreshold:     0.03,
		P95ThresholdMs:     2200,
		GCThreshold:        4.0,
		SlowStartFactor:    1.5,
		AIStep:             1.0,
	}
}

// Normalize clamps inconsistent parameter combinations in place rather
// than failing: min<=init<=max and min<=ssthresh<=max.
func (p *AIMDParams) Normalize() {
	if p.MinLimit < 1 {
		p.MinLimit = 1
	}
	if p.MaxLimit < p.MinLimit {
		p.MaxLimit = p.MinLimit
	}
	if p.InitLimit < p.MinLimit {
		p.InitLimit = p.MinLimit
	}
	if p.InitLimit > p.MaxLimit {
		p.InitLimit = p.MaxLimit
	}
	if p.SSThresh < p.MinLimit {
		p.SSThresh = p.MinLimit
	}
	if p.SSThresh > p.MaxLimit {
		p.SSThresh = p.MaxLimit
	}
}

// AIMDController adapts a continuous congestion window once per metrics
// window: multiplicative decrease on congestion (then cooldown),
// exponential growth below the threshold (slow start), linear growth
// above it (congestion avoidance).
type AIMDController struct {
	Params   AIMDParams
	cwnd     float64
	ssthresh float64
	cooldown int
}

// NewAIMDController creates the controller with the untuned defaults,
// matching the baseline AIMD arm of the A/B comparison.
func NewAIMDController(minLimit, maxLimit, initLimit int) *AIMDController {
	return NewTunedAIMDController(DefaultAIMDParams(minLimit, maxLimit, initLimit))
}

// NewTunedAIMDController creates the controller from an explicit
// parameter set, normalized defensively first.
func NewTunedAIMDController(p AIMDParams) *AIMDController {
	p.Normalize()
	return &AIMDController{
		Params:   p,
		cwnd:     float64(p.InitLimit),
		ssthresh: float64(p.SSThresh),
	}
}

// CurrentLimit is the window truncated to an integer and clamped to
// [MinLimit, MaxLimit].
func (c *AIMDController) CurrentLimit() int {
	return max(c.Params.MinLimit, min(c.Params.MaxLimit, int(c.cwnd)))
}

// Update applies one adaptation step from the finished window's metrics.
// A pending cooldown decrements and suppresses adaptation entirely.
func (c *AIMDController) Update(second int, m WindowMetrics) {
	if c.cooldown > 0 {
		c.cooldown--
		return
	}
	p := c.Params
	congested := m.RateLimitFraction > p.RateLimitThreshold ||
		m.BurstFraction > p.BurstThreshold ||
		m.P95LatencyMs > p.P95ThresholdMs ||
		m.GCFrequency > p.GCThreshold
	if congested {
		c.ssthresh = max(float64(p.MinLimit), c.cwnd*p.DecreaseFactor)
		c.cwnd = max(float64(p.MinLimit), c.ssthresh)
		c.cooldown = p.CooldownWindows
		logrus.Debugf("aimd congested at second %d: cwnd=%.2f ssthresh=%.2f", second, c.cwnd, c.ssthresh)
		return
	}
	if c.cwnd < c.ssthresh {
		c.cwnd = min(float64(p.MaxLimit), c.cwnd*p.SlowStartFactor)
	} else {
		c.cwnd = min(float64(p.MaxLimit), c.cwnd+p.AIStep)
	}
}
