// Implements the Node, one rate-limited serving target. Each node holds
// three independent continuously-refilled budgets (requests/minute,
// tokens/minute, burst requests/second) plus a physical concurrency
// ceiling, and decides admission with a fixed check order.

package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Node is the state of a single serving target. All budget mutation
// happens on the simulation tick goroutine; Node is not safe for
// concurrent use.
type Node struct {
	ID                     int
	RPMLimit               int     // Requests-per-minute ceiling, also the RPM bucket capacity
	TPMLimit               int     // Tokens-per-minute ceiling, also the TPM bucket capacity
	MaxPhysicalConcurrency int     // Hard per-node in-flight ceiling
	BurstRPSLimit          float64 // Max starts within any 1s window

	Inflight   int       // Current in-flight request count
	RPMTokens  float64   // RPM bucket level, starts full
	TPMTokens  float64   // TPM bucket level, starts full
	LastRefill float64   // Timestamp of the last refill (seconds)
	Starts     []float64 // Rolling window of admission timestamps within the last second
}

// NewNode creates a node with full budgets.
func NewNode(id, rpmLimit, tpmLimit, maxConcurrency int, burstRPSLimit float64) *Node {
	return &Node{
		ID:                     id,
		RPMLimit:               rpmLimit,
		TPMLimit:               tpmLimit,
		MaxPhysicalConcurrency: maxConcurrency,
		BurstRPSLimit:          burstRPSLimit,
		RPMTokens:              float64(rpmLimit),
		TPMTokens:              float64(tpmLimit),
	}
}

// Refill advances both minute buckets by elapsed*(limit/60), clamped to
// capacity, and evicts burst-window entries older than one second.
// Negative elapsed time (never produced by the tick loop) is ignored.
func (n *Node) Refill(now float64) {
	dt := now - n.LastRefill
	if dt <= 0 {
		return
	}
	n.RPMTokens = min(float64(n.RPMLimit), n.RPMTokens+dt*float64(n.RPMLimit)/60.0)
	n.TPMTokens = min(float64(n.TPMLimit), n.TPMTokens+dt*float64(n.TPMLimit)/60.0)
	n.LastRefill = now

	cut := 0
	for cut < len(n.Starts) && n.Starts[cut] < now-1.0 {
		cut++
	}
	if cut > 0 {
		n.Starts = n.Starts[cut:]
	}
}

// CanStart refills and then runs the admission checks in their fixed
// order: concurrency, burst, RPM, TPM. The first failing check wins and
// nothing is consumed on failure. The order is load-bearing: it decides
// which reason a simultaneous-failure request is attributed to, and A/B
// comparisons depend on that attribution staying stable.
func (n *Node) CanStart(now float64, tokenCost int, allowedConcurrency int) (bool, RejectReason) {
	n.Refill(now)
	if n.Inflight >= min(n.MaxPhysicalConcurrency, allowedConcurrency) {
		return false, ReasonConcurrency
	}
	if float64(len(n.Starts)) >= n.BurstRPSLimit {
		return false, ReasonBurst
	}
	if n.RPMTokens < 1.0 {
		return false, ReasonRateRPM
	}
	if n.TPMTokens < float64(tokenCost) {
		return false, ReasonRateTPM
	}
	return true, ""
}

// Start consumes one RPM token and tokenCost TPM tokens, takes a
// concurrency slot, and records the start in the burst window. Must only
// be called after a successful CanStart at the same timestamp.
func (n *Node) Start(now float64, tokenCost int) {
	n.RPMTokens -= 1.0
	n.TPMTokens -= float64(tokenCost)
	n.Inflight++
	n.Starts = append(n.Starts, now)
	logrus.Debugf("node %d start: inflight=%d rpm=%.1f tpm=%.1f", n.ID, n.Inflight, n.RPMTokens, n.TPMTokens)
}

// Finish releases one concurrency slot, floored at zero.
func (n *Node) Finish() {
	if n.Inflight > 0 {
		n.Inflight--
	}
}

func (n *Node) String() string {
	return fmt.Sprintf("Node: (ID: %d, RPM: %d, TPM: %d, Concurrency: %d, Inflight: %d)",
		n.ID, n.RPMLimit, n.TPMLimit, n.MaxPhysicalConcurrency, n.Inflight)
}

// === Fleet factory ===

// FleetProfile scales the baseline fleet limits to stress a particular
// resource dimension.
type FleetProfile string

const (
	FleetBalanced     FleetProfile = "balanced"
	FleetRPMTight     FleetProfile = "rpm_tight"
	FleetTPMTight     FleetProfile = "tpm_tight"
	FleetBalancedHigh FleetProfile = "balanced_high"
)

// FleetConfig describes the initial node set for a run.
type FleetConfig struct {
	Count           int          `yaml:"count"`
	BaseRPM         int          `yaml:"base_rpm"`
	RPMStep         int          `yaml:"rpm_step"`
	BaseTPM         int          `yaml:"base_tpm"`
	TPMStep         int          `yaml:"tpm_step"`
	BaseConcurrency int          `yaml:"base_concurrency"`
	Profile         FleetProfile `yaml:"profile"`
}

// DefaultFleetConfig is the six-node fleet used throughout the reviewed
// experiments: RPM 1150..1550, TPM 520k..745k, concurrency 14..19.
func DefaultFleetConfig() FleetConfig {
	return FleetConfig{
		Count:           6,
		BaseRPM:         1150,
		RPMStep:         80,
		BaseTPM:         520_000,
		TPMStep:         45_000,
		BaseConcurrency: 14,
		Profile:         FleetBalanced,
	}
}

// NewFleet builds the node set for one run. Burst limits derive from the
// per-node RPM: max(6, rpm/60*0.8), tightened further under rpm_tight.
func NewFleet(cfg FleetConfig) []*Node {
	if cfg.Count <= 0 {
		cfg = DefaultFleetConfig()
	}
	nodes := make([]*Node, 0, cfg.Count)
	for i := 0; i < cfg.Count; i++ {
		rpm := cfg.BaseRPM + i*cfg.RPMStep
		tpm := cfg.BaseTPM + i*cfg.TPMStep
		burst := max(6.0, float64(rpm)/60.0*0.8)
		switch cfg.Profile {
		case FleetRPMTight:
			rpm = int(float64(rpm) * 0.7)
			burst = max(5.0, float64(rpm)/60.0*0.7)
		case FleetTPMTight:
			tpm = int(float64(tpm) * 0.6)
		case FleetBalancedHigh:
			rpm = int(float64(rpm) * 1.1)
			tpm = int(float64(tpm) * 1.1)
		}
		nodes = append(nodes, NewNode(i, rpm, tpm, cfg.BaseConcurrency+i, burst))
	}
	return nodes
}

// TotalLimits sums the fleet's RPM and TPM ceilings, the denominators for
// utilization metrics and the total budget handed to bucket allocators.
func TotalLimits(nodes []*Node) (totalRPM, totalTPM int) {
	for _, n := range nodes {
		totalRPM += n.RPMLimit
		totalTPM += n.TPMLimit
	}
	return totalRPM, totalTPM
}
