// Run configuration. All tunables are explicit values handed to the
// Simulator at construction; the core has no hidden globals. Malformed
// values are normalized in place rather than rejected, so a sweep over a
// parameter grid never aborts mid-way.

package sim

// SimConfig holds the engine tunables for one run.
type SimConfig struct {
	TickSec         float64 `yaml:"tick_sec"`          // virtual-time step
	QueueTimeoutSec float64 `yaml:"queue_timeout_sec"` // max queue wait before QUEUE_TIMEOUT
	SampleSize      int     `yaml:"sample_size"`       // k for power-of-k node selection
	UpdateWindowSec int     `yaml:"update_window_sec"` // allocator/policy adaptation window
	DrainSec        float64 `yaml:"drain_sec"`         // run past the last arrival this long
	Seed            int64   `yaml:"seed"`
}

// DefaultSimConfig returns the engine defaults used by the reviewed
// experiments: 20ms ticks, 1.2s queue timeout, 3-node samples, 5s
// adaptation windows, 20s drain.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		TickSec:         0.02,
		QueueTimeoutSec: 1.2,
		SampleSize:      3,
		UpdateWindowSec: 5,
		DrainSec:        20,
		Seed:            42,
	}
}

// Normalize clamps out-of-range values to usable ones in place.
func (c *SimConfig) Normalize() {
	d := DefaultSimConfig()
	if c.TickSec <= 0 || c.TickSec > 1.0 {
		c.TickSec = d.TickSec
	}
	if c.QueueTimeoutSec <= 0 {
		c.QueueTimeoutSec = d.QueueTimeoutSec
	}
	if c.SampleSize < 1 {
		c.SampleSize = d.SampleSize
	}
	if c.UpdateWindowSec < 1 {
		c.UpdateWindowSec = d.UpdateWindowSec
	}
	if c.DrainSec < 0 {
		c.DrainSec = d.DrainSec
	}
}
