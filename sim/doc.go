// Package sim provides the virtual-time simulation engine for MoonCell
// gateway admission control.
//
// # Reading Guide
//
// Start with these three files to understand the engine:
//   - request.go: Request/Inflight value types and rejection reasons
//   - node.go: per-node token buckets (RPM/TPM/burst) and the admission check order
//   - simulator.go: the fixed-tick loop and the per-second feedback cycle
//
// # Architecture
//
// The engine advances virtual time in fixed ticks. Within one tick the
// order is always: arrivals, completions, queue-timeout expiry, admission
// attempts, per-second metrics rollover. Completions run before admissions
// so freed capacity is visible to the same tick's admission attempts.
//
// # Key Interfaces
//
// The extension points are small, flat interfaces selected at construction:
//   - Controller: global concurrency ceiling (Fixed, AIMD, tuned AIMD)
//   - BucketAllocator: size-keyed rate/token budget partitioning (static, adaptive)
//   - Policy: admission strategy (default FIFO, traditional, pool-first, full pipeline)
//
// All mutable state is owned by a single Simulator instance; independent
// runs may execute concurrently as long as they share nothing.
package sim
