// The run driver: wires nodes, queue, controller, allocator and policy
// into one fixed-tick simulation run and folds the outcome into a
// RunResult.
//
// Intra-tick order is fixed and documented: arrivals, completions,
// queue-timeout expiry, admission attempts, per-second rollover.
// Completions run before admissions so capacity freed this tick is
// admitted against this tick.

package sim

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Simulator owns all mutable state of one run. Nothing is shared between
// Simulator instances, so independent runs may execute in parallel
// workers.
type Simulator struct {
	Config     SimConfig
	Nodes      []*Node
	Queue      *AdmissionQueue
	Controller Controller
	Allocator  BucketAllocator // optional; nil disables bucket gating
	Policy     Policy
	Metrics    *Metrics

	Clock    float64
	requests []*Request
	inflight []*Inflight
	selector *Selector
}

// NewSimulator assembles a run. allocator and policy may be nil; a nil
// policy means plain FIFO admission with the config's timeout and sample
// size.
func NewSimulator(cfg SimConfig, nodes []*Node, controller Controller, allocator BucketAllocator, policy Policy, requests []*Request) *Simulator {
	cfg.Normalize()
	if policy == nil {
		policy = NewFIFOPolicy(cfg)
	}
	rng := NewPartitionedRNG(NewSimulationKey(cfg.Seed))
	return &Simulator{
		Config:     cfg,
		Nodes:      nodes,
		Queue:      &AdmissionQueue{},
		Controller: controller,
		Allocator:  allocator,
		Policy:     policy,
		Metrics:    NewMetrics(),
		requests:   requests,
		selector:   NewSelector(nodes, rng.ForSubsystem(SubsystemSelector)),
	}
}

// validate fails fast on precondition violations. An empty or unsorted
// request stream would silently skew every downstream metric, so no
// partial run is produced.
func (s *Simulator) validate() error {
	if len(s.Nodes) == 0 {
		return errors.New("simulator: empty node set")
	}
	if s.Controller == nil {
		return errors.New("simulator: nil controller")
	}
	if len(s.requests) == 0 {
		return errors.New("simulator: empty request input")
	}
	for i := 1; i < len(s.requests); i++ {
		if s.requests[i].ArrivalTime < s.requests[i-1].ArrivalTime {
			return fmt.Errorf("simulator: requests not sorted by arrival at index %d", i)
		}
	}
	return nil
}

func (s *Simulator) totalInflight() int {
	total := 0
	for _, n := range s.Nodes {
		total += n.Inflight
	}
	return total
}

// Run executes the tick loop to completion and returns the run's
// aggregate result and time series.
func (s *Simulator) Run(name string) (RunResult, error) {
	if err := s.validate(); err != nil {
		return RunResult{}, err
	}

	dt := s.Config.TickSec
	endTime := s.requests[len(s.requests)-1].ArrivalTime + s.Config.DrainSec
	logrus.Infof("run %q: %d requests, %d nodes, horizon %.1fs, tick %.3fs",
		name, len(s.requests), len(s.Nodes), endTime, dt)

	nextArrival := 0
	secCursor := 0

	for s.Clock = 0; s.Clock <= endTime; s.Clock += dt {
		now := s.Clock

		// 1. Arrivals enter the queue.
		for nextArrival < len(s.requests) && s.requests[nextArrival].ArrivalTime <= now {
			req := s.requests[nextArrival]
			s.Queue.Enqueue(req)
			if s.Allocator != nil {
				s.Allocator.RecordArrival(req.TotalTokens())
			}
			nextArrival++
		}

		// 2. Completions free node slots before any admission below.
		s.completeFinished(now)

		// 3. Stale heads expire exactly once as QUEUE_TIMEOUT.
		s.Queue.ExpireHead(now, s.Policy.QueueTimeout(), func(req *Request) {
			s.Metrics.RecordTimeout()
			if s.Allocator != nil {
				s.Allocator.RecordReject(req.TotalTokens())
			}
		})

		// 4. Admission attempts under the controller's current ceiling.
		s.admit(now)

		s.Metrics.ObserveConcurrency(s.totalInflight())

		// 5. Per-second rollover: finalize the window, feed the
		// controller, fire the adaptation window when due.
		for now >= float64(secCursor)+1.0 {
			w := s.Metrics.WindowSnapshot()
			s.Controller.Update(secCursor, w)
			s.Metrics.CommitSecond(secCursor, s.Controller.CurrentLimit(), w)
			secCursor++
			if secCursor%s.Config.UpdateWindowSec == 0 {
				if s.Allocator != nil {
					s.Allocator.OnWindowEnd()
				}
				s.Policy.OnWindow(w)
			}
		}
	}

	logrus.Infof("run %q complete: accepted=%d rejected=%d", name, s.Metrics.Accepted, s.Metrics.Rejected)

	result := s.Metrics.Finalize(name, endTime, s.Nodes)
	if s.Allocator != nil {
		result.FinalBoundaries = s.Allocator.Boundaries()
		result.FinalShares = s.Allocator.Shares()
	}
	if reporter, ok := s.Policy.(interface {
		AdaptiveState() ([]int, []float64, float64)
	}); ok {
		result.FinalBoundaries, result.FinalShares, result.FinalAlpha = reporter.AdaptiveState()
	}
	return result, nil
}

// completeFinished releases every inflight entry whose finish time has
// passed and records its latency samples.
func (s *Simulator) completeFinished(now float64) {
	keep := s.inflight[:0]
	for _, f := range s.inflight {
		if f.FinishTime <= now {
			s.Nodes[f.NodeID].Finish()
			s.Policy.ReleaseSlot()
			s.Metrics.RecordCompletion(f)
		} else {
			keep = append(keep, f)
		}
	}
	s.inflight = keep
}

// admit drains the queue while the global ceiling has room, stopping at
// the first request that cannot start so arrival order is preserved
// (modulo the policy's bounded pick).
func (s *Simulator) admit(now float64) {
	limit := s.Controller.CurrentLimit()
	total := s.totalInflight()

	for s.Queue.Len() > 0 && total < limit {
		idx := s.Policy.PickIndex(s.Queue.Items())
		req := s.Queue.At(idx)
		est := s.Policy.EstimateTokens(req)

		bucket := -1
		if s.Allocator != nil {
			bucket = s.Allocator.BucketOf(est)
			if !s.Allocator.CanAdmit(now, bucket, est) {
				s.Metrics.RecordAttemptFailure(ReasonBudgetBlock)
				return
			}
		}
		if !s.Policy.Admit(now, est) {
			s.Metrics.RecordAttemptFailure(ReasonBudgetBlock)
			return
		}
		if !s.Policy.AcquireSlot() {
			return
		}

		node, reason := s.selector.TryStart(now, s.Policy.SampleSize(), est, limit)
		if node == nil {
			s.Policy.ReleaseSlot()
			s.Policy.OnResult(req, false)
			s.Metrics.RecordAttemptFailure(reason)
			if s.Allocator != nil {
				s.Allocator.RecordReject(req.TotalTokens())
			}
			return
		}

		s.Queue.RemoveAt(idx)
		s.inflight = append(s.inflight, &Inflight{
			Req:        req,
			StartTime:  now,
			FinishTime: now + req.ServiceTime,
			NodeID:     node.ID,
		})
		total++
		s.Metrics.RecordAccept(req, s.Policy.ExtraHeapChurn(req), s.Policy.HeapDecay())
		if s.Allocator != nil {
			s.Allocator.Consume(bucket, est)
			s.Allocator.RecordAccept(req.TotalTokens())
		}
		s.Policy.OnResult(req, true)
	}
}
