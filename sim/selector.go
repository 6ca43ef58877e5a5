// Implements the node selector: power-of-k-choices load balancing.
// A bounded random sample ordered by current load approximates
// least-loaded selection without scanning the whole fleet.

package sim

import (
	"math/rand"
	"sort"
)

// Selector samples k nodes without replacement and yields them in
// ascending in-flight order for admission attempts.
type Selector struct {
	nodes []*Node
	rng   *rand.Rand
}

// NewSelector creates a selector over the given fleet. The RNG stream
// should come from the run's PartitionedRNG (SubsystemSelector) so that
// sampling is reproducible per seed.
func NewSelector(nodes []*Node, rng *rand.Rand) *Selector {
	return &Selector{nodes: nodes, rng: rng}
}

// Sample returns min(k, len(nodes)) distinct nodes sorted ascending by
// Inflight. The sort is stable, so ties keep their sampled order.
func (s *Selector) Sample(k int) []*Node {
	if k > len(s.nodes) {
		k = len(s.nodes)
	}
	if k <= 0 {
		return nil
	}
	perm := s.rng.Perm(len(s.nodes))
	sample := make([]*Node, k)
	for i := 0; i < k; i++ {
		sample[i] = s.nodes[perm[i]]
	}
	sort.SliceStable(sample, func(i, j int) bool {
		return sample[i].Inflight < sample[j].Inflight
	})
	return sample
}

// TryStart attempts CanStart/Start on a fresh k-sample in least-loaded
// order until one node admits the request. On failure it returns the
// reason from the last node tried; an empty sample reports CONCURRENCY.
func (s *Selector) TryStart(now float64, k, tokenCost, allowedConcurrency int) (*Node, RejectReason) {
	failReason := ReasonConcurrency
	for _, node := range s.Sample(k) {
		ok, reason := node.CanStart(now, tokenCost, allowedConcurrency)
		if ok {
			node.Start(now, tokenCost)
			return node, ""
		}
		failReason = reason
	}
	return nil, failReason
}
