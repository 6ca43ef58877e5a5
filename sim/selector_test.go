package sim

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testFleet(count int) []*Node {
	nodes := make([]*Node, count)
	for i := 0; i < count; i++ {
		nodes[i] = NewNode(i, 6000, 600000, 20, 100)
	}
	return nodes
}

func TestSelectorSample_SizeAndDistinctness(t *testing.T) {
	nodes := testFleet(6)
	s := NewSelector(nodes, rand.New(rand.NewSource(1)))

	sample := s.Sample(3)
	assert.Len(t, sample, 3)
	seen := map[int]bool{}
	for _, n := range sample {
		assert.False(t, seen[n.ID], "node %d sampled twice", n.ID)
		seen[n.ID] = true
	}

	// k above fleet size clamps to the whole fleet.
	assert.Len(t, s.Sample(10), 6)
	assert.Nil(t, s.Sample(0))
}

func TestSelectorSample_LeastLoadedFirst(t *testing.T) {
	nodes := testFleet(4)
	nodes[0].Inflight = 9
	nodes[1].Inflight = 2
	nodes[2].Inflight = 5
	nodes[3].Inflight = 0

	s := NewSelector(nodes, rand.New(rand.NewSource(7)))
	sample := s.Sample(4)
	for i := 1; i < len(sample); i++ {
		assert.LessOrEqual(t, sample[i-1].Inflight, sample[i].Inflight)
	}
	assert.Equal(t, 3, sample[0].ID)
}

func TestSelectorTryStart_PicksLeastLoaded(t *testing.T) {
	nodes := testFleet(3)
	nodes[0].Inflight = 5
	nodes[1].Inflight = 1
	nodes[2].Inflight = 5

	s := NewSelector(nodes, rand.New(rand.NewSource(3)))
	node, reason := s.TryStart(0.5, 3, 100, 20)
	if node == nil {
		t.Fatalf("TryStart failed: %s", reason)
	}
	assert.Equal(t, 1, node.ID)
	assert.Equal(t, 2, node.Inflight)
}

func TestSelectorTryStart_AllSaturated(t *testing.T) {
	nodes := testFleet(3)
	for _, n := range nodes {
		n.Inflight = 20
	}

	s := NewSelector(nodes, rand.New(rand.NewSource(3)))
	node, reason := s.TryStart(0.5, 3, 100, 50)
	assert.Nil(t, node)
	assert.Equal(t, ReasonConcurrency, reason)
}

func TestSelectorTryStart_FallsThroughToNextNode(t *testing.T) {
	nodes := []*Node{
		NewNode(0, 6000, 50, 20, 100), // least loaded but too small a TPM budget
		NewNode(1, 6000, 600000, 20, 100),
	}
	nodes[0].Inflight = 1
	nodes[1].Inflight = 3

	s := NewSelector(nodes, rand.New(rand.NewSource(11)))
	node, _ := s.TryStart(0.5, 2, 100, 20)
	if assert.NotNil(t, node) {
		assert.Equal(t, 1, node.ID)
	}
}

func TestSelector_DeterministicPerSeed(t *testing.T) {
	order := func(seed int64) []int {
		s := NewSelector(testFleet(6), rand.New(rand.NewSource(seed)))
		var ids []int
		for _, n := range s.Sample(6) {
			ids = append(ids, n.ID)
		}
		return ids
	}
	assert.Equal(t, order(42), order(42))
}
