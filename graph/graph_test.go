package graph_test

import (
	"sync"
	"testing"

	"github.com/dravaio/drava/graph"
	"golang.org/x/xerrors"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(GraphTestSuite))

func Test(t *testing.T) {
	// Run all gocheck test-suites
	gc.TestingT(t)
}

type GraphTestSuite struct {
}

func (s *GraphTestSuite) TestMessageQueueParity(c *gc.C) {
	p := graph.NewPartition[string, int, struct{}, int](0, graph.DenseEdges)
	v := p.AddVertex("v", 0)

	// A message enqueued for superstep 1 must not be visible at superstep
	// 0 or 2 and must survive until it is explicitly discarded.
	v.EnqueueFor(1, 42)
	c.Assert(v.HasInboundFor(0), gc.Equals, false)
	c.Assert(v.HasInboundFor(1), gc.Equals, true)

	it := v.InboundFor(1)
	c.Assert(it.Next(), gc.Equals, true)
	c.Assert(it.Message(), gc.Equals, 42)
	c.Assert(it.Next(), gc.Equals, false)

	// Obtaining a fresh iterator restarts the sequence.
	it = v.InboundFor(1)
	c.Assert(it.Next(), gc.Equals, true)

	v.DiscardInboundFor(1)
	c.Assert(v.HasInboundFor(1), gc.Equals, false)
}

func (s *GraphTestSuite) TestConcurrentEnqueue(c *gc.C) {
	p := graph.NewPartition[string, int, struct{}, int](0, graph.DenseEdges)
	v := p.AddVertex("v", 0)

	var wg sync.WaitGroup
	numMsgs := 100
	wg.Add(numMsgs)
	for i := 0; i < numMsgs; i++ {
		go func(i int) {
			defer wg.Done()
			v.EnqueueFor(0, i)
		}(i)
	}
	wg.Wait()

	c.Assert(v.PendingInboundFor(0), gc.HasLen, numMsgs)
}

func (s *GraphTestSuite) TestHaltAndActivate(c *gc.C) {
	p := graph.NewPartition[string, int, struct{}, int](0, graph.DenseEdges)
	v := p.AddVertex("v", 0)

	c.Assert(v.Halted(), gc.Equals, false)
	v.VoteToHalt()
	c.Assert(v.Halted(), gc.Equals, true)
	v.Activate()
	c.Assert(v.Halted(), gc.Equals, false)
}

func (s *GraphTestSuite) TestDenseEdgesKeepDuplicates(c *gc.C) {
	store := graph.NewEdgeStore[string, int](graph.DenseEdges)
	store.Add("dst", 1)
	store.Add("dst", 2)
	c.Assert(store.Len(), gc.Equals, 2)

	var vals []int
	err := store.ForEach(func(dst string, val int) error {
		c.Assert(dst, gc.Equals, "dst")
		vals = append(vals, val)
		return nil
	})
	c.Assert(err, gc.IsNil)
	c.Assert(vals, gc.DeepEquals, []int{1, 2})
}

func (s *GraphTestSuite) TestKeyedEdgesOverwrite(c *gc.C) {
	store := graph.NewEdgeStore[string, int](graph.KeyedEdges)
	store.Add("dst", 1)
	store.Add("dst", 2)
	c.Assert(store.Len(), gc.Equals, 1)

	val, exists := store.Lookup("dst")
	c.Assert(exists, gc.Equals, true)
	c.Assert(val, gc.Equals, 2)

	_, exists = store.Lookup("other")
	c.Assert(exists, gc.Equals, false)
}

func (s *GraphTestSuite) TestAddVertexOverwritesEnsureVertexKeeps(c *gc.C) {
	p := graph.NewPartition[string, int, struct{}, int](0, graph.DenseEdges)

	p.AddVertex("v", 1)
	p.EnsureVertex("v", 99)
	v, exists := p.Vertex("v")
	c.Assert(exists, gc.Equals, true)
	c.Assert(v.Value(), gc.Equals, 1)

	p.AddVertex("v", 2)
	c.Assert(v.Value(), gc.Equals, 2)

	w := p.EnsureVertex("w", 99)
	c.Assert(w.Value(), gc.Equals, 99)
}

func (s *GraphTestSuite) TestAddEdgeRequiresLocalSource(c *gc.C) {
	p := graph.NewPartition[string, int, struct{}, int](0, graph.DenseEdges)
	p.AddVertex("src", 0)

	c.Assert(p.AddEdge("src", "anywhere", struct{}{}), gc.IsNil)
	err := p.AddEdge("missing", "anywhere", struct{}{})
	c.Assert(xerrors.Is(err, graph.ErrUnknownEdgeSource), gc.Equals, true)
}
