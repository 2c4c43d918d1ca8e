// Package maxval implements the max-value propagation example from the
// Pregel paper: every vertex starts with its own value and repeatedly
// adopts and rebroadcasts the largest value it has seen until the entire
// graph converges on the global maximum.
package maxval

import (
	"context"

	"github.com/dravaio/drava/aggregator"
	"github.com/dravaio/drava/engine"
	"github.com/dravaio/drava/graph"
	"github.com/dravaio/drava/wire"
	"github.com/sirupsen/logrus"
)

const globalMaxAggregator = "global_max"

// Propagator executes the max-value propagation algorithm over a graph.
type Propagator struct {
	eng *engine.Engine[int64, int64, struct{}, int64]

	vertices map[int64]int64
	edges    [][2]int64
}

// NewPropagator returns a new Propagator that computes over numWorkers
// concurrent compute workers.
func NewPropagator(numWorkers int, logger *logrus.Entry) (*Propagator, error) {
	eng, err := engine.New(engine.Config[int64, int64, struct{}, int64]{
		Compute:      propagateMaxValue,
		IDCodec:      wire.Int64Codec{},
		ValueCodec:   wire.Int64Codec{},
		EdgeCodec:    wire.NoneCodec{},
		MessageCodec: wire.Int64Codec{},
		Combiner:     maxCombiner,
		Aggregators: map[string]aggregator.Aggregator{
			globalMaxAggregator: aggregator.NewInt64Max(),
		},
		ComputeWorkers: numWorkers,
		Logger:         logger,
	})
	if err != nil {
		return nil, err
	}

	return &Propagator{
		eng:      eng,
		vertices: make(map[int64]int64),
	}, nil
}

// Close cleans up any allocated engine resources.
func (p *Propagator) Close() error {
	return p.eng.Close()
}

// AddVertex inserts a new vertex with the specified initial value.
func (p *Propagator) AddVertex(id, value int64) {
	p.vertices[id] = value
}

// AddUndirectedEdge connects srcID and dstID in both directions so values
// can propagate either way.
func (p *Propagator) AddUndirectedEdge(srcID, dstID int64) {
	p.edges = append(p.edges, [2]int64{srcID, dstID}, [2]int64{dstID, srcID})
}

// Propagate runs the algorithm to completion and invokes the user-defined
// visitor function for each vertex in the graph. It returns the global
// maximum value.
func (p *Propagator) Propagate(ctx context.Context, visitor func(id, value int64)) (int64, error) {
	err := p.eng.Run(ctx, p, visitorSink(visitor), engine.RunConfig{JobID: "maxval"})
	if err != nil {
		return 0, err
	}
	return p.eng.Aggregators().Get(globalMaxAggregator).Get().(int64), nil
}

func maxCombiner(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func propagateMaxValue(c *engine.Context[int64, int64, struct{}, int64], v *graph.Vertex[int64, int64, struct{}, int64], msgs *graph.MessageIterator[int64]) error {
	best := v.Value()
	for msgs.Next() {
		if m := msgs.Message(); m > best {
			best = m
		}
	}

	// Broadcast on the first superstep and whenever a larger value is
	// adopted; quiesce otherwise.
	if c.Superstep() == 0 || best > v.Value() {
		v.SetValue(best)
		c.Aggregator(globalMaxAggregator).Aggregate(best)
		if err := c.BroadcastToNeighbors(v, best); err != nil {
			return err
		}
	}
	v.VoteToHalt()
	return nil
}

// Vertices implements engine.Source.
func (p *Propagator) Vertices() (engine.VertexIterator[int64, int64], error) {
	records := make([][2]int64, 0, len(p.vertices))
	for id, val := range p.vertices {
		records = append(records, [2]int64{id, val})
	}
	return &recordIterator{records: records, next: -1}, nil
}

// Edges implements engine.Source.
func (p *Propagator) Edges() (engine.EdgeIterator[int64, struct{}], error) {
	return &edgeIterator{records: p.edges, next: -1}, nil
}

type recordIterator struct {
	records [][2]int64
	next    int
}

func (it *recordIterator) Next() bool {
	if it.next+1 >= len(it.records) {
		return false
	}
	it.next++
	return true
}

func (it *recordIterator) Vertex() (int64, int64) {
	return it.records[it.next][0], it.records[it.next][1]
}

func (it *recordIterator) Error() error { return nil }
func (it *recordIterator) Close() error { return nil }

type edgeIterator struct {
	records [][2]int64
	next    int
}

func (it *edgeIterator) Next() bool {
	if it.next+1 >= len(it.records) {
		return false
	}
	it.next++
	return true
}

func (it *edgeIterator) Edge() (int64, int64, struct{}) {
	return it.records[it.next][0], it.records[it.next][1], struct{}{}
}

func (it *edgeIterator) Error() error { return nil }
func (it *edgeIterator) Close() error { return nil }

type visitorSink func(id, value int64)

func (s visitorSink) Consume(id, value int64) error {
	s(id, value)
	return nil
}
