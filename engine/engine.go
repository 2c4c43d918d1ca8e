package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dravaio/drava/aggregator"
	"github.com/dravaio/drava/graph"
	"github.com/dravaio/drava/partition"
	"github.com/dravaio/drava/router"
	"github.com/dravaio/drava/wire"
	"golang.org/x/xerrors"
)

// ErrInvalidMessageDestination is returned when a message destination cannot
// be encoded for routing.
var ErrInvalidMessageDestination = xerrors.New("invalid message destination")

// ComputeFunc is the per-superstep logic invoked for each active vertex.
// Compute invocations may run concurrently but each invocation may only
// mutate its own vertex; the sole channels of inter-vertex interaction are
// messages and aggregators, both of which become visible in the following
// superstep.
type ComputeFunc[ID comparable, V, E, M any] func(c *Context[ID, V, E, M], v *graph.Vertex[ID, V, E, M], msgs *graph.MessageIterator[M]) error

// SuperstepStats captures the per-superstep global counters that are
// recomputed at each barrier from all workers' local tallies.
type SuperstepStats struct {
	// Superstep is the superstep these tallies belong to.
	Superstep int

	// Total is the number of vertices in the owned partitions.
	Total int64

	// Active is the number of vertices that ran compute in the superstep.
	Active int64

	// Halted is the number of vertices that had voted to halt once the
	// compute phase finished.
	Halted int64

	// Sent is the number of messages produced during the superstep,
	// counted before combining.
	Sent int64
}

// Merge folds the tallies of another worker into s.
func (s *SuperstepStats) Merge(other SuperstepStats) {
	s.Total += other.Total
	s.Active += other.Active
	s.Halted += other.Halted
	s.Sent += other.Sent
}

// Done reports whether the termination invariant holds: every vertex voted
// to halt in the same superstep and no messages are pending delivery.
func (s SuperstepStats) Done() bool {
	return s.Halted == s.Total && s.Sent == 0
}

// RemoteDelivery ships an encoded message to the worker that owns a remote
// partition. A delivery error is treated as a worker-failure event by the
// coordinator, never as a message-level error.
type RemoteDelivery func(part int, dst, payload []byte) error

// Context is the per-superstep handle passed to compute invocations.
type Context[ID comparable, V, E, M any] struct {
	superstep int
	eng       *Engine[ID, V, E, M]
}

// Superstep returns the current superstep number.
func (c *Context[ID, V, E, M]) Superstep() int { return c.superstep }

// SendMessage queues a message for delivery to the vertex with the specified
// ID. The message is buffered by the router and becomes visible to its
// recipient in the next superstep.
func (c *Context[ID, V, E, M]) SendMessage(dst ID, msg M) error {
	return c.eng.router.Send(dst, msg)
}

// BroadcastToNeighbors queues a copy of msg for each neighbor of v.
func (c *Context[ID, V, E, M]) BroadcastToNeighbors(v *graph.Vertex[ID, V, E, M], msg M) error {
	return v.Edges().ForEach(func(dst ID, _ E) error {
		return c.SendMessage(dst, msg)
	})
}

// Aggregator returns a handle to the registered aggregator with the
// specified name or nil if it does not exist.
func (c *Context[ID, V, E, M]) Aggregator(name string) *AggregatorView {
	return c.eng.aggrViews[name]
}

// AggregatorView is the aggregator handle exposed to compute invocations.
// Get serves the value frozen at the last barrier while Aggregate feeds the
// live aggregator, so a contribution never becomes visible to any vertex
// before the following superstep regardless of compute scheduling order.
type AggregatorView struct {
	live   aggregator.Aggregator
	frozen interface{}
}

// Get returns the aggregator value merged at the last barrier.
func (v *AggregatorView) Get() interface{} { return v.frozen }

// Aggregate contributes a partial value; it is folded in at the next barrier.
func (v *AggregatorView) Aggregate(val interface{}) { v.live.Aggregate(val) }

// Engine executes supersteps over the partitions owned by this process. It
// implements the per-worker half of the BSP model: the compute phase runs
// the configured compute function over every active vertex using a bounded
// worker pool and the flush phase hands buffered messages to their
// destination partitions.
type Engine[ID comparable, V, E, M any] struct {
	cfg       Config[ID, V, E, M]
	hasher    *partition.Hasher
	parts     map[int]*graph.Partition[ID, V, E, M]
	router    *router.Router[ID, M]
	aggrs     *aggregator.Registry
	aggrViews map[string]*AggregatorView

	superstep int
	stepCtx   *Context[ID, V, E, M]

	wg              sync.WaitGroup
	vertexCh        chan *graph.Vertex[ID, V, E, M]
	errCh           chan error
	stepCompletedCh chan struct{}
	activeInStep    int64
	haltedInStep    int64
	pendingInStep   int64
}

// New creates a new Engine instance using the specified configuration. It is
// important for callers to invoke Close on the returned instance when they
// are done using it.
func New[ID comparable, V, E, M any](cfg Config[ID, V, E, M]) (*Engine[ID, V, E, M], error) {
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Errorf("engine config validation failed: %w", err)
	}

	hasher, err := partition.NewHasher(cfg.NumPartitions)
	if err != nil {
		return nil, err
	}

	e := &Engine[ID, V, E, M]{
		cfg:       cfg,
		hasher:    hasher,
		parts:     make(map[int]*graph.Partition[ID, V, E, M], len(cfg.OwnedPartitions)),
		router:    router.New(hasher, cfg.IDCodec, cfg.Combiner),
		aggrs:     aggregator.NewRegistry(),
		aggrViews: make(map[string]*AggregatorView, len(cfg.Aggregators)),
	}
	for _, part := range cfg.OwnedPartitions {
		e.parts[part] = graph.NewPartition[ID, V, E, M](part, cfg.EdgeStorage)
	}
	for name, aggr := range cfg.Aggregators {
		e.aggrs.Register(name, aggr)
		e.aggrViews[name] = &AggregatorView{live: aggr}
	}
	e.freezeAggregators()
	e.startWorkers(cfg.ComputeWorkers)

	return e, nil
}

// Close releases the resources associated with the engine.
func (e *Engine[ID, V, E, M]) Close() error {
	close(e.vertexCh)
	e.wg.Wait()
	return nil
}

// Superstep returns the current superstep number.
func (e *Engine[ID, V, E, M]) Superstep() int { return e.superstep }

// AdvanceSuperstep moves the engine to the next superstep. It is invoked by
// the coordinator once the barrier for the current superstep completes, after
// the merged aggregator values have been applied; the merged values are
// frozen here so that the next compute phase observes them read-only.
func (e *Engine[ID, V, E, M]) AdvanceSuperstep() {
	e.superstep++
	e.freezeAggregators()
}

// freezeAggregators captures the current aggregator values into the views
// served to compute invocations.
func (e *Engine[ID, V, E, M]) freezeAggregators() {
	for _, view := range e.aggrViews {
		view.frozen = view.live.Get()
	}
}

// Aggregators returns the aggregator registry for this engine.
func (e *Engine[ID, V, E, M]) Aggregators() *aggregator.Registry { return e.aggrs }

// Partitions returns the partitions owned by this engine keyed by partition
// index.
func (e *Engine[ID, V, E, M]) Partitions() map[int]*graph.Partition[ID, V, E, M] { return e.parts }

// OwnsPartition returns true if the specified partition is owned by this
// engine instance.
func (e *Engine[ID, V, E, M]) OwnsPartition(part int) bool {
	_, owned := e.parts[part]
	return owned
}

// Load populates the owned partitions from the input collaborator. Vertex
// records whose ID hashes to a partition that is not owned locally are
// skipped; each worker loads exactly its own slice of the input.
func (e *Engine[ID, V, E, M]) Load(src Source[ID, V, E]) error {
	vertexIt, err := src.Vertices()
	if err != nil {
		return xerrors.Errorf("loading vertices: %w", err)
	}
	for vertexIt.Next() {
		id, val := vertexIt.Vertex()
		p, owned, err := e.partitionFor(id)
		if err != nil {
			_ = vertexIt.Close()
			return err
		}
		if owned {
			p.AddVertex(id, val)
		}
	}
	if err := vertexIt.Error(); err != nil {
		_ = vertexIt.Close()
		return xerrors.Errorf("loading vertices: %w", err)
	}
	if err := vertexIt.Close(); err != nil {
		return xerrors.Errorf("loading vertices: %w", err)
	}

	edgeIt, err := src.Edges()
	if err != nil {
		return xerrors.Errorf("loading edges: %w", err)
	}
	for edgeIt.Next() {
		src, dst, val := edgeIt.Edge()
		p, owned, err := e.partitionFor(src)
		if err != nil {
			_ = edgeIt.Close()
			return err
		}
		if !owned {
			continue
		}
		p.EnsureVertex(src, e.cfg.DefaultValue)
		if err := p.AddEdge(src, dst, val); err != nil {
			_ = edgeIt.Close()
			return xerrors.Errorf("loading edges: %w", err)
		}
	}
	if err := edgeIt.Error(); err != nil {
		_ = edgeIt.Close()
		return xerrors.Errorf("loading edges: %w", err)
	}
	return edgeIt.Close()
}

// Output hands the final (vertex ID, vertex value) pairs for every owned
// vertex to the output collaborator.
func (e *Engine[ID, V, E, M]) Output(sink Sink[ID, V]) error {
	for _, p := range e.parts {
		for id, v := range p.Vertices() {
			if err := sink.Consume(id, v.Value()); err != nil {
				return xerrors.Errorf("emitting results: %w", err)
			}
		}
	}
	return nil
}

// ComputePhase runs the compute function for every active vertex in the
// owned partitions and returns the local superstep tallies.
func (e *Engine[ID, V, E, M]) ComputePhase(ctx context.Context) (SuperstepStats, error) {
	stats := SuperstepStats{Superstep: e.superstep}
	if err := ensureContextNotExpired(ctx); err != nil {
		return stats, err
	}

	e.activeInStep = 0
	e.haltedInStep = 0
	total := e.totalVertices()
	e.pendingInStep = total
	e.stepCtx = &Context[ID, V, E, M]{superstep: e.superstep, eng: e}

	if total != 0 {
		for _, p := range e.parts {
			for _, v := range p.Vertices() {
				e.vertexCh <- v
			}
		}

		// Block until the worker pool has processed all vertices.
		<-e.stepCompletedCh
	}

	stats.Total = total
	stats.Active = atomic.LoadInt64(&e.activeInStep)
	stats.Halted = atomic.LoadInt64(&e.haltedInStep)
	stats.Sent = e.router.SentCount()

	select {
	case err := <-e.errCh:
		return stats, err
	default:
		return stats, nil
	}
}

// FlushPhase delivers the messages buffered during the compute phase.
// Locally owned destinations are enqueued directly; remote destinations are
// encoded and handed to deliver. Destination vertices that do not exist yet
// in a local partition are created with the default vertex value.
func (e *Engine[ID, V, E, M]) FlushPhase(deliver RemoteDelivery) error {
	nextStep := e.superstep + 1
	return e.router.Flush(
		e.OwnsPartition,
		func(part int, dst ID, msgs []M) error {
			v := e.parts[part].EnsureVertex(dst, e.cfg.DefaultValue)
			for _, msg := range msgs {
				v.EnqueueFor(nextStep, msg)
			}
			return nil
		},
		func(part int, dst ID, msgs []M) error {
			if deliver == nil {
				return xerrors.Errorf("message for partition %d cannot be delivered: %w", part, ErrInvalidMessageDestination)
			}
			dstBytes, err := wire.EncodeToBytes(e.cfg.IDCodec, dst)
			if err != nil {
				return xerrors.Errorf("unable to encode message destination: %w", err)
			}
			for _, msg := range msgs {
				payload, err := wire.EncodeToBytes(e.cfg.MessageCodec, msg)
				if err != nil {
					return xerrors.Errorf("unable to encode message payload: %w", err)
				}
				if err := deliver(part, dstBytes, payload); err != nil {
					return err
				}
			}
			return nil
		},
	)
}

// DeliverRemote enqueues a message relayed from another worker so that it
// becomes visible to its destination vertex in the next superstep. The
// coordinator invokes it between barriers, never concurrently with a compute
// phase.
func (e *Engine[ID, V, E, M]) DeliverRemote(dstBytes, payload []byte) error {
	dst, err := wire.DecodeFromBytes(e.cfg.IDCodec, dstBytes)
	if err != nil {
		return xerrors.Errorf("unable to decode relayed message destination: %w", err)
	}
	msg, err := wire.DecodeFromBytes(e.cfg.MessageCodec, payload)
	if err != nil {
		return xerrors.Errorf("unable to decode relayed message payload: %w", err)
	}

	p, owned, err := e.partitionFor(dst)
	if err != nil {
		return err
	}
	if !owned {
		return xerrors.Errorf("relayed message for vertex %v is not owned locally: %w", dst, ErrInvalidMessageDestination)
	}
	p.EnsureVertex(dst, e.cfg.DefaultValue).EnqueueFor(e.superstep+1, msg)
	return nil
}

func (e *Engine[ID, V, E, M]) partitionFor(id ID) (*graph.Partition[ID, V, E, M], bool, error) {
	idBytes, err := wire.EncodeToBytes(e.cfg.IDCodec, id)
	if err != nil {
		return nil, false, xerrors.Errorf("unable to encode vertex ID: %w", err)
	}
	p, owned := e.parts[e.hasher.PartitionFor(idBytes)]
	return p, owned, nil
}

func (e *Engine[ID, V, E, M]) totalVertices() int64 {
	var total int64
	for _, p := range e.parts {
		total += int64(p.Len())
	}
	return total
}

// startWorkers allocates the required channels and spins up numWorkers to
// execute each compute phase.
func (e *Engine[ID, V, E, M]) startWorkers(numWorkers int) {
	e.vertexCh = make(chan *graph.Vertex[ID, V, E, M])
	e.errCh = make(chan error, 1)
	e.stepCompletedCh = make(chan struct{})

	e.wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go e.stepWorker()
	}
}

// stepWorker polls vertexCh for incoming vertices and executes the
// configured compute function for each active one. A halted vertex with
// buffered inbound messages is re-activated before compute runs. The worker
// automatically exits when vertexCh is closed.
func (e *Engine[ID, V, E, M]) stepWorker() {
	for v := range e.vertexCh {
		if !v.Halted() || v.HasInboundFor(e.superstep) {
			_ = atomic.AddInt64(&e.activeInStep, 1)
			v.Activate()
			if err := e.cfg.Compute(e.stepCtx, v, v.InboundFor(e.superstep)); err != nil {
				tryEmitError(e.errCh, xerrors.Errorf("running compute function for vertex %v failed: %w", v.ID(), err))
			}
			v.DiscardInboundFor(e.superstep)
		}
		if v.Halted() {
			_ = atomic.AddInt64(&e.haltedInStep, 1)
		}
		if atomic.AddInt64(&e.pendingInStep, -1) == 0 {
			e.stepCompletedCh <- struct{}{}
		}
	}
	e.wg.Done()
}

func tryEmitError(errCh chan<- error, err error) {
	select {
	case errCh <- err: // queued error
	default: // channel already contains another error
	}
}

func ensureContextNotExpired(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
