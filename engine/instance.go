package engine

import (
	"context"

	"github.com/dravaio/drava/aggregator"
	"github.com/dravaio/drava/checkpoint"
)

// Instance is the type-erased engine surface consumed by the distributed
// coordinator. Job runners construct a concrete Engine for their vertex,
// edge and message types and hand it to the cluster layer through this
// interface, which keeps the coordination machinery free of type parameters.
type Instance interface {
	// Superstep returns the current superstep number.
	Superstep() int

	// AdvanceSuperstep moves the engine to the next superstep.
	AdvanceSuperstep()

	// Aggregators returns the engine's aggregator registry.
	Aggregators() *aggregator.Registry

	// OwnsPartition returns true if the partition is locally owned.
	OwnsPartition(part int) bool

	// ComputePhase runs compute over the active local vertices and returns
	// the local superstep tallies.
	ComputePhase(ctx context.Context) (SuperstepStats, error)

	// FlushPhase delivers the messages buffered during the compute phase,
	// handing remotely owned destinations to deliver.
	FlushPhase(deliver RemoteDelivery) error

	// DeliverRemote enqueues a message relayed from another worker for
	// delivery at the next superstep.
	DeliverRemote(dst, payload []byte) error

	// WriteCheckpoint persists the local partitions and aggregator values.
	WriteCheckpoint(ctx context.Context, store checkpoint.Store, jobID string) error

	// RestoreCheckpoint rebuilds the local partitions and aggregator values
	// from the checkpoint tagged with the specified superstep.
	RestoreCheckpoint(ctx context.Context, store checkpoint.Store, jobID string, superstep int) error

	// Close releases the resources associated with the engine.
	Close() error
}
