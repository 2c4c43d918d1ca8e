// Package checkpoint defines the durable storage contract for superstep
// checkpoints and provides in-memory, embedded (BoltDB) and shared
// (Postgres/CockroachDB) implementations.
//
// A checkpoint is addressed by (jobID, superstep, partitionID) for partition
// state and by (jobID, superstep) for the global aggregator state. Writes
// are idempotent upserts and reads are repeatable, so restoring twice from
// the same checkpoint yields identical state. A checkpoint only becomes
// visible to Latest once it has been committed, which the coordinator does
// after every worker has persisted its partitions.
package checkpoint

import (
	"context"

	"golang.org/x/xerrors"
)

// ErrNotFound is returned when the requested checkpoint record does not
// exist in the store.
var ErrNotFound = xerrors.New("checkpoint record not found")

// Store is implemented by durable checkpoint storage backends.
type Store interface {
	// WritePartition persists the serialized state of one partition.
	WritePartition(ctx context.Context, jobID string, superstep, part int, state []byte) error

	// ReadPartition loads the serialized state of one partition.
	ReadPartition(ctx context.Context, jobID string, superstep, part int) ([]byte, error)

	// WriteAggregators persists the serialized global aggregator state.
	WriteAggregators(ctx context.Context, jobID string, superstep int, state []byte) error

	// ReadAggregators loads the serialized global aggregator state.
	ReadAggregators(ctx context.Context, jobID string, superstep int) ([]byte, error)

	// Commit marks the checkpoint for the given superstep as complete.
	// Commits are monotonic; committing an older superstep is a no-op.
	Commit(ctx context.Context, jobID string, superstep int) error

	// Latest returns the most recently committed checkpoint superstep for
	// the job or ErrNotFound if no checkpoint has been committed.
	Latest(ctx context.Context, jobID string) (int, error)

	// Close releases any resources held by the store.
	Close() error
}
