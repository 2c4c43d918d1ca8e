// Package partition maps vertices to partitions and partitions to workers.
//
// The vertex side of the mapping is a pure function of the encoded vertex ID
// and the partition count, so every worker resolves the same partition for
// the same vertex without any coordination. The worker side is an explicit
// assignment table owned by the master; it is recomputed only when the
// worker set changes and carries a monotonically increasing version so that
// workers can never act on a stale table once they have acknowledged a newer
// one.
package partition

import (
	"github.com/cespare/xxhash/v2"
	"golang.org/x/xerrors"
)

// ErrInvalidPartitionCount is returned when a non-positive partition count
// is specified.
var ErrInvalidPartitionCount = xerrors.New("number of partitions must be at least equal to 1")

// Hasher deterministically maps encoded vertex IDs to partition indexes.
type Hasher struct {
	numPartitions int
}

// NewHasher creates a Hasher that distributes vertex IDs across the
// specified number of partitions.
func NewHasher(numPartitions int) (*Hasher, error) {
	if numPartitions <= 0 {
		return nil, ErrInvalidPartitionCount
	}
	return &Hasher{numPartitions: numPartitions}, nil
}

// NumPartitions returns the partition count this hasher distributes over.
func (h *Hasher) NumPartitions() int { return h.numPartitions }

// PartitionFor returns the partition index that the provided encoded vertex
// ID belongs to. Identical inputs always resolve to the same partition
// within a job run.
func (h *Hasher) PartitionFor(idBytes []byte) int {
	return int(xxhash.Sum64(idBytes) % uint64(h.numPartitions))
}

// Assignment is the partition-to-worker table computed by the master and
// broadcast to workers before the next superstep begins.
type Assignment struct {
	// Version increases monotonically every time the worker set changes.
	Version int64

	// WorkerForPartition maps each partition index to a worker index.
	WorkerForPartition []int
}

// Assign distributes numPartitions across numWorkers round-robin and tags
// the resulting table with the provided version.
func Assign(version int64, numPartitions, numWorkers int) (Assignment, error) {
	if numPartitions <= 0 {
		return Assignment{}, ErrInvalidPartitionCount
	} else if numWorkers <= 0 {
		return Assignment{}, xerrors.New("number of workers must be at least equal to 1")
	}

	table := make([]int, numPartitions)
	for part := 0; part < numPartitions; part++ {
		table[part] = part % numWorkers
	}
	return Assignment{Version: version, WorkerForPartition: table}, nil
}

// WorkerFor returns the worker index that owns the specified partition.
func (a Assignment) WorkerFor(part int) (int, error) {
	if part < 0 || part >= len(a.WorkerForPartition) {
		return -1, xerrors.Errorf("invalid partition index %d", part)
	}
	return a.WorkerForPartition[part], nil
}

// PartitionsFor returns the sorted list of partitions owned by the specified
// worker.
func (a Assignment) PartitionsFor(worker int) []int {
	var owned []int
	for part, w := range a.WorkerForPartition {
		if w == worker {
			owned = append(owned, part)
		}
	}
	return owned
}
