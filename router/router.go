// Package router buffers the messages produced during a superstep and
// delivers them at the flush phase. Messages are keyed by destination vertex
// and grouped by destination partition; when the job configures a combiner,
// messages to the same destination are reduced incrementally as they are
// buffered. No message becomes visible to its destination before the barrier
// for the current superstep completes.
package router

import (
	"sync"

	"github.com/dravaio/drava/partition"
	"github.com/dravaio/drava/wire"
	"golang.org/x/xerrors"
)

// Combiner reduces two messages addressed to the same destination vertex
// into one. Combiners must be associative and commutative; this is a caller
// contract and is not enforced at runtime.
type Combiner[M any] func(a, b M) M

// Delivery receives the buffered messages for one destination vertex at
// flush time. The partition index identifies the owning partition of the
// destination.
type Delivery[ID comparable, M any] func(part int, dst ID, msgs []M) error

// Router buffers outgoing messages for the current superstep.
type Router[ID comparable, M any] struct {
	hasher   *partition.Hasher
	idCodec  wire.Codec[ID]
	combiner Combiner[M]

	buffers []*partitionBuffer[ID, M]
}

// New creates a Router that groups messages into the hasher's partitions.
// combiner may be nil, in which case all messages are retained.
func New[ID comparable, M any](hasher *partition.Hasher, idCodec wire.Codec[ID], combiner Combiner[M]) *Router[ID, M] {
	buffers := make([]*partitionBuffer[ID, M], hasher.NumPartitions())
	for i := range buffers {
		buffers[i] = &partitionBuffer[ID, M]{msgs: make(map[ID][]M)}
	}
	return &Router[ID, M]{
		hasher:   hasher,
		idCodec:  idCodec,
		combiner: combiner,
		buffers:  buffers,
	}
}

// Send buffers a message for delivery to dst at the next superstep. It is
// safe for concurrent use by the compute pool.
func (r *Router[ID, M]) Send(dst ID, msg M) error {
	idBytes, err := wire.EncodeToBytes(r.idCodec, dst)
	if err != nil {
		return xerrors.Errorf("unable to encode message destination: %w", err)
	}

	buf := r.buffers[r.hasher.PartitionFor(idBytes)]
	buf.mu.Lock()
	if r.combiner != nil {
		if pending, exists := buf.msgs[dst]; exists {
			buf.msgs[dst] = append(pending[:0], r.combiner(pending[0], msg))
		} else {
			buf.msgs[dst] = []M{msg}
		}
	} else {
		buf.msgs[dst] = append(buf.msgs[dst], msg)
	}
	buf.sent++
	buf.mu.Unlock()
	return nil
}

// SentCount returns the number of messages buffered since the last Flush,
// counted before combining.
func (r *Router[ID, M]) SentCount() int64 {
	var total int64
	for _, buf := range r.buffers {
		buf.mu.Lock()
		total += buf.sent
		buf.mu.Unlock()
	}
	return total
}

// Flush hands every buffered destination to deliverLocal or deliverRemote
// depending on whether ownsPartition reports the destination partition as
// locally owned, then resets the buffers. A delivery error aborts the flush;
// the caller treats remote delivery errors as a worker-failure event rather
// than a message-level error.
func (r *Router[ID, M]) Flush(ownsPartition func(part int) bool, deliverLocal, deliverRemote Delivery[ID, M]) error {
	for part, buf := range r.buffers {
		buf.mu.Lock()
		msgs := buf.msgs
		buf.msgs = make(map[ID][]M)
		buf.sent = 0
		buf.mu.Unlock()

		deliver := deliverRemote
		if ownsPartition(part) {
			deliver = deliverLocal
		}
		for dst, pending := range msgs {
			if err := deliver(part, dst, pending); err != nil {
				return err
			}
		}
	}
	return nil
}

type partitionBuffer[ID comparable, M any] struct {
	mu   sync.Mutex
	msgs map[ID][]M
	sent int64
}
