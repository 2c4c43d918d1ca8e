package graph

import "sync"

// Vertex represents a single vertex in a partitioned graph. A vertex owns an
// immutable ID, a mutable value, its outgoing edges and a halted flag. The
// two inbound queues are double-buffered by superstep parity: messages
// delivered during superstep S land in the buffer that compute reads in
// superstep S+1, so a message is never observable in the superstep that
// produced it.
type Vertex[ID comparable, V, E, M any] struct {
	id     ID
	value  V
	halted bool
	queues [2]msgQueue[M]
	edges  EdgeStore[ID, E]
}

// ID returns the vertex ID.
func (v *Vertex[ID, V, E, M]) ID() ID { return v.id }

// Value returns the value associated with this vertex.
func (v *Vertex[ID, V, E, M]) Value() V { return v.value }

// SetValue sets the value associated with this vertex.
func (v *Vertex[ID, V, E, M]) SetValue(val V) { v.value = val }

// VoteToHalt marks the vertex as halted. Halted vertices are skipped in the
// following supersteps unless they receive a message, in which case they are
// re-activated before their next compute invocation.
func (v *Vertex[ID, V, E, M]) VoteToHalt() { v.halted = true }

// Halted returns true if the vertex has voted to halt.
func (v *Vertex[ID, V, E, M]) Halted() bool { return v.halted }

// Edges returns the outgoing edge collection for this vertex.
func (v *Vertex[ID, V, E, M]) Edges() EdgeStore[ID, E] { return v.edges }

// Activate clears the halted flag.
func (v *Vertex[ID, V, E, M]) Activate() { v.halted = false }

// EnqueueFor appends a message to the inbound buffer that will be visible to
// compute at the specified superstep. It is safe for concurrent use.
func (v *Vertex[ID, V, E, M]) EnqueueFor(superstep int, msg M) {
	v.queues[superstep%2].enqueue(msg)
}

// HasInboundFor returns true if any messages are buffered for the specified
// superstep.
func (v *Vertex[ID, V, E, M]) HasInboundFor(superstep int) bool {
	return v.queues[superstep%2].pending()
}

// InboundFor returns an iterator over the messages buffered for the
// specified superstep. Obtaining a new iterator restarts the sequence; the
// messages themselves are retained until DiscardInboundFor is called.
func (v *Vertex[ID, V, E, M]) InboundFor(superstep int) *MessageIterator[M] {
	return v.queues[superstep%2].messages()
}

// DiscardInboundFor drops all messages buffered for the specified superstep.
func (v *Vertex[ID, V, E, M]) DiscardInboundFor(superstep int) {
	v.queues[superstep%2].discard()
}

// PendingInboundFor returns a snapshot of the messages buffered for the
// specified superstep. It is used when checkpointing already-delivered but
// not yet consumed messages.
func (v *Vertex[ID, V, E, M]) PendingInboundFor(superstep int) []M {
	return v.queues[superstep%2].snapshot()
}

// msgQueue is an in-memory message buffer. Messages can be enqueued
// concurrently but the returned iterator is not safe for concurrent access.
type msgQueue[M any] struct {
	mu   sync.Mutex
	msgs []M
}

func (q *msgQueue[M]) enqueue(msg M) {
	q.mu.Lock()
	q.msgs = append(q.msgs, msg)
	q.mu.Unlock()
}

func (q *msgQueue[M]) pending() bool {
	q.mu.Lock()
	pending := len(q.msgs) != 0
	q.mu.Unlock()
	return pending
}

func (q *msgQueue[M]) discard() {
	q.mu.Lock()
	q.msgs = q.msgs[:0]
	q.mu.Unlock()
}

func (q *msgQueue[M]) snapshot() []M {
	q.mu.Lock()
	out := make([]M, len(q.msgs))
	copy(out, q.msgs)
	q.mu.Unlock()
	return out
}

func (q *msgQueue[M]) messages() *MessageIterator[M] {
	q.mu.Lock()
	msgs := q.msgs
	q.mu.Unlock()
	return &MessageIterator[M]{msgs: msgs, next: -1}
}

// MessageIterator provides an API for iterating a list of inbound messages.
type MessageIterator[M any] struct {
	msgs []M
	next int
}

// Next advances the iterator so that the next message can be retrieved via a
// call to Message. If no more messages are available, Next returns false.
func (it *MessageIterator[M]) Next() bool {
	if it.next+1 >= len(it.msgs) {
		return false
	}
	it.next++
	return true
}

// Message returns the message currently pointed to by the iterator.
func (it *MessageIterator[M]) Message() M { return it.msgs[it.next] }
