package engine

// VertexIterator is implemented by input collaborators that produce the
// initial (vertex ID, vertex value) pairs for a job.
type VertexIterator[ID comparable, V any] interface {
	// Next advances the iterator. If no more records are available or an
	// error occurs, Next returns false.
	Next() bool

	// Vertex returns the record currently pointed to by the iterator.
	Vertex() (ID, V)

	// Error returns the last error encountered by the iterator.
	Error() error

	// Close releases any resources associated with the iterator.
	Close() error
}

// EdgeIterator is implemented by input collaborators that produce the
// initial (source, target, edge value) triples for a job.
type EdgeIterator[ID comparable, E any] interface {
	// Next advances the iterator. If no more records are available or an
	// error occurs, Next returns false.
	Next() bool

	// Edge returns the record currently pointed to by the iterator.
	Edge() (src, dst ID, val E)

	// Error returns the last error encountered by the iterator.
	Error() error

	// Close releases any resources associated with the iterator.
	Close() error
}

// Source is the input collaborator contract. Vertices referenced only as an
// edge source are created with the configured default vertex value; vertices
// referenced only as an edge target are created lazily if and when the first
// message is delivered to them.
type Source[ID comparable, V, E any] interface {
	// Vertices returns an iterator for the explicit vertex records.
	Vertices() (VertexIterator[ID, V], error)

	// Edges returns an iterator for the edge records.
	Edges() (EdgeIterator[ID, E], error)
}

// Sink is the output collaborator contract. After a job terminates it
// receives one (vertex ID, vertex value) pair per vertex regardless of
// halted status.
type Sink[ID comparable, V any] interface {
	Consume(id ID, value V) error
}
