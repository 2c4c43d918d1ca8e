package graph

// EdgeStoragePolicy selects the backing structure used for each vertex's
// outgoing edge collection. The policy is part of the job configuration;
// it is a storage decision, not a type decision.
type EdgeStoragePolicy int

const (
	// DenseEdges stores edges in an append-only slice. Duplicate targets
	// are preserved, making the graph a multigraph.
	DenseEdges EdgeStoragePolicy = iota

	// KeyedEdges stores edges in a map keyed by target vertex ID. Adding
	// an edge for an existing target overwrites its value; lookups by
	// target are constant-time.
	KeyedEdges
)

// EdgeStore is implemented by the pluggable edge storage strategies.
type EdgeStore[ID comparable, E any] interface {
	// Add inserts an outgoing edge to dst annotated with val.
	Add(dst ID, val E)

	// Len returns the number of stored edges.
	Len() int

	// ForEach invokes fn for every stored edge. Iteration stops at the
	// first error which is then returned to the caller.
	ForEach(fn func(dst ID, val E) error) error

	// Lookup returns the value of an edge to dst. For dense storage with
	// duplicate targets the first match wins.
	Lookup(dst ID) (E, bool)
}

// NewEdgeStore creates an empty edge store for the given policy.
func NewEdgeStore[ID comparable, E any](policy EdgeStoragePolicy) EdgeStore[ID, E] {
	if policy == KeyedEdges {
		return make(keyedEdges[ID, E])
	}
	return new(denseEdges[ID, E])
}

type denseEdge[ID comparable, E any] struct {
	dst ID
	val E
}

type denseEdges[ID comparable, E any] struct {
	edges []denseEdge[ID, E]
}

func (s *denseEdges[ID, E]) Add(dst ID, val E) {
	s.edges = append(s.edges, denseEdge[ID, E]{dst: dst, val: val})
}

func (s *denseEdges[ID, E]) Len() int { return len(s.edges) }

func (s *denseEdges[ID, E]) ForEach(fn func(ID, E) error) error {
	for _, e := range s.edges {
		if err := fn(e.dst, e.val); err != nil {
			return err
		}
	}
	return nil
}

func (s *denseEdges[ID, E]) Lookup(dst ID) (E, bool) {
	for _, e := range s.edges {
		if e.dst == dst {
			return e.val, true
		}
	}
	var zero E
	return zero, false
}

type keyedEdges[ID comparable, E any] map[ID]E

func (s keyedEdges[ID, E]) Add(dst ID, val E) { s[dst] = val }

func (s keyedEdges[ID, E]) Len() int { return len(s) }

func (s keyedEdges[ID, E]) ForEach(fn func(ID, E) error) error {
	for dst, val := range s {
		if err := fn(dst, val); err != nil {
			return err
		}
	}
	return nil
}

func (s keyedEdges[ID, E]) Lookup(dst ID) (E, bool) {
	val, exists := s[dst]
	return val, exists
}
