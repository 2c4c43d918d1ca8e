package graph

import "golang.org/x/xerrors"

// ErrUnknownEdgeSource is returned by AddEdge when the source vertex is not
// present in the partition.
var ErrUnknownEdgeSource = xerrors.New("source vertex is not part of the partition")

// Partition groups the subset of vertices that hash to the same partition
// index. A partition is the unit of ownership: it is owned by exactly one
// worker at a time and is checkpointed and restored as a whole. Within a
// superstep no locking is required as the owning worker is its sole mutator.
type Partition[ID comparable, V, E, M any] struct {
	index      int
	edgePolicy EdgeStoragePolicy
	vertices   map[ID]*Vertex[ID, V, E, M]
}

// NewPartition creates an empty partition with the specified index. New
// vertices receive an edge store built according to the provided policy.
func NewPartition[ID comparable, V, E, M any](index int, edgePolicy EdgeStoragePolicy) *Partition[ID, V, E, M] {
	return &Partition[ID, V, E, M]{
		index:      index,
		edgePolicy: edgePolicy,
		vertices:   make(map[ID]*Vertex[ID, V, E, M]),
	}
}

// Index returns the partition index.
func (p *Partition[ID, V, E, M]) Index() int { return p.index }

// Len returns the number of vertices in the partition.
func (p *Partition[ID, V, E, M]) Len() int { return len(p.vertices) }

// Vertices returns the partition vertices as a map keyed by vertex ID.
func (p *Partition[ID, V, E, M]) Vertices() map[ID]*Vertex[ID, V, E, M] { return p.vertices }

// Vertex looks up a vertex by its ID.
func (p *Partition[ID, V, E, M]) Vertex(id ID) (*Vertex[ID, V, E, M], bool) {
	v, exists := p.vertices[id]
	return v, exists
}

// AddVertex inserts a new vertex with the specified ID and initial value. If
// the vertex already exists, AddVertex overwrites its value with initValue.
func (p *Partition[ID, V, E, M]) AddVertex(id ID, initValue V) *Vertex[ID, V, E, M] {
	v := p.ensure(id)
	v.SetValue(initValue)
	return v
}

// EnsureVertex returns the vertex with the specified ID, creating it with
// defaultValue if it does not exist. Unlike AddVertex, an existing vertex
// keeps its current value.
func (p *Partition[ID, V, E, M]) EnsureVertex(id ID, defaultValue V) *Vertex[ID, V, E, M] {
	v, exists := p.vertices[id]
	if exists {
		return v
	}
	v = p.ensure(id)
	v.SetValue(defaultValue)
	return v
}

// AddEdge inserts a directed edge from src to dst annotated with val. Edges
// are owned by their source vertex; src must resolve to a vertex in this
// partition while dst may live anywhere in the graph.
func (p *Partition[ID, V, E, M]) AddEdge(src, dst ID, val E) error {
	v, exists := p.vertices[src]
	if !exists {
		return xerrors.Errorf("create edge from %v to %v: %w", src, dst, ErrUnknownEdgeSource)
	}
	v.edges.Add(dst, val)
	return nil
}

func (p *Partition[ID, V, E, M]) ensure(id ID) *Vertex[ID, V, E, M] {
	v, exists := p.vertices[id]
	if !exists {
		v = &Vertex[ID, V, E, M]{
			id:    id,
			edges: NewEdgeStore[ID, E](p.edgePolicy),
		}
		p.vertices[id] = v
	}
	return v
}
