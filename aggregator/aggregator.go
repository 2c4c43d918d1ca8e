// Package aggregator provides named global reduction slots. Vertices
// contribute partial values during a superstep; partials are merged locally
// on each worker first and then across workers at the barrier, and the
// merged value becomes visible, read-only, to every vertex at the start of
// the following superstep.
//
// The reduction operators must be associative and commutative so that the
// order of combination cannot affect the result. This is a caller contract;
// it is not validated at runtime.
package aggregator

import (
	"bytes"
	"sort"
	"sync"

	"github.com/dravaio/drava/wire"
	"golang.org/x/xerrors"
)

// Aggregator is implemented by types that provide concurrent-safe
// aggregation primitives (e.g. counters, min/max, logical and).
type Aggregator interface {
	// Type returns the type of this aggregator.
	Type() string

	// Set the aggregator to the specified value.
	Set(val interface{})

	// Get the current aggregator value.
	Get() interface{}

	// Aggregate updates the aggregator's value based on the provided value.
	Aggregate(val interface{})

	// Delta returns the partial change in the aggregator's value since the
	// last call to Delta. In distributed use, each worker feeds its delta
	// into the master's aggregator instance to reduce the local partials
	// into a single global value.
	Delta() interface{}

	// EncodeValue appends the encoded form of an aggregator value to w.
	EncodeValue(w *wire.Writer, val interface{}) error

	// DecodeValue consumes an encoded aggregator value from r.
	DecodeValue(r *wire.Reader) (interface{}, error)
}

// Registry tracks the named aggregator slots registered for a job.
type Registry struct {
	mu    sync.RWMutex
	aggrs map[string]Aggregator
}

// NewRegistry creates an empty aggregator registry.
func NewRegistry() *Registry {
	return &Registry{aggrs: make(map[string]Aggregator)}
}

// Register adds an aggregator with the specified name to the registry.
func (r *Registry) Register(name string, aggr Aggregator) {
	r.mu.Lock()
	r.aggrs[name] = aggr
	r.mu.Unlock()
}

// Get returns the aggregator with the specified name or nil if the
// aggregator does not exist.
func (r *Registry) Get(name string) Aggregator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.aggrs[name]
}

// Names returns the sorted list of registered aggregator names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.aggrs))
	for name := range r.aggrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SerializeValues encodes the current value (or the delta since the last
// call, if deltas is set) of every registered aggregator.
func (r *Registry) SerializeValues(deltas bool) (map[string][]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.aggrs) == 0 {
		return nil, nil
	}

	out := make(map[string][]byte, len(r.aggrs))
	for name, aggr := range r.aggrs {
		val := aggr.Get()
		if deltas {
			val = aggr.Delta()
		}
		encoded, err := encodeValue(aggr, val)
		if err != nil {
			return nil, xerrors.Errorf("unable to serialize value for aggregator %q: %w", name, err)
		}
		out[name] = encoded
	}
	return out, nil
}

// MergeDeltas feeds serialized partial values into the matching registered
// aggregators.
func (r *Registry) MergeDeltas(deltas map[string][]byte) error {
	return r.apply(deltas, func(aggr Aggregator, val interface{}) { aggr.Aggregate(val) })
}

// SetValues overwrites the registered aggregators with the provided
// serialized values.
func (r *Registry) SetValues(values map[string][]byte) error {
	return r.apply(values, func(aggr Aggregator, val interface{}) { aggr.Set(val) })
}

func (r *Registry) apply(values map[string][]byte, fn func(Aggregator, interface{})) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name, encoded := range values {
		aggr := r.aggrs[name]
		if aggr == nil {
			return xerrors.Errorf("received a value for aggregator %q which is not registered", name)
		}
		val, err := decodeValue(aggr, encoded)
		if err != nil {
			return xerrors.Errorf("unable to decode value for aggregator %q: %w", name, err)
		}
		fn(aggr, val)
	}
	return nil
}

// Snapshot writes the name and current value of every registered aggregator
// to w; it is used when checkpointing aggregator state.
func (r *Registry) Snapshot(w *wire.Writer) error {
	values, err := r.SerializeValues(false)
	if err != nil {
		return err
	}
	names := r.Names()
	if err := w.WriteUvarint(uint64(len(names))); err != nil {
		return err
	}
	for _, name := range names {
		if err := w.WriteString(name); err != nil {
			return err
		}
		if err := w.WriteBytes(values[name]); err != nil {
			return err
		}
	}
	return nil
}

// RestoreSnapshot reads a snapshot produced by Snapshot and overwrites the
// registered aggregators with the recorded values. Restoring the same
// snapshot twice yields identical state.
func (r *Registry) RestoreSnapshot(rd *wire.Reader) error {
	count, err := rd.ReadUvarint()
	if err != nil {
		return err
	}
	values := make(map[string][]byte, count)
	for i := uint64(0); i < count; i++ {
		name, err := rd.ReadString()
		if err != nil {
			return err
		}
		encoded, err := rd.ReadBytes()
		if err != nil {
			return err
		}
		values[name] = encoded
	}
	return r.SetValues(values)
}

func encodeValue(aggr Aggregator, val interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := aggr.EncodeValue(wire.NewWriter(&buf), val); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeValue(aggr Aggregator, encoded []byte) (interface{}, error) {
	return aggr.DecodeValue(wire.NewReader(bytes.NewReader(encoded)))
}
