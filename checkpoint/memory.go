package checkpoint

import (
	"context"
	"fmt"
	"sync"
)

// InMemoryStore implements Store using process-local memory. It provides no
// durability and is intended for tests and single-process runs.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
	commits map[string]int
}

// NewInMemoryStore creates an empty in-memory checkpoint store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[string][]byte),
		commits: make(map[string]int),
	}
}

// WritePartition implements Store.
func (s *InMemoryStore) WritePartition(_ context.Context, jobID string, superstep, part int, state []byte) error {
	s.put(partitionKey(jobID, superstep, part), state)
	return nil
}

// ReadPartition implements Store.
func (s *InMemoryStore) ReadPartition(_ context.Context, jobID string, superstep, part int) ([]byte, error) {
	return s.get(partitionKey(jobID, superstep, part))
}

// WriteAggregators implements Store.
func (s *InMemoryStore) WriteAggregators(_ context.Context, jobID string, superstep int, state []byte) error {
	s.put(aggregatorKey(jobID, superstep), state)
	return nil
}

// ReadAggregators implements Store.
func (s *InMemoryStore) ReadAggregators(_ context.Context, jobID string, superstep int) ([]byte, error) {
	return s.get(aggregatorKey(jobID, superstep))
}

// Commit implements Store.
func (s *InMemoryStore) Commit(_ context.Context, jobID string, superstep int) error {
	s.mu.Lock()
	if cur, exists := s.commits[jobID]; !exists || superstep > cur {
		s.commits[jobID] = superstep
	}
	s.mu.Unlock()
	return nil
}

// Latest implements Store.
func (s *InMemoryStore) Latest(_ context.Context, jobID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	superstep, exists := s.commits[jobID]
	if !exists {
		return 0, ErrNotFound
	}
	return superstep, nil
}

// Close implements Store.
func (s *InMemoryStore) Close() error { return nil }

func (s *InMemoryStore) put(key string, state []byte) {
	stateCopy := make([]byte, len(state))
	copy(stateCopy, state)
	s.mu.Lock()
	s.records[key] = stateCopy
	s.mu.Unlock()
}

func (s *InMemoryStore) get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, exists := s.records[key]
	if !exists {
		return nil, ErrNotFound
	}
	out := make([]byte, len(state))
	copy(out, state)
	return out, nil
}

func partitionKey(jobID string, superstep, part int) string {
	return fmt.Sprintf("%s/%d/p%d", jobID, superstep, part)
}

func aggregatorKey(jobID string, superstep int) string {
	return fmt.Sprintf("%s/%d/aggr", jobID, superstep)
}
