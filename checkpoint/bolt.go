package checkpoint

import (
	"context"
	"encoding/binary"
	"fmt"

	bolt "go.etcd.io/bbolt"
	"golang.org/x/xerrors"
)

var commitKey = []byte("committed_superstep")

// BoltStore implements Store on top of an embedded BoltDB file. Each job
// maps to its own bucket; partition and aggregator records are stored under
// binary keys ordered by superstep.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if needed) a BoltDB-backed checkpoint store
// at the specified path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, xerrors.Errorf("unable to open checkpoint database: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// WritePartition implements Store.
func (s *BoltStore) WritePartition(_ context.Context, jobID string, superstep, part int, state []byte) error {
	return s.write(jobID, boltPartitionKey(superstep, part), state)
}

// ReadPartition implements Store.
func (s *BoltStore) ReadPartition(_ context.Context, jobID string, superstep, part int) ([]byte, error) {
	return s.read(jobID, boltPartitionKey(superstep, part))
}

// WriteAggregators implements Store.
func (s *BoltStore) WriteAggregators(_ context.Context, jobID string, superstep int, state []byte) error {
	return s.write(jobID, boltAggregatorKey(superstep), state)
}

// ReadAggregators implements Store.
func (s *BoltStore) ReadAggregators(_ context.Context, jobID string, superstep int) ([]byte, error) {
	return s.read(jobID, boltAggregatorKey(superstep))
}

// Commit implements Store.
func (s *BoltStore) Commit(_ context.Context, jobID string, superstep int) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(jobID))
		if err != nil {
			return err
		}
		if cur := bucket.Get(commitKey); cur != nil && decodeSuperstep(cur) >= superstep {
			return nil
		}
		return bucket.Put(commitKey, encodeSuperstep(superstep))
	})
}

// Latest implements Store.
func (s *BoltStore) Latest(_ context.Context, jobID string) (int, error) {
	var superstep int
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(jobID))
		if bucket == nil {
			return ErrNotFound
		}
		cur := bucket.Get(commitKey)
		if cur == nil {
			return ErrNotFound
		}
		superstep = decodeSuperstep(cur)
		return nil
	})
	return superstep, err
}

// Close implements Store.
func (s *BoltStore) Close() error { return s.db.Close() }

func (s *BoltStore) write(jobID string, key, state []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(jobID))
		if err != nil {
			return err
		}
		return bucket.Put(key, state)
	})
}

func (s *BoltStore) read(jobID string, key []byte) ([]byte, error) {
	var state []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(jobID))
		if bucket == nil {
			return ErrNotFound
		}
		cur := bucket.Get(key)
		if cur == nil {
			return ErrNotFound
		}
		state = make([]byte, len(cur))
		copy(state, cur)
		return nil
	})
	return state, err
}

func boltPartitionKey(superstep, part int) []byte {
	return []byte(fmt.Sprintf("p/%012d/%06d", superstep, part))
}

func boltAggregatorKey(superstep int) []byte {
	return []byte(fmt.Sprintf("a/%012d", superstep))
}

func encodeSuperstep(superstep int) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(superstep))
	return buf[:]
}

func decodeSuperstep(buf []byte) int {
	return int(binary.BigEndian.Uint64(buf))
}
