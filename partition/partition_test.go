package partition_test

import (
	"fmt"
	"testing"

	"github.com/dravaio/drava/partition"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(PartitionTestSuite))

func Test(t *testing.T) {
	// Run all gocheck test-suites
	gc.TestingT(t)
}

type PartitionTestSuite struct {
}

func (s *PartitionTestSuite) TestHasherIsStable(c *gc.C) {
	hasher, err := partition.NewHasher(8)
	c.Assert(err, gc.IsNil)
	other, err := partition.NewHasher(8)
	c.Assert(err, gc.IsNil)

	for i := 0; i < 1000; i++ {
		id := []byte(fmt.Sprint(i))
		part := hasher.PartitionFor(id)
		c.Assert(part >= 0 && part < 8, gc.Equals, true)
		// Same ID bytes always map to the same partition, in any process.
		c.Assert(other.PartitionFor(id), gc.Equals, part)
	}
}

func (s *PartitionTestSuite) TestHasherSpreadsKeys(c *gc.C) {
	hasher, err := partition.NewHasher(4)
	c.Assert(err, gc.IsNil)

	hits := make(map[int]int)
	for i := 0; i < 1000; i++ {
		hits[hasher.PartitionFor([]byte(fmt.Sprint(i)))]++
	}
	for part := 0; part < 4; part++ {
		c.Assert(hits[part] > 0, gc.Equals, true, gc.Commentf("partition %d received no keys", part))
	}
}

func (s *PartitionTestSuite) TestInvalidPartitionCount(c *gc.C) {
	_, err := partition.NewHasher(0)
	c.Assert(err, gc.Equals, partition.ErrInvalidPartitionCount)

	_, err = partition.Assign(1, -1, 3)
	c.Assert(err, gc.Equals, partition.ErrInvalidPartitionCount)

	_, err = partition.Assign(1, 4, 0)
	c.Assert(err, gc.ErrorMatches, "number of workers must be at least equal to 1")
}

func (s *PartitionTestSuite) TestAssignmentCoversAllPartitions(c *gc.C) {
	assignment, err := partition.Assign(1, 10, 3)
	c.Assert(err, gc.IsNil)
	c.Assert(assignment.Version, gc.Equals, int64(1))

	for part := 0; part < 10; part++ {
		worker, err := assignment.WorkerFor(part)
		c.Assert(err, gc.IsNil)
		c.Assert(worker >= 0 && worker < 3, gc.Equals, true)
	}
	_, err = assignment.WorkerFor(10)
	c.Assert(err, gc.ErrorMatches, "invalid partition index 10")

	// The per-worker views are disjoint and complete.
	total := 0
	for worker := 0; worker < 3; worker++ {
		parts := assignment.PartitionsFor(worker)
		total += len(parts)
		for _, part := range parts {
			owner, err := assignment.WorkerFor(part)
			c.Assert(err, gc.IsNil)
			c.Assert(owner, gc.Equals, worker)
		}
	}
	c.Assert(total, gc.Equals, 10)
}

func (s *PartitionTestSuite) TestReassignmentAfterWorkerLoss(c *gc.C) {
	before, err := partition.Assign(1, 8, 4)
	c.Assert(err, gc.IsNil)
	after, err := partition.Assign(2, 8, 3)
	c.Assert(err, gc.IsNil)

	c.Assert(after.Version, gc.Equals, int64(2))
	// Every partition must still be owned by exactly one of the surviving
	// workers.
	for part := 0; part < 8; part++ {
		worker, err := after.WorkerFor(part)
		c.Assert(err, gc.IsNil)
		c.Assert(worker >= 0 && worker < 3, gc.Equals, true)
	}
	c.Assert(len(before.PartitionsFor(3)) > 0, gc.Equals, true)
	c.Assert(after.PartitionsFor(3), gc.HasLen, 0)
}
