package router_test

import (
	"errors"
	"sort"
	"testing"

	"github.com/dravaio/drava/partition"
	"github.com/dravaio/drava/router"
	"github.com/dravaio/drava/wire"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(RouterTestSuite))

func Test(t *testing.T) {
	// Run all gocheck test-suites
	gc.TestingT(t)
}

type RouterTestSuite struct {
}

func (s *RouterTestSuite) TestFlushSplitsLocalAndRemote(c *gc.C) {
	hasher, err := partition.NewHasher(4)
	c.Assert(err, gc.IsNil)
	r := router.New[int64, int64](hasher, wire.Int64Codec{}, nil)

	var ids []int64
	for i := int64(0); i < 100; i++ {
		ids = append(ids, i)
		c.Assert(r.Send(i, i), gc.IsNil)
	}
	c.Assert(r.SentCount(), gc.Equals, int64(100))

	ownsPartition := func(part int) bool { return part < 2 }
	var local, remote []int64
	err = r.Flush(
		ownsPartition,
		func(part int, dst int64, msgs []int64) error {
			c.Assert(ownsPartition(part), gc.Equals, true)
			c.Assert(msgs, gc.DeepEquals, []int64{dst})
			local = append(local, dst)
			return nil
		},
		func(part int, dst int64, msgs []int64) error {
			c.Assert(ownsPartition(part), gc.Equals, false)
			remote = append(remote, dst)
			return nil
		},
	)
	c.Assert(err, gc.IsNil)

	got := append(append([]int64(nil), local...), remote...)
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	c.Assert(got, gc.DeepEquals, ids)

	// Flush resets the buffers and the sent tally.
	c.Assert(r.SentCount(), gc.Equals, int64(0))
	err = r.Flush(
		ownsPartition,
		func(int, int64, []int64) error { c.Fatal("unexpected delivery"); return nil },
		func(int, int64, []int64) error { c.Fatal("unexpected delivery"); return nil },
	)
	c.Assert(err, gc.IsNil)
}

func (s *RouterTestSuite) TestCombinerReducesPerDestination(c *gc.C) {
	hasher, err := partition.NewHasher(2)
	c.Assert(err, gc.IsNil)
	r := router.New[int64, int64](hasher, wire.Int64Codec{}, func(a, b int64) int64 { return a + b })

	for i := int64(0); i < 10; i++ {
		c.Assert(r.Send(7, 1), gc.IsNil)
		c.Assert(r.Send(8, 2), gc.IsNil)
	}
	// The sent tally counts messages before combining.
	c.Assert(r.SentCount(), gc.Equals, int64(20))

	sums := make(map[int64]int64)
	deliver := func(part int, dst int64, msgs []int64) error {
		// A combiner leaves exactly one message per destination.
		c.Assert(msgs, gc.HasLen, 1)
		sums[dst] = msgs[0]
		return nil
	}
	c.Assert(r.Flush(func(int) bool { return true }, deliver, deliver), gc.IsNil)
	c.Assert(sums, gc.DeepEquals, map[int64]int64{7: 10, 8: 20})
}

func (s *RouterTestSuite) TestDeliveryErrorAbortsFlush(c *gc.C) {
	hasher, err := partition.NewHasher(1)
	c.Assert(err, gc.IsNil)
	r := router.New[int64, int64](hasher, wire.Int64Codec{}, nil)
	c.Assert(r.Send(1, 1), gc.IsNil)

	boom := func(int, int64, []int64) error { return errBoom }
	c.Assert(r.Flush(func(int) bool { return true }, boom, boom), gc.Equals, errBoom)
}

var errBoom = errors.New("boom")
