package cluster_test

import (
	"bytes"
	"context"
	"net"
	"sync"
	"time"

	"github.com/dravaio/drava/aggregator"
	"github.com/dravaio/drava/checkpoint"
	"github.com/dravaio/drava/cluster"
	"github.com/dravaio/drava/cluster/job"
	"github.com/dravaio/drava/engine"
	"github.com/dravaio/drava/graph"
	"github.com/dravaio/drava/wire"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(DistributedJobTestSuite))

const numTestVertices = 100

type DistributedJobTestSuite struct {
	logger    *logrus.Entry
	logOutput bytes.Buffer
}

func (s *DistributedJobTestSuite) SetUpTest(c *gc.C) {
	s.logOutput.Reset()
	rootLogger := logrus.New()
	rootLogger.Level = logrus.DebugLevel
	rootLogger.Out = &s.logOutput

	s.logger = logrus.NewEntry(rootLogger)
}

func (s *DistributedJobTestSuite) TearDownTest(c *gc.C) {
	if c.Failed() {
		c.Log(s.logOutput.String())
	}
}

func (s *DistributedJobTestSuite) TestSuccessfulJob(c *gc.C) {
	numWorkers := 4
	listenAddr := s.findFreePort(c)
	ctx, cancelFn := context.WithCancel(context.TODO())
	defer cancelFn()

	masterRunner := newJobRunner(true, s.logger.WithField("master", "true"))
	master, err := cluster.NewMaster(cluster.MasterConfig{
		ListenAddress: listenAddr,
		JobRunner:     masterRunner,
		NumPartitions: 8,
		Logger:        s.logger.WithField("master", "true"),
	})
	c.Assert(err, gc.IsNil)
	c.Assert(master.Start(), gc.IsNil)
	defer func() { c.Assert(master.Close(), gc.IsNil) }()

	workerRunners := make([]*jobRunner, numWorkers)
	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for workerID := 0; workerID < numWorkers; workerID++ {
		workerRunners[workerID] = newJobRunner(false, s.logger.WithField("worker_id", workerID))
		go func(workerID int) {
			defer wg.Done()

			jr := workerRunners[workerID]
			worker, err := cluster.NewWorker(cluster.WorkerConfig{
				JobRunner: jr,
				Logger:    s.logger.WithField("worker_id", workerID),
			})
			c.Assert(err, gc.IsNil)
			c.Assert(worker.Dial(listenAddr, 15*time.Second), gc.IsNil)
			c.Assert(worker.RunJob(ctx), gc.IsNil)
			c.Assert(worker.Close(), gc.IsNil)
			c.Assert(jr.startJobCalled, gc.Equals, true)
			c.Assert(jr.abortJobCalled, gc.Equals, false)
			c.Assert(jr.completeJobCalled, gc.Equals, true)
		}(workerID)
	}

	c.Assert(master.RunJob(ctx, numWorkers, 10*time.Second), gc.IsNil)
	wg.Wait()

	c.Assert(masterRunner.startJobCalled, gc.Equals, true)
	c.Assert(masterRunner.abortJobCalled, gc.Equals, false)
	c.Assert(masterRunner.completeJobCalled, gc.Equals, true)
	c.Assert(masterRunner.finalMsgCount, gc.Equals, int64(numTestVertices), gc.Commentf("expected one exchanged message per vertex"))
	c.Assert(masterRunner.finalVertexCount, gc.Equals, int64(numTestVertices))

	// Every vertex must have been persisted by exactly one worker with the
	// value it accumulated from its inbound message.
	persisted := make(map[int64]int64)
	for _, jr := range workerRunners {
		for id, val := range jr.sink.got {
			_, exists := persisted[id]
			c.Assert(exists, gc.Equals, false, gc.Commentf("vertex %d persisted by more than one worker", id))
			persisted[id] = val
		}
	}
	c.Assert(persisted, gc.HasLen, numTestVertices)
	for id, val := range persisted {
		c.Assert(val, gc.Equals, int64(1), gc.Commentf("unexpected value for vertex %d", id))
	}
}

func (s *DistributedJobTestSuite) TestWorkerFailsStartingJob(c *gc.C) {
	numWorkers := 3
	listenAddr := s.findFreePort(c)
	ctx, cancelFn := context.WithCancel(context.TODO())
	defer cancelFn()

	masterRunner := newJobRunner(true, s.logger.WithField("master", "true"))
	master, err := cluster.NewMaster(cluster.MasterConfig{
		ListenAddress: listenAddr,
		JobRunner:     masterRunner,
		NumPartitions: 8,
		Logger:        s.logger.WithField("master", "true"),
	})
	c.Assert(err, gc.IsNil)
	c.Assert(master.Start(), gc.IsNil)
	defer func() { c.Assert(master.Close(), gc.IsNil) }()

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for workerID := 0; workerID < numWorkers; workerID++ {
		go func(workerID int) {
			defer wg.Done()

			jr := newJobRunner(false, s.logger.WithField("worker_id", workerID))
			if workerID == 0 {
				jr.startJobErr = xerrors.New("could not start job")
			}

			worker, err := cluster.NewWorker(cluster.WorkerConfig{
				JobRunner: jr,
				Logger:    s.logger.WithField("worker_id", workerID),
			})
			c.Assert(err, gc.IsNil)
			c.Assert(worker.Dial(listenAddr, 15*time.Second), gc.IsNil)
			err = worker.RunJob(ctx)
			if workerID == 0 {
				c.Assert(err, gc.ErrorMatches, ".*could not start job")
			} else {
				c.Assert(err, gc.ErrorMatches, ".*job was aborted")
			}
			c.Assert(worker.Close(), gc.IsNil)
			c.Assert(jr.startJobCalled, gc.Equals, true)
			c.Assert(jr.abortJobCalled, gc.Equals, workerID != 0, gc.Commentf("AbortJob should be called on workers that don't report errors starting jobs"))
			c.Assert(jr.completeJobCalled, gc.Equals, false)
		}(workerID)
	}

	err = master.RunJob(ctx, numWorkers, 10*time.Second)
	c.Assert(err, gc.ErrorMatches, ".*job was aborted")
	c.Assert(masterRunner.startJobCalled, gc.Equals, true)
	c.Assert(masterRunner.abortJobCalled, gc.Equals, true)
	c.Assert(masterRunner.completeJobCalled, gc.Equals, false)
	wg.Wait()
}

func (s *DistributedJobTestSuite) TestRecoveryFromCheckpoint(c *gc.C) {
	numWorkers := 3
	listenAddr := s.findFreePort(c)
	store := checkpoint.NewInMemoryStore()
	ctx, cancelFn := context.WithCancel(context.TODO())
	defer cancelFn()

	masterRunner := newJobRunner(true, s.logger.WithField("master", "true"))
	master, err := cluster.NewMaster(cluster.MasterConfig{
		ListenAddress:      listenAddr,
		JobRunner:          masterRunner,
		NumPartitions:      8,
		Checkpoint:         store,
		CheckpointInterval: 1,
		MaxAttempts:        3,
		Logger:             s.logger.WithField("master", "true"),
	})
	c.Assert(err, gc.IsNil)
	c.Assert(master.Start(), gc.IsNil)
	defer func() { c.Assert(master.Close(), gc.IsNil) }()

	workerRunners := make([]*jobRunner, numWorkers)
	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for workerID := 0; workerID < numWorkers; workerID++ {
		workerRunners[workerID] = newJobRunner(false, s.logger.WithField("worker_id", workerID))
		workerRunners[workerID].checkpointStore = store
		if workerID == 0 {
			// Fail once while re-computing superstep 1; the retry must
			// resume from the checkpoint committed at that superstep.
			workerRunners[workerID].failAtSuperstep = 1
			workerRunners[workerID].computeFnErr = xerrors.New("transient compute failure")
		}

		go func(workerID int) {
			defer wg.Done()

			jr := workerRunners[workerID]
			worker, err := cluster.NewWorker(cluster.WorkerConfig{
				JobRunner:  jr,
				Checkpoint: store,
				Logger:     s.logger.WithField("worker_id", workerID),
			})
			c.Assert(err, gc.IsNil)
			c.Assert(worker.Dial(listenAddr, 15*time.Second), gc.IsNil)
			for {
				if err := worker.RunJob(ctx); err == nil {
					break
				}
				select {
				case <-ctx.Done():
					c.Errorf("worker %d: context expired before completing job", workerID)
					return
				default: // job aborted; wait for the next attempt
				}
			}
			c.Assert(worker.Close(), gc.IsNil)
		}(workerID)
	}

	c.Assert(master.RunJob(ctx, numWorkers, 10*time.Second), gc.IsNil)
	wg.Wait()

	c.Assert(masterRunner.completeJobCalled, gc.Equals, true)
	c.Assert(masterRunner.finalMsgCount, gc.Equals, int64(numTestVertices), gc.Commentf("recovered run must not double-count messages"))
	c.Assert(masterRunner.finalVertexCount, gc.Equals, int64(numTestVertices), gc.Commentf("recovered run must not re-apply superstep 0 contributions"))

	var sawResumedJob bool
	for _, jr := range workerRunners {
		sawResumedJob = sawResumedJob || jr.sawResumedJob
	}
	c.Assert(sawResumedJob, gc.Equals, true, gc.Commentf("expected at least one worker to observe a resumed job"))
}

func (s *DistributedJobTestSuite) TestDialWithoutTimeout(c *gc.C) {
	listenAddr := s.findFreePort(c)

	master, err := cluster.NewMaster(cluster.MasterConfig{
		ListenAddress: listenAddr,
		JobRunner:     newJobRunner(true, s.logger.WithField("master", "true")),
		NumPartitions: 4,
		Logger:        s.logger.WithField("master", "true"),
	})
	c.Assert(err, gc.IsNil)
	c.Assert(master.Start(), gc.IsNil)
	defer func() { c.Assert(master.Close(), gc.IsNil) }()

	worker, err := cluster.NewWorker(cluster.WorkerConfig{
		JobRunner: newJobRunner(false, s.logger),
		Logger:    s.logger,
	})
	c.Assert(err, gc.IsNil)

	// A zero timeout blocks until the connection is established.
	c.Assert(worker.Dial(listenAddr, 0), gc.IsNil)
	c.Assert(worker.Close(), gc.IsNil)
}

func (s *DistributedJobTestSuite) findFreePort(c *gc.C) string {
	l, err := net.Listen("tcp", ":0")
	c.Assert(err, gc.IsNil)
	listenAddr := l.Addr().String()
	_ = l.Close()
	return listenAddr
}

// jobRunner implements job.Runner for a ring job: at superstep 0 every vertex
// messages its successor and at superstep 1 each vertex folds the received
// value into its own.
type jobRunner struct {
	isMaster        bool
	logger          *logrus.Entry
	checkpointStore checkpoint.Store

	mu              sync.Mutex
	eng             *engine.Engine[int64, int64, struct{}, int64]
	sink            *mapSink
	startJobErr     error
	completeJobErr  error
	computeFnErr    error
	failAtSuperstep int

	startJobCalled    bool
	completeJobCalled bool
	abortJobCalled    bool
	sawResumedJob     bool

	finalMsgCount    int64
	finalVertexCount int64
}

func newJobRunner(isMaster bool, logger *logrus.Entry) *jobRunner {
	return &jobRunner{
		isMaster:        isMaster,
		logger:          logger,
		failAtSuperstep: -1,
		sink:            &mapSink{got: make(map[int64]int64)},
	}
}

func (j *jobRunner) StartJob(details job.Details) (engine.Instance, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.startJobCalled = true
	if details.Resuming() {
		j.sawResumedJob = true
	}
	if j.startJobErr != nil {
		return nil, j.startJobErr
	}

	cfg := engine.Config[int64, int64, struct{}, int64]{
		Compute:      j.compute,
		IDCodec:      wire.Int64Codec{},
		ValueCodec:   wire.Int64Codec{},
		EdgeCodec:    wire.NoneCodec{},
		MessageCodec: wire.Int64Codec{},
		Aggregators: map[string]aggregator.Aggregator{
			"vertex_count": new(aggregator.Int64Accumulator),
			"msg_count":    new(aggregator.Int64Accumulator),
		},
		NumPartitions: details.NumPartitions,
		Logger:        j.logger,
	}
	if !j.isMaster {
		cfg.OwnedPartitions = details.AssignedPartitions
	}

	eng, err := engine.New(cfg)
	if err != nil {
		return nil, err
	}

	// The master instance tracks only aggregator state; graph data lives on
	// the workers. Resumed workers are rehydrated from the checkpoint by the
	// cluster layer instead of the input source.
	if !j.isMaster && !details.Resuming() {
		if err := eng.Load(ringSource{}); err != nil {
			_ = eng.Close()
			return nil, err
		}
	}

	j.eng = eng
	j.sink = &mapSink{got: make(map[int64]int64)}
	return eng, nil
}

func (j *jobRunner) CompleteJob(_ job.Details, instance engine.Instance) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.completeJobCalled = true
	if j.completeJobErr != nil {
		return j.completeJobErr
	}

	if j.isMaster {
		j.finalMsgCount = instance.Aggregators().Get("msg_count").Get().(int64)
		j.finalVertexCount = instance.Aggregators().Get("vertex_count").Get().(int64)
		return nil
	}
	return j.eng.Output(j.sink)
}

func (j *jobRunner) AbortJob(_ job.Details) {
	j.mu.Lock()
	j.abortJobCalled = true
	j.mu.Unlock()
}

func (j *jobRunner) compute(c *engine.Context[int64, int64, struct{}, int64], v *graph.Vertex[int64, int64, struct{}, int64], msgs *graph.MessageIterator[int64]) error {
	j.mu.Lock()
	if j.computeFnErr != nil && c.Superstep() == j.failAtSuperstep {
		err := j.computeFnErr
		j.computeFnErr = nil
		j.mu.Unlock()
		return err
	}
	j.mu.Unlock()

	if c.Superstep() == 0 {
		c.Aggregator("vertex_count").Aggregate(int64(1))
		if err := c.SendMessage((v.ID()+1)%numTestVertices, 1); err != nil {
			return err
		}
	} else {
		var sum int64
		for msgs.Next() {
			sum += msgs.Message()
		}
		v.SetValue(v.Value() + sum)
		c.Aggregator("msg_count").Aggregate(sum)
	}
	v.VoteToHalt()
	return nil
}

// ringSource yields vertices 0..numTestVertices-1 with zero values and no
// edges; message destinations are addressed directly by ID.
type ringSource struct{}

func (ringSource) Vertices() (engine.VertexIterator[int64, int64], error) {
	return &ringVertexIterator{next: -1}, nil
}

func (ringSource) Edges() (engine.EdgeIterator[int64, struct{}], error) {
	return emptyEdgeIterator{}, nil
}

type ringVertexIterator struct {
	next int64
}

func (it *ringVertexIterator) Next() bool {
	if it.next+1 >= numTestVertices {
		return false
	}
	it.next++
	return true
}

func (it *ringVertexIterator) Vertex() (int64, int64) { return it.next, 0 }
func (it *ringVertexIterator) Error() error           { return nil }
func (it *ringVertexIterator) Close() error           { return nil }

type emptyEdgeIterator struct{}

func (emptyEdgeIterator) Next() bool                     { return false }
func (emptyEdgeIterator) Edge() (int64, int64, struct{}) { return 0, 0, struct{}{} }
func (emptyEdgeIterator) Error() error                   { return nil }
func (emptyEdgeIterator) Close() error                   { return nil }

type mapSink struct {
	mu  sync.Mutex
	got map[int64]int64
}

func (s *mapSink) Consume(id, val int64) error {
	s.mu.Lock()
	s.got[id] = val
	s.mu.Unlock()
	return nil
}
