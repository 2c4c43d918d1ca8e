package cluster

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/dravaio/drava/cluster/proto"
	"google.golang.org/grpc"
	gc "gopkg.in/check.v1"
)

var _ = gc.Suite(new(RealStreamTestSuite))

type RealStreamTestSuite struct {
	workerStream *remoteWorkerStream
	masterStream *remoteMasterStream
	srvListener  net.Listener
	cliConn      *grpc.ClientConn

	connectionComplete chan struct{}
}

func (s *RealStreamTestSuite) SetUpTest(c *gc.C) {
	s.connectionComplete = make(chan struct{})

	l, err := net.Listen("tcp", ":0")
	c.Assert(err, gc.IsNil)
	s.srvListener = l
	srv := grpc.NewServer()
	proto.RegisterJobQueueServer(srv, s)
	go func() { _ = srv.Serve(l) }()

	s.cliConn, err = grpc.Dial(l.Addr().String(), grpc.WithInsecure())
	c.Assert(err, gc.IsNil)
	cli := proto.NewJobQueueClient(s.cliConn)
	cliStream, err := cli.JobStream(context.TODO())
	c.Assert(err, gc.IsNil)
	s.masterStream = newRemoteMasterStream(cliStream)
	select {
	case <-s.connectionComplete:
	case <-time.After(5 * time.Second):
		c.Fatal("timeout waiting for connection to be established")
	}
}

func (s *RealStreamTestSuite) TearDownTest(c *gc.C) {
	if s.srvListener != nil {
		_ = s.srvListener.Close()
	}

	if s.cliConn != nil {
		_ = s.cliConn.Close()
	}
}

func (s *RealStreamTestSuite) TestGracefulDisconnectByWorker(c *gc.C) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := s.masterStream.HandleSendRecv()
		c.Assert(err, gc.IsNil)
	}()

	ctx := context.TODO()
	c.Assert(s.masterStream.SendStep(ctx, &proto.Step{Type: proto.Step_FLUSHED}), gc.IsNil)
	c.Log("worker sent step to master")
	step := <-s.workerStream.BarrierSteps()
	c.Assert(step.Type, gc.Equals, proto.Step_FLUSHED)
	c.Log("master received step from worker")
	c.Assert(s.workerStream.SendStep(ctx, &proto.Step{Type: proto.Step_FLUSHED}), gc.IsNil)
	c.Log("master sent step to worker")
	step = <-s.masterStream.BarrierSteps()
	c.Assert(step.Type, gc.Equals, proto.Step_FLUSHED)
	c.Log("worker received step from master")
	s.masterStream.Close()
	c.Log("worker closed connection to master")

	wg.Wait()
}

func (s *RealStreamTestSuite) TestGracefulDisconnectByMaster(c *gc.C) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := s.masterStream.HandleSendRecv()
		c.Assert(err, gc.IsNil)
	}()

	c.Assert(s.masterStream.SendStep(context.TODO(), &proto.Step{Type: proto.Step_FLUSHED}), gc.IsNil)
	c.Log("worker sent step to master")
	<-s.workerStream.BarrierSteps()
	s.workerStream.Close(nil)
	c.Log("master closed connection to worker without error")

	wg.Wait()
}

func (s *RealStreamTestSuite) TestRelayBatchesDeliveredBeforeBarrierStep(c *gc.C) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := s.masterStream.HandleSendRecv()
		c.Assert(err, gc.IsNil)
	}()

	// A flushing worker enqueues its relay batches strictly before the
	// FLUSHED step. The receiving side must observe them in the same order
	// even though batches and steps travel on separate channels.
	ctx := context.TODO()
	c.Assert(s.masterStream.SendRelayBatch(ctx, &proto.RelayBatch{Partition: 1}), gc.IsNil)
	c.Assert(s.masterStream.SendRelayBatch(ctx, &proto.RelayBatch{Partition: 2}), gc.IsNil)
	c.Assert(s.masterStream.SendStep(ctx, &proto.Step{Type: proto.Step_FLUSHED}), gc.IsNil)

	var received []string
	for i := 0; i < 3; i++ {
		select {
		case batch := <-s.workerStream.RelayBatches():
			received = append(received, fmt.Sprintf("batch-%d", batch.Partition))
		case <-s.workerStream.BarrierSteps():
			received = append(received, "step")
		case <-time.After(10 * time.Second):
			c.Fatal("timeout waiting for worker payloads")
		}
	}
	c.Assert(received, gc.DeepEquals, []string{"batch-1", "batch-2", "step"})

	s.masterStream.Close()
	wg.Wait()
}

func (s *RealStreamTestSuite) JobStream(stream proto.JobQueue_JobStreamServer) error {
	s.workerStream = newRemoteWorkerStream(stream)
	s.connectionComplete <- struct{}{}
	return s.workerStream.HandleSendRecv()
}
