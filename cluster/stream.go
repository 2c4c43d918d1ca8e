package cluster

import (
	"context"
	"io"
	"sync"

	"github.com/dravaio/drava/cluster/proto"
	"golang.org/x/xerrors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// errJobAborted is sent to a worker to indicate that the master has aborted a
// running job due to some error.
var errJobAborted = xerrors.New("job was aborted")

// errMasterShuttingDown is sent to a worker to indicate that the master is
// shutting down.
var errMasterShuttingDown = xerrors.New("master is shutting down")

// remoteWorkerStream is the master's handle to one connected worker. Outgoing
// payloads are enqueued through the typed Send methods and written to the
// wire in enqueue order; incoming payloads are demultiplexed into a barrier
// step channel and a relay batch channel. Both incoming channels are
// unbuffered on purpose: a payload is never handed out before every payload
// received ahead of it has been consumed, so the wire order between a
// worker's relay batches and its subsequent barrier step survives the demux.
type remoteWorkerStream struct {
	stream    proto.JobQueue_JobStreamServer
	sendMsgCh chan *proto.MasterPayload
	sendErrCh chan error
	stepCh    chan *proto.Step
	relayCh   chan *proto.RelayBatch

	mu             sync.Mutex
	onDisconnectFn func()
	disconnected   bool
}

// newRemoteWorkerStream creates a stream abstraction for interacting with a
// remote worker instance.
func newRemoteWorkerStream(stream proto.JobQueue_JobStreamServer) *remoteWorkerStream {
	return &remoteWorkerStream{
		stream:    stream,
		sendMsgCh: make(chan *proto.MasterPayload, 1),
		sendErrCh: make(chan error, 1),
		stepCh:    make(chan *proto.Step),
		relayCh:   make(chan *proto.RelayBatch),
	}
}

// HandleSendRecv asynchronously handles both the send and receiving ends of
// a remotely connected worker. Calls to HandleSendRecv block until the stream
// is closed by either side.
func (s *remoteWorkerStream) HandleSendRecv() error {
	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()
	go s.handleRecv(ctx, cancelFn)
	for {
		select {
		case mPayload := <-s.sendMsgCh:
			if err := s.stream.Send(mPayload); err != nil {
				return err
			}
		case err, ok := <-s.sendErrCh:
			if !ok { // signalled to close without an error
				return nil
			}
			return status.Errorf(codes.Aborted, err.Error())
		case <-ctx.Done():
			return status.Errorf(codes.Aborted, errJobAborted.Error())
		}
	}
}

// handleRecv reads worker payloads off the wire and routes each one to its
// typed channel before reading the next.
func (s *remoteWorkerStream) handleRecv(ctx context.Context, cancelFn func()) {
	for {
		wPayload, err := s.stream.Recv()
		if err != nil {
			s.handleDisconnect()
			cancelFn()
			return
		}

		switch p := wPayload.Payload.(type) {
		case *proto.WorkerPayload_RelayBatch:
			select {
			case s.relayCh <- p.RelayBatch:
			case <-ctx.Done():
				return
			}
		case *proto.WorkerPayload_Step:
			select {
			case s.stepCh <- p.Step:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *remoteWorkerStream) handleDisconnect() {
	s.mu.Lock()
	if s.onDisconnectFn != nil {
		s.onDisconnectFn()
	}
	s.disconnected = true
	s.mu.Unlock()
}

// BarrierSteps returns the channel carrying the barrier steps announced by
// the worker.
func (s *remoteWorkerStream) BarrierSteps() <-chan *proto.Step {
	return s.stepCh
}

// RelayBatches returns the channel carrying the relay batches produced by the
// worker for remotely owned partitions.
func (s *remoteWorkerStream) RelayBatches() <-chan *proto.RelayBatch {
	return s.relayCh
}

// SendJobDetails enqueues a job announcement for delivery to the worker.
func (s *remoteWorkerStream) SendJobDetails(ctx context.Context, details *proto.JobDetails) error {
	return s.enqueue(ctx, &proto.MasterPayload{
		Payload: &proto.MasterPayload_JobDetails{JobDetails: details},
	})
}

// SendStep enqueues a barrier step for delivery to the worker.
func (s *remoteWorkerStream) SendStep(ctx context.Context, step *proto.Step) error {
	return s.enqueue(ctx, &proto.MasterPayload{
		Payload: &proto.MasterPayload_Step{Step: step},
	})
}

// SendRelayBatch enqueues a forwarded relay batch for delivery to the worker.
func (s *remoteWorkerStream) SendRelayBatch(ctx context.Context, batch *proto.RelayBatch) error {
	return s.enqueue(ctx, &proto.MasterPayload{
		Payload: &proto.MasterPayload_RelayBatch{RelayBatch: batch},
	})
}

func (s *remoteWorkerStream) enqueue(ctx context.Context, mPayload *proto.MasterPayload) error {
	select {
	case s.sendMsgCh <- mPayload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetDisconnectCallback registers a callback which will be invoked when the
// remote worker disconnects.
func (s *remoteWorkerStream) SetDisconnectCallback(cb func()) {
	s.mu.Lock()
	s.onDisconnectFn = cb
	if s.disconnected {
		s.onDisconnectFn()
	}
	s.mu.Unlock()
}

// Close terminates the worker's connection with an optional error.
func (s *remoteWorkerStream) Close(err error) {
	if err != nil {
		s.sendErrCh <- err
	}
	close(s.sendErrCh)
}

// remoteMasterStream is the worker's handle to the master node. It mirrors
// remoteWorkerStream: typed Send methods preserve enqueue order on the wire
// and incoming master payloads are demultiplexed into unbuffered barrier step
// and relay batch channels, so the relay batches forwarded by the master are
// always consumable before the barrier release that follows them.
type remoteMasterStream struct {
	stream    proto.JobQueue_JobStreamClient
	sendMsgCh chan *proto.WorkerPayload
	stepCh    chan *proto.Step
	relayCh   chan *proto.RelayBatch

	ctx      context.Context
	cancelFn func()

	mu             sync.Mutex
	onDisconnectFn func()
	disconnected   bool
}

// newRemoteMasterStream creates a stream abstraction for interacting with a
// master.
func newRemoteMasterStream(stream proto.JobQueue_JobStreamClient) *remoteMasterStream {
	ctx, cancelFn := context.WithCancel(context.Background())

	return &remoteMasterStream{
		ctx:       ctx,
		cancelFn:  cancelFn,
		stream:    stream,
		sendMsgCh: make(chan *proto.WorkerPayload, 1),
		stepCh:    make(chan *proto.Step),
		relayCh:   make(chan *proto.RelayBatch),
	}
}

// HandleSendRecv asynchronously handles both the send and receiving ends of
// a connection to a master node. Calls to HandleSendRecv block until the
// stream is closed by either side.
func (s *remoteMasterStream) HandleSendRecv() error {
	defer func() {
		s.cancelFn()
		_ = s.stream.CloseSend()
	}()
	go s.handleRecv()
	for {
		select {
		case wPayload := <-s.sendMsgCh:
			if err := s.stream.Send(wPayload); err != nil && !xerrors.Is(err, io.EOF) {
				return err
			}
		case <-s.ctx.Done():
			return nil
		}
	}
}

// handleRecv reads master payloads off the wire and routes each one to its
// typed channel before reading the next.
func (s *remoteMasterStream) handleRecv() {
	for {
		mPayload, err := s.stream.Recv()
		if err != nil {
			s.handleDisconnect()
			s.cancelFn()
			return
		}

		switch p := mPayload.Payload.(type) {
		case *proto.MasterPayload_RelayBatch:
			select {
			case s.relayCh <- p.RelayBatch:
			case <-s.ctx.Done():
				return
			}
		case *proto.MasterPayload_Step:
			select {
			case s.stepCh <- p.Step:
			case <-s.ctx.Done():
				return
			}
		}
	}
}

func (s *remoteMasterStream) handleDisconnect() {
	s.mu.Lock()
	if s.onDisconnectFn != nil {
		s.onDisconnectFn()
	}
	s.disconnected = true
	s.mu.Unlock()
}

// BarrierSteps returns the channel carrying barrier steps broadcast by the
// master.
func (s *remoteMasterStream) BarrierSteps() <-chan *proto.Step {
	return s.stepCh
}

// RelayBatches returns the channel carrying relay batches forwarded by the
// master for locally owned partitions.
func (s *remoteMasterStream) RelayBatches() <-chan *proto.RelayBatch {
	return s.relayCh
}

// SendStep enqueues a barrier step for delivery to the master.
func (s *remoteMasterStream) SendStep(ctx context.Context, step *proto.Step) error {
	return s.enqueue(ctx, &proto.WorkerPayload{
		Payload: &proto.WorkerPayload_Step{Step: step},
	})
}

// SendRelayBatch enqueues a relay batch for delivery to the master. Batches
// for a superstep must be enqueued before the FLUSHED step that follows them
// so the per-stream FIFO order carries them to the master first.
func (s *remoteMasterStream) SendRelayBatch(ctx context.Context, batch *proto.RelayBatch) error {
	return s.enqueue(ctx, &proto.WorkerPayload{
		Payload: &proto.WorkerPayload_RelayBatch{RelayBatch: batch},
	})
}

func (s *remoteMasterStream) enqueue(ctx context.Context, wPayload *proto.WorkerPayload) error {
	select {
	case s.sendMsgCh <- wPayload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return errJobAborted
	}
}

// SetDisconnectCallback registers a callback which will be invoked when the
// connection to the master node is lost.
func (s *remoteMasterStream) SetDisconnectCallback(cb func()) {
	s.mu.Lock()
	s.onDisconnectFn = cb
	if s.disconnected {
		s.onDisconnectFn()
	}
	s.mu.Unlock()
}

// Close gracefully terminates the connection to the master.
func (s *remoteMasterStream) Close() {
	s.cancelFn()
}
