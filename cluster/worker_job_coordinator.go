package cluster

import (
	"context"
	"sync"

	"github.com/dravaio/drava/checkpoint"
	"github.com/dravaio/drava/cluster/job"
	"github.com/dravaio/drava/cluster/proto"
	"github.com/dravaio/drava/engine"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

type workerJobCoordinatorConfig struct {
	jobDetails      job.Details
	masterStream    *remoteMasterStream
	jobRunner       job.Runner
	checkpointStore checkpoint.Store
	logger          *logrus.Entry
}

// workerJobCoordinator is used by the worker node to coordinate the
// execution of an assigned job with a master node.
type workerJobCoordinator struct {
	jobCtx       context.Context
	cancelJobCtx func()

	cfg     workerJobCoordinatorConfig
	barrier *workerStepBarrier

	mu         sync.Mutex
	relayInbox []*proto.RelayBatch
}

// newWorkerJobCoordinator creates a new coordinator instance for the
// specified job.
func newWorkerJobCoordinator(ctx context.Context, cfg workerJobCoordinatorConfig) *workerJobCoordinator {
	jobCtx, cancelJobCtx := context.WithCancel(ctx)
	return &workerJobCoordinator{
		jobCtx:       jobCtx,
		cancelJobCtx: cancelJobCtx,
		barrier:      newWorkerStepBarrier(jobCtx, cfg.masterStream),
		cfg:          cfg,
	}
}

// RunJob executes the job's supersteps over the locally owned partitions in
// lock-step with the master.
func (c *workerJobCoordinator) RunJob() error {
	instance, err := c.cfg.jobRunner.StartJob(c.cfg.jobDetails)
	if err != nil {
		c.cancelJobCtx()
		return xerrors.Errorf("unable to start job on worker: %w", err)
	}
	defer func() { _ = instance.Close() }()

	if c.cfg.jobDetails.Resuming() {
		if err := instance.RestoreCheckpoint(c.jobCtx, c.cfg.checkpointStore, c.cfg.jobDetails.JobID, c.cfg.jobDetails.RestartSuperstep); err != nil {
			c.cfg.jobRunner.AbortJob(c.cfg.jobDetails)
			c.cancelJobCtx()
			return xerrors.Errorf("unable to restore checkpoint: %w", err)
		}
	}

	// Start a goroutine to handle incoming master messages.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.cfg.masterStream.SetDisconnectCallback(c.handleMasterDisconnect)
		c.handleMasterPayloads()
	}()

	// Run job to completion or until an error occurs.
	if err = c.runJobToCompletion(instance); err != nil {
		c.cfg.jobRunner.AbortJob(c.cfg.jobDetails)
		if xerrors.Is(err, context.Canceled) {
			err = errJobAborted
		}
	}

	c.cancelJobCtx()
	wg.Wait() // wait for any spawned goroutines to exit before returning.
	return err
}

// handleMasterDisconnect is invoked when the worker's connection to the
// master node is lost.
func (c *workerJobCoordinator) handleMasterDisconnect() {
	select {
	case <-c.jobCtx.Done(): // job already aborted
	default:
		c.cancelJobCtx()
	}
}

// runJobToCompletion drives the worker's half of the superstep loop:
// compute, flush with the local tallies attached, act on the master's
// decision and finally walk through the persist handshake.
func (c *workerJobCoordinator) runJobToCompletion(instance engine.Instance) error {
	// Signal that the local partitions are loaded and wait for the rest of
	// the cohort before computing the first superstep.
	if _, err := c.barrier.Wait(&proto.Step{Type: proto.Step_SUPERSTEP_START}); err != nil {
		return errJobAborted
	}

	for {
		stats, err := instance.ComputePhase(c.jobCtx)
		if err != nil {
			return err
		}
		if err := c.flushToMaster(instance); err != nil {
			return err
		}

		deltas, err := instance.Aggregators().SerializeValues(true)
		if err != nil {
			return err
		}
		release, err := c.barrier.Wait(&proto.Step{
			Type:             proto.Step_FLUSHED,
			Superstep:        int64(stats.Superstep),
			TotalVertices:    stats.Total,
			HaltedVertices:   stats.Halted,
			SentMessages:     stats.Sent,
			AggregatorValues: deltas,
		})
		if err != nil {
			return errJobAborted
		}

		// All relay batches for this superstep were received before the
		// barrier release; fold them into the local partitions and adopt
		// the merged global aggregator values.
		if err := c.applyRelayInbox(instance); err != nil {
			return err
		}
		if err := instance.Aggregators().SetValues(release.AggregatorValues); err != nil {
			return err
		}

		if release.Decision == proto.Step_TERMINATE {
			break
		}

		instance.AdvanceSuperstep()
		if release.Decision == proto.Step_CHECKPOINT {
			if err := instance.WriteCheckpoint(c.jobCtx, c.cfg.checkpointStore, c.cfg.jobDetails.JobID); err != nil {
				return err
			}
			c.cfg.logger.WithField("superstep", instance.Superstep()).Debug("wrote local checkpoint")
			if _, err := c.barrier.Wait(&proto.Step{
				Type:      proto.Step_CHECKPOINTED,
				Superstep: int64(instance.Superstep()),
			}); err != nil {
				return errJobAborted
			}
		}
	}

	if _, err := c.barrier.Wait(&proto.Step{Type: proto.Step_EXECUTED_GRAPH}); err != nil {
		return errJobAborted
	} else if err := c.cfg.jobRunner.CompleteJob(c.cfg.jobDetails, instance); err != nil {
		return err
	} else if _, err = c.barrier.Wait(&proto.Step{Type: proto.Step_PERSISTED_RESULTS}); err != nil {
		return errJobAborted
	}

	// Notify master that we are done and block until the master terminates
	// the job stream.
	_, _ = c.barrier.Wait(&proto.Step{Type: proto.Step_COMPLETED_JOB})
	return nil
}

// flushToMaster delivers locally buffered messages. Messages bound for
// remote partitions are grouped into per-partition relay batches which are
// sent to the master strictly before the FLUSHED barrier step so that
// per-stream ordering guarantees their arrival before the barrier release.
func (c *workerJobCoordinator) flushToMaster(instance engine.Instance) error {
	batches := make(map[int32]*proto.RelayBatch)
	err := instance.FlushPhase(func(part int, dst, payload []byte) error {
		batch := batches[int32(part)]
		if batch == nil {
			batch = &proto.RelayBatch{Partition: int32(part)}
			batches[int32(part)] = batch
		}
		batch.Messages = append(batch.Messages, &proto.RelayedMessage{
			Destination: dst,
			Payload:     payload,
		})
		return nil
	})
	if err != nil {
		return err
	}

	for _, batch := range batches {
		if err := c.cfg.masterStream.SendRelayBatch(c.jobCtx, batch); err != nil {
			return errJobAborted
		}
	}
	return nil
}

// applyRelayInbox folds the relay batches received during the superstep into
// the local partitions so their messages become visible at the next
// superstep.
func (c *workerJobCoordinator) applyRelayInbox(instance engine.Instance) error {
	c.mu.Lock()
	inbox := c.relayInbox
	c.relayInbox = nil
	c.mu.Unlock()

	for _, batch := range inbox {
		if !instance.OwnsPartition(int(batch.Partition)) {
			return xerrors.Errorf("received relay batch for partition %d which is not owned locally", batch.Partition)
		}
		for _, msg := range batch.Messages {
			if err := instance.DeliverRemote(msg.Destination, msg.Payload); err != nil {
				return err
			}
		}
	}
	return nil
}

// handleMasterPayloads implements the receive loop for messages sent by the
// master node. The stream delivers payloads in wire order, so every relay
// batch the master forwarded for a superstep lands in the inbox before the
// barrier release that follows it.
func (c *workerJobCoordinator) handleMasterPayloads() {
	defer c.cancelJobCtx()
	for {
		select {
		case batch := <-c.cfg.masterStream.RelayBatches():
			c.mu.Lock()
			c.relayInbox = append(c.relayInbox, batch)
			c.mu.Unlock()
		case stepMsg := <-c.cfg.masterStream.BarrierSteps():
			if err := c.barrier.Notify(stepMsg); err != nil {
				return
			}
		case <-c.jobCtx.Done():
			return
		}
	}
}
