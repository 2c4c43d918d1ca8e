package cluster

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/dravaio/drava/checkpoint"
	"github.com/dravaio/drava/cluster/job"
	"github.com/dravaio/drava/cluster/proto"
	"github.com/dravaio/drava/engine"
	"github.com/dravaio/drava/partition"
	"github.com/dravaio/drava/wire"
	"github.com/golang/protobuf/ptypes"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// masterJobCoordinatorConfig encapsulates the configuration options for the
// master job coordinator.
type masterJobCoordinatorConfig struct {
	jobDetails job.Details
	workers    []*remoteWorkerStream

	jobRunner          job.Runner
	checkpointStore    checkpoint.Store
	checkpointInterval int
	clk                clock.Clock
	barrierTimeout     time.Duration
	logger             *logrus.Entry
}

// masterJobCoordinator is used by the master node to coordinate the
// individual worker instances so the supersteps of a job can be executed in
// lock-step.
type masterJobCoordinator struct {
	jobCtx       context.Context
	cancelJobCtx func()

	barrier    *masterStepBarrier
	assignment partition.Assignment

	cfg masterJobCoordinatorConfig
}

// newMasterJobCoordinator creates a new coordinator instance with the
// specified worker list.
func newMasterJobCoordinator(ctx context.Context, cfg masterJobCoordinatorConfig) (*masterJobCoordinator, error) {
	assignment, err := partition.Assign(cfg.jobDetails.AssignmentVersion, cfg.jobDetails.NumPartitions, len(cfg.workers))
	if err != nil {
		return nil, err
	}

	jobCtx, cancelJobCtx := context.WithCancel(ctx)
	return &masterJobCoordinator{
		jobCtx:       jobCtx,
		cancelJobCtx: cancelJobCtx,
		barrier:      newMasterStepBarrier(jobCtx, len(cfg.workers), cfg.clk, cfg.barrierTimeout),
		assignment:   assignment,
		cfg:          cfg,
	}, nil
}

// RunJob orchestrates the execution of a job attempt with the set of
// reserved workers.
func (c *masterJobCoordinator) RunJob() error {
	instance, err := c.cfg.jobRunner.StartJob(c.cfg.jobDetails)
	if err != nil {
		c.cancelJobCtx()
		return xerrors.Errorf("unable to start job on master: %w", err)
	}
	defer func() { _ = instance.Close() }()

	if c.cfg.jobDetails.Resuming() {
		if err := c.restoreAggregators(instance); err != nil {
			c.cfg.jobRunner.AbortJob(c.cfg.jobDetails)
			c.cancelJobCtx()
			return err
		}
	}

	for assignedWorker, w := range c.cfg.workers {
		w.SetDisconnectCallback(c.handleWorkerDisconnect)
		if err := c.publishJobDetails(w, assignedWorker); err != nil {
			c.cfg.jobRunner.AbortJob(c.cfg.jobDetails)
			c.cancelJobCtx()
			return err
		}
	}

	// Start a goroutine to process incoming messages from each worker.
	var wg sync.WaitGroup
	wg.Add(len(c.cfg.workers))
	for _, worker := range c.cfg.workers {
		go func(worker *remoteWorkerStream) {
			defer wg.Done()
			c.handleWorkerPayloads(worker)
		}(worker)
	}

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

// handleWorkerDisconnect is invoked when a remote worker stream disconnects.
func (c *masterJobCoordinator) handleWorkerDisconnect() {
	select {
	case <-c.jobCtx.Done(): // job already aborted
	default:
		c.cfg.logger.Error("lost connection to worker; aborting job attempt")
		c.cancelJobCtx()
	}
}

// publishJobDetails writes a JobDetails message carrying the worker's
// partition assignment to its stream.
func (c *masterJobCoordinator) publishJobDetails(w *remoteWorkerStream, assignedWorker int) error {
	ts, err := ptypes.TimestampProto(c.cfg.jobDetails.CreatedAt)
	if err != nil {
		return xerrors.Errorf("unable to encode job creation time: %w", err)
	}

	assignedPartitions := c.assignment.PartitionsFor(assignedWorker)
	assigned32 := make([]int32, len(assignedPartitions))
	for i, part := range assignedPartitions {
		assigned32[i] = int32(part)
	}

	return w.SendJobDetails(c.jobCtx, &proto.JobDetails{
		JobId:              c.cfg.jobDetails.JobID,
		CreatedAt:          ts,
		NumPartitions:      int32(c.cfg.jobDetails.NumPartitions),
		AssignedPartitions: assigned32,
		AssignmentVersion:  c.cfg.jobDetails.AssignmentVersion,
		RestartSuperstep:   int64(c.cfg.jobDetails.RestartSuperstep),
	})
}

// runJobToCompletion drives the superstep loop: it waits for every worker to
// finish its flush phase, merges the reported tallies and aggregator deltas
// and releases the barrier with a decision. Once the termination condition
// is met it walks the workers through the persist handshake.
func (c *masterJobCoordinator) runJobToCompletion(instance engine.Instance) error {
	superstep := 0
	if c.cfg.jobDetails.Resuming() {
		superstep = c.cfg.jobDetails.RestartSuperstep
	}

	// Hold every worker at the start line until the whole cohort has
	// loaded (or restored) its partitions.
	if _, err := c.barrier.WaitForWorkers(proto.Step_SUPERSTEP_START); err != nil {
		return err
	} else if err := c.barrier.NotifyWorkers(&proto.Step{Type: proto.Step_SUPERSTEP_START, Superstep: int64(superstep)}); err != nil {
		return err
	}

	for {
		steps, err := c.barrier.WaitForWorkers(proto.Step_FLUSHED)
		if err != nil {
			return err
		}

		stats := engine.SuperstepStats{Superstep: superstep}
		for _, step := range steps {
			stats.Merge(engine.SuperstepStats{
				Total:  step.TotalVertices,
				Halted: step.HaltedVertices,
				Sent:   step.SentMessages,
			})
			if err := instance.Aggregators().MergeDeltas(step.AggregatorValues); err != nil {
				return err
			}
		}

		decision := proto.Step_CONTINUE
		if stats.Done() {
			decision = proto.Step_TERMINATE
		} else if c.checkpointDue(superstep + 1) {
			decision = proto.Step_CHECKPOINT
		}

		globalValues, err := instance.Aggregators().SerializeValues(false)
		if err != nil {
			return err
		}
		c.cfg.logger.WithFields(logrus.Fields{
			"superstep": superstep,
			"total":     stats.Total,
			"halted":    stats.Halted,
			"sent":      stats.Sent,
			"decision":  decision.String(),
		}).Debug("completed superstep barrier")

		if err := c.barrier.NotifyWorkers(&proto.Step{
			Type:             proto.Step_FLUSHED,
			Superstep:        int64(superstep),
			Decision:         decision,
			AggregatorValues: globalValues,
		}); err != nil {
			return err
		}
		if decision == proto.Step_TERMINATE {
			break
		}

		superstep++
		if decision == proto.Step_CHECKPOINT {
			if _, err := c.barrier.WaitForWorkers(proto.Step_CHECKPOINTED); err != nil {
				return err
			}
			if err := c.cfg.checkpointStore.Commit(c.jobCtx, c.cfg.jobDetails.JobID, superstep); err != nil {
				return xerrors.Errorf("unable to commit checkpoint: %w", err)
			}
			if err := c.barrier.NotifyWorkers(&proto.Step{Type: proto.Step_CHECKPOINTED, Superstep: int64(superstep)}); err != nil {
				return err
			}
			c.cfg.logger.WithField("superstep", superstep).Info("committed checkpoint")
		}
	}

	if _, err := c.barrier.WaitForWorkers(proto.Step_EXECUTED_GRAPH); err != nil {
		return err
	} else if err := c.barrier.NotifyWorkers(&proto.Step{Type: proto.Step_EXECUTED_GRAPH}); err != nil {
		return err
	} else if err := c.cfg.jobRunner.CompleteJob(c.cfg.jobDetails, instance); err != nil {
		return err
	} else if _, err := c.barrier.WaitForWorkers(proto.Step_PERSISTED_RESULTS); err != nil {
		return err
	} else if err := c.barrier.NotifyWorkers(&proto.Step{Type: proto.Step_PERSISTED_RESULTS}); err != nil {
		return err
	} else if _, err := c.barrier.WaitForWorkers(proto.Step_COMPLETED_JOB); err != nil {
		return err
	}

	return nil
}

func (c *masterJobCoordinator) checkpointDue(superstep int) bool {
	return c.cfg.checkpointStore != nil && c.cfg.checkpointInterval > 0 && superstep%c.cfg.checkpointInterval == 0
}

// restoreAggregators rehydrates the master-side aggregator registry from the
// checkpoint the attempt resumes from.
func (c *masterJobCoordinator) restoreAggregators(instance engine.Instance) error {
	state, err := c.cfg.checkpointStore.ReadAggregators(c.jobCtx, c.cfg.jobDetails.JobID, c.cfg.jobDetails.RestartSuperstep)
	if err != nil {
		return xerrors.Errorf("unable to read aggregator checkpoint: %w", err)
	}
	if err := instance.Aggregators().RestoreSnapshot(wire.NewReader(bytes.NewReader(state))); err != nil {
		return xerrors.Errorf("unable to restore aggregator checkpoint: %w", err)
	}
	return nil
}

// handleWorkerPayloads implements the receive loop for messages sent by a
// remote worker. Since the stream hands out payloads in wire order, every
// relay batch a worker flushed is forwarded to the worker owning its
// destination partition before the sender's FLUSHED step enters the barrier,
// which preserves the batches-before-release ordering on every stream.
func (c *masterJobCoordinator) handleWorkerPayloads(worker *remoteWorkerStream) {
	for {
		select {
		case batch := <-worker.RelayBatches():
			c.relayBatchToWorker(batch)
		case stepMsg := <-worker.BarrierSteps():
			// Enter the barrier and wait for master's notification.
			updatedStep, err := c.barrier.Wait(stepMsg)
			if err != nil {
				c.cancelJobCtx()
				return
			}

			// Send updated step back to the worker.
			_ = worker.SendStep(c.jobCtx, updatedStep)
		case <-c.jobCtx.Done():
			return
		}
	}
}

// relayBatchToWorker forwards a batch of vertex messages to the worker that
// owns the destination partition.
func (c *masterJobCoordinator) relayBatchToWorker(batch *proto.RelayBatch) {
	workerIndex, err := c.assignment.WorkerFor(int(batch.Partition))
	if err != nil {
		c.cfg.logger.WithFields(logrus.Fields{
			"err":       err,
			"partition": batch.Partition,
		}).Error("unable to identify target worker for relay batch")
		c.cancelJobCtx()
		return
	}

	_ = c.cfg.workers[workerIndex].SendRelayBatch(c.jobCtx, batch)
}
