package cluster

import (
	"context"
	"net"
	"time"

	"github.com/dravaio/drava/checkpoint"
	"github.com/dravaio/drava/cluster/job"
	"github.com/dravaio/drava/cluster/proto"
	"github.com/google/uuid"
	otgrpc "github.com/grpc-ecosystem/grpc-opentracing/go/otgrpc"
	multierror "github.com/hashicorp/go-multierror"
	opentracing "github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/peer"
)

// ErrUnableToReserveWorkers is returned by the master to indicate that the
// required number of workers for running a job is not available.
var ErrUnableToReserveWorkers = xerrors.New("unable to reserve required number of workers")

// Master orchestrates the execution of a distributed BSP job across multiple
// workers and drives the recovery flow when a worker is lost mid-job.
type Master struct {
	cfg         MasterConfig
	workerPool  *workerPool
	srvListener net.Listener
}

// NewMaster creates a new Master instance with the specified configuration.
func NewMaster(cfg MasterConfig) (*Master, error) {
	if err := cfg.Validate(); err != nil {
		return nil, xerrors.Errorf("master config validation failed: %w", err)
	}

	return &Master{
		cfg:        cfg,
		workerPool: newWorkerPool(),
	}, nil
}

// Start listening on the configured address for incoming worker connections.
// Calls to Start are non-blocking. The caller must invoke the Close method
// to shutdown the server and clean up any reserved resources.
func (m *Master) Start() error {
	var err error
	if m.srvListener, err = net.Listen("tcp", m.cfg.ListenAddress); err != nil {
		return xerrors.Errorf("cannot start server: %w", err)
	}

	gSrv := grpc.NewServer(
		grpc.StreamInterceptor(otgrpc.OpenTracingStreamServerInterceptor(opentracing.GlobalTracer())),
	)
	proto.RegisterJobQueueServer(gSrv, &masterRPCHandler{
		workerPool: m.workerPool,
		logger:     m.cfg.Logger,
	})
	m.cfg.Logger.WithField("addr", m.srvListener.Addr().String()).Info("listening for worker connections")
	go func(l net.Listener) { _ = gSrv.Serve(l) }(m.srvListener)

	return nil
}

// Close disconnects any connected workers and shuts down the gRPC server.
func (m *Master) Close() error {
	var err error

	if m.srvListener != nil {
		err = m.srvListener.Close()
		m.srvListener = nil
	}

	if cErr := m.workerPool.Close(); cErr != nil {
		err = multierror.Append(err, cErr)
	}

	return err
}

// RunJob creates a new job and coordinates its execution until the job
// completes, the context expires or a non-recoverable error occurs. The
// minWorkers parameter defines the minimum number of connected workers
// required for the job. It may be set to 0 to reserve all workers currently
// available. Reservations never exceed the configured partition count so
// that every reserved worker receives at least one partition; surplus
// workers stay parked in the pool. If a worker is lost mid-attempt and a
// checkpoint store is configured, the master reassigns the lost worker's
// partitions over a fresh worker reservation and reruns the job from the
// latest committed checkpoint, up to the configured attempt budget.
func (m *Master) RunJob(ctx context.Context, minWorkers int, workerAcquireTimeout time.Duration) error {
	jobID := uuid.New().String()
	createdAt := time.Now().UTC().Truncate(time.Millisecond)
	logger := m.cfg.Logger.WithField("job_id", jobID)

	var (
		restartSuperstep = -1
		lastErr          error
	)
	for attempt := 1; attempt <= m.cfg.MaxAttempts; attempt++ {
		acquireCtx, cancelAcquire := ctx, func() {}
		if workerAcquireTimeout != 0 {
			acquireCtx, cancelAcquire = context.WithTimeout(ctx, workerAcquireTimeout)
		}
		workers, err := m.workerPool.Reserve(acquireCtx, minWorkers, m.cfg.NumPartitions)
		cancelAcquire()
		if err != nil {
			return ErrUnableToReserveWorkers
		}

		jobDetails := job.Details{
			JobID:             jobID,
			CreatedAt:         createdAt,
			NumPartitions:     m.cfg.NumPartitions,
			AssignmentVersion: int64(attempt),
			RestartSuperstep:  restartSuperstep,
		}
		logger.WithFields(logrus.Fields{
			"attempt":           attempt,
			"num_workers":       len(workers),
			"restart_superstep": restartSuperstep,
		}).Info("coordinating execution of job")

		coordinator, err := newMasterJobCoordinator(ctx, masterJobCoordinatorConfig{
			jobDetails:         jobDetails,
			workers:            workers,
			jobRunner:          m.cfg.JobRunner,
			checkpointStore:    m.cfg.Checkpoint,
			checkpointInterval: m.cfg.CheckpointInterval,
			clk:                m.cfg.Clock,
			barrierTimeout:     m.cfg.BarrierTimeout,
			logger:             logger,
		})
		if err != nil {
			err = xerrors.Errorf("unable to create job coordinator: %w", err)
			for _, w := range workers {
				w.Close(err)
			}
			return err
		}

		if err = coordinator.RunJob(); err == nil {
			logger.Info("job completed successfully")
			for _, w := range workers {
				w.Close(nil)
			}
			return nil
		}
		for _, w := range workers {
			w.Close(err)
		}
		lastErr = err

		if ctx.Err() != nil || !isRecoverable(err) {
			logger.WithField("err", err).Error("job execution failed")
			return err
		}

		restartSuperstep, err = m.rewindPoint(ctx, jobID)
		if err != nil {
			logger.WithField("err", err).Error("unable to locate rewind point for failed job")
			return multierror.Append(lastErr, err)
		}
		logger.WithFields(logrus.Fields{
			"err":               lastErr,
			"restart_superstep": restartSuperstep,
		}).Warn("job attempt failed; retrying from latest checkpoint")
	}

	logger.WithField("err", lastErr).Error("job execution failed; attempt budget exhausted")
	return xerrors.Errorf("job failed after %d attempts: %w", m.cfg.MaxAttempts, lastErr)
}

// rewindPoint returns the superstep of the latest committed checkpoint for
// the job or -1 if the job has not been checkpointed yet.
func (m *Master) rewindPoint(ctx context.Context, jobID string) (int, error) {
	if m.cfg.Checkpoint == nil {
		return -1, nil
	}
	latest, err := m.cfg.Checkpoint.Latest(ctx, jobID)
	if err != nil {
		if xerrors.Is(err, checkpoint.ErrNotFound) {
			return -1, nil
		}
		return -1, xerrors.Errorf("unable to query latest checkpoint: %w", err)
	}
	return latest, nil
}

// isRecoverable returns true for failures that a retry over a fresh worker
// reservation can heal.
func isRecoverable(err error) bool {
	return xerrors.Is(err, errJobAborted) || xerrors.Is(err, errBarrierTimeout)
}

// masterRPCHandler implements the gRPC server for the master node.
type masterRPCHandler struct {
	logger     *logrus.Entry
	workerPool *workerPool
}

// JobStream implements JobQueueServer.
func (h *masterRPCHandler) JobStream(stream proto.JobQueue_JobStreamServer) error {
	extraFields := make(logrus.Fields)
	if peerDetails, ok := peer.FromContext(stream.Context()); ok {
		extraFields["peer_addr"] = peerDetails.Addr.String()
	}

	h.logger.WithFields(extraFields).Info("worker connected")

	// Add worker to the pool and block until its output stream needs to be
	// closed either because the job has been completed or an error
	// occurred.
	workerStream := newRemoteWorkerStream(stream)
	h.workerPool.AddWorker(workerStream)
	return workerStream.HandleSendRecv()
}
