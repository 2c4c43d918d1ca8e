package cluster

import (
	"io/ioutil"
	"time"

	"github.com/dravaio/drava/checkpoint"
	"github.com/dravaio/drava/cluster/job"
	multierror "github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

//go:generate mockgen -package mocks -destination mocks/mocks_job.go github.com/dravaio/drava/cluster/job Runner

// MasterConfig encapsulates the configuration options for a master node.
type MasterConfig struct {
	// The address where the master will listen for incoming gRPC
	// connections from workers.
	ListenAddress string

	// JobRunner creates the master-side engine instance for each job. The
	// master instance never owns graph data; it tracks aggregator state
	// and the persist hooks.
	JobRunner job.Runner

	// NumPartitions is the total partition count for jobs coordinated by
	// this master. Every worker must be configured with the same count.
	NumPartitions int

	// Checkpoint is the shared checkpoint store used to commit completed
	// checkpoints and locate the rewind point on recovery.
	Checkpoint checkpoint.Store

	// CheckpointInterval is the number of supersteps between checkpoints.
	// Left at zero, jobs run without checkpointing and any worker failure
	// is terminal.
	CheckpointInterval int

	// MaxAttempts bounds the number of execution attempts per job,
	// including recovery attempts after worker failures. If not specified,
	// a single attempt is made.
	MaxAttempts int

	// BarrierTimeout bounds the time the master waits for stragglers at
	// each barrier before declaring the attempt failed. Left at zero, the
	// master waits indefinitely.
	BarrierTimeout time.Duration

	// Clock used for barrier timeouts. If not specified, the wall clock
	// will be used.
	Clock clock.Clock

	// Logger instance to use. If not specified, a null logger will be used
	// instead.
	Logger *logrus.Entry
}

// Validate the config options.
func (cfg *MasterConfig) Validate() error {
	var err error
	if cfg.ListenAddress == "" {
		err = multierror.Append(err, xerrors.New("listen address not specified"))
	}
	if cfg.JobRunner == nil {
		err = multierror.Append(err, xerrors.New("job runner not specified"))
	}
	if cfg.NumPartitions <= 0 {
		err = multierror.Append(err, xerrors.New("number of partitions not specified"))
	}
	if cfg.CheckpointInterval > 0 && cfg.Checkpoint == nil {
		err = multierror.Append(err, xerrors.New("checkpoint interval specified without a checkpoint store"))
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: ioutil.Discard})
	}
	return err
}

// WorkerConfig encapsulates the configuration options for a worker node.
type WorkerConfig struct {
	// JobRunner creates and populates the worker-side engine instance for
	// each job announced by the master.
	JobRunner job.Runner

	// Checkpoint is the shared checkpoint store that partition state is
	// written to and restored from. It must point at the same store on
	// every node when checkpointing is enabled on the master.
	Checkpoint checkpoint.Store

	// Logger instance to use. If not specified, a null logger will be used
	// instead.
	Logger *logrus.Entry
}

// Validate the config options.
func (cfg *WorkerConfig) Validate() error {
	var err error
	if cfg.JobRunner == nil {
		err = multierror.Append(err, xerrors.New("job runner not specified"))
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: ioutil.Discard})
	}
	return err
}
