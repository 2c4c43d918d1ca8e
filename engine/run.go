package engine

import (
	"context"

	"github.com/dravaio/drava/checkpoint"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/xerrors"
)

// ErrMaxSupersteps is returned by Run when a job exceeds its superstep cap
// without terminating.
var ErrMaxSupersteps = xerrors.New("job reached the maximum number of supersteps")

// RunConfig bundles the parameters for executing a job to completion in a
// single process.
type RunConfig struct {
	// JobID identifies the job in the checkpoint store.
	JobID string

	// Store is an optional checkpoint store. When provided together with a
	// positive CheckpointInterval, the partitions are checkpointed every
	// CheckpointInterval supersteps.
	Store              checkpoint.Store
	CheckpointInterval int

	// Resume restores the latest committed checkpoint for JobID instead of
	// loading the input source.
	Resume bool

	// MaxSupersteps caps the number of supersteps a job may execute. Left
	// at zero, the job runs until the termination condition is met.
	MaxSupersteps int
}

// Run executes a job to completion in a single process: every partition is
// owned locally so no messages leave the engine. The loop mirrors the
// distributed execution order so that a job moved between the two modes
// observes identical semantics: compute, flush, checkpoint if due, advance.
// The job terminates once every vertex has voted to halt in the same
// superstep with no messages in flight.
func (e *Engine[ID, V, E, M]) Run(ctx context.Context, src Source[ID, V, E], sink Sink[ID, V], rcfg RunConfig) error {
	if rcfg.Resume {
		superstep, err := rcfg.Store.Latest(ctx, rcfg.JobID)
		if err != nil {
			return xerrors.Errorf("resuming job %q: %w", rcfg.JobID, err)
		}
		if err := e.RestoreCheckpoint(ctx, rcfg.Store, rcfg.JobID, superstep); err != nil {
			return xerrors.Errorf("resuming job %q: %w", rcfg.JobID, err)
		}
	} else if err := e.Load(src); err != nil {
		return err
	}

	logger := e.cfg.Logger.WithField("job_id", rcfg.JobID)
	for {
		stats, err := e.ComputePhase(ctx)
		if err != nil {
			return err
		}
		if err := e.FlushPhase(nil); err != nil {
			return err
		}
		observeSuperstep(stats)
		logger.WithFields(map[string]interface{}{
			"superstep": stats.Superstep,
			"active":    stats.Active,
			"halted":    stats.Halted,
			"sent":      stats.Sent,
		}).Debug("completed superstep")

		if stats.Done() {
			break
		}
		if rcfg.MaxSupersteps > 0 && stats.Superstep+1 >= rcfg.MaxSupersteps {
			return xerrors.Errorf("job %q halted at superstep %d: %w", rcfg.JobID, stats.Superstep, ErrMaxSupersteps)
		}

		e.AdvanceSuperstep()
		if checkpointDue(rcfg, e.Superstep()) {
			timer := prometheus.NewTimer(checkpointDuration)
			if err := e.WriteCheckpoint(ctx, rcfg.Store, rcfg.JobID); err != nil {
				return err
			}
			if err := rcfg.Store.Commit(ctx, rcfg.JobID, e.Superstep()); err != nil {
				return err
			}
			timer.ObserveDuration()
			logger.WithField("superstep", e.Superstep()).Debug("committed checkpoint")
		}
	}

	return e.Output(sink)
}

func checkpointDue(rcfg RunConfig, superstep int) bool {
	return rcfg.Store != nil && rcfg.CheckpointInterval > 0 && superstep%rcfg.CheckpointInterval == 0
}
