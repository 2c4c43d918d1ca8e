// Package job defines the contract between the cluster coordination layer
// and the application code that owns the graph, its input and its output.
package job

import (
	"time"

	"github.com/dravaio/drava/engine"
)

// Details encapsulates the information about a job executed by a master or a
// worker node.
type Details struct {
	// JobID is the unique ID for this job.
	JobID string

	// CreatedAt is the creation time for this job.
	CreatedAt time.Time

	// NumPartitions is the total partition count for the job. It is
	// identical on every node for the lifetime of the job.
	NumPartitions int

	// AssignedPartitions lists the partitions owned by the receiving
	// worker under the current assignment. It is empty on the master.
	AssignedPartitions []int

	// AssignmentVersion increases monotonically every time the master
	// recomputes the partition assignment.
	AssignmentVersion int64

	// RestartSuperstep is the superstep of the checkpoint that must be
	// restored before joining the job, or -1 when the job starts from the
	// input source.
	RestartSuperstep int
}

// Resuming returns true if the job resumes from a checkpoint instead of
// loading its input.
func (d Details) Resuming() bool { return d.RestartSuperstep >= 0 }

// Runner is implemented by application types that can execute distributed
// graph jobs.
type Runner interface {
	// StartJob creates an engine instance configured for the job described
	// by the provided details and, unless the job is resuming from a
	// checkpoint, populates it from the input source. On the master the
	// returned instance owns no graph data; it only tracks aggregator
	// state.
	StartJob(details Details) (engine.Instance, error)

	// CompleteJob persists the locally computed vertex values after a
	// successful execution.
	CompleteJob(details Details, instance engine.Instance) error

	// AbortJob cleans up after an unsuccessful execution.
	AbortJob(details Details)
}
