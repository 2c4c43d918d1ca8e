package engine

import (
	"io/ioutil"

	"github.com/dravaio/drava/aggregator"
	"github.com/dravaio/drava/graph"
	"github.com/dravaio/drava/router"
	"github.com/dravaio/drava/wire"
	multierror "github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

// Config encapsulates the immutable configuration bundle for a job. It is
// constructed once at job start and passed by reference to every component;
// there is no process-wide mutable registry.
type Config[ID comparable, V, E, M any] struct {
	// Compute is the function invoked for each active vertex when
	// executing a superstep. A valid compute function is required.
	Compute ComputeFunc[ID, V, E, M]

	// Codecs for the configured vertex ID, vertex value, edge value and
	// message types. All four are required; jobs whose edge or message
	// slots carry no payload can use wire.NoneCodec.
	IDCodec      wire.Codec[ID]
	ValueCodec   wire.Codec[V]
	EdgeCodec    wire.Codec[E]
	MessageCodec wire.Codec[M]

	// DefaultValue is assigned to implicitly created vertices. The zero
	// value of V is used when left unset.
	DefaultValue V

	// EdgeStorage selects the backing structure for vertex edge
	// collections.
	EdgeStorage graph.EdgeStoragePolicy

	// Combiner reduces messages addressed to the same destination within
	// a superstep. Optional; must be associative and commutative.
	Combiner router.Combiner[M]

	// Aggregators is the set of named global reduction slots for the job.
	// Optional.
	Aggregators map[string]aggregator.Aggregator

	// NumPartitions is the total partition count for the job. It must be
	// identical on every worker as it determines the vertex hash mapping.
	// If not specified, a single partition will be used.
	NumPartitions int

	// OwnedPartitions lists the partition indexes owned by this engine
	// instance. A nil slice means the engine owns all partitions
	// (single-process mode); an empty non-nil slice means it owns none,
	// which is what a clustered worker must pass when the master assigned
	// it no partitions.
	OwnedPartitions []int

	// ComputeWorkers specifies the number of workers to use for invoking
	// the compute function when executing each superstep. If not
	// specified, a single worker will be used.
	ComputeWorkers int

	// Logger instance to use. If not specified, a null logger will be
	// used instead.
	Logger *logrus.Entry
}

// validate checks whether the configuration is valid and sets default values
// where required.
func (cfg *Config[ID, V, E, M]) validate() error {
	var err error
	if cfg.Compute == nil {
		err = multierror.Append(err, xerrors.New("compute function not specified"))
	}
	if cfg.IDCodec == nil {
		err = multierror.Append(err, xerrors.New("vertex ID codec not specified"))
	}
	if cfg.ValueCodec == nil {
		err = multierror.Append(err, xerrors.New("vertex value codec not specified"))
	}
	if cfg.EdgeCodec == nil {
		err = multierror.Append(err, xerrors.New("edge value codec not specified"))
	}
	if cfg.MessageCodec == nil {
		err = multierror.Append(err, xerrors.New("message codec not specified"))
	}
	if cfg.NumPartitions <= 0 {
		cfg.NumPartitions = 1
	}
	if cfg.ComputeWorkers <= 0 {
		cfg.ComputeWorkers = 1
	}
	// Only a nil slice defaults to full ownership: an empty non-nil slice
	// is a deliberate "own nothing" from a worker that was assigned no
	// partitions and must not silently claim partitions owned elsewhere.
	if cfg.OwnedPartitions == nil {
		cfg.OwnedPartitions = make([]int, cfg.NumPartitions)
		for i := range cfg.OwnedPartitions {
			cfg.OwnedPartitions[i] = i
		}
	}
	for _, part := range cfg.OwnedPartitions {
		if part < 0 || part >= cfg.NumPartitions {
			err = multierror.Append(err, xerrors.Errorf("owned partition index %d out of range", part))
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: ioutil.Discard})
	}
	return err
}
