package checkpoint

import (
	"context"
	"database/sql"

	// Register the postgres driver with the database/sql package.
	_ "github.com/lib/pq"
	"golang.org/x/xerrors"
)

const aggregatorPartition = -1

var (
	createRecordsTableQuery = `
CREATE TABLE IF NOT EXISTS checkpoint_records (
	job_id TEXT NOT NULL,
	superstep BIGINT NOT NULL,
	partition INT NOT NULL,
	state BYTEA NOT NULL,
	PRIMARY KEY (job_id, superstep, partition)
)`
	createCommitsTableQuery = `
CREATE TABLE IF NOT EXISTS checkpoint_commits (
	job_id TEXT PRIMARY KEY,
	superstep BIGINT NOT NULL
)`

	upsertRecordQuery = `
INSERT INTO checkpoint_records (job_id, superstep, partition, state) VALUES ($1, $2, $3, $4)
ON CONFLICT (job_id, superstep, partition) DO UPDATE SET state=$4
`
	readRecordQuery = "SELECT state FROM checkpoint_records WHERE job_id=$1 AND superstep=$2 AND partition=$3"

	upsertCommitQuery = `
INSERT INTO checkpoint_commits (job_id, superstep) VALUES ($1, $2)
ON CONFLICT (job_id) DO UPDATE SET superstep=GREATEST(checkpoint_commits.superstep, $2)
`
	latestCommitQuery = "SELECT superstep FROM checkpoint_commits WHERE job_id=$1"
)

// PgStore implements Store on top of a shared Postgres or CockroachDB
// instance so that surviving workers can restore partitions that were
// checkpointed by a failed worker.
type PgStore struct {
	db *sql.DB
}

// NewPgStore connects to the database specified by dsn and ensures the
// checkpoint tables exist.
func NewPgStore(dsn string) (*PgStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, xerrors.Errorf("unable to open checkpoint database: %w", err)
	}
	for _, query := range []string{createRecordsTableQuery, createCommitsTableQuery} {
		if _, err := db.Exec(query); err != nil {
			_ = db.Close()
			return nil, xerrors.Errorf("unable to create checkpoint tables: %w", err)
		}
	}
	return &PgStore{db: db}, nil
}

// WritePartition implements Store.
func (s *PgStore) WritePartition(ctx context.Context, jobID string, superstep, part int, state []byte) error {
	if _, err := s.db.ExecContext(ctx, upsertRecordQuery, jobID, superstep, part, state); err != nil {
		return xerrors.Errorf("write partition checkpoint: %w", err)
	}
	return nil
}

// ReadPartition implements Store.
func (s *PgStore) ReadPartition(ctx context.Context, jobID string, superstep, part int) ([]byte, error) {
	return s.read(ctx, jobID, superstep, part)
}

// WriteAggregators implements Store.
func (s *PgStore) WriteAggregators(ctx context.Context, jobID string, superstep int, state []byte) error {
	if _, err := s.db.ExecContext(ctx, upsertRecordQuery, jobID, superstep, aggregatorPartition, state); err != nil {
		return xerrors.Errorf("write aggregator checkpoint: %w", err)
	}
	return nil
}

// ReadAggregators implements Store.
func (s *PgStore) ReadAggregators(ctx context.Context, jobID string, superstep int) ([]byte, error) {
	return s.read(ctx, jobID, superstep, aggregatorPartition)
}

// Commit implements Store.
func (s *PgStore) Commit(ctx context.Context, jobID string, superstep int) error {
	if _, err := s.db.ExecContext(ctx, upsertCommitQuery, jobID, superstep); err != nil {
		return xerrors.Errorf("commit checkpoint: %w", err)
	}
	return nil
}

// Latest implements Store.
func (s *PgStore) Latest(ctx context.Context, jobID string) (int, error) {
	var superstep int
	row := s.db.QueryRowContext(ctx, latestCommitQuery, jobID)
	if err := row.Scan(&superstep); err != nil {
		if err == sql.ErrNoRows {
			return 0, ErrNotFound
		}
		return 0, xerrors.Errorf("read latest checkpoint: %w", err)
	}
	return superstep, nil
}

// Close implements Store.
func (s *PgStore) Close() error { return s.db.Close() }

func (s *PgStore) read(ctx context.Context, jobID string, superstep, part int) ([]byte, error) {
	var state []byte
	row := s.db.QueryRowContext(ctx, readRecordQuery, jobID, superstep, part)
	if err := row.Scan(&state); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, xerrors.Errorf("read partition checkpoint: %w", err)
	}
	return state, nil
}
