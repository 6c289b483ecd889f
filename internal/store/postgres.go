package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS topsis_runs (
	run_id       UUID PRIMARY KEY,
	source       TEXT NOT NULL,
	input_name   TEXT NOT NULL DEFAULT '',
	criteria     JSONB,
	weights      JSONB,
	impacts      JSONB,
	status       TEXT NOT NULL,
	error_kind   TEXT NOT NULL DEFAULT '',
	error        TEXT NOT NULL DEFAULT '',
	alternatives INTEGER NOT NULL DEFAULT 0,
	labels       JSONB,
	scores       JSONB,
	ranks        JSONB,
	recipient    TEXT NOT NULL DEFAULT '',
	delivered    BOOLEAN NOT NULL DEFAULT FALSE,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS topsis_runs_created_idx ON topsis_runs (created_at DESC);

CREATE TABLE IF NOT EXISTS mashup_jobs (
	job_id           UUID PRIMARY KEY,
	singer           TEXT NOT NULL,
	videos           INTEGER NOT NULL,
	duration_seconds INTEGER NOT NULL,
	email            TEXT NOT NULL,
	status           TEXT NOT NULL,
	error            TEXT NOT NULL DEFAULT '',
	clips            INTEGER NOT NULL DEFAULT 0,
	size_bytes       BIGINT NOT NULL DEFAULT 0,
	output_ms        BIGINT NOT NULL DEFAULT 0,
	artifact_key     TEXT NOT NULL DEFAULT '',
	artifact_url     TEXT NOT NULL DEFAULT '',
	artifact_path    TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	started_at       TIMESTAMPTZ,
	completed_at     TIMESTAMPTZ,
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS mashup_jobs_status_idx ON mashup_jobs (status, created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const runColumns = `run_id, source, input_name, criteria, weights, impacts,
	status, error_kind, error, alternatives, labels, scores, ranks,
	recipient, delivered, created_at`

func (s *PostgresStore) CreateRun(ctx context.Context, run *Run) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	enc := encodeRun(run)
	return s.pool.QueryRow(ctx, `
		INSERT INTO topsis_runs (run_id, source, input_name, criteria, weights, impacts,
			status, error_kind, error, alternatives, labels, scores, ranks,
			recipient, delivered)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at`,
		run.ID, run.Source, run.InputName, enc.criteria, enc.weights, enc.impacts,
		run.Status, run.ErrorKind, run.Error, run.Alternatives, enc.labels, enc.scores, enc.ranks,
		run.Recipient, run.Delivered,
	).Scan(&run.CreatedAt)
}

func (s *PostgresStore) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+runColumns+` FROM topsis_runs WHERE run_id = $1`, id)
	r, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM topsis_runs WHERE 1=1`
	args := []interface{}{}
	n := 0

	if filter.Status != nil {
		n++
		query += fmt.Sprintf(" AND status = $%d", n)
		args = append(args, string(*filter.Status))
	}
	if filter.Source != "" {
		n++
		query += fmt.Sprintf(" AND source = $%d", n)
		args = append(args, filter.Source)
	}
	query += " ORDER BY created_at DESC"
	n++
	query += fmt.Sprintf(" LIMIT $%d", n)
	args = append(args, limitOrDefault(filter.Limit))
	if filter.Offset > 0 {
		n++
		query += fmt.Sprintf(" OFFSET $%d", n)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

const jobColumns = `job_id, singer, videos, duration_seconds, email, status, error,
	clips, size_bytes, output_ms, artifact_key, artifact_url, artifact_path,
	created_at, started_at, completed_at, updated_at`

func (s *PostgresStore) CreateMashupJob(ctx context.Context, job *MashupJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = JobPending
	}
	return s.pool.QueryRow(ctx, `
		INSERT INTO mashup_jobs (job_id, singer, videos, duration_seconds, email, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		job.ID, job.Singer, job.Videos, job.DurationSeconds, job.Email, job.Status,
	).Scan(&job.CreatedAt, &job.UpdatedAt)
}

func (s *PostgresStore) GetMashupJob(ctx context.Context, id uuid.UUID) (*MashupJob, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM mashup_jobs WHERE job_id = $1`, id)
	j, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return j, err
}

func (s *PostgresStore) UpdateMashupJob(ctx context.Context, job *MashupJob) error {
	return s.pool.QueryRow(ctx, `
		UPDATE mashup_jobs SET status = $2, error = $3, clips = $4, size_bytes = $5,
			output_ms = $6, artifact_key = $7, artifact_url = $8, artifact_path = $9,
			started_at = $10, completed_at = $11, updated_at = now()
		WHERE job_id = $1
		RETURNING updated_at`,
		job.ID, job.Status, job.Error, job.Clips, job.SizeBytes,
		job.OutputMs, job.ArtifactKey, job.ArtifactURL, job.ArtifactPath,
		job.StartedAt, job.CompletedAt,
	).Scan(&job.UpdatedAt)
}

func (s *PostgresStore) GetPendingMashupJobs(ctx context.Context) ([]*MashupJob, error) {
	return s.queryJobs(ctx, `SELECT `+jobColumns+` FROM mashup_jobs
		WHERE status = 'pending' ORDER BY created_at ASC`)
}

func (s *PostgresStore) GetActiveMashupJobs(ctx context.Context) ([]*MashupJob, error) {
	return s.queryJobs(ctx, `SELECT `+jobColumns+` FROM mashup_jobs
		WHERE status = 'running' ORDER BY created_at ASC`)
}

func (s *PostgresStore) queryJobs(ctx context.Context, query string, args ...interface{}) ([]*MashupJob, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*MashupJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (s *PostgresStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM topsis_runs),
			(SELECT COUNT(*) FROM topsis_runs WHERE status = 'failed'),
			(SELECT COUNT(*) FROM mashup_jobs WHERE status = 'pending'),
			(SELECT COUNT(*) FROM mashup_jobs WHERE status = 'running'),
			(SELECT COUNT(*) FROM mashup_jobs WHERE status = 'completed'),
			(SELECT COUNT(*) FROM mashup_jobs WHERE status = 'failed')`,
	).Scan(&stats.TotalRuns, &stats.FailedRuns, &stats.PendingJobs,
		&stats.RunningJobs, &stats.CompletedJobs, &stats.FailedJobs)
	return stats, err
}

// scanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

type encodedRun struct {
	criteria, weights, impacts, labels, scores, ranks []byte
}

func encodeRun(r *Run) encodedRun {
	var e encodedRun
	e.criteria, _ = json.Marshal(r.Criteria)
	e.weights, _ = json.Marshal(r.Weights)
	e.impacts, _ = json.Marshal(r.Impacts)
	e.labels, _ = json.Marshal(r.Labels)
	e.scores, _ = json.Marshal(r.Scores)
	e.ranks, _ = json.Marshal(r.Ranks)
	return e
}

func scanRun(row scanner) (*Run, error) {
	r := &Run{}
	var e encodedRun
	err := row.Scan(
		&r.ID, &r.Source, &r.InputName, &e.criteria, &e.weights, &e.impacts,
		&r.Status, &r.ErrorKind, &r.Error, &r.Alternatives, &e.labels, &e.scores, &e.ranks,
		&r.Recipient, &r.Delivered, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	decode(e.criteria, &r.Criteria)
	decode(e.weights, &r.Weights)
	decode(e.impacts, &r.Impacts)
	decode(e.labels, &r.Labels)
	decode(e.scores, &r.Scores)
	decode(e.ranks, &r.Ranks)
	return r, nil
}

func scanJob(row scanner) (*MashupJob, error) {
	j := &MashupJob{}
	err := row.Scan(
		&j.ID, &j.Singer, &j.Videos, &j.DurationSeconds, &j.Email, &j.Status, &j.Error,
		&j.Clips, &j.SizeBytes, &j.OutputMs, &j.ArtifactKey, &j.ArtifactURL, &j.ArtifactPath,
		&j.CreatedAt, &j.StartedAt, &j.CompletedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return j, nil
}

func decode(data []byte, v interface{}) {
	if len(data) == 0 {
		return
	}
	_ = json.Unmarshal(data, v)
}
