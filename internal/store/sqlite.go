package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps runs and jobs in a single local database file. It is
// meant for single-node installs where no Postgres is available.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serialises writers.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS topsis_runs (
	run_id       TEXT PRIMARY KEY,
	source       TEXT NOT NULL,
	input_name   TEXT NOT NULL DEFAULT '',
	criteria     TEXT,
	weights      TEXT,
	impacts      TEXT,
	status       TEXT NOT NULL,
	error_kind   TEXT NOT NULL DEFAULT '',
	error        TEXT NOT NULL DEFAULT '',
	alternatives INTEGER NOT NULL DEFAULT 0,
	labels       TEXT,
	scores       TEXT,
	ranks        TEXT,
	recipient    TEXT NOT NULL DEFAULT '',
	delivered    INTEGER NOT NULL DEFAULT 0,
	created_at   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS topsis_runs_created_idx ON topsis_runs (created_at DESC);

CREATE TABLE IF NOT EXISTS mashup_jobs (
	job_id           TEXT PRIMARY KEY,
	singer           TEXT NOT NULL,
	videos           INTEGER NOT NULL,
	duration_seconds INTEGER NOT NULL,
	email            TEXT NOT NULL,
	status           TEXT NOT NULL,
	error            TEXT NOT NULL DEFAULT '',
	clips            INTEGER NOT NULL DEFAULT 0,
	size_bytes       INTEGER NOT NULL DEFAULT 0,
	output_ms        INTEGER NOT NULL DEFAULT 0,
	artifact_key     TEXT NOT NULL DEFAULT '',
	artifact_url     TEXT NOT NULL DEFAULT '',
	artifact_path    TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMP NOT NULL,
	started_at       TIMESTAMP,
	completed_at     TIMESTAMP,
	updated_at       TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS mashup_jobs_status_idx ON mashup_jobs (status, created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run *Run) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	run.CreatedAt = time.Now().UTC()
	enc := encodeRun(run)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO topsis_runs (run_id, source, input_name, criteria, weights, impacts,
			status, error_kind, error, alternatives, labels, scores, ranks,
			recipient, delivered, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.Source, run.InputName,
		string(enc.criteria), string(enc.weights), string(enc.impacts),
		string(run.Status), run.ErrorKind, run.Error, run.Alternatives,
		string(enc.labels), string(enc.scores), string(enc.ranks),
		run.Recipient, run.Delivered, run.CreatedAt,
	)
	return err
}

func (s *SQLiteStore) GetRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM topsis_runs WHERE run_id = ?`, id.String())
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM topsis_runs WHERE 1=1`
	args := []interface{}{}

	if filter.Status != nil {
		query += " AND status = ?"
		args = append(args, string(*filter.Status))
	}
	if filter.Source != "" {
		query += " AND source = ?"
		args = append(args, filter.Source)
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limitOrDefault(filter.Limit), filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
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

func (s *SQLiteStore) CreateMashupJob(ctx context.Context, job *MashupJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = JobPending
	}
	now := time.Now().UTC()
	job.CreatedAt, job.UpdatedAt = now, now
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mashup_jobs (job_id, singer, videos, duration_seconds, email, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID.String(), job.Singer, job.Videos, job.DurationSeconds, job.Email, string(job.Status), now, now,
	)
	return err
}

func (s *SQLiteStore) GetMashupJob(ctx context.Context, id uuid.UUID) (*MashupJob, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM mashup_jobs WHERE job_id = ?`, id.String())
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return j, err
}

func (s *SQLiteStore) UpdateMashupJob(ctx context.Context, job *MashupJob) error {
	job.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE mashup_jobs SET status = ?, error = ?, clips = ?, size_bytes = ?,
			output_ms = ?, artifact_key = ?, artifact_url = ?, artifact_path = ?,
			started_at = ?, completed_at = ?, updated_at = ?
		WHERE job_id = ?`,
		string(job.Status), job.Error, job.Clips, job.SizeBytes,
		job.OutputMs, job.ArtifactKey, job.ArtifactURL, job.ArtifactPath,
		job.StartedAt, job.CompletedAt, job.UpdatedAt, job.ID.String(),
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("mashup job %s not found", job.ID)
	}
	return nil
}

func (s *SQLiteStore) GetPendingMashupJobs(ctx context.Context) ([]*MashupJob, error) {
	return s.queryJobs(ctx, `SELECT `+jobColumns+` FROM mashup_jobs
		WHERE status = 'pending' ORDER BY created_at ASC`)
}

func (s *SQLiteStore) GetActiveMashupJobs(ctx context.Context) ([]*MashupJob, error) {
	return s.queryJobs(ctx, `SELECT `+jobColumns+` FROM mashup_jobs
		WHERE status = 'running' ORDER BY created_at ASC`)
}

func (s *SQLiteStore) queryJobs(ctx context.Context, query string, args ...interface{}) ([]*MashupJob, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
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

func (s *SQLiteStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	err := s.db.QueryRowContext(ctx, `
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
