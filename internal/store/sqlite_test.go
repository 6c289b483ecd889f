package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Topsis/internal/config"
)

func setupSQLite(t *testing.T) Store {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "topsis.db")})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLite_RunRoundTrip(t *testing.T) {
	s := setupSQLite(t)
	ctx := context.Background()

	run := &Run{
		Source:       "web",
		InputName:    "phones.csv",
		Criteria:     []string{"Price", "Storage"},
		Weights:      []float64{1, 2},
		Impacts:      []string{"-", "+"},
		Status:       RunCompleted,
		Alternatives: 2,
		Labels:       []string{"M1", "M2"},
		Scores:       []float64{0.25, 0.75},
		Ranks:        []int{2, 1},
		Recipient:    "someone@example.com",
		Delivered:    true,
	}
	require.NoError(t, s.CreateRun(ctx, run))
	require.NotEqual(t, uuid.Nil, run.ID)

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, run.Weights, got.Weights)
	assert.Equal(t, run.Ranks, got.Ranks)
	assert.Equal(t, run.Labels, got.Labels)
	assert.Equal(t, RunCompleted, got.Status)
	assert.True(t, got.Delivered)
	assert.WithinDuration(t, run.CreatedAt, got.CreatedAt, time.Second)
}

func TestSQLite_GetRunMissing(t *testing.T) {
	s := setupSQLite(t)
	got, err := s.GetRun(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_ListRunsFilter(t *testing.T) {
	s := setupSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.CreateRun(ctx, &Run{Source: "web", Status: RunCompleted}))
	require.NoError(t, s.CreateRun(ctx, &Run{Source: "web", Status: RunFailed, ErrorKind: "shape", Error: "too few columns"}))
	require.NoError(t, s.CreateRun(ctx, &Run{Source: "script", Status: RunCompleted}))

	failed := RunFailed
	runs, err := s.ListRuns(ctx, RunFilter{Status: &failed})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "shape", runs[0].ErrorKind)

	runs, err = s.ListRuns(ctx, RunFilter{Source: "web"})
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	runs, err = s.ListRuns(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestSQLite_MashupJobLifecycle(t *testing.T) {
	s := setupSQLite(t)
	ctx := context.Background()

	job := &MashupJob{Singer: "Arijit Singh", Videos: 12, DurationSeconds: 25, Email: "fan@example.com"}
	require.NoError(t, s.CreateMashupJob(ctx, job))
	assert.Equal(t, JobPending, job.Status)

	pending, err := s.GetPendingMashupJobs(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, job.ID, pending[0].ID)
	assert.Nil(t, pending[0].StartedAt)

	started := time.Now().UTC()
	job.Status = JobRunning
	job.StartedAt = &started
	require.NoError(t, s.UpdateMashupJob(ctx, job))

	active, err := s.GetActiveMashupJobs(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.NotNil(t, active[0].StartedAt)

	done := time.Now().UTC()
	job.Status = JobCompleted
	job.CompletedAt = &done
	job.Clips = 12
	job.SizeBytes = 4 << 20
	job.ArtifactKey = "mashups/abc.zip"
	require.NoError(t, s.UpdateMashupJob(ctx, job))

	got, err := s.GetMashupJob(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Terminal())
	assert.Equal(t, 12, got.Clips)
	assert.Equal(t, int64(4<<20), got.SizeBytes)
	assert.Equal(t, "mashups/abc.zip", got.ArtifactKey)

	stats, err := s.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CompletedJobs)
	assert.Equal(t, 0, stats.PendingJobs)
}

func TestSQLite_UpdateMissingJob(t *testing.T) {
	s := setupSQLite(t)
	err := s.UpdateMashupJob(context.Background(), &MashupJob{ID: uuid.New(), Status: JobFailed})
	assert.Error(t, err)
}
