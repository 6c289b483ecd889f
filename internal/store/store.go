package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run records one scoring request handled by the service.
type Run struct {
	ID        uuid.UUID `json:"run_id"`
	Source    string    `json:"source"`
	InputName string    `json:"input_name,omitempty"`

	// Inputs
	Criteria []string  `json:"criteria,omitempty"`
	Weights  []float64 `json:"weights,omitempty"`
	Impacts  []string  `json:"impacts,omitempty"`

	// Outcome
	Status       RunStatus `json:"status"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	Error        string    `json:"error,omitempty"`
	Alternatives int       `json:"alternatives"`
	Labels       []string  `json:"labels,omitempty"`
	Scores       []float64 `json:"scores,omitempty"`
	Ranks        []int     `json:"ranks,omitempty"`

	// Delivery
	Recipient string `json:"recipient,omitempty"`
	Delivered bool   `json:"delivered"`

	CreatedAt time.Time `json:"created_at"`
}

type RunFilter struct {
	Status *RunStatus
	Source string
	Limit  int
	Offset int
}

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// MashupJob is a queued request to build and deliver an audio mashup.
type MashupJob struct {
	ID              uuid.UUID `json:"job_id"`
	Singer          string    `json:"singer"`
	Videos          int       `json:"videos"`
	DurationSeconds int       `json:"duration_seconds"`
	Email           string    `json:"email"`

	Status JobStatus `json:"status"`
	Error  string    `json:"error,omitempty"`

	// Output
	Clips        int    `json:"clips,omitempty"`
	SizeBytes    int64  `json:"size_bytes,omitempty"`
	OutputMs     int64  `json:"output_ms,omitempty"`
	ArtifactKey  string `json:"artifact_key,omitempty"`
	ArtifactURL  string `json:"artifact_url,omitempty"`
	ArtifactPath string `json:"-"`

	// Timestamps
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Terminal reports whether the job will not change state again.
func (j *MashupJob) Terminal() bool {
	return j.Status == JobCompleted || j.Status == JobFailed
}

type Stats struct {
	TotalRuns     int `json:"total_runs"`
	FailedRuns    int `json:"failed_runs"`
	PendingJobs   int `json:"pending_jobs"`
	RunningJobs   int `json:"running_jobs"`
	CompletedJobs int `json:"completed_jobs"`
	FailedJobs    int `json:"failed_jobs"`
}

type Store interface {
	// Runs
	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id uuid.UUID) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error)

	// Mashup jobs
	CreateMashupJob(ctx context.Context, job *MashupJob) error
	GetMashupJob(ctx context.Context, id uuid.UUID) (*MashupJob, error)
	UpdateMashupJob(ctx context.Context, job *MashupJob) error
	GetPendingMashupJobs(ctx context.Context) ([]*MashupJob, error)
	GetActiveMashupJobs(ctx context.Context) ([]*MashupJob, error)

	GetStats(ctx context.Context) (*Stats, error)
	Migrate(ctx context.Context) error
	Close() error
}

func limitOrDefault(n int) int {
	if n <= 0 || n > 500 {
		return 100
	}
	return n
}
