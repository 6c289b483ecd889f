// Package jobs runs queued mashup jobs in the background and delivers the
// results.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Topsis/internal/artifacts"
	"github.com/MikeSquared-Agency/Topsis/internal/config"
	"github.com/MikeSquared-Agency/Topsis/internal/hermes"
	"github.com/MikeSquared-Agency/Topsis/internal/mailer"
	"github.com/MikeSquared-Agency/Topsis/internal/mashup"
	"github.com/MikeSquared-Agency/Topsis/internal/metrics"
	"github.com/MikeSquared-Agency/Topsis/internal/store"
)

// ErrLocked is returned by Start when another runner holds the work directory.
var ErrLocked = errors.New("mashup work directory is locked by another runner")

// Builder produces a mashup file. *mashup.Pipeline satisfies it.
type Builder interface {
	Run(ctx context.Context, req mashup.Request, out string, progress mashup.Progress) (*mashup.Output, error)
}

type Runner struct {
	store     store.Store
	hermes    hermes.Client
	builder   Builder
	artifacts artifacts.Store
	mailer    mailer.Sender
	cfg       *config.Config
	logger    *slog.Logger

	lock *flock.Flock
	wake chan struct{}

	currentMu sync.Mutex
	current   uuid.UUID

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func New(s store.Store, h hermes.Client, b Builder, a artifacts.Store, m mailer.Sender, cfg *config.Config, logger *slog.Logger) *Runner {
	return &Runner{
		store:     s,
		hermes:    h,
		builder:   b,
		artifacts: a,
		mailer:    m,
		cfg:       cfg,
		logger:    logger.With("component", "jobs"),
		lock:      flock.New(filepath.Join(cfg.Mashup.WorkDir, ".runner.lock")),
		wake:      make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// Start takes the work directory lock and launches the processing and
// timeout loops.
func (r *Runner) Start(ctx context.Context) error {
	if err := os.MkdirAll(r.cfg.Mashup.WorkDir, 0o755); err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	locked, err := r.lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock work dir: %w", err)
	}
	if !locked {
		return ErrLocked
	}

	if r.hermes != nil {
		if err := r.hermes.Subscribe(hermes.SubjectMashupQueuedAll, func(string, []byte) { r.Wake() }); err != nil {
			r.logger.Warn("queued subscription failed, relying on ticker", "error", err)
		}
	}

	r.wg.Add(2)
	go r.processLoop(ctx)
	go r.timeoutLoop(ctx)
	return nil
}

// Stop waits for the loops to exit and releases the lock. A job in progress
// is cancelled through the context passed to Start, not by Stop.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.wg.Wait()
	if err := r.lock.Unlock(); err != nil {
		r.logger.Warn("failed to release work dir lock", "error", err)
	}
}

// Wake asks the processing loop to look for pending jobs now.
func (r *Runner) Wake() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *Runner) processLoop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.cfg.TickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.processPending(ctx)
		case <-r.wake:
			r.processPending(ctx)
		}
	}
}

func (r *Runner) processPending(ctx context.Context) {
	jobs, err := r.store.GetPendingMashupJobs(ctx)
	if err != nil {
		r.logger.Error("failed to get pending mashup jobs", "error", err)
		return
	}
	if len(jobs) == 0 {
		return
	}

	r.logger.Info("processing pending mashup jobs", "count", len(jobs))
	for _, job := range jobs {
		select {
		case <-r.stopCh:
			return
		default:
		}
		if ctx.Err() != nil {
			return
		}
		r.processJob(ctx, job)
	}
}

func (r *Runner) setCurrent(id uuid.UUID) {
	r.currentMu.Lock()
	r.current = id
	r.currentMu.Unlock()
}

func (r *Runner) isCurrent(id uuid.UUID) bool {
	r.currentMu.Lock()
	defer r.currentMu.Unlock()
	return r.current == id
}

func (r *Runner) processJob(ctx context.Context, job *store.MashupJob) {
	logger := r.logger.With("job_id", job.ID, "singer", job.Singer)

	now := time.Now()
	job.Status = store.JobRunning
	job.StartedAt = &now
	if err := r.store.UpdateMashupJob(ctx, job); err != nil {
		logger.Error("failed to mark job running", "error", err)
		return
	}
	r.setCurrent(job.ID)
	defer r.setCurrent(uuid.Nil)
	r.publish(hermes.SubjectMashupStarted(job.ID.String()), hermes.MashupStartedEvent{JobID: job.ID.String()})
	logger.Info("mashup job started", "videos", job.Videos, "duration_seconds", job.DurationSeconds)

	jobCtx, cancel := context.WithTimeout(ctx, r.cfg.JobTimeout())
	defer cancel()

	outDir := filepath.Join(r.cfg.Mashup.WorkDir, "out", job.ID.String())
	defer os.RemoveAll(outDir)

	req := mashup.Request{Singer: job.Singer, Videos: job.Videos, Duration: job.DurationSeconds}
	res, err := r.builder.Run(jobCtx, req, filepath.Join(outDir, "mashup.mp3"), nil)
	metrics.MashupDuration.Observe(time.Since(now).Seconds())
	if err != nil {
		r.fail(ctx, job, err)
		return
	}
	metrics.MashupClips.Observe(float64(res.Clips))

	zipPath, err := mashup.Zip(res.Path)
	if err != nil {
		r.fail(ctx, job, err)
		return
	}
	loc, err := r.artifacts.Put(ctx, job.ID.String()+"/mashup.zip", zipPath)
	if err != nil {
		r.fail(ctx, job, err)
		return
	}

	job.Clips = res.Clips
	job.SizeBytes = res.Size
	job.OutputMs = res.Duration.Milliseconds()
	job.ArtifactKey = loc.Key
	job.ArtifactPath = loc.Path
	job.ArtifactURL = loc.URL
	if job.ArtifactURL == "" && r.cfg.Server.PublicURL != "" {
		job.ArtifactURL = r.cfg.Server.PublicURL + "/api/v1/mashups/" + job.ID.String() + "/download"
	}

	if job.Email != "" {
		if err := r.deliver(ctx, job, zipPath); err != nil {
			logger.Warn("mashup delivery failed", "error", err)
			job.Error = "delivery failed: " + err.Error()
		}
	}

	completed := time.Now()
	job.Status = store.JobCompleted
	job.CompletedAt = &completed
	if err := r.store.UpdateMashupJob(ctx, job); err != nil {
		logger.Error("failed to mark job completed", "error", err)
		return
	}
	metrics.MashupJobsTotal.WithLabelValues(string(store.JobCompleted)).Inc()
	r.publish(hermes.SubjectMashupCompleted(job.ID.String()), hermes.MashupCompletedEvent{
		JobID:     job.ID.String(),
		Clips:     job.Clips,
		SizeBytes: job.SizeBytes,
		OutputMs:  job.OutputMs,
		URL:       job.ArtifactURL,
	})
	logger.Info("mashup job completed", "clips", job.Clips, "size_bytes", job.SizeBytes)
}

// deliver mails the zip, attached when it fits under the limit and linked
// otherwise.
func (r *Runner) deliver(ctx context.Context, job *store.MashupJob, zipPath string) error {
	if !r.mailer.Enabled() {
		return mailer.ErrDisabled
	}
	info, err := os.Stat(zipPath)
	if err != nil {
		return err
	}

	attach := info.Size() <= r.cfg.Mashup.AttachLimitBytes
	if !attach && job.ArtifactURL == "" {
		return fmt.Errorf("archive is %d bytes and no download link is available", info.Size())
	}
	var data []byte
	if attach {
		if data, err = os.ReadFile(zipPath); err != nil {
			return err
		}
	}

	msg := mailer.MashupMessage(job.Email, job.Singer, job.Clips, job.SizeBytes, filepath.Base(zipPath), data, job.ArtifactURL)
	err = r.mailer.Send(ctx, msg)
	if err != nil {
		metrics.MailsTotal.WithLabelValues("mashup", "error").Inc()
		return err
	}
	metrics.MailsTotal.WithLabelValues("mashup", "ok").Inc()
	return nil
}

func (r *Runner) fail(ctx context.Context, job *store.MashupJob, cause error) {
	logger := r.logger.With("job_id", job.ID)
	logger.Warn("mashup job failed", "error", cause)

	now := time.Now()
	job.Status = store.JobFailed
	job.Error = cause.Error()
	job.CompletedAt = &now
	if err := r.store.UpdateMashupJob(ctx, job); err != nil {
		logger.Error("failed to mark job failed", "error", err)
		return
	}
	metrics.MashupJobsTotal.WithLabelValues(string(store.JobFailed)).Inc()
	r.publish(hermes.SubjectMashupFailed(job.ID.String()), hermes.MashupFailedEvent{
		JobID: job.ID.String(),
		Error: job.Error,
	})

	if job.Email != "" && r.mailer.Enabled() {
		if err := r.mailer.Send(ctx, mailer.MashupFailedMessage(job.Email, job.Singer, job.Error)); err != nil {
			metrics.MailsTotal.WithLabelValues("mashup_failed", "error").Inc()
			logger.Warn("failure notice not sent", "error", err)
			return
		}
		metrics.MailsTotal.WithLabelValues("mashup_failed", "ok").Inc()
	}
}

func (r *Runner) publish(subject string, data interface{}) {
	if r.hermes == nil {
		return
	}
	if err := r.hermes.Publish(subject, data); err != nil {
		r.logger.Warn("publish failed", "subject", subject, "error", err)
	}
}
