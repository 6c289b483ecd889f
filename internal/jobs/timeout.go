package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/MikeSquared-Agency/Topsis/internal/store"
)

func (r *Runner) timeoutLoop(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.timeoutInterval())
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.checkTimeouts(ctx)
		}
	}
}

func (r *Runner) timeoutInterval() time.Duration {
	if d := r.cfg.JobTimeout() / 10; d > 0 && d < 30*time.Second {
		return d
	}
	return 30 * time.Second
}

// checkTimeouts fails running jobs that outlived the job timeout, typically
// left behind by a runner that crashed mid-job. The job this runner is
// working on is skipped; its own context deadline covers it.
func (r *Runner) checkTimeouts(ctx context.Context) {
	jobs, err := r.store.GetActiveMashupJobs(ctx)
	if err != nil {
		r.logger.Error("failed to get active mashup jobs for timeout check", "error", err)
		return
	}

	now := time.Now()
	timeout := r.cfg.JobTimeout()
	for _, job := range jobs {
		if job.Status != store.JobRunning || r.isCurrent(job.ID) {
			continue
		}
		start := job.UpdatedAt
		if job.StartedAt != nil {
			start = *job.StartedAt
		}
		if now.Sub(start) <= timeout {
			continue
		}
		r.logger.Warn("mashup job timed out", "job_id", job.ID, "started_at", start)
		r.fail(ctx, job, fmt.Errorf("job timed out after %s", timeout))
	}
}
