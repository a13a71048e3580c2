package scheduler

import (
	"context"
	"time"

	"github.com/ogdean/talkcut/internal/logging"
	"github.com/ogdean/talkcut/internal/metrics"
	"github.com/ogdean/talkcut/internal/queue"
	"github.com/ogdean/talkcut/pkg/models"
)

// Repository defines the job persistence the requeuer needs
type Repository interface {
	GetStaleJobs(ctx context.Context, cutoff time.Time, limit int) ([]*models.EditJob, error)
	UpdateJob(ctx context.Context, job *models.EditJob) error
	MarkJobFailed(ctx context.Context, jobID, errMsg string) error
}

// JobPublisher defines the queue side of requeuing
type JobPublisher interface {
	PublishJob(ctx context.Context, job *models.EditJob) error
}

// Requeuer recovers jobs that stalled in flight: queued jobs whose publish
// was lost, and processing jobs whose worker died. Jobs past the retry limit
// are marked failed instead of looping forever.
type Requeuer struct {
	repo       Repository
	publisher  JobPublisher
	interval   time.Duration
	staleAfter time.Duration
	batchSize  int
	logger     *logging.Logger
}

// NewRequeuer creates a stale-job requeuer
func NewRequeuer(repo Repository, publisher JobPublisher, interval, staleAfter time.Duration, logger *logging.Logger) *Requeuer {
	return &Requeuer{
		repo:       repo,
		publisher:  publisher,
		interval:   interval,
		staleAfter: staleAfter,
		batchSize:  50,
		logger:     logger,
	}
}

// Start runs the requeue loop until the context is cancelled
func (r *Requeuer) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

// sweep requeues one batch of stale jobs
func (r *Requeuer) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-r.staleAfter)

	jobs, err := r.repo.GetStaleJobs(ctx, cutoff, r.batchSize)
	if err != nil {
		r.logger.ErrorWithErr("Failed to load stale jobs", err)
		return
	}

	for _, job := range jobs {
		log := r.logger.WithJobID(job.ID)

		if job.RetryCount >= queue.MaxRetries {
			if err := r.repo.MarkJobFailed(ctx, job.ID, "exceeded retry limit after stall"); err != nil {
				log.ErrorWithErr("Failed to mark stalled job failed", err)
			}
			metrics.RecordJobCompleted("failed")
			continue
		}

		job.Status = models.JobStatusQueued
		job.WorkerID = ""
		job.RetryCount++

		if err := r.repo.UpdateJob(ctx, job); err != nil {
			log.ErrorWithErr("Failed to reset stalled job", err)
			continue
		}
		if err := r.publisher.PublishJob(ctx, job); err != nil {
			log.ErrorWithErr("Failed to requeue stalled job", err)
			continue
		}

		log.Infof("Requeued stalled job (retry %d)", job.RetryCount)
	}
}
