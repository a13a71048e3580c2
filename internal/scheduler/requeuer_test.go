package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogdean/talkcut/internal/logging"
	"github.com/ogdean/talkcut/internal/queue"
	"github.com/ogdean/talkcut/pkg/models"
)

type fakeRepo struct {
	stale   []*models.EditJob
	updated []*models.EditJob
	failed  []string
}

func (f *fakeRepo) GetStaleJobs(ctx context.Context, cutoff time.Time, limit int) ([]*models.EditJob, error) {
	return f.stale, nil
}

func (f *fakeRepo) UpdateJob(ctx context.Context, job *models.EditJob) error {
	f.updated = append(f.updated, job)
	return nil
}

func (f *fakeRepo) MarkJobFailed(ctx context.Context, jobID, errMsg string) error {
	f.failed = append(f.failed, jobID)
	return nil
}

type fakePublisher struct {
	published []*models.EditJob
}

func (f *fakePublisher) PublishJob(ctx context.Context, job *models.EditJob) error {
	f.published = append(f.published, job)
	return nil
}

func testRequeuer(t *testing.T, repo Repository, pub JobPublisher) *Requeuer {
	t.Helper()
	logger, err := logging.NewDefaultLogger()
	require.NoError(t, err)
	return NewRequeuer(repo, pub, time.Minute, 10*time.Minute, logger)
}

func TestSweepRequeuesStalledJobs(t *testing.T) {
	repo := &fakeRepo{stale: []*models.EditJob{
		{ID: "job-1", Status: models.JobStatusProcessing, WorkerID: "w-1", RetryCount: 1},
	}}
	pub := &fakePublisher{}

	testRequeuer(t, repo, pub).sweep(context.Background())

	require.Len(t, pub.published, 1)
	job := pub.published[0]
	assert.Equal(t, models.JobStatusQueued, job.Status)
	assert.Empty(t, job.WorkerID)
	assert.Equal(t, 2, job.RetryCount)
	assert.Empty(t, repo.failed)
}

func TestSweepFailsJobsPastRetryLimit(t *testing.T) {
	repo := &fakeRepo{stale: []*models.EditJob{
		{ID: "job-1", Status: models.JobStatusQueued, RetryCount: queue.MaxRetries},
	}}
	pub := &fakePublisher{}

	testRequeuer(t, repo, pub).sweep(context.Background())

	assert.Empty(t, pub.published)
	assert.Equal(t, []string{"job-1"}, repo.failed)
}

func TestSweepNoStaleJobs(t *testing.T) {
	repo := &fakeRepo{}
	pub := &fakePublisher{}

	testRequeuer(t, repo, pub).sweep(context.Background())

	assert.Empty(t, pub.published)
	assert.Empty(t, repo.updated)
}
