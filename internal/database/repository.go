package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ogdean/talkcut/pkg/models"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// Repository provides database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Health checks database connectivity
func (r *Repository) Health(ctx context.Context) error {
	return r.db.Health(ctx)
}

// Videos

// CreateVideo creates a new source video record
func (r *Repository) CreateVideo(ctx context.Context, video *models.SourceVideo) error {
	if video.ID == "" {
		video.ID = uuid.New().String()
	}

	query := `
		INSERT INTO videos (id, filename, object_key, size, duration, width, height, codec, frame_rate, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		video.ID, video.Filename, video.ObjectKey, video.Size, video.Duration,
		video.Width, video.Height, video.Codec, video.FrameRate, video.Status,
	).Scan(&video.CreatedAt, &video.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create video: %w", err)
	}

	return nil
}

// GetVideo retrieves a source video by ID
func (r *Repository) GetVideo(ctx context.Context, id string) (*models.SourceVideo, error) {
	var video models.SourceVideo

	query := `
		SELECT id, filename, object_key, size, duration, width, height, codec,
		       frame_rate, status, created_at, updated_at
		FROM videos
		WHERE id = $1
	`

	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&video.ID, &video.Filename, &video.ObjectKey, &video.Size, &video.Duration,
		&video.Width, &video.Height, &video.Codec, &video.FrameRate, &video.Status,
		&video.CreatedAt, &video.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get video: %w", err)
	}

	return &video, nil
}

// UpdateVideo updates a source video record
func (r *Repository) UpdateVideo(ctx context.Context, video *models.SourceVideo) error {
	query := `
		UPDATE videos
		SET filename = $2, object_key = $3, size = $4, duration = $5, width = $6,
		    height = $7, codec = $8, frame_rate = $9, status = $10, updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.Pool.Exec(ctx, query,
		video.ID, video.Filename, video.ObjectKey, video.Size, video.Duration,
		video.Width, video.Height, video.Codec, video.FrameRate, video.Status,
	)

	if err != nil {
		return fmt.Errorf("failed to update video: %w", err)
	}

	return nil
}

// ListVideos retrieves all videos with pagination
func (r *Repository) ListVideos(ctx context.Context, limit, offset int) ([]*models.SourceVideo, error) {
	query := `
		SELECT id, filename, object_key, size, duration, width, height, codec,
		       frame_rate, status, created_at, updated_at
		FROM videos
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	defer rows.Close()

	var videos []*models.SourceVideo
	for rows.Next() {
		var video models.SourceVideo
		err := rows.Scan(
			&video.ID, &video.Filename, &video.ObjectKey, &video.Size, &video.Duration,
			&video.Width, &video.Height, &video.Codec, &video.FrameRate, &video.Status,
			&video.CreatedAt, &video.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, &video)
	}

	return videos, nil
}

// DeleteVideo removes a video and its dependent records
func (r *Repository) DeleteVideo(ctx context.Context, id string) error {
	if _, err := r.db.Pool.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}
	return nil
}

// Jobs

// CreateJob creates a new edit job record
func (r *Repository) CreateJob(ctx context.Context, job *models.EditJob) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}

	query := `
		INSERT INTO jobs (id, video_id, status, stage, priority, progress, retry_count, config)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		job.ID, job.VideoID, job.Status, job.Stage, job.Priority, job.Progress,
		job.RetryCount, job.Config,
	).Scan(&job.CreatedAt, &job.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

// GetJob retrieves an edit job by ID
func (r *Repository) GetJob(ctx context.Context, id string) (*models.EditJob, error) {
	var job models.EditJob

	query := `
		SELECT id, video_id, status, stage, priority, progress, error_msg, retry_count,
		       worker_id, started_at, completed_at, created_at, updated_at, config
		FROM jobs
		WHERE id = $1
	`

	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.VideoID, &job.Status, &job.Stage, &job.Priority, &job.Progress,
		&job.ErrorMsg, &job.RetryCount, &job.WorkerID, &job.StartedAt,
		&job.CompletedAt, &job.CreatedAt, &job.UpdatedAt, &job.Config,
	)

	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// UpdateJob updates an edit job record
func (r *Repository) UpdateJob(ctx context.Context, job *models.EditJob) error {
	query := `
		UPDATE jobs
		SET status = $2, stage = $3, priority = $4, progress = $5, error_msg = $6,
		    retry_count = $7, worker_id = $8, started_at = $9, completed_at = $10,
		    config = $11, updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.Pool.Exec(ctx, query,
		job.ID, job.Status, job.Stage, job.Priority, job.Progress, job.ErrorMsg,
		job.RetryCount, job.WorkerID, job.StartedAt, job.CompletedAt, job.Config,
	)

	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}

	return nil
}

// UpdateJobStage records the pipeline stage and progress a worker has reached
func (r *Repository) UpdateJobStage(ctx context.Context, jobID, stage string, progress float64) error {
	query := `
		UPDATE jobs
		SET stage = $2, progress = $3, updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.Pool.Exec(ctx, query, jobID, stage, progress)
	if err != nil {
		return fmt.Errorf("failed to update job stage: %w", err)
	}

	return nil
}

// MarkJobStarted transitions a job to processing under the given worker
func (r *Repository) MarkJobStarted(ctx context.Context, jobID, workerID string) error {
	now := time.Now()

	query := `
		UPDATE jobs
		SET status = $2, worker_id = $3, started_at = $4, updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.Pool.Exec(ctx, query, jobID, models.JobStatusProcessing, workerID, now)
	if err != nil {
		return fmt.Errorf("failed to mark job started: %w", err)
	}

	return nil
}

// MarkJobCompleted transitions a job to its terminal completed state
func (r *Repository) MarkJobCompleted(ctx context.Context, jobID string) error {
	now := time.Now()

	query := `
		UPDATE jobs
		SET status = $2, progress = 100, completed_at = $3, updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.Pool.Exec(ctx, query, jobID, models.JobStatusCompleted, now)
	if err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}

	return nil
}

// MarkJobFailed records a failure message and increments the retry count
func (r *Repository) MarkJobFailed(ctx context.Context, jobID, errMsg string) error {
	query := `
		UPDATE jobs
		SET status = $2, error_msg = $3, retry_count = retry_count + 1, updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.Pool.Exec(ctx, query, jobID, models.JobStatusFailed, errMsg)
	if err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}

	return nil
}

// GetJobsByVideoID retrieves all jobs for a video
func (r *Repository) GetJobsByVideoID(ctx context.Context, videoID string) ([]*models.EditJob, error) {
	query := `
		SELECT id, video_id, status, stage, priority, progress, error_msg, retry_count,
		       worker_id, started_at, completed_at, created_at, updated_at, config
		FROM jobs
		WHERE video_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to get jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.EditJob
	for rows.Next() {
		var job models.EditJob
		err := rows.Scan(
			&job.ID, &job.VideoID, &job.Status, &job.Stage, &job.Priority, &job.Progress,
			&job.ErrorMsg, &job.RetryCount, &job.WorkerID, &job.StartedAt,
			&job.CompletedAt, &job.CreatedAt, &job.UpdatedAt, &job.Config,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, &job)
	}

	return jobs, nil
}

// GetStaleJobs returns queued or processing jobs not touched since the cutoff,
// oldest first. These are jobs whose worker died or whose queue publish was
// lost.
func (r *Repository) GetStaleJobs(ctx context.Context, cutoff time.Time, limit int) ([]*models.EditJob, error) {
	query := `
		SELECT id, video_id, status, stage, priority, progress, error_msg, retry_count,
		       worker_id, started_at, completed_at, created_at, updated_at, config
		FROM jobs
		WHERE status IN ($1, $2) AND updated_at < $3
		ORDER BY updated_at ASC
		LIMIT $4
	`

	rows, err := r.db.Pool.Query(ctx, query,
		models.JobStatusQueued, models.JobStatusProcessing, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get stale jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.EditJob
	for rows.Next() {
		var job models.EditJob
		err := rows.Scan(
			&job.ID, &job.VideoID, &job.Status, &job.Stage, &job.Priority, &job.Progress,
			&job.ErrorMsg, &job.RetryCount, &job.WorkerID, &job.StartedAt,
			&job.CompletedAt, &job.CreatedAt, &job.UpdatedAt, &job.Config,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, &job)
	}

	return jobs, nil
}

// Sentence Sets
//
// A job's trimmed sentence boundaries are stored as a JSONB document so the
// review endpoints can serve and revise them without touching the worker.

// SaveAdjustedSentences stores the trimmed sentence set for a job
func (r *Repository) SaveAdjustedSentences(ctx context.Context, jobID string, set models.AdjustedSentenceSet) error {
	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("failed to marshal sentence set: %w", err)
	}

	query := `
		INSERT INTO sentence_sets (job_id, sentences, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (job_id) DO UPDATE SET sentences = $2, updated_at = NOW()
	`

	if _, err := r.db.Pool.Exec(ctx, query, jobID, data); err != nil {
		return fmt.Errorf("failed to save sentence set: %w", err)
	}

	return nil
}

// GetAdjustedSentences retrieves the trimmed sentence set for a job. The
// stored document is re-validated on read so every caller sees a set with
// contiguous indices.
func (r *Repository) GetAdjustedSentences(ctx context.Context, jobID string) (models.AdjustedSentenceSet, error) {
	var data []byte

	query := `SELECT sentences FROM sentence_sets WHERE job_id = $1`

	err := r.db.Pool.QueryRow(ctx, query, jobID).Scan(&data)
	if err == pgx.ErrNoRows {
		return models.AdjustedSentenceSet{}, ErrNotFound
	}
	if err != nil {
		return models.AdjustedSentenceSet{}, fmt.Errorf("failed to get sentence set: %w", err)
	}

	var raw models.AdjustedSentenceSet
	if err := json.Unmarshal(data, &raw); err != nil {
		return models.AdjustedSentenceSet{}, fmt.Errorf("failed to unmarshal sentence set: %w", err)
	}

	return models.NewAdjustedSentenceSet(raw.Sentences)
}

// SaveEditingResult stores the keep/remove verdicts for a job
func (r *Repository) SaveEditingResult(ctx context.Context, jobID string, result models.EditingResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal editing result: %w", err)
	}

	query := `
		INSERT INTO editing_results (job_id, verdicts, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (job_id) DO UPDATE SET verdicts = $2, updated_at = NOW()
	`

	if _, err := r.db.Pool.Exec(ctx, query, jobID, data); err != nil {
		return fmt.Errorf("failed to save editing result: %w", err)
	}

	return nil
}

// GetEditingResult retrieves the keep/remove verdicts for a job
func (r *Repository) GetEditingResult(ctx context.Context, jobID string) (models.EditingResult, error) {
	var data []byte

	query := `SELECT verdicts FROM editing_results WHERE job_id = $1`

	err := r.db.Pool.QueryRow(ctx, query, jobID).Scan(&data)
	if err == pgx.ErrNoRows {
		return models.EditingResult{}, ErrNotFound
	}
	if err != nil {
		return models.EditingResult{}, fmt.Errorf("failed to get editing result: %w", err)
	}

	var result models.EditingResult
	if err := json.Unmarshal(data, &result); err != nil {
		return models.EditingResult{}, fmt.Errorf("failed to unmarshal editing result: %w", err)
	}

	return result, nil
}
