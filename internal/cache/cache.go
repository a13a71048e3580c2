package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ogdean/talkcut/internal/config"
	"github.com/ogdean/talkcut/pkg/models"
)

// Cache provides caching for pipeline artifacts using Redis. Expensive
// stages (transcription, silence analysis) write their results here so a
// re-run of the same video skips straight to the editing decisions.
type Cache struct {
	client *redis.Client
}

// NewCache creates a new cache instance
func NewCache(cfg config.RedisConfig) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// NewCacheWithClient wraps an existing Redis client
func NewCacheWithClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Video Cache Operations

// SetVideo caches source video metadata
func (c *Cache) SetVideo(ctx context.Context, video *models.SourceVideo, ttl time.Duration) error {
	data, err := json.Marshal(video)
	if err != nil {
		return fmt.Errorf("failed to marshal video: %w", err)
	}

	key := fmt.Sprintf("video:%s", video.ID)
	return c.client.Set(ctx, key, data, ttl).Err()
}

// GetVideo retrieves source video metadata from cache
func (c *Cache) GetVideo(ctx context.Context, videoID string) (*models.SourceVideo, error) {
	key := fmt.Sprintf("video:%s", videoID)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get video from cache: %w", err)
	}

	var video models.SourceVideo
	if err := json.Unmarshal(data, &video); err != nil {
		return nil, fmt.Errorf("failed to unmarshal video: %w", err)
	}

	return &video, nil
}

// DeleteVideo removes video from cache
func (c *Cache) DeleteVideo(ctx context.Context, videoID string) error {
	key := fmt.Sprintf("video:%s", videoID)
	return c.client.Del(ctx, key).Err()
}

// Job Cache Operations

// SetJob caches job metadata
func (c *Cache) SetJob(ctx context.Context, job *models.EditJob, ttl time.Duration) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	key := fmt.Sprintf("job:%s", job.ID)
	return c.client.Set(ctx, key, data, ttl).Err()
}

// GetJob retrieves job metadata from cache
func (c *Cache) GetJob(ctx context.Context, jobID string) (*models.EditJob, error) {
	key := fmt.Sprintf("job:%s", jobID)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get job from cache: %w", err)
	}

	var job models.EditJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	return &job, nil
}

// DeleteJob removes job from cache
func (c *Cache) DeleteJob(ctx context.Context, jobID string) error {
	key := fmt.Sprintf("job:%s", jobID)
	return c.client.Del(ctx, key).Err()
}

// SetJobProgress caches job progress for quick retrieval
func (c *Cache) SetJobProgress(ctx context.Context, jobID string, progress float64, ttl time.Duration) error {
	key := fmt.Sprintf("job:progress:%s", jobID)
	return c.client.Set(ctx, key, progress, ttl).Err()
}

// GetJobProgress retrieves job progress from cache
func (c *Cache) GetJobProgress(ctx context.Context, jobID string) (float64, error) {
	key := fmt.Sprintf("job:progress:%s", jobID)
	return c.client.Get(ctx, key).Float64()
}

// Pipeline Artifact Operations
//
// Artifacts are keyed by the job's audio key (video ID plus a content hash
// of the extracted audio) so reprocessing an unchanged recording reuses
// them across jobs.

// SetTranscript caches a transcript for an audio key
func (c *Cache) SetTranscript(ctx context.Context, audioKey string, transcript *models.Transcript, ttl time.Duration) error {
	data, err := json.Marshal(transcript)
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	key := fmt.Sprintf("transcript:%s", audioKey)
	return c.client.Set(ctx, key, data, ttl).Err()
}

// GetTranscript retrieves a cached transcript, nil on miss
func (c *Cache) GetTranscript(ctx context.Context, audioKey string) (*models.Transcript, error) {
	key := fmt.Sprintf("transcript:%s", audioKey)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get transcript from cache: %w", err)
	}

	var transcript models.Transcript
	if err := json.Unmarshal(data, &transcript); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transcript: %w", err)
	}

	return &transcript, nil
}

// SetEditingResult caches the keep/remove verdicts for a job
func (c *Cache) SetEditingResult(ctx context.Context, jobID string, result models.EditingResult, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal editing result: %w", err)
	}

	key := fmt.Sprintf("editing:%s", jobID)
	return c.client.Set(ctx, key, data, ttl).Err()
}

// GetEditingResult retrieves cached verdicts, false on miss
func (c *Cache) GetEditingResult(ctx context.Context, jobID string) (models.EditingResult, bool, error) {
	key := fmt.Sprintf("editing:%s", jobID)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return models.EditingResult{}, false, nil
		}
		return models.EditingResult{}, false, fmt.Errorf("failed to get editing result from cache: %w", err)
	}

	var result models.EditingResult
	if err := json.Unmarshal(data, &result); err != nil {
		return models.EditingResult{}, false, fmt.Errorf("failed to unmarshal editing result: %w", err)
	}

	return result, true, nil
}

// SetAdjustedSentences caches a job's trimmed sentence set
func (c *Cache) SetAdjustedSentences(ctx context.Context, jobID string, set models.AdjustedSentenceSet, ttl time.Duration) error {
	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("failed to marshal adjusted sentences: %w", err)
	}

	key := fmt.Sprintf("adjusted:%s", jobID)
	return c.client.Set(ctx, key, data, ttl).Err()
}

// GetAdjustedSentences retrieves a cached sentence set, false on miss.
// Sets that fail contiguity validation are treated as misses so a stale
// or hand-edited entry cannot poison the pipeline.
func (c *Cache) GetAdjustedSentences(ctx context.Context, jobID string) (models.AdjustedSentenceSet, bool, error) {
	key := fmt.Sprintf("adjusted:%s", jobID)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return models.AdjustedSentenceSet{}, false, nil
		}
		return models.AdjustedSentenceSet{}, false, fmt.Errorf("failed to get adjusted sentences from cache: %w", err)
	}

	var raw models.AdjustedSentenceSet
	if err := json.Unmarshal(data, &raw); err != nil {
		return models.AdjustedSentenceSet{}, false, fmt.Errorf("failed to unmarshal adjusted sentences: %w", err)
	}

	set, err := models.NewAdjustedSentenceSet(raw.Sentences)
	if err != nil {
		return models.AdjustedSentenceSet{}, false, nil
	}

	return set, true, nil
}

// Locking Operations for Distributed Workers

// AcquireLock attempts to acquire a distributed lock
func (c *Cache) AcquireLock(ctx context.Context, resource string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:%s", resource)
	return c.client.SetNX(ctx, key, "locked", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *Cache) ReleaseLock(ctx context.Context, resource string) error {
	key := fmt.Sprintf("lock:%s", resource)
	return c.client.Del(ctx, key).Err()
}

// Batch Operations

// DeletePattern deletes all keys matching a pattern
func (c *Cache) DeletePattern(ctx context.Context, pattern string) error {
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete key %s: %w", iter.Val(), err)
		}
	}
	return iter.Err()
}

// Health check
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
