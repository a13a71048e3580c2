package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogdean/talkcut/pkg/models"
)

func testCache(t *testing.T) *Cache {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewCacheWithClient(client)
}

func TestVideoRoundTrip(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()

	video := &models.SourceVideo{
		ID:        "vid-1",
		Filename:  "talk.mp4",
		Duration:  123.4,
		FrameRate: 30,
		Status:    models.VideoStatusReady,
	}
	require.NoError(t, c.SetVideo(ctx, video, time.Minute))

	got, err := c.GetVideo(ctx, "vid-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, video.Filename, got.Filename)
	assert.Equal(t, video.Duration, got.Duration)

	require.NoError(t, c.DeleteVideo(ctx, "vid-1"))
	got, err = c.GetVideo(ctx, "vid-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestJobRoundTrip(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()

	job := &models.EditJob{
		ID:      "job-1",
		VideoID: "vid-1",
		Status:  models.JobStatusProcessing,
		Stage:   models.StageTrim,
	}
	require.NoError(t, c.SetJob(ctx, job, time.Minute))

	got, err := c.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.StageTrim, got.Stage)

	// Miss returns nil without error
	got, err = c.GetJob(ctx, "job-unknown")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestJobProgress(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetJobProgress(ctx, "job-1", 42.5, time.Minute))

	progress, err := c.GetJobProgress(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, 42.5, progress)
}

func TestTranscriptRoundTrip(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()

	transcript := &models.Transcript{
		Language: "eng",
		Duration: 5.0,
		Sentences: []models.Sentence{
			{Text: "Hello world.", Start: 0.0, End: 2.0},
		},
	}
	require.NoError(t, c.SetTranscript(ctx, "vid-1:abc123", transcript, time.Minute))

	got, err := c.GetTranscript(ctx, "vid-1:abc123")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Sentences, 1)
	assert.Equal(t, "Hello world.", got.Sentences[0].Text)

	got, err = c.GetTranscript(ctx, "vid-other:def")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestEditingResultRoundTrip(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()

	result := models.EditingResult{
		SentenceResults: map[string]models.SentenceResult{
			"1": {Text: "keep.", Keep: true},
			"2": {Text: "cut.", Keep: false},
		},
	}
	require.NoError(t, c.SetEditingResult(ctx, "job-1", result, time.Minute))

	got, ok, err := c.GetEditingResult(ctx, "job-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Keep(1))
	assert.False(t, got.Keep(2))

	_, ok, err = c.GetEditingResult(ctx, "job-2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAdjustedSentencesRoundTrip(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()

	set, err := models.NewAdjustedSentenceSet([]models.AdjustedSentence{
		{Index: 1, Text: "one.", OriginalEnd: 2, AdjustedStart: 0.1, AdjustedEnd: 1.9},
		{Index: 2, Text: "two.", OriginalStart: 3, OriginalEnd: 5, AdjustedStart: 3.1, AdjustedEnd: 4.9},
	})
	require.NoError(t, err)
	require.NoError(t, c.SetAdjustedSentences(ctx, "job-1", set, time.Minute))

	got, ok, err := c.GetAdjustedSentences(ctx, "job-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2, got.Len())
	assert.Equal(t, 0.1, got.Sentences[0].AdjustedStart)

	_, ok, err = c.GetAdjustedSentences(ctx, "job-2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAdjustedSentencesInvalidEntryIsMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	c := NewCacheWithClient(client)

	// Non-contiguous indices must not survive a cache read
	require.NoError(t, mr.Set("adjusted:job-1",
		`{"sentences": [{"index": "5", "text": "x.", "original_end": 1, "adjusted_end": 1}]}`))

	_, ok, err := c.GetAdjustedSentences(context.Background(), "job-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestThresholdStore(t *testing.T) {
	c := testCache(t)
	store := NewThresholdStore(c, time.Hour)

	_, ok := store.GetThreshold("vid-1:abc")
	assert.False(t, ok)

	store.SetThreshold("vid-1:abc", -32.5)

	got, ok := store.GetThreshold("vid-1:abc")
	require.True(t, ok)
	assert.Equal(t, -32.5, got)

	// Repeated writes are idempotent
	store.SetThreshold("vid-1:abc", -32.5)
	got, ok = store.GetThreshold("vid-1:abc")
	require.True(t, ok)
	assert.Equal(t, -32.5, got)
}

func TestLocking(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()

	ok, err := c.AcquireLock(ctx, "job-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.AcquireLock(ctx, "job-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.ReleaseLock(ctx, "job-1"))

	ok, err = c.AcquireLock(ctx, "job-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDeletePattern(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetJobProgress(ctx, "a", 1, time.Minute))
	require.NoError(t, c.SetJobProgress(ctx, "b", 2, time.Minute))

	require.NoError(t, c.DeletePattern(ctx, "job:progress:*"))

	_, err := c.GetJobProgress(ctx, "a")
	assert.ErrorIs(t, err, redis.Nil)
}
