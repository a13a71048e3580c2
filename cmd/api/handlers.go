package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ogdean/talkcut/internal/database"
	"github.com/ogdean/talkcut/internal/metrics"
	"github.com/ogdean/talkcut/internal/storage"
	"github.com/ogdean/talkcut/internal/timeline"
	"github.com/ogdean/talkcut/pkg/models"
)

// healthCheck reports API and database health
func (api *API) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := api.repo.Health(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// uploadVideo accepts a talking-head recording and registers it
func (api *API) uploadVideo(c *gin.Context) {
	file, err := c.FormFile("video")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No video file provided"})
		return
	}

	tempPath := filepath.Join(os.TempDir(), uuid.New().String()+filepath.Ext(file.Filename))
	if err := c.SaveUploadedFile(file, tempPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save file"})
		return
	}
	defer os.Remove(tempPath)

	props, err := api.ffmpeg.Probe(c.Request.Context(), tempPath)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Failed to probe video: %v", err)})
		return
	}

	video := &models.SourceVideo{
		ID:        uuid.New().String(),
		Filename:  file.Filename,
		Size:      file.Size,
		Duration:  props.Duration,
		Width:     props.Width,
		Height:    props.Height,
		Codec:     props.Codec,
		FrameRate: props.FPS,
		Status:    models.VideoStatusUploaded,
	}
	video.ObjectKey = storage.SourceKey(video.ID, file.Filename)

	if err := api.storage.UploadFile(c.Request.Context(), video.ObjectKey, tempPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to upload: %v", err)})
		return
	}

	if err := api.repo.CreateVideo(c.Request.Context(), video); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to create video: %v", err)})
		return
	}

	metrics.VideoUploadsTotal.Inc()
	metrics.VideoUploadSizeBytes.Observe(float64(file.Size))

	if err := api.notifier.NotifyVideoUploaded(c.Request.Context(), video); err != nil {
		api.logger.ErrorWithErr("Failed to deliver upload webhook", err)
	}

	c.JSON(http.StatusCreated, video)
}

func (api *API) getVideo(c *gin.Context) {
	video, err := api.repo.GetVideo(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Video not found"})
		return
	}

	c.JSON(http.StatusOK, video)
}

func (api *API) listVideos(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	videos, err := api.repo.ListVideos(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"videos": videos,
		"limit":  limit,
		"offset": offset,
	})
}

func (api *API) deleteVideo(c *gin.Context) {
	videoID := c.Param("id")

	video, err := api.repo.GetVideo(c.Request.Context(), videoID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Video not found"})
		return
	}

	if err := api.storage.DeletePrefix(c.Request.Context(), fmt.Sprintf("videos/%s/", video.ID)); err != nil {
		api.logger.ErrorWithErr("Failed to delete video objects", err)
	}

	if err := api.repo.DeleteVideo(c.Request.Context(), videoID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to delete video: %v", err)})
		return
	}

	if err := api.cache.DeleteVideo(c.Request.Context(), videoID); err != nil {
		api.logger.ErrorWithErr("Failed to evict video from cache", err)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Video deleted", "video_id": videoID})
}

// createEditJob queues an editing run for a video
func (api *API) createEditJob(c *gin.Context) {
	videoID := c.Param("id")

	var req struct {
		Instruction         string `json:"instruction"`
		OverlayPolicy       string `json:"overlay_policy"`
		OverlayWindowFrames int    `json:"overlay_window_frames"`
		RenderHeight        int    `json:"render_height"`
		GenerateImages      bool   `json:"generate_images"`
		Priority            int    `json:"priority"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := api.repo.GetVideo(c.Request.Context(), videoID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Video not found"})
		return
	}

	job := &models.EditJob{
		VideoID:  videoID,
		Status:   models.JobStatusQueued,
		Priority: req.Priority,
		Config: models.EditConfig{
			Instruction:         req.Instruction,
			OverlayPolicy:       req.OverlayPolicy,
			OverlayWindowFrames: req.OverlayWindowFrames,
			RenderHeight:        req.RenderHeight,
			GenerateImages:      req.GenerateImages,
		},
	}
	if job.Priority == 0 {
		job.Priority = models.JobPriorityNormal
	}

	if err := api.repo.CreateJob(c.Request.Context(), job); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to create job: %v", err)})
		return
	}

	if err := api.queue.PublishJob(c.Request.Context(), job); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to queue job: %v", err)})
		return
	}

	metrics.RecordJobCreated(priorityLabel(job.Priority))

	c.JSON(http.StatusCreated, job)
}

func (api *API) getJob(c *gin.Context) {
	jobID := c.Param("id")

	job, err := api.repo.GetJob(c.Request.Context(), jobID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	// Workers push progress to the cache more often than to the database
	if progress, err := api.cache.GetJobProgress(c.Request.Context(), jobID); err == nil && progress > job.Progress {
		job.Progress = progress
	}

	c.JSON(http.StatusOK, job)
}

func (api *API) getVideoJobs(c *gin.Context) {
	jobs, err := api.repo.GetJobsByVideoID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// getAdjustedSentences returns the job's trimmed sentence boundaries
func (api *API) getAdjustedSentences(c *gin.Context) {
	set, err := api.loadSentenceSet(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No sentence set for job"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, set)
}

func (api *API) getVerdicts(c *gin.Context) {
	result, err := api.repo.GetEditingResult(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No verdicts for job"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// patchVerdicts flips keep/remove decisions on the editing result. With
// reprocess set, the job is re-queued so the new verdicts flow through the
// trim and render stages.
func (api *API) patchVerdicts(c *gin.Context) {
	jobID := c.Param("id")

	var req struct {
		Verdicts  map[string]bool `json:"verdicts" binding:"required"`
		Reprocess bool            `json:"reprocess"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := api.repo.GetEditingResult(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No verdicts for job"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	for key, keep := range req.Verdicts {
		res, ok := result.SentenceResults[key]
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown sentence %q", key)})
			return
		}
		res.Keep = keep
		result.SentenceResults[key] = res
	}

	if err := api.repo.SaveEditingResult(c.Request.Context(), jobID, result); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := api.cache.SetEditingResult(c.Request.Context(), jobID, result, api.cfg.Editor.CacheTTL); err != nil {
		api.logger.ErrorWithErr("Failed to cache editing result", err)
	}

	if req.Reprocess {
		job, err := api.repo.GetJob(c.Request.Context(), jobID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		job.Status = models.JobStatusQueued
		if err := api.repo.UpdateJob(c.Request.Context(), job); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if err := api.queue.PublishJob(c.Request.Context(), job); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	c.JSON(http.StatusOK, result)
}

// postFeedback runs the timestamp adjustment agent over the job's sentence
// set. The revised set is persisted unless the agent approved as-is.
func (api *API) postFeedback(c *gin.Context) {
	jobID := c.Param("id")

	var req struct {
		Feedback string `json:"feedback" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	set, err := api.loadSentenceSet(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No sentence set for job"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	updated, approved, err := api.llm.AdjustTimestamps(c.Request.Context(), set, req.Feedback)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	if !approved {
		if err := api.repo.SaveAdjustedSentences(c.Request.Context(), jobID, updated); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if err := api.cache.SetAdjustedSentences(c.Request.Context(), jobID, updated, api.cfg.Editor.CacheTTL); err != nil {
			api.logger.ErrorWithErr("Failed to cache adjusted sentences", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"approved":  approved,
		"sentences": updated,
	})
}

// getTimeline returns each kept sentence's position in output time
func (api *API) getTimeline(c *gin.Context) {
	set, err := api.loadSentenceSet(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No sentence set for job"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	tl := timeline.Build(set)

	type entry struct {
		Index models.SentenceIndex `json:"index"`
		Text  string               `json:"text"`
		Start float64              `json:"start"`
		End   float64              `json:"end"`
	}

	entries := make([]entry, 0, set.Len())
	for _, s := range set.Sentences {
		pos, ok := tl.Position(s.Index)
		if !ok {
			continue
		}
		entries = append(entries, entry{Index: s.Index, Text: s.Text, Start: pos.Start, End: pos.End})
	}

	c.JSON(http.StatusOK, gin.H{
		"sentences":      entries,
		"total_duration": tl.TotalDuration(),
	})
}

// resolveOverlays maps caller-supplied image placements onto the job's
// output timeline without rendering anything
func (api *API) resolveOverlays(c *gin.Context) {
	jobID := c.Param("id")

	var req struct {
		Policy       string                  `json:"policy"`
		WindowFrames int                     `json:"window_frames"`
		Placements   []models.ImagePlacement `json:"placements" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	set, err := api.loadSentenceSet(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No sentence set for job"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	job, err := api.repo.GetJob(c.Request.Context(), jobID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	video, err := api.repo.GetVideo(c.Request.Context(), job.VideoID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Video not found"})
		return
	}

	policy := timeline.OverlayPolicy(req.Policy)
	if policy != timeline.PolicyFixedWindow {
		policy = timeline.PolicySentenceSpan
	}

	resolver := timeline.Resolver{
		Policy:       policy,
		WindowFrames: req.WindowFrames,
		FPS:          video.FrameRate,
	}
	resolved := resolver.ResolveAll(req.Placements, timeline.Build(set))

	c.JSON(http.StatusOK, gin.H{"overlays": resolved})
}

func (api *API) getOutputURL(c *gin.Context) {
	jobID := c.Param("id")

	job, err := api.repo.GetJob(c.Request.Context(), jobID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	if job.Status != models.JobStatusCompleted {
		c.JSON(http.StatusConflict, gin.H{"error": "Job has not completed"})
		return
	}

	url, err := api.storage.GetURL(c.Request.Context(), storage.OutputKey(jobID), time.Hour)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// loadSentenceSet prefers the cache and falls back to the database
func (api *API) loadSentenceSet(ctx context.Context, jobID string) (models.AdjustedSentenceSet, error) {
	set, ok, err := api.cache.GetAdjustedSentences(ctx, jobID)
	if err == nil && ok {
		metrics.RecordCacheAccess("adjusted", true)
		return set, nil
	}
	metrics.RecordCacheAccess("adjusted", false)

	return api.repo.GetAdjustedSentences(ctx, jobID)
}

func priorityLabel(priority int) string {
	switch {
	case priority >= models.JobPriorityHigh:
		return "high"
	case priority <= models.JobPriorityLow:
		return "low"
	default:
		return "normal"
	}
}
