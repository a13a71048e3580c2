package editor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/opentracing/opentracing-go"

	"github.com/ogdean/talkcut/internal/cache"
	"github.com/ogdean/talkcut/internal/config"
	"github.com/ogdean/talkcut/internal/database"
	"github.com/ogdean/talkcut/internal/llm"
	"github.com/ogdean/talkcut/internal/logging"
	"github.com/ogdean/talkcut/internal/metrics"
	"github.com/ogdean/talkcut/internal/render"
	"github.com/ogdean/talkcut/internal/silence"
	"github.com/ogdean/talkcut/internal/storage"
	"github.com/ogdean/talkcut/internal/stt"
	"github.com/ogdean/talkcut/internal/timeline"
	"github.com/ogdean/talkcut/internal/tracing"
	"github.com/ogdean/talkcut/pkg/models"
)

// Stage progress checkpoints, in pipeline order
var stageProgress = map[string]float64{
	models.StageProxy:      10,
	models.StageAudio:      20,
	models.StageTranscribe: 40,
	models.StageDecide:     50,
	models.StageTrim:       65,
	models.StageCut:        85,
	models.StageOverlay:    95,
}

// Service orchestrates the editing pipeline for one worker
type Service struct {
	cfg      *config.Config
	ffmpeg   *render.FFmpeg
	melt     *render.Melt
	storage  *storage.Storage
	repo     *database.Repository
	cache    *cache.Cache
	builder  *silence.Builder
	llm      *llm.Client
	stt      stt.Transcriber
	logger   *logging.Logger
	workerID string
}

// NewService creates a new editor service. The silence trimmer shares its
// whole-recording thresholds across workers through the Redis mirror.
func NewService(
	cfg *config.Config,
	stor *storage.Storage,
	repo *database.Repository,
	c *cache.Cache,
	transcriber stt.Transcriber,
	llmClient *llm.Client,
	logger *logging.Logger,
) *Service {
	var thresholds silence.ThresholdCache
	if c != nil {
		thresholds = cache.NewThresholdStore(c, cfg.Editor.CacheTTL)
	}
	trimmer := silence.NewTrimmer(cfg.Silence, thresholds)

	return &Service{
		cfg:      cfg,
		ffmpeg:   render.NewFFmpeg(cfg.Render.FFmpegPath, cfg.Render.FFprobePath),
		melt:     render.NewMelt(cfg.Render.MeltPath),
		storage:  stor,
		repo:     repo,
		cache:    c,
		builder:  silence.NewBuilder(trimmer),
		llm:      llmClient,
		stt:      transcriber,
		logger:   logger,
		workerID: uuid.New().String(),
	}
}

// WorkerID returns this worker's identity
func (s *Service) WorkerID() string {
	return s.workerID
}

// ProcessJob runs the full editing pipeline for one job: proxy, audio
// extraction, transcription, editing decision, silence trimming, cut
// rendering and overlay compositing.
func (s *Service) ProcessJob(ctx context.Context, job *models.EditJob) error {
	span, ctx := tracing.StartSpan(ctx, "editor.ProcessJob")
	defer tracing.FinishSpan(span)
	tracing.SetTag(span, "job_id", job.ID)

	if err := s.repo.MarkJobStarted(ctx, job.ID, s.workerID); err != nil {
		return fmt.Errorf("failed to mark job started: %w", err)
	}

	video, err := s.repo.GetVideo(ctx, job.VideoID)
	if err != nil {
		return s.failJob(ctx, job, span, fmt.Errorf("failed to get video: %w", err))
	}

	tempDir := filepath.Join(s.cfg.Render.TempDir, job.ID)
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return s.failJob(ctx, job, span, fmt.Errorf("failed to create temp directory: %w", err))
	}
	defer os.RemoveAll(tempDir)

	// Download source video
	inputPath := filepath.Join(tempDir, "input"+filepath.Ext(video.Filename))
	if err := s.storage.DownloadFile(ctx, video.ObjectKey, inputPath); err != nil {
		return s.failJob(ctx, job, span, fmt.Errorf("failed to download video: %w", err))
	}

	props, err := s.ffmpeg.Probe(ctx, inputPath)
	if err != nil {
		return s.failJob(ctx, job, span, fmt.Errorf("failed to probe video: %w", err))
	}

	// Stage: proxy
	if err := s.stageProxy(ctx, job, inputPath, tempDir); err != nil {
		return s.failJob(ctx, job, span, err)
	}

	// Stage: audio
	audioPath, audioKey, err := s.stageAudio(ctx, job, video.ID, inputPath, tempDir)
	if err != nil {
		return s.failJob(ctx, job, span, err)
	}

	// Stage: transcribe
	transcript, err := s.stageTranscribe(ctx, job, audioPath, audioKey)
	if err != nil {
		return s.failJob(ctx, job, span, err)
	}

	// Stage: decide
	result, err := s.stageDecide(ctx, job, transcript)
	if err != nil {
		return s.failJob(ctx, job, span, err)
	}

	// Stage: trim
	set, err := s.stageTrim(ctx, job, audioPath, audioKey, transcript, result)
	if err != nil {
		return s.failJob(ctx, job, span, err)
	}

	// Stage: cut
	cutPath, err := s.stageCut(ctx, job, inputPath, tempDir, set, props)
	if err != nil {
		return s.failJob(ctx, job, span, err)
	}

	// Stage: overlay
	finalPath := cutPath
	if job.Config.GenerateImages && s.llm != nil {
		overlayPath, err := s.stageOverlay(ctx, job, inputPath, tempDir, set, props)
		if err != nil {
			return s.failJob(ctx, job, span, err)
		}
		if overlayPath != "" {
			finalPath = overlayPath
		}
	}

	// Upload the final result
	if err := s.storage.UploadFile(ctx, storage.OutputKey(job.ID), finalPath); err != nil {
		return s.failJob(ctx, job, span, fmt.Errorf("failed to upload output: %w", err))
	}

	if err := s.repo.MarkJobCompleted(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}

	video.Status = models.VideoStatusReady
	if err := s.repo.UpdateVideo(ctx, video); err != nil {
		s.logger.ErrorWithErr("Failed to update video status", err)
	}

	metrics.RecordJobCompleted(models.JobStatusCompleted)
	metrics.VideoDurationProcessed.Add(video.Duration)
	metrics.WorkerJobsProcessed.WithLabelValues(s.workerID).Inc()

	return nil
}

func (s *Service) stageProxy(ctx context.Context, job *models.EditJob, inputPath, tempDir string) error {
	start := time.Now()

	proxyPath := filepath.Join(tempDir, "proxy.mp4")
	height := job.Config.RenderHeight
	if height <= 0 {
		height = s.cfg.Render.ProxyHeight
	}

	if err := s.ffmpeg.ProxyVideo(ctx, inputPath, proxyPath, height); err != nil {
		return fmt.Errorf("proxy stage: %w", err)
	}
	if err := s.storage.UploadFile(ctx, storage.ProxyKey(job.ID), proxyPath); err != nil {
		return fmt.Errorf("proxy stage: %w", err)
	}

	s.finishStage(ctx, job, models.StageProxy, start, nil)
	return nil
}

// stageAudio extracts mono analysis audio and derives the audio key: the
// video ID plus a content hash, so identical audio reuses cached transcripts
// and thresholds across jobs.
func (s *Service) stageAudio(ctx context.Context, job *models.EditJob, videoID, inputPath, tempDir string) (string, string, error) {
	start := time.Now()

	audioPath := filepath.Join(tempDir, "audio.wav")
	if err := s.ffmpeg.ExtractAudio(ctx, inputPath, audioPath, s.cfg.Silence.AnalysisSampleRate); err != nil {
		return "", "", fmt.Errorf("audio stage: %w", err)
	}

	hash, err := fileHash(audioPath)
	if err != nil {
		return "", "", fmt.Errorf("audio stage: %w", err)
	}
	audioKey := fmt.Sprintf("%s:%s", videoID, hash)

	if err := s.storage.UploadFile(ctx, storage.AudioKey(job.ID), audioPath); err != nil {
		return "", "", fmt.Errorf("audio stage: %w", err)
	}

	s.finishStage(ctx, job, models.StageAudio, start, nil)
	return audioPath, audioKey, nil
}

func (s *Service) stageTranscribe(ctx context.Context, job *models.EditJob, audioPath, audioKey string) (*models.Transcript, error) {
	start := time.Now()

	if s.cache != nil {
		cached, err := s.cache.GetTranscript(ctx, audioKey)
		if err != nil {
			s.logger.ErrorWithErr("Transcript cache lookup failed", err)
		}
		metrics.RecordCacheAccess("transcript", cached != nil)
		if cached != nil {
			s.finishStage(ctx, job, models.StageTranscribe, start, nil)
			return cached, nil
		}
	}

	transcript, err := s.stt.Transcribe(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("transcribe stage: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetTranscript(ctx, audioKey, transcript, s.cfg.Editor.CacheTTL); err != nil {
			s.logger.ErrorWithErr("Failed to cache transcript", err)
		}
	}

	s.finishStage(ctx, job, models.StageTranscribe, start, nil)
	return transcript, nil
}

func (s *Service) stageDecide(ctx context.Context, job *models.EditJob, transcript *models.Transcript) (models.EditingResult, error) {
	start := time.Now()

	decision, err := s.llm.DecideEdits(ctx, transcript.Sentences, job.Config.Instruction)
	if err != nil {
		return models.EditingResult{}, fmt.Errorf("decide stage: %w", err)
	}

	result := models.NewEditingResult(decision, transcript.Sentences)
	if err := s.repo.SaveEditingResult(ctx, job.ID, result); err != nil {
		return models.EditingResult{}, fmt.Errorf("decide stage: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.SetEditingResult(ctx, job.ID, result, s.cfg.Editor.CacheTTL); err != nil {
			s.logger.ErrorWithErr("Failed to cache editing result", err)
		}
	}

	s.finishStage(ctx, job, models.StageDecide, start, nil)
	return result, nil
}

func (s *Service) stageTrim(ctx context.Context, job *models.EditJob, audioPath, audioKey string, transcript *models.Transcript, result models.EditingResult) (models.AdjustedSentenceSet, error) {
	start := time.Now()

	set, err := s.builder.Build(audioPath, audioKey, transcript.Sentences, result)
	if err != nil {
		if errors.Is(err, silence.ErrNoSentencesKept) {
			return models.AdjustedSentenceSet{}, err
		}
		return models.AdjustedSentenceSet{}, fmt.Errorf("trim stage: %w", err)
	}

	for _, adj := range set.Sentences {
		removed := (adj.OriginalEnd - adj.OriginalStart) - adj.Duration()
		metrics.RecordTrim(string(adj.ThresholdSource), removed)
		s.logger.LogTrimEvent(job.ID, int(adj.Index), adj.AdjustedStart, adj.AdjustedEnd, string(adj.ThresholdSource))
	}

	if err := s.repo.SaveAdjustedSentences(ctx, job.ID, set); err != nil {
		return models.AdjustedSentenceSet{}, fmt.Errorf("trim stage: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.SetAdjustedSentences(ctx, job.ID, set, s.cfg.Editor.CacheTTL); err != nil {
			s.logger.ErrorWithErr("Failed to cache adjusted sentences", err)
		}
	}

	s.finishStage(ctx, job, models.StageTrim, start, nil)
	return set, nil
}

func (s *Service) stageCut(ctx context.Context, job *models.EditJob, inputPath, tempDir string, set models.AdjustedSentenceSet, props *render.VideoProperties) (string, error) {
	start := time.Now()

	cutPath := filepath.Join(tempDir, "cut.mp4")
	if err := s.ffmpeg.CutVideo(ctx, inputPath, cutPath, set); err != nil {
		return "", fmt.Errorf("cut stage: %w", err)
	}

	// A cut project file rides along so the edit stays revisable in a
	// desktop editor.
	projectPath := filepath.Join(tempDir, "cut.mlt")
	f, err := os.Create(projectPath)
	if err != nil {
		return "", fmt.Errorf("cut stage: %w", err)
	}
	writeErr := render.WriteCutXML(f, inputPath, set, props)
	closeErr := f.Close()
	if writeErr != nil {
		return "", fmt.Errorf("cut stage: %w", writeErr)
	}
	if closeErr != nil {
		return "", fmt.Errorf("cut stage: %w", closeErr)
	}

	if err := s.storage.UploadFile(ctx, storage.ProjectKey(job.ID, "cut.mlt"), projectPath); err != nil {
		return "", fmt.Errorf("cut stage: %w", err)
	}

	s.finishStage(ctx, job, models.StageCut, start, nil)
	return cutPath, nil
}

// stageOverlay plans, generates and places image overlays, then composites
// them over the cut video with melt. Returning an empty path means no
// overlays could be placed and the plain cut stands.
func (s *Service) stageOverlay(ctx context.Context, job *models.EditJob, inputPath, tempDir string, set models.AdjustedSentenceSet, props *render.VideoProperties) (string, error) {
	start := time.Now()

	kept := make([]models.Sentence, 0, set.Len())
	for _, adj := range set.Sentences {
		kept = append(kept, models.Sentence{Text: adj.Text, Start: adj.AdjustedStart, End: adj.AdjustedEnd, Words: adj.Words})
	}

	plan, err := s.llm.PlanImages(ctx, kept)
	if err != nil {
		return "", fmt.Errorf("overlay stage: %w", err)
	}
	if len(plan.Images) == 0 {
		s.finishStage(ctx, job, models.StageOverlay, start, nil)
		return "", nil
	}

	imageDir := filepath.Join(tempDir, "overlays")
	if err := os.MkdirAll(imageDir, 0755); err != nil {
		return "", fmt.Errorf("overlay stage: %w", err)
	}

	prompts := make(map[string]string, len(plan.Images))
	script := models.Script{}
	for i, img := range plan.Images {
		filename := fmt.Sprintf("image_%d.png", i+1)
		prompts[filepath.Join(imageDir, filename)] = img.DetailedPrompt
		script.Lines = append(script.Lines, models.ScriptLine{
			Text:          img.Description,
			ImageFilename: filename,
		})
	}

	generated, err := s.llm.GenerateImages(ctx, prompts, s.cfg.Editor.MaxConcurrent)
	if err != nil {
		s.logger.ErrorWithErr("Some overlay images failed to generate", err)
	}
	if len(generated) == 0 {
		s.finishStage(ctx, job, models.StageOverlay, start, nil)
		return "", nil
	}

	placements, err := s.llm.PlaceImages(ctx, script, set, imageDir)
	if err != nil {
		return "", fmt.Errorf("overlay stage: %w", err)
	}

	resolver := timeline.Resolver{
		Policy:       s.overlayPolicy(job),
		WindowFrames: s.overlayWindowFrames(job),
		FPS:          props.FPS,
	}
	overlays := resolver.ResolveAll(placements.Placements, timeline.Build(set))
	if len(overlays) == 0 {
		s.finishStage(ctx, job, models.StageOverlay, start, nil)
		return "", nil
	}

	projectPath := filepath.Join(tempDir, "overlay.mlt")
	f, err := os.Create(projectPath)
	if err != nil {
		return "", fmt.Errorf("overlay stage: %w", err)
	}
	writeErr := render.WriteOverlayXML(f, inputPath, overlays, props, render.DefaultSafeZone)
	closeErr := f.Close()
	if writeErr != nil {
		return "", fmt.Errorf("overlay stage: %w", writeErr)
	}
	if closeErr != nil {
		return "", fmt.Errorf("overlay stage: %w", closeErr)
	}

	outputPath := filepath.Join(tempDir, "overlay.mp4")
	if err := s.melt.Render(ctx, projectPath, outputPath); err != nil {
		return "", fmt.Errorf("overlay stage: %w", err)
	}

	for _, path := range generated {
		key := storage.OverlayKey(job.ID, filepath.Base(path))
		if err := s.storage.UploadFile(ctx, key, path); err != nil {
			s.logger.ErrorWithErr("Failed to upload overlay image", err)
		}
	}
	if err := s.storage.UploadFile(ctx, storage.ProjectKey(job.ID, "overlay.mlt"), projectPath); err != nil {
		return "", fmt.Errorf("overlay stage: %w", err)
	}

	metrics.OverlaysPlacedTotal.Add(float64(len(overlays)))
	s.finishStage(ctx, job, models.StageOverlay, start, nil)
	return outputPath, nil
}

func (s *Service) overlayPolicy(job *models.EditJob) timeline.OverlayPolicy {
	if job.Config.OverlayPolicy != "" {
		return timeline.OverlayPolicy(job.Config.OverlayPolicy)
	}
	return timeline.OverlayPolicy(s.cfg.Render.OverlayPolicy)
}

func (s *Service) overlayWindowFrames(job *models.EditJob) int {
	if job.Config.OverlayWindowFrames > 0 {
		return job.Config.OverlayWindowFrames
	}
	return s.cfg.Render.OverlayWindowFrames
}

// finishStage records stage completion: progress checkpoint, duration
// metrics, and the pipeline log line.
func (s *Service) finishStage(ctx context.Context, job *models.EditJob, stage string, start time.Time, err error) {
	duration := time.Since(start)
	s.logger.LogPipelineStage(job.ID, stage, duration, err)
	metrics.RecordStage(stage, duration.Seconds())

	progress := stageProgress[stage]
	job.Stage = stage
	job.Progress = progress

	if dbErr := s.repo.UpdateJobStage(ctx, job.ID, stage, progress); dbErr != nil {
		s.logger.ErrorWithErr("Failed to persist job stage", dbErr)
	}
	if s.cache != nil {
		if cacheErr := s.cache.SetJobProgress(ctx, job.ID, progress, s.cfg.Editor.CacheTTL); cacheErr != nil {
			s.logger.ErrorWithErr("Failed to cache job progress", cacheErr)
		}
	}
}

// failJob marks a job as failed and returns the original error
func (s *Service) failJob(ctx context.Context, job *models.EditJob, span opentracing.Span, err error) error {
	tracing.LogError(span, err)
	metrics.RecordJobCompleted(models.JobStatusFailed)
	metrics.RecordError("editor", job.Stage)

	if updateErr := s.repo.MarkJobFailed(ctx, job.ID, err.Error()); updateErr != nil {
		return fmt.Errorf("failed to update job: %w (original error: %v)", updateErr, err)
	}

	return err
}

// fileHash returns a short content hash for cache keying
func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil))[:16], nil
}
