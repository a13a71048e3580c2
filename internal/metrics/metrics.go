package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talkcut_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "talkcut_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Upload Metrics
	VideoUploadsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "talkcut_video_uploads_total",
			Help: "Total number of video uploads",
		},
	)

	VideoUploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "talkcut_video_upload_size_bytes",
			Help:    "Size of uploaded videos in bytes",
			Buckets: prometheus.ExponentialBuckets(1024*1024, 2, 15), // 1MB to 16GB
		},
	)

	// Job Metrics
	JobsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talkcut_jobs_created_total",
			Help: "Total number of edit jobs created",
		},
		[]string{"priority"},
	)

	JobsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talkcut_jobs_completed_total",
			Help: "Total number of finished edit jobs",
		},
		[]string{"status"},
	)

	JobsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "talkcut_jobs_in_progress",
			Help: "Number of jobs currently being processed",
		},
	)

	JobsQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "talkcut_jobs_queue_depth",
			Help: "Number of jobs waiting in queue",
		},
	)

	// Pipeline Metrics
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "talkcut_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 14), // 100ms to ~27 minutes
		},
		[]string{"stage"},
	)

	SentencesTrimmedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "talkcut_sentences_trimmed_total",
			Help: "Total number of sentences whose boundaries were trimmed",
		},
	)

	ThresholdSourceTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talkcut_threshold_source_total",
			Help: "Silence thresholds used, by granularity",
		},
		[]string{"source"},
	)

	SilenceRemovedSeconds = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "talkcut_silence_removed_seconds_total",
			Help: "Total seconds of silence trimmed from sentence boundaries",
		},
	)

	OverlaysPlacedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "talkcut_overlays_placed_total",
			Help: "Total number of image overlays placed on timelines",
		},
	)

	// Worker Metrics
	WorkerActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "talkcut_worker_active",
			Help: "Number of active workers",
		},
	)

	WorkerJobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talkcut_worker_jobs_processed_total",
			Help: "Total number of jobs processed by workers",
		},
		[]string{"worker_id"},
	)

	// Storage Metrics
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talkcut_storage_operations_total",
			Help: "Total number of storage operations",
		},
		[]string{"operation", "status"},
	)

	StorageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "talkcut_storage_operation_duration_seconds",
			Help:    "Storage operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"operation"},
	)

	// Cache Metrics
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talkcut_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talkcut_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// Error Metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talkcut_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// Business Metrics
	VideoDurationProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "talkcut_video_duration_processed_seconds_total",
			Help: "Total duration of video processed in seconds",
		},
	)
)

// RecordHTTPRequest records an HTTP request
func RecordHTTPRequest(method, endpoint, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordJobCreated records a job creation
func RecordJobCreated(priority string) {
	JobsCreatedTotal.WithLabelValues(priority).Inc()
}

// RecordJobCompleted records a job reaching a terminal status
func RecordJobCompleted(status string) {
	JobsCompletedTotal.WithLabelValues(status).Inc()
}

// UpdateJobMetrics updates current job metrics
func UpdateJobMetrics(inProgress, queueDepth int) {
	JobsInProgress.Set(float64(inProgress))
	JobsQueueDepth.Set(float64(queueDepth))
}

// RecordStage records a completed pipeline stage
func RecordStage(stage string, duration float64) {
	StageDuration.WithLabelValues(stage).Observe(duration)
}

// RecordTrim records one trimmed sentence: which threshold granularity was
// used and how much silence came off relative to the rough bounds.
func RecordTrim(thresholdSource string, removedSeconds float64) {
	SentencesTrimmedTotal.Inc()
	ThresholdSourceTotal.WithLabelValues(thresholdSource).Inc()
	if removedSeconds > 0 {
		SilenceRemovedSeconds.Add(removedSeconds)
	}
}

// RecordStorageOperation records a storage operation
func RecordStorageOperation(operation, status string, duration float64) {
	StorageOperationsTotal.WithLabelValues(operation, status).Inc()
	StorageOperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordCacheAccess records cache hit or miss
func RecordCacheAccess(cacheType string, hit bool) {
	if hit {
		CacheHitsTotal.WithLabelValues(cacheType).Inc()
	} else {
		CacheMissesTotal.WithLabelValues(cacheType).Inc()
	}
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}
