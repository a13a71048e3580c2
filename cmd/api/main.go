package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ogdean/talkcut/internal/cache"
	"github.com/ogdean/talkcut/internal/config"
	"github.com/ogdean/talkcut/internal/database"
	"github.com/ogdean/talkcut/internal/llm"
	"github.com/ogdean/talkcut/internal/logging"
	"github.com/ogdean/talkcut/internal/metrics"
	"github.com/ogdean/talkcut/internal/middleware"
	"github.com/ogdean/talkcut/internal/queue"
	"github.com/ogdean/talkcut/internal/render"
	"github.com/ogdean/talkcut/internal/scheduler"
	"github.com/ogdean/talkcut/internal/storage"
	"github.com/ogdean/talkcut/internal/tracing"
	"github.com/ogdean/talkcut/internal/webhook"
)

// API holds the handler dependencies
type API struct {
	cfg      *config.Config
	repo     *database.Repository
	storage  *storage.Storage
	queue    *queue.Queue
	cache    *cache.Cache
	llm      *llm.Client
	ffmpeg   *render.FFmpeg
	notifier *webhook.Notifier
	logger   *logging.Logger
}

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewDefaultLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if cfg.Tracing.Enabled {
		_, closer, err := tracing.InitTracer("talkcut-api", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Fatalf("Failed to initialize tracer: %v", err)
		}
		defer closer.Close()
	}

	middleware.SetJWTSecret(cfg.Server.JWTSecret)

	db, err := database.New(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repo := database.NewRepository(db)

	stor, err := storage.New(cfg.Storage, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	q, err := queue.New(cfg.Queue)
	if err != nil {
		logger.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()

	c, err := cache.NewCache(cfg.Redis)
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer c.Close()

	api := &API{
		cfg:      cfg,
		repo:     repo,
		storage:  stor,
		queue:    q,
		cache:    c,
		llm:      llm.NewClient(cfg.LLM),
		ffmpeg:   render.NewFFmpeg(cfg.Render.FFmpegPath, cfg.Render.FFprobePath),
		notifier: webhook.NewNotifier(cfg.Webhook, logger),
		logger:   logger,
	}

	requeuerCtx, stopRequeuer := context.WithCancel(context.Background())
	defer stopRequeuer()
	go scheduler.NewRequeuer(repo, q, time.Minute, 10*time.Minute, logger).Start(requeuerCtx)

	router := setupRouter(api)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	metricsServer := metrics.NewServer(cfg.Server.MetricsPort)
	go func() {
		if err := metricsServer.Start(); err != nil {
			logger.ErrorWithErr("Metrics server stopped", err)
		}
	}()

	go func() {
		logger.Infof("Starting API server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}
	metricsServer.Shutdown(ctx)

	logger.Info("Server stopped")
}

func setupRouter(api *API) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())

	limiter := middleware.NewRateLimiter(api.cfg.Server.RateLimitRPS, api.cfg.Server.RateLimitBurst)
	router.Use(middleware.RateLimit(limiter))

	router.GET("/health", api.healthCheck)

	v1 := router.Group("/api/v1")
	if api.cfg.Server.JWTSecret != "" {
		v1.Use(middleware.JWTAuth())
	}
	{
		// Videos
		v1.POST("/videos/upload", api.uploadVideo)
		v1.GET("/videos/:id", api.getVideo)
		v1.GET("/videos", api.listVideos)
		v1.DELETE("/videos/:id", api.deleteVideo)

		// Jobs
		v1.POST("/videos/:id/edit", api.createEditJob)
		v1.GET("/videos/:id/jobs", api.getVideoJobs)
		v1.GET("/jobs/:id", api.getJob)

		// Review
		v1.GET("/jobs/:id/sentences", api.getAdjustedSentences)
		v1.GET("/jobs/:id/verdicts", api.getVerdicts)
		v1.PATCH("/jobs/:id/verdicts", api.patchVerdicts)
		v1.POST("/jobs/:id/feedback", api.postFeedback)
		v1.GET("/jobs/:id/timeline", api.getTimeline)
		v1.POST("/jobs/:id/overlays/resolve", api.resolveOverlays)
		v1.GET("/jobs/:id/output", api.getOutputURL)
	}

	return router
}
