package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ogdean/talkcut/internal/cache"
	"github.com/ogdean/talkcut/internal/config"
	"github.com/ogdean/talkcut/internal/database"
	"github.com/ogdean/talkcut/internal/editor"
	"github.com/ogdean/talkcut/internal/llm"
	"github.com/ogdean/talkcut/internal/logging"
	"github.com/ogdean/talkcut/internal/metrics"
	"github.com/ogdean/talkcut/internal/queue"
	"github.com/ogdean/talkcut/internal/storage"
	"github.com/ogdean/talkcut/internal/stt"
	"github.com/ogdean/talkcut/internal/tracing"
	"github.com/ogdean/talkcut/internal/webhook"
	"github.com/ogdean/talkcut/pkg/models"
)

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
		_, closer, err := tracing.InitTracer("talkcut-worker", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Fatalf("Failed to initialize tracer: %v", err)
		}
		defer closer.Close()
	}

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

	if err := q.SetupDeadLetterQueue(); err != nil {
		logger.Fatalf("Failed to set up dead letter queue: %v", err)
	}

	c, err := cache.NewCache(cfg.Redis)
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer c.Close()

	service := editor.NewService(cfg, stor, repo, c, newTranscriber(cfg), llm.NewClient(cfg.LLM), logger)
	notifier := webhook.NewNotifier(cfg.Webhook, logger)

	// The worker exposes metrics on the port after the API's
	metricsServer := metrics.NewServer(cfg.Server.MetricsPort + 1)
	go func() {
		if err := metricsServer.Start(); err != nil {
			logger.ErrorWithErr("Metrics server stopped", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logger.Info("Shutting down worker")
		cancel()
	}()

	metrics.WorkerActive.Inc()
	defer metrics.WorkerActive.Dec()

	logger.Infof("Worker %s consuming jobs", service.WorkerID())

	handler := func(job *models.EditJob) error {
		if err := service.ProcessJob(ctx, job); err != nil {
			logger.ErrorWithErr("Job failed", err)
			if retryErr := q.PublishToRetryQueue(ctx, job, job.RetryCount); retryErr != nil {
				logger.ErrorWithErr("Failed to schedule job retry", retryErr)
			}
			if notifyErr := notifier.NotifyJobFailed(ctx, job); notifyErr != nil {
				logger.ErrorWithErr("Failed to deliver failure webhook", notifyErr)
			}
			return err
		}
		if notifyErr := notifier.NotifyJobCompleted(ctx, job); notifyErr != nil {
			logger.ErrorWithErr("Failed to deliver completion webhook", notifyErr)
		}
		return nil
	}

	if err := q.ConsumeJobs(ctx, handler); err != nil {
		logger.Fatalf("Failed to consume jobs: %v", err)
	}

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	metricsServer.Shutdown(shutdownCtx)

	logger.Info("Worker stopped")
}

// newTranscriber selects the speech-to-text provider
func newTranscriber(cfg *config.Config) stt.Transcriber {
	return stt.NewElevenLabs(cfg.STT)
}

