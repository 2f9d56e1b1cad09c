package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mhosigiri/FeedbackAI/internal/analysis"
	"github.com/mhosigiri/FeedbackAI/internal/api"
	"github.com/mhosigiri/FeedbackAI/internal/cases"
	"github.com/mhosigiri/FeedbackAI/internal/classifier"
	"github.com/mhosigiri/FeedbackAI/internal/config"
	"github.com/mhosigiri/FeedbackAI/internal/notifications"
	"github.com/mhosigiri/FeedbackAI/internal/scheduler"
	"github.com/mhosigiri/FeedbackAI/internal/storage"
	"github.com/mhosigiri/FeedbackAI/internal/workflow"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg)
	logrus.Info("Starting FeedbackAI")

	ctx := context.Background()

	blobs, err := openStorage(ctx, cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize storage: %v", err)
	}

	store, err := openCaseStore(ctx, cfg, blobs)
	if err != nil {
		logrus.Fatalf("Failed to initialize case store: %v", err)
	}
	defer store.Close()

	primary := classifier.New(cfg)
	var fallback classifier.Classifier
	if _, heuristic := primary.(*classifier.HeuristicClassifier); !heuristic {
		fallback = classifier.NewHeuristicClassifier()
	}

	// Classification queue: Redis when enabled, otherwise in-process workers
	queue := workflow.NewTaskQueue(cfg)
	defer queue.Close()

	pipeline := workflow.NewService(store, primary, fallback, queue, cfg.PendingGrace)

	switch q := queue.(type) {
	case *workflow.LocalQueue:
		q.SetProcessor(pipeline.Process)
		q.Start(ctx)
	case *workflow.AsyncQueue:
		worker := workflow.NewWorker(cfg)
		worker.SetProcessor(pipeline.Process)
		if err := worker.Start(); err != nil {
			logrus.Fatalf("Failed to start classification worker: %v", err)
		}
		defer worker.Stop()
	}

	analyzer := analysis.NewService(cfg, analysis.BuildSources(cfg, store), primary, archiveStorage(cfg, blobs))

	notificationService := notifications.NewService(cfg)
	digest := analysis.NewDigest(analyzer, store, notificationService)
	poller := workflow.NewPoller(store, notificationService)

	schedulerService, err := scheduler.NewService(cfg, digest, poller, pipeline)
	if err != nil {
		logrus.Fatalf("Failed to create scheduler: %v", err)
	}
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	handler := api.NewServer(cfg, api.Dependencies{
		Analyzer:   analyzer,
		Cases:      pipeline,
		Assistant:  primary,
		Digest:     digest,
		AsyncQueue: queue.IsAsync(),
	}).Handler()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.AnalyzeTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server in a goroutine
	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

func setupLogging(cfg *config.Config) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	if cfg.Debug {
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.JSONFormatter{})
}

// openStorage returns the blob backend used for the case store and the
// analysis archive, or nil when neither needs one
func openStorage(ctx context.Context, cfg *config.Config) (storage.StorageInterface, error) {
	switch cfg.CaseStore {
	case "azure":
		return storage.NewAzureStorage(ctx, cfg.StorageAccount, cfg.StorageContainer)
	case "local":
		return storage.NewLocalStorage(cfg.LocalStorageDir)
	}

	if !cfg.ArchiveAnalyses {
		return nil, nil
	}
	if cfg.StorageAccount != "" {
		return storage.NewAzureStorage(ctx, cfg.StorageAccount, cfg.StorageContainer)
	}
	return storage.NewLocalStorage(cfg.LocalStorageDir)
}

func openCaseStore(ctx context.Context, cfg *config.Config, blobs storage.StorageInterface) (cases.Store, error) {
	switch cfg.CaseStore {
	case "postgres":
		logrus.Info("Using PostgreSQL case store")
		return cases.NewPostgresStore(ctx, cfg.DatabaseURL)
	case "azure", "local":
		logrus.Infof("Using %s blob case store", cfg.CaseStore)
		return cases.NewBlobStore(ctx, blobs)
	}
	logrus.Warn("Using in-memory case store; cases are lost on restart")
	return cases.NewMemoryStore(), nil
}

func archiveStorage(cfg *config.Config, blobs storage.StorageInterface) storage.StorageInterface {
	if !cfg.ArchiveAnalyses {
		return nil
	}
	return blobs
}
