package workflow

import (
	"context"
	"sync"

	"github.com/hibiken/asynq"
	json "github.com/goccy/go-json"
	"github.com/mhosigiri/FeedbackAI/internal/config"
	"github.com/sirupsen/logrus"
)

// Worker processes classification tasks from Redis
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor Processor
	wg        sync.WaitGroup
	running   bool
	mu        sync.Mutex
}

// NewWorker returns nil when Redis is disabled
func NewWorker(cfg *config.Config) *Worker {
	if !cfg.RedisEnabled {
		return nil
	}

	concurrency := cfg.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	server := asynq.NewServer(
		redisOpt(cfg),
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"default": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logrus.Warnf("Error processing task %s: %v", task.Type(), err)
			}),
		},
	)

	return &Worker{
		server: server,
		mux:    asynq.NewServeMux(),
	}
}

func (w *Worker) SetProcessor(processor Processor) {
	w.processor = processor
}

func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	w.mux.HandleFunc(TaskTypeClassify, w.handleClassifyTask)

	w.running = true
	w.wg.Add(1)

	go func() {
		defer w.wg.Done()
		logrus.Info("Starting classification worker")
		if err := w.server.Run(w.mux); err != nil {
			logrus.Errorf("Classification worker stopped: %v", err)
		}
	}()

	return nil
}

func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	logrus.Info("Shutting down classification worker")
	w.server.Shutdown()
	w.running = false
	w.wg.Wait()
}

func (w *Worker) handleClassifyTask(ctx context.Context, t *asynq.Task) error {
	var task ClassifyTask
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		logrus.Errorf("Failed to unmarshal task: %v", err)
		return err
	}

	if w.processor == nil {
		logrus.Warn("No processor set for classification worker")
		return nil
	}

	logrus.Debugf("Processing classification task for %s", task.FeedbackID)
	return w.processor(ctx, &task)
}
