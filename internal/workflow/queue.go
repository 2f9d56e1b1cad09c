package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hibiken/asynq"
	json "github.com/goccy/go-json"
	"github.com/mhosigiri/FeedbackAI/internal/config"
	"github.com/sirupsen/logrus"
)

const (
	TaskTypeClassify = "feedback:classify"
)

var (
	// ErrQueueFull means the in-process queue buffer is full; the pending
	// sweep picks the submission up later
	ErrQueueFull   = errors.New("classification queue is full")
	ErrQueueClosed = errors.New("classification queue is closed")
)

// ClassifyTask asks for one submission to be classified
type ClassifyTask struct {
	FeedbackID string `json:"feedback_id"`
}

// Processor handles one classification task
type Processor func(ctx context.Context, task *ClassifyTask) error

// TaskQueue defines the interface for classification task processing
type TaskQueue interface {
	Enqueue(ctx context.Context, task *ClassifyTask) error
	// IsAsync returns true when tasks are handled by a Redis-backed worker
	IsAsync() bool
	Close() error
}

// NewTaskQueue returns the Redis queue when it is enabled and reachable and
// the in-process queue otherwise
func NewTaskQueue(cfg *config.Config) TaskQueue {
	if cfg.RedisEnabled {
		queue, err := NewAsyncQueue(cfg)
		if err == nil {
			logrus.Infof("Async classification queue initialized with Redis at %s", cfg.RedisAddr)
			return queue
		}
		logrus.Warnf("Redis unavailable, falling back to in-process queue: %v", err)
	}

	logrus.Info("In-process classification queue initialized")
	return NewLocalQueue(cfg.WorkerConcurrency, cfg.QueueBuffer)
}

func redisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

// AsyncQueue implements TaskQueue using asynq (Redis-based)
type AsyncQueue struct {
	client *asynq.Client
}

var _ TaskQueue = (*AsyncQueue)(nil)

func NewAsyncQueue(cfg *config.Config) (*AsyncQueue, error) {
	opt := redisOpt(cfg)
	client := asynq.NewClient(opt)

	inspector := asynq.NewInspector(opt)
	defer inspector.Close()

	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}

	return &AsyncQueue{client: client}, nil
}

// Enqueue uses the feedback id as task id, so a submission already queued
// is not queued twice
func (q *AsyncQueue) Enqueue(ctx context.Context, task *ClassifyTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}

	t := asynq.NewTask(TaskTypeClassify, payload)
	info, err := q.client.EnqueueContext(ctx, t,
		asynq.Queue("default"),
		asynq.MaxRetry(3),
		asynq.TaskID(task.FeedbackID),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		logrus.Debugf("Classification of %s is already queued", task.FeedbackID)
		return nil
	}
	if err != nil {
		return err
	}

	logrus.Debugf("Task enqueued: id=%s, queue=%s", info.ID, info.Queue)
	return nil
}

func (q *AsyncQueue) IsAsync() bool {
	return true
}

func (q *AsyncQueue) Close() error {
	return q.client.Close()
}

// LocalQueue implements TaskQueue with a bounded channel and a fixed pool of
// goroutines. Tasks are lost on restart; the pending sweep re-enqueues them.
type LocalQueue struct {
	tasks     chan *ClassifyTask
	workers   int
	processor Processor

	mu      sync.Mutex
	started bool
	closed  bool
	done    chan struct{}
	wg      sync.WaitGroup
}

var _ TaskQueue = (*LocalQueue)(nil)

func NewLocalQueue(workers, buffer int) *LocalQueue {
	if workers <= 0 {
		workers = 1
	}
	if buffer <= 0 {
		buffer = 64
	}
	return &LocalQueue{
		tasks:   make(chan *ClassifyTask, buffer),
		workers: workers,
		done:    make(chan struct{}),
	}
}

// SetProcessor sets the function that handles tasks
func (q *LocalQueue) SetProcessor(processor Processor) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.processor = processor
}

// Start launches the worker goroutines; tasks run under ctx
func (q *LocalQueue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.run(ctx)
	}
}

func (q *LocalQueue) run(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-q.done:
			return
		case <-ctx.Done():
			return
		case task := <-q.tasks:
			q.mu.Lock()
			processor := q.processor
			q.mu.Unlock()

			if processor == nil {
				logrus.Warnf("No processor set, dropping classification of %s", task.FeedbackID)
				continue
			}
			if err := processor(ctx, task); err != nil {
				logrus.Warnf("Classification of %s failed: %v", task.FeedbackID, err)
			}
		}
	}
}

// Enqueue never blocks; a full buffer returns ErrQueueFull
func (q *LocalQueue) Enqueue(ctx context.Context, task *ClassifyTask) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.tasks <- task:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrQueueFull, task.FeedbackID)
	}
}

func (q *LocalQueue) IsAsync() bool {
	return false
}

// Close stops the workers after their current task
func (q *LocalQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.done)
	q.mu.Unlock()

	q.wg.Wait()
	return nil
}
