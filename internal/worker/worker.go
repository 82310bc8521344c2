// Package worker is a small redis-list job queue. The billing reconciler
// enqueues a notice whenever a subscription flag flips; the registered
// handler decides what to do with it (this service only logs).
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type JobType string

const (
	JobTypeSubscriptionNotice JobType = "subscription_notice"
)

const queueKeyPrefix = "momentum:queue:"

type Job struct {
	ID        string                 `json:"id"`
	Type      JobType                `json:"type"`
	Payload   map[string]interface{} `json:"payload"`
	Attempts  int                    `json:"attempts"`
	MaxTries  int                    `json:"max_tries"`
	CreatedAt time.Time              `json:"created_at"`
}

type JobHandler func(ctx context.Context, job *Job) error

type Config struct {
	RedisClient  *redis.Client
	Concurrency  int
	PollInterval time.Duration
	Queues       []string
	Logger       *zap.Logger
}

type Worker struct {
	client       *redis.Client
	handlers     map[JobType]JobHandler
	queues       []string
	concurrency  int
	pollInterval time.Duration
	log          *zap.Logger

	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewWorker(cfg Config) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	queues := cfg.Queues
	if len(queues) == 0 {
		queues = []string{"default"}
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Worker{
		client:       cfg.RedisClient,
		handlers:     make(map[JobType]JobHandler),
		queues:       queues,
		concurrency:  concurrency,
		pollInterval: pollInterval,
		log:          log,
		ctx:          ctx,
		cancel:       cancel,
	}
}

func (w *Worker) RegisterHandler(jobType JobType, handler JobHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[jobType] = handler
}

// Enqueue pushes a job onto the named queue. A zero MaxTries defaults to 3.
func (w *Worker) Enqueue(ctx context.Context, queue string, job *Job) error {
	if job.ID == "" {
		job.ID = uuid.Must(uuid.NewV4()).String()
	}
	if job.MaxTries <= 0 {
		job.MaxTries = 3
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	return w.client.LPush(ctx, queueKeyPrefix+queue, data).Err()
}

func (w *Worker) Start() {
	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.poll()
	}
	w.log.Info("worker started",
		zap.Int("concurrency", w.concurrency),
		zap.Strings("queues", w.queues),
	)
}

func (w *Worker) Stop() {
	w.cancel()
	w.wg.Wait()
	w.log.Info("worker stopped")
}

func (w *Worker) poll() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			for _, queue := range w.queues {
				w.drainQueue(queue)
			}
		}
	}
}

func (w *Worker) drainQueue(queue string) {
	for {
		select {
		case <-w.ctx.Done():
			return
		default:
		}

		data, err := w.client.RPop(w.ctx, queueKeyPrefix+queue).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && !errors.Is(err, context.Canceled) {
				w.log.Warn("queue pop failed", zap.String("queue", queue), zap.Error(err))
			}
			return
		}

		var job Job
		if err := json.Unmarshal([]byte(data), &job); err != nil {
			w.log.Error("discarding undecodable job", zap.String("queue", queue), zap.Error(err))
			continue
		}

		w.process(queue, &job)
	}
}

func (w *Worker) process(queue string, job *Job) {
	w.mu.RLock()
	handler, ok := w.handlers[job.Type]
	w.mu.RUnlock()

	if !ok {
		w.log.Warn("no handler for job type", zap.String("type", string(job.Type)))
		return
	}

	job.Attempts++
	if err := handler(w.ctx, job); err != nil {
		w.log.Error("job failed",
			zap.String("id", job.ID),
			zap.String("type", string(job.Type)),
			zap.Int("attempts", job.Attempts),
			zap.Error(err),
		)
		if job.Attempts < job.MaxTries {
			if reErr := w.Enqueue(w.ctx, queue, job); reErr != nil {
				w.log.Error("failed to re-enqueue job", zap.String("id", job.ID), zap.Error(reErr))
			}
		}
	}
}

// ProcessQueueOnce drains the named queue synchronously. Tests use it to
// avoid waiting out the poll interval.
func (w *Worker) ProcessQueueOnce(queue string) {
	w.drainQueue(queue)
}
