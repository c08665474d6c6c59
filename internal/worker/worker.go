package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cuongbtq/hr-rag/internal/jobs"
	"github.com/cuongbtq/hr-rag/internal/notify"
	"github.com/cuongbtq/hr-rag/internal/worker/domain"
)

// Broker is the consuming side of the queue. *rabbitmq.Client satisfies it.
type Broker interface {
	Qos(prefetchCount int) error
	Consume(consumerTag string) (<-chan amqp.Delivery, error)
}

// Republisher puts a retry back on the queue. *jobs.Submitter satisfies it.
type Republisher interface {
	Publish(ctx context.Context, env *jobs.Envelope) error
}

// Handler executes one decoded job.
type Handler interface {
	Handle(ctx context.Context, env *jobs.Envelope) error
}

// Config holds worker configuration
type Config struct {
	Logger        *slog.Logger
	Broker        Broker
	Republisher   Republisher
	Handler       Handler
	Reporter      notify.Reporter
	WorkerID      string
	Concurrency   int
	PrefetchCount int
	// JobTimeout bounds one execution; zero lets a job run to completion.
	JobTimeout  time.Duration
	MaxAttempts int
}

// Worker consumes job envelopes and runs them on a fixed pool of goroutines
type Worker struct {
	logger        *slog.Logger
	broker        Broker
	republisher   Republisher
	handler       Handler
	reporter      notify.Reporter
	workerID      string
	concurrency   int
	prefetchCount int
	jobTimeout    time.Duration
	maxAttempts   int

	jobsChan chan *domain.JobMessage
	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) (*Worker, error) {
	if cfg.Broker == nil || cfg.Republisher == nil || cfg.Handler == nil {
		return nil, errors.New("worker requires a broker, a republisher and a handler")
	}
	if cfg.Concurrency <= 0 {
		return nil, fmt.Errorf("invalid concurrency: %d", cfg.Concurrency)
	}
	if cfg.MaxAttempts <= 0 {
		return nil, fmt.Errorf("invalid max attempts: %d", cfg.MaxAttempts)
	}

	workerID := cfg.WorkerID
	if workerID == "" {
		workerID = "worker-" + uuid.NewString()[:8]
	}
	prefetch := cfg.PrefetchCount
	if prefetch <= 0 {
		prefetch = cfg.Concurrency
	}
	reporter := cfg.Reporter
	if reporter == nil {
		reporter = notify.Nop{}
	}

	return &Worker{
		logger:        cfg.Logger,
		broker:        cfg.Broker,
		republisher:   cfg.Republisher,
		handler:       cfg.Handler,
		reporter:      reporter,
		workerID:      workerID,
		concurrency:   cfg.Concurrency,
		prefetchCount: prefetch,
		jobTimeout:    cfg.JobTimeout,
		maxAttempts:   cfg.MaxAttempts,
		jobsChan:      make(chan *domain.JobMessage),
		stopChan:      make(chan struct{}),
	}, nil
}

// Start subscribes to the queue and blocks until ctx is canceled or the
// delivery channel closes. A closed channel is returned as an error so the
// service can exit and be restarted.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("job_timeout", w.jobTimeout),
		slog.Int("max_attempts", w.maxAttempts),
	)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return err
	}

	w.spawnWorkerPool(ctx)

	if closed := w.startMessageDispatcher(ctx, deliveries); closed {
		return errors.New("rabbitmq delivery channel closed")
	}
	w.logger.Info("Worker context canceled, stopping...")
	return nil
}

// Stop waits for in-flight jobs to settle
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	w.stopOnce.Do(func() { close(w.stopChan) })
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
