package worker

import (
	"context"
	"fmt"
	"log/slog"
)

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	w.logger.Info("Spawning worker pool",
		slog.Int("concurrency", w.concurrency),
		slog.String("worker_id", w.workerID),
	)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}
}

// workerLoop is the main processing loop for each worker goroutine
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	log := w.logger.With(slog.String("worker_name", workerName))
	log.Debug("Worker goroutine started")

	for {
		select {
		case <-w.stopChan:
			log.Debug("Worker goroutine stopping - stopChan closed")
			return

		case <-ctx.Done():
			log.Debug("Worker goroutine stopping - context canceled")
			return

		case msg := <-w.jobsChan:
			log.Info("Worker received job",
				slog.String("job_id", msg.JobID()),
				slog.String("kind", string(msg.Envelope.Kind)),
				slog.Int("attempt", msg.Envelope.Attempt),
				slog.Uint64("delivery_tag", msg.Delivery.DeliveryTag),
			)

			// In-flight jobs finish even when shutdown starts.
			jobCtx := context.WithoutCancel(ctx)
			err := w.processJob(jobCtx, msg)
			w.settle(jobCtx, log, msg, err)
		}
	}
}
