package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/hr-rag/internal/ai"
	"github.com/cuongbtq/hr-rag/internal/collab"
	"github.com/cuongbtq/hr-rag/internal/document"
	"github.com/cuongbtq/hr-rag/internal/notify"
	"github.com/cuongbtq/hr-rag/internal/rag"
	"github.com/cuongbtq/hr-rag/internal/worker/domain"
)

// processJob runs the handler under the optional job timeout and classifies
// the result.
func (w *Worker) processJob(ctx context.Context, msg *domain.JobMessage) error {
	start := time.Now()

	jobCtx := ctx
	if w.jobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, w.jobTimeout)
		defer cancel()
	}

	err := w.handler.Handle(jobCtx, msg.Envelope)
	if err != nil {
		return classify(err)
	}

	w.logger.Info("Job completed successfully",
		slog.String("job_id", msg.JobID()),
		slog.String("kind", string(msg.Envelope.Kind)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// classify sorts a handler error into retryable or permanent.
func classify(err error) error {
	switch {
	case domain.IsRetryable(err), errors.Is(err, domain.ErrTaskFailure):
		return err
	case errors.Is(err, domain.ErrInvalidPayload),
		errors.Is(err, domain.ErrUnknownKind),
		errors.Is(err, rag.ErrNotFound),
		errors.Is(err, document.ErrUnsupportedFormat),
		errors.Is(err, document.ErrExtractionFailed),
		errors.Is(err, ai.ErrDimensionMismatch),
		errors.Is(err, collab.ErrDisabled):
		return fmt.Errorf("%w: %w", domain.ErrTaskFailure, err)
	case ai.IsTransient(err), collab.IsTransient(err), errors.Is(err, context.DeadlineExceeded):
		return domain.NewRetryableError(err)
	case errors.Is(err, ai.ErrEmbedding), errors.Is(err, ai.ErrGeneration):
		return fmt.Errorf("%w: %w", domain.ErrTaskFailure, err)
	default:
		// Storage and other unclassified failures get another attempt.
		return domain.NewRetryableError(err)
	}
}

// settle acknowledges the delivery according to the job result. A retry is
// republished with the attempt counter advanced and the original acked, so
// the attempt budget survives redelivery.
func (w *Worker) settle(ctx context.Context, log *slog.Logger, msg *domain.JobMessage, err error) {
	env := msg.Envelope
	log = log.With(
		slog.String("job_id", env.JobID),
		slog.String("kind", string(env.Kind)),
		slog.Int("attempt", env.Attempt),
	)

	if err == nil {
		if ackErr := msg.Delivery.Ack(false); ackErr != nil {
			log.Error("Failed to ACK message", slog.Any("error", ackErr))
		}
		return
	}

	log.Error("Job processing failed", slog.Any("error", err))

	if domain.IsRetryable(err) {
		if env.Attempt < w.maxAttempts {
			retry := env.Retry()
			if pubErr := w.republisher.Publish(ctx, &retry); pubErr != nil {
				log.Error("Failed to republish job, requeueing delivery", slog.Any("error", pubErr))
				if nackErr := msg.Delivery.Nack(false, true); nackErr != nil {
					log.Error("Failed to NACK message", slog.Any("error", nackErr))
				}
				return
			}
			if ackErr := msg.Delivery.Ack(false); ackErr != nil {
				log.Error("Failed to ACK message", slog.Any("error", ackErr))
			}
			log.Info("Job requeued", slog.Int("next_attempt", retry.Attempt))
			return
		}
		err = fmt.Errorf("%w after %d attempts: %w", domain.ErrMaxRetriesExceeded, env.Attempt, err)
	}

	w.deadLetter(ctx, log, msg, err)
}

func (w *Worker) deadLetter(ctx context.Context, log *slog.Logger, msg *domain.JobMessage, err error) {
	if nackErr := msg.Delivery.Nack(false, false); nackErr != nil {
		log.Error("Failed to NACK message", slog.Any("error", nackErr))
	}
	log.Warn("Job dead-lettered", slog.Any("error", err))

	if d, ok := w.handler.(Discarder); ok {
		d.Discard(msg.Envelope)
	}

	w.report(ctx, notify.Failure{
		JobID:   msg.JobID(),
		Kind:    string(msg.Envelope.Kind),
		Attempt: msg.Envelope.Attempt,
		Err:     err,
	})
}

func (w *Worker) report(ctx context.Context, f notify.Failure) {
	if f.At.IsZero() {
		f.At = time.Now().UTC()
	}
	if err := w.reporter.ReportFailure(ctx, f); err != nil {
		w.logger.Warn("Failed to report job failure",
			slog.String("job_id", f.JobID),
			slog.Any("error", err),
		)
	}
}
