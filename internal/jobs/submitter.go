package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/hr-rag/shared/rabbitmq"
)

// Publisher is the broker side of the submitter. *rabbitmq.Client satisfies it.
type Publisher interface {
	Publish(ctx context.Context, msg rabbitmq.Message) error
}

// Submitter enqueues jobs and returns their token without waiting for execution.
type Submitter struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewSubmitter creates a Submitter publishing through p.
func NewSubmitter(p Publisher, logger *slog.Logger) *Submitter {
	return &Submitter{publisher: p, logger: logger}
}

// Submit validates payload, publishes a first-attempt envelope and returns the job token.
func (s *Submitter) Submit(ctx context.Context, payload Payload) (string, error) {
	env, err := NewEnvelope(payload)
	if err != nil {
		return "", err
	}
	if err := s.Publish(ctx, env); err != nil {
		return "", err
	}

	s.logger.Info("Job submitted",
		slog.String("job_id", env.JobID),
		slog.String("kind", string(env.Kind)),
	)
	return env.JobID, nil
}

// Publish sends env as-is. The worker uses it to republish a retry.
func (s *Submitter) Publish(ctx context.Context, env *Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal job envelope: %w", err)
	}

	err = s.publisher.Publish(ctx, rabbitmq.Message{
		ID:          env.JobID,
		Type:        string(env.Kind),
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue %s job %s: %w", env.Kind, env.JobID, err)
	}
	return nil
}
