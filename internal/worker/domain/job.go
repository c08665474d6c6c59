package domain

import (
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cuongbtq/hr-rag/internal/jobs"
)

// JobMessage is a decoded delivery handed from the dispatcher to the pool
type JobMessage struct {
	Envelope *jobs.Envelope
	Delivery amqp.Delivery
}

// JobID returns the job token carried by the envelope
func (m *JobMessage) JobID() string {
	return m.Envelope.JobID
}
