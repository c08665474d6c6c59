package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/hr-rag/internal/ai"
	"github.com/cuongbtq/hr-rag/internal/collab"
	"github.com/cuongbtq/hr-rag/internal/document"
	"github.com/cuongbtq/hr-rag/internal/jobs"
	"github.com/cuongbtq/hr-rag/internal/notify"
	"github.com/cuongbtq/hr-rag/internal/rag"
	"github.com/cuongbtq/hr-rag/internal/worker/domain"
	"github.com/cuongbtq/hr-rag/shared/logger"
)

type ackCall struct {
	tag     uint64
	ack     bool
	requeue bool
}

type fakeAcknowledger struct {
	mu    sync.Mutex
	calls []ackCall
}

func (a *fakeAcknowledger) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, ackCall{tag: tag, ack: true})
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, ackCall{tag: tag, requeue: requeue})
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func (a *fakeAcknowledger) snapshot() []ackCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]ackCall(nil), a.calls...)
}

type fakeRepublisher struct {
	mu        sync.Mutex
	published []jobs.Envelope
	err       error
}

func (r *fakeRepublisher) Publish(_ context.Context, env *jobs.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.published = append(r.published, *env)
	return nil
}

type fakeReporter struct {
	mu       sync.Mutex
	failures []notify.Failure
}

func (r *fakeReporter) ReportFailure(_ context.Context, f notify.Failure) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, f)
	return nil
}

type handlerFunc func(ctx context.Context, env *jobs.Envelope) error

func (f handlerFunc) Handle(ctx context.Context, env *jobs.Envelope) error { return f(ctx, env) }

type fakeBroker struct {
	deliveries chan amqp.Delivery
	prefetch   int
}

func (b *fakeBroker) Qos(n int) error { b.prefetch = n; return nil }

func (b *fakeBroker) Consume(string) (<-chan amqp.Delivery, error) { return b.deliveries, nil }

func newTestWorker(t *testing.T, h Handler, pub *fakeRepublisher, rep *fakeReporter) *Worker {
	t.Helper()
	w, err := NewWorker(&Config{
		Logger:      logger.NewNop(),
		Broker:      &fakeBroker{deliveries: make(chan amqp.Delivery)},
		Republisher: pub,
		Handler:     h,
		Reporter:    rep,
		Concurrency: 1,
		MaxAttempts: 3,
	})
	require.NoError(t, err)
	return w
}

func newMessage(t *testing.T, attempt int, ack amqp.Acknowledger) *domain.JobMessage {
	t.Helper()
	env, err := jobs.NewEnvelope(jobs.ProcessDocumentPayload{DocumentID: 7, FilePath: "/tmp/a.pdf"})
	require.NoError(t, err)
	env.Attempt = attempt
	return &domain.JobMessage{Envelope: env, Delivery: amqp.Delivery{Acknowledger: ack, DeliveryTag: 11}}
}

func TestWorker_Settle(t *testing.T) {
	transient := ai.EmbeddingError("openai", true, errors.New("502 bad gateway"))

	tests := []struct {
		name          string
		attempt       int
		handlerErr    error
		publishErr    error
		wantAck       ackCall
		wantPublished int
		wantReported  bool
		wantReportErr error
	}{
		{
			name:    "success acks",
			attempt: 1,
			wantAck: ackCall{tag: 11, ack: true},
		},
		{
			name:          "transient failure is republished with next attempt",
			attempt:       1,
			handlerErr:    transient,
			wantAck:       ackCall{tag: 11, ack: true},
			wantPublished: 1,
		},
		{
			name:          "transient failure on last attempt is dead-lettered",
			attempt:       3,
			handlerErr:    transient,
			wantAck:       ackCall{tag: 11},
			wantReported:  true,
			wantReportErr: domain.ErrMaxRetriesExceeded,
		},
		{
			name:          "missing document is dead-lettered immediately",
			attempt:       1,
			handlerErr:    fmt.Errorf("document 7: %w", rag.ErrNotFound),
			wantAck:       ackCall{tag: 11},
			wantReported:  true,
			wantReportErr: domain.ErrTaskFailure,
		},
		{
			name:       "failed republish requeues the delivery",
			attempt:    1,
			handlerErr: transient,
			publishErr: errors.New("channel closed"),
			wantAck:    ackCall{tag: 11, requeue: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &fakeAcknowledger{}
			pub := &fakeRepublisher{err: tt.publishErr}
			rep := &fakeReporter{}
			w := newTestWorker(t, handlerFunc(func(context.Context, *jobs.Envelope) error {
				return tt.handlerErr
			}), pub, rep)

			msg := newMessage(t, tt.attempt, ack)
			err := w.processJob(context.Background(), msg)
			w.settle(context.Background(), w.logger, msg, err)

			assert.Equal(t, []ackCall{tt.wantAck}, ack.snapshot())
			require.Len(t, pub.published, tt.wantPublished)
			if tt.wantPublished > 0 {
				assert.Equal(t, msg.JobID(), pub.published[0].JobID)
				assert.Equal(t, tt.attempt+1, pub.published[0].Attempt)
			}
			if tt.wantReported {
				require.Len(t, rep.failures, 1)
				assert.ErrorIs(t, rep.failures[0].Err, tt.wantReportErr)
				assert.Equal(t, string(jobs.KindProcessDocument), rep.failures[0].Kind)
			} else {
				assert.Empty(t, rep.failures)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"invalid payload", fmt.Errorf("%w: bad", jobs.ErrInvalidPayload), false},
		{"not found", rag.ErrNotFound, false},
		{"unsupported format", document.ErrUnsupportedFormat, false},
		{"extraction failed", fmt.Errorf("x: %w", document.ErrExtractionFailed), false},
		{"calendar disabled", collab.ErrDisabled, false},
		{"permanent backend error", ai.GenerationError("openai", false, errors.New("401")), false},
		{"transient backend error", ai.GenerationError("openai", true, errors.New("429")), true},
		{"job timeout", fmt.Errorf("embed: %w", context.DeadlineExceeded), true},
		{"storage failure", errors.New("pq: connection refused"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			assert.Equal(t, tt.retryable, domain.IsRetryable(got))
			if !tt.retryable {
				assert.ErrorIs(t, got, domain.ErrTaskFailure)
			}
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestWorker_Start(t *testing.T) {
	deliveries := make(chan amqp.Delivery)
	broker := &fakeBroker{deliveries: deliveries}
	rep := &fakeReporter{}

	var mu sync.Mutex
	var handled []string
	w, err := NewWorker(&Config{
		Logger:      logger.NewNop(),
		Broker:      broker,
		Republisher: &fakeRepublisher{},
		Handler: handlerFunc(func(_ context.Context, env *jobs.Envelope) error {
			mu.Lock()
			defer mu.Unlock()
			handled = append(handled, env.JobID)
			return nil
		}),
		Reporter:    rep,
		Concurrency: 2,
		MaxAttempts: 3,
	})
	require.NoError(t, err)

	env, err := jobs.NewEnvelope(jobs.ScanResumePayload{ApplicationID: 3, FilePath: "/tmp/cv.pdf"})
	require.NoError(t, err)
	body, err := json.Marshal(env)
	require.NoError(t, err)

	ack := &fakeAcknowledger{}
	done := make(chan error, 1)
	go func() { done <- w.Start(context.Background()) }()

	deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte("{not json"), MessageId: "bad"}
	deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: body}
	close(deliveries)

	assert.Error(t, <-done)
	w.Stop()

	assert.Equal(t, 2, broker.prefetch)
	assert.ElementsMatch(t, []ackCall{{tag: 1}, {tag: 2, ack: true}}, ack.snapshot())
	assert.Equal(t, []string{env.JobID}, handled)
	require.Len(t, rep.failures, 1)
	assert.Equal(t, "bad", rep.failures[0].JobID)
	assert.ErrorIs(t, rep.failures[0].Err, jobs.ErrInvalidPayload)
}

func TestNewWorker_Rejects(t *testing.T) {
	_, err := NewWorker(&Config{Logger: logger.NewNop()})
	assert.Error(t, err)

	_, err = NewWorker(&Config{
		Logger:      logger.NewNop(),
		Broker:      &fakeBroker{},
		Republisher: &fakeRepublisher{},
		Handler:     handlerFunc(func(context.Context, *jobs.Envelope) error { return nil }),
		MaxAttempts: 1,
	})
	assert.Error(t, err)
}
