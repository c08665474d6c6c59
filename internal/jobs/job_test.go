package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/hr-rag/shared/logger"
	"github.com/cuongbtq/hr-rag/shared/rabbitmq"
)

func TestPayload_Validate(t *testing.T) {
	tests := []struct {
		name    string
		payload Payload
		wantErr bool
	}{
		{"document ok", ProcessDocumentPayload{DocumentID: 7, FilePath: "/tmp/a.pdf"}, false},
		{"document missing id", ProcessDocumentPayload{FilePath: "/tmp/a.pdf"}, true},
		{"document missing path", ProcessDocumentPayload{DocumentID: 7, FilePath: "  "}, true},
		{"resume ok", ScanResumePayload{ApplicationID: 3, FilePath: "/tmp/cv.docx"}, false},
		{"resume missing id", ScanResumePayload{FilePath: "/tmp/cv.docx"}, true},
		{"meeting ok", ScheduleMeetingPayload{
			Summary: "Interview", StartTime: "2025-03-01T10:00:00", EndTime: "2025-03-01T10:30:00",
			AttendeeEmails: []string{"a@example.com"},
		}, false},
		{"meeting rfc3339", ScheduleMeetingPayload{
			Summary: "Interview", StartTime: "2025-03-01T10:00:00+05:30", EndTime: "2025-03-01T10:30:00+05:30",
			AttendeeEmails: []string{"a@example.com"},
		}, false},
		{"meeting ends before start", ScheduleMeetingPayload{
			Summary: "Interview", StartTime: "2025-03-01T10:00:00", EndTime: "2025-03-01T09:00:00",
			AttendeeEmails: []string{"a@example.com"},
		}, true},
		{"meeting bad time", ScheduleMeetingPayload{
			Summary: "Interview", StartTime: "tomorrow", EndTime: "2025-03-01T09:00:00",
			AttendeeEmails: []string{"a@example.com"},
		}, true},
		{"meeting no attendees", ScheduleMeetingPayload{
			Summary: "Interview", StartTime: "2025-03-01T10:00:00", EndTime: "2025-03-01T10:30:00",
		}, true},
		{"email ok", SendEmailPayload{Recipients: []string{"a@example.com"}, Subject: "Offer", Body: "<p>hi</p>"}, false},
		{"email bad recipient", SendEmailPayload{Recipients: []string{"nobody"}, Subject: "Offer"}, true},
		{"email no subject", SendEmailPayload{Recipients: []string{"a@example.com"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.payload.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidPayload)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestEnvelope_RoundTrip(t *testing.T) {
	env, err := NewEnvelope(ScanResumePayload{ApplicationID: 11, FilePath: "/tmp/cv.pdf"})
	require.NoError(t, err)
	assert.Equal(t, 1, env.Attempt)
	assert.Equal(t, KindScanResume, env.Kind)
	_, err = uuid.Parse(env.JobID)
	require.NoError(t, err)

	body, err := json.Marshal(env)
	require.NoError(t, err)

	decoded, err := Decode(body)
	require.NoError(t, err)
	assert.Equal(t, env.JobID, decoded.JobID)

	p, err := DecodePayload[ScanResumePayload](decoded)
	require.NoError(t, err)
	assert.Equal(t, int64(11), p.ApplicationID)
	assert.Equal(t, "/tmp/cv.pdf", p.FilePath)
}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{{`},
		{"bad uuid", `{"job_id":"42","kind":"scan_resume","payload":{"application_id":1,"file_path":"x"}}`},
		{"unknown kind", `{"job_id":"` + uuid.NewString() + `","kind":"reindex","payload":{}}`},
		{"missing payload", `{"job_id":"` + uuid.NewString() + `","kind":"send_email"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := Decode([]byte(tt.body))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidPayload)
			assert.Nil(t, env)
		})
	}
}

func TestDecode_DefaultsAttempt(t *testing.T) {
	body := `{"job_id":"` + uuid.NewString() + `","kind":"process_document","payload":{"document_id":1,"file_path":"a.txt"}}`
	env, err := Decode([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, 1, env.Attempt)
	assert.Equal(t, 2, env.Retry().Attempt)
	assert.Equal(t, 1, env.Attempt)
}

func TestDecodePayload_KindMismatch(t *testing.T) {
	env, err := NewEnvelope(ProcessDocumentPayload{DocumentID: 1, FilePath: "a.txt"})
	require.NoError(t, err)

	_, err = DecodePayload[ScanResumePayload](env)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

type recordingPublisher struct {
	messages []rabbitmq.Message
	err      error
}

func (p *recordingPublisher) Publish(_ context.Context, msg rabbitmq.Message) error {
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msg)
	return nil
}

func TestSubmitter_Submit(t *testing.T) {
	pub := &recordingPublisher{}
	s := NewSubmitter(pub, logger.NewNop())

	token, err := s.Submit(context.Background(), ProcessDocumentPayload{DocumentID: 5, FilePath: "/tmp/p.pdf"})
	require.NoError(t, err)
	require.Len(t, pub.messages, 1)

	msg := pub.messages[0]
	assert.Equal(t, token, msg.ID)
	assert.Equal(t, string(KindProcessDocument), msg.Type)

	env, err := Decode(msg.Body)
	require.NoError(t, err)
	assert.Equal(t, token, env.JobID)
	assert.Equal(t, 1, env.Attempt)
}

func TestSubmitter_SubmitInvalidPayloadPublishesNothing(t *testing.T) {
	pub := &recordingPublisher{}
	s := NewSubmitter(pub, logger.NewNop())

	_, err := s.Submit(context.Background(), ScanResumePayload{})
	assert.ErrorIs(t, err, ErrInvalidPayload)
	assert.Empty(t, pub.messages)
}

func TestSubmitter_PublishError(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("channel closed")}
	s := NewSubmitter(pub, logger.NewNop())

	token, err := s.Submit(context.Background(), ProcessDocumentPayload{DocumentID: 5, FilePath: "/tmp/p.pdf"})
	require.Error(t, err)
	assert.Empty(t, token)
	assert.Contains(t, err.Error(), "channel closed")
}
