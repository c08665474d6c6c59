// Package jobs defines the background job kinds, their payloads and the
// envelope carried on the broker.
package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind identifies what a job does.
type Kind string

const (
	KindProcessDocument Kind = "process_document"
	KindScanResume      Kind = "scan_resume"
	KindScheduleMeeting Kind = "schedule_meeting"
	KindSendEmail       Kind = "send_email"
)

// Kinds lists every kind the worker can execute.
var Kinds = []Kind{KindProcessDocument, KindScanResume, KindScheduleMeeting, KindSendEmail}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// ErrInvalidPayload marks a submission or delivery that can never succeed.
var ErrInvalidPayload = errors.New("invalid job payload")

// Payload is implemented by every job payload.
type Payload interface {
	Kind() Kind
	Validate() error
}

// ProcessDocumentPayload asks the worker to extract, chunk and index one uploaded document.
type ProcessDocumentPayload struct {
	DocumentID int64  `json:"document_id"`
	FilePath   string `json:"file_path"`
}

func (ProcessDocumentPayload) Kind() Kind { return KindProcessDocument }

func (p ProcessDocumentPayload) Validate() error {
	if p.DocumentID <= 0 {
		return fmt.Errorf("%w: document_id must be positive", ErrInvalidPayload)
	}
	if strings.TrimSpace(p.FilePath) == "" {
		return fmt.Errorf("%w: file_path is required", ErrInvalidPayload)
	}
	return nil
}

// ScanResumePayload asks the worker to score one application's resume.
type ScanResumePayload struct {
	ApplicationID int64  `json:"application_id"`
	FilePath      string `json:"file_path"`
}

func (ScanResumePayload) Kind() Kind { return KindScanResume }

func (p ScanResumePayload) Validate() error {
	if p.ApplicationID <= 0 {
		return fmt.Errorf("%w: application_id must be positive", ErrInvalidPayload)
	}
	if strings.TrimSpace(p.FilePath) == "" {
		return fmt.Errorf("%w: file_path is required", ErrInvalidPayload)
	}
	return nil
}

// MeetingTimeLayouts are the accepted start/end formats. The zone-less
// layout is interpreted in the calendar's configured timezone.
var MeetingTimeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04"}

// ParseMeetingTime parses s with the first matching layout.
func ParseMeetingTime(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range MeetingTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognised time %q", ErrInvalidPayload, s)
}

// ScheduleMeetingPayload creates a calendar event with a video link.
type ScheduleMeetingPayload struct {
	Summary        string   `json:"summary"`
	Description    string   `json:"description,omitempty"`
	StartTime      string   `json:"start_time"`
	EndTime        string   `json:"end_time"`
	AttendeeEmails []string `json:"attendee_emails"`
}

func (ScheduleMeetingPayload) Kind() Kind { return KindScheduleMeeting }

func (p ScheduleMeetingPayload) Validate() error {
	if strings.TrimSpace(p.Summary) == "" {
		return fmt.Errorf("%w: summary is required", ErrInvalidPayload)
	}
	start, err := ParseMeetingTime(p.StartTime, time.UTC)
	if err != nil {
		return err
	}
	end, err := ParseMeetingTime(p.EndTime, time.UTC)
	if err != nil {
		return err
	}
	if !end.After(start) {
		return fmt.Errorf("%w: end_time must be after start_time", ErrInvalidPayload)
	}
	if len(p.AttendeeEmails) == 0 {
		return fmt.Errorf("%w: at least one attendee is required", ErrInvalidPayload)
	}
	return nil
}

// SendEmailPayload sends one HTML message. Attachment files are transient
// and removed by the worker once the job has finished.
type SendEmailPayload struct {
	Recipients      []string `json:"recipients"`
	Subject         string   `json:"subject"`
	Body            string   `json:"body"`
	AttachmentPaths []string `json:"attachment_paths,omitempty"`
}

func (SendEmailPayload) Kind() Kind { return KindSendEmail }

func (p SendEmailPayload) Validate() error {
	if len(p.Recipients) == 0 {
		return fmt.Errorf("%w: at least one recipient is required", ErrInvalidPayload)
	}
	for _, r := range p.Recipients {
		if !strings.Contains(r, "@") {
			return fmt.Errorf("%w: invalid recipient %q", ErrInvalidPayload, r)
		}
	}
	if strings.TrimSpace(p.Subject) == "" {
		return fmt.Errorf("%w: subject is required", ErrInvalidPayload)
	}
	return nil
}

// Envelope is the broker message body.
type Envelope struct {
	JobID       string          `json:"job_id"`
	Kind        Kind            `json:"kind"`
	Payload     json.RawMessage `json:"payload"`
	Attempt     int             `json:"attempt"`
	SubmittedAt time.Time       `json:"submitted_at"`
}

// NewEnvelope wraps payload in a first-attempt envelope with a fresh job id.
func NewEnvelope(payload Payload) (*Envelope, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", payload.Kind(), err)
	}
	return &Envelope{
		JobID:       uuid.NewString(),
		Kind:        payload.Kind(),
		Payload:     raw,
		Attempt:     1,
		SubmittedAt: time.Now().UTC(),
	}, nil
}

// Decode parses and validates a broker message body.
func Decode(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if _, err := uuid.Parse(env.JobID); err != nil {
		return nil, fmt.Errorf("%w: job_id %q is not a UUID", ErrInvalidPayload, env.JobID)
	}
	if !env.Kind.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidPayload, env.Kind)
	}
	if len(env.Payload) == 0 || string(env.Payload) == "null" {
		return nil, fmt.Errorf("%w: payload is empty", ErrInvalidPayload)
	}
	if env.Attempt < 1 {
		env.Attempt = 1
	}
	return &env, nil
}

// Retry returns a copy with the attempt counter advanced.
func (e Envelope) Retry() Envelope {
	e.Attempt++
	return e
}

// DecodePayload unmarshals and validates the envelope payload as T.
func DecodePayload[T Payload](env *Envelope) (T, error) {
	var p T
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if p.Kind() != env.Kind {
		return p, fmt.Errorf("%w: payload for %s delivered as %s", ErrInvalidPayload, p.Kind(), env.Kind)
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}
