package worker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/cuongbtq/hr-rag/internal/collab"
	"github.com/cuongbtq/hr-rag/internal/jobs"
	"github.com/cuongbtq/hr-rag/internal/rag"
	"github.com/cuongbtq/hr-rag/internal/worker/domain"
)

// Discarder is implemented by handlers that release job resources when a
// job is dead-lettered.
type Discarder interface {
	Discard(env *jobs.Envelope)
}

type DocumentIngestor interface {
	ProcessDocument(ctx context.Context, documentID int64, path string) (rag.IngestOutcome, error)
}

type ResumeScorer interface {
	ScanResume(ctx context.Context, applicationID int64, path string) (rag.ScoreOutcome, error)
}

// Handlers routes each job kind to the component that executes it.
type Handlers struct {
	Ingestor DocumentIngestor
	Scorer   ResumeScorer
	Calendar collab.Calendar
	Mailer   collab.Mailer
	// Location interprets meeting times that carry no zone.
	Location *time.Location
	Logger   *slog.Logger
}

func (h *Handlers) Handle(ctx context.Context, env *jobs.Envelope) error {
	switch env.Kind {
	case jobs.KindProcessDocument:
		p, err := jobs.DecodePayload[jobs.ProcessDocumentPayload](env)
		if err != nil {
			return err
		}
		return h.processDocument(ctx, p)
	case jobs.KindScanResume:
		p, err := jobs.DecodePayload[jobs.ScanResumePayload](env)
		if err != nil {
			return err
		}
		return h.scanResume(ctx, p)
	case jobs.KindScheduleMeeting:
		p, err := jobs.DecodePayload[jobs.ScheduleMeetingPayload](env)
		if err != nil {
			return err
		}
		return h.scheduleMeeting(ctx, p)
	case jobs.KindSendEmail:
		p, err := jobs.DecodePayload[jobs.SendEmailPayload](env)
		if err != nil {
			return err
		}
		return h.sendEmail(ctx, p)
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownKind, env.Kind)
	}
}

func (h *Handlers) processDocument(ctx context.Context, p jobs.ProcessDocumentPayload) error {
	outcome, err := h.Ingestor.ProcessDocument(ctx, p.DocumentID, p.FilePath)
	if err != nil {
		return err
	}
	h.Logger.Info("Document job finished",
		slog.Int64("document_id", p.DocumentID),
		slog.String("status", string(outcome.Status)),
		slog.Int("chunks", outcome.Chunks),
	)
	h.removeFile(p.FilePath)
	return nil
}

func (h *Handlers) scanResume(ctx context.Context, p jobs.ScanResumePayload) error {
	outcome, err := h.Scorer.ScanResume(ctx, p.ApplicationID, p.FilePath)
	if err != nil {
		return err
	}
	h.Logger.Info("Resume job finished",
		slog.Int64("application_id", p.ApplicationID),
		slog.Int("score", outcome.Result.Score),
		slog.Bool("degraded", outcome.Degraded),
		slog.Bool("already_scored", outcome.AlreadyScored),
	)
	h.removeFile(p.FilePath)
	return nil
}

func (h *Handlers) scheduleMeeting(ctx context.Context, p jobs.ScheduleMeetingPayload) error {
	loc := h.Location
	if loc == nil {
		loc = time.UTC
	}
	start, err := jobs.ParseMeetingTime(p.StartTime, loc)
	if err != nil {
		return err
	}
	end, err := jobs.ParseMeetingTime(p.EndTime, loc)
	if err != nil {
		return err
	}

	event, err := h.Calendar.CreateEvent(ctx, collab.Meeting{
		Summary:     p.Summary,
		Description: p.Description,
		Start:       start,
		End:         end,
		Attendees:   p.AttendeeEmails,
	})
	if err != nil {
		return fmt.Errorf("failed to create meeting: %w", err)
	}

	h.Logger.Info("Meeting scheduled",
		slog.String("event_id", event.ID),
		slog.String("meet_link", event.MeetLink),
		slog.Int("attendees", len(p.AttendeeEmails)),
	)
	return nil
}

func (h *Handlers) sendEmail(ctx context.Context, p jobs.SendEmailPayload) error {
	id, err := h.Mailer.Send(ctx, collab.Email{
		Recipients:  p.Recipients,
		Subject:     p.Subject,
		HTMLBody:    p.Body,
		Attachments: p.AttachmentPaths,
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	h.Logger.Info("Email sent",
		slog.String("message_id", id),
		slog.Int("recipients", len(p.Recipients)),
	)
	for _, path := range p.AttachmentPaths {
		h.removeFile(path)
	}
	return nil
}

// Discard removes email attachments of a dead-lettered job. Uploaded
// documents and resumes are kept so the job can be replayed.
func (h *Handlers) Discard(env *jobs.Envelope) {
	if env.Kind != jobs.KindSendEmail {
		return
	}
	p, err := jobs.DecodePayload[jobs.SendEmailPayload](env)
	if err != nil {
		return
	}
	for _, path := range p.AttachmentPaths {
		h.removeFile(path)
	}
}

// removeFile deletes a transient upload; a file already gone is fine
// because a redelivered job may have removed it.
func (h *Handlers) removeFile(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		h.Logger.Warn("Failed to remove file",
			slog.String("path", path),
			slog.Any("error", err),
		)
	}
}
