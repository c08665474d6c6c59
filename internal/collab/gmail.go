package collab

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GoogleMailer sends mail as the authenticated Gmail user.
type GoogleMailer struct {
	service *gmail.Service
	logger  *slog.Logger
}

func NewGoogleMailer(ctx context.Context, credentialsFile string, logger *slog.Logger) (*GoogleMailer, error) {
	svc, err := gmail.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gmail.GmailSendScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}
	return &GoogleMailer{service: svc, logger: logger}, nil
}

func (m *GoogleMailer) Send(ctx context.Context, e Email) (string, error) {
	raw, skipped, err := BuildMessage(e, "")
	if err != nil {
		return "", err
	}
	for _, path := range skipped {
		m.logger.Warn("Attachment not found, sending without it", slog.String("path", path))
	}

	msg := &gmail.Message{Raw: base64.URLEncoding.EncodeToString(raw)}
	sent, err := m.service.Users.Messages.Send("me", msg).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to send email: %w", err)
	}

	m.logger.Info("Email sent",
		slog.String("message_id", sent.Id),
		slog.Int("recipients", len(e.Recipients)),
		slog.Int("attachments", len(e.Attachments)-len(skipped)),
	)
	return sent.Id, nil
}
