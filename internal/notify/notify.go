// Package notify reports permanently failed jobs to operators.
package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Failure describes a job that was dead-lettered.
type Failure struct {
	JobID   string
	Kind    string
	Attempt int
	Err     error
	At      time.Time
}

type Reporter interface {
	ReportFailure(ctx context.Context, f Failure) error
}

// Nop drops every report.
type Nop struct{}

func (Nop) ReportFailure(context.Context, Failure) error { return nil }

// sender is the part of *tgbotapi.BotAPI the reporter uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts failures to one chat.
type Telegram struct {
	bot    sender
	chatID int64
	logger *slog.Logger
}

func NewTelegram(token string, chatID int64, logger *slog.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}
	logger.Info("Telegram reporter authorized", slog.String("bot", bot.Self.UserName))
	return &Telegram{bot: bot, chatID: chatID, logger: logger}, nil
}

func (t *Telegram) ReportFailure(ctx context.Context, f Failure) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, FormatFailure(f))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	t.logger.Debug("Failure reported", slog.String("job_id", f.JobID))
	return nil
}

// FormatFailure renders f as Telegram HTML.
func FormatFailure(f Failure) string {
	at := f.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	reason := "unknown error"
	if f.Err != nil {
		reason = f.Err.Error()
	}
	return fmt.Sprintf(
		"⚠️ <b>Job dead-lettered</b>\n"+
			"🆔 <code>%s</code>\n"+
			"🛠 %s (attempt %d)\n"+
			"🕒 %s\n"+
			"❌ %s",
		html.EscapeString(f.JobID),
		html.EscapeString(f.Kind),
		f.Attempt,
		at.Format(time.RFC3339),
		html.EscapeString(reason),
	)
}
