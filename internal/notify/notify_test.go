package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/hr-rag/shared/logger"
)

type fakeBot struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if b.err != nil {
		return tgbotapi.Message{}, b.err
	}
	b.sent = append(b.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{MessageID: len(b.sent)}, nil
}

func TestTelegram_ReportFailure(t *testing.T) {
	bot := &fakeBot{}
	r := &Telegram{bot: bot, chatID: 42, logger: logger.NewNop()}

	err := r.ReportFailure(context.Background(), Failure{
		JobID:   "6f1c",
		Kind:    "scan_resume",
		Attempt: 3,
		Err:     errors.New("application 7: <not found>"),
		At:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, bot.sent, 1)

	msg := bot.sent[0]
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)
	assert.Contains(t, msg.Text, "scan_resume (attempt 3)")
	assert.Contains(t, msg.Text, "2026-01-02T03:04:05Z")
	assert.Contains(t, msg.Text, "&lt;not found&gt;")
}

func TestTelegram_ReportFailure_Errors(t *testing.T) {
	r := &Telegram{bot: &fakeBot{err: errors.New("unauthorized")}, chatID: 1, logger: logger.NewNop()}
	assert.Error(t, r.ReportFailure(context.Background(), Failure{JobID: "x"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bot := &fakeBot{}
	r = &Telegram{bot: bot, chatID: 1, logger: logger.NewNop()}
	assert.ErrorIs(t, r.ReportFailure(ctx, Failure{JobID: "x"}), context.Canceled)
	assert.Empty(t, bot.sent)
}

func TestFormatFailure_NilError(t *testing.T) {
	assert.Contains(t, FormatFailure(Failure{JobID: "j", Kind: "send_email", Attempt: 1}), "unknown error")
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.ReportFailure(context.Background(), Failure{}))
}
