package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cuongbtq/hr-rag/internal/ai"
	"github.com/cuongbtq/hr-rag/internal/model"
	"github.com/cuongbtq/hr-rag/internal/storage"
	"github.com/cuongbtq/hr-rag/internal/vectorstore"
)

const conversationTitleLength = 30

// Identity is the caller of a query.
type Identity struct {
	UserID   int64
	TenantID int64
}

type Source struct {
	ID       int64   `json:"id"`
	Filename string  `json:"filename"`
	Distance float64 `json:"distance"`
}

type Answer struct {
	Text           string
	ConversationID int64
	// Grounded is false when no tenant document matched and the answer
	// carries the NoDocumentsPrefix disclosure.
	Grounded bool
	Sources  []Source
}

type AnswererConfig struct {
	TopK        int
	Temperature float32
}

type Answerer struct {
	conversations ConversationRepository
	embedder      ai.Embedder
	generator     ai.Generator
	store         vectorstore.Store
	cfg           AnswererConfig
	logger        *slog.Logger
}

func NewAnswerer(
	conversations ConversationRepository,
	embedder ai.Embedder,
	generator ai.Generator,
	store vectorstore.Store,
	cfg AnswererConfig,
	logger *slog.Logger,
) *Answerer {
	return &Answerer{
		conversations: conversations,
		embedder:      embedder,
		generator:     generator,
		store:         store,
		cfg:           cfg,
		logger:        logger,
	}
}

// Answer runs one query. A supplied conversationID must belong to the
// caller. Backend and search failures produce a fallback text, never an
// error; errors are limited to ErrNotFound and conversation storage failures.
func (a *Answerer) Answer(ctx context.Context, id Identity, query string, conversationID *int64) (*Answer, error) {
	conv, err := a.conversation(ctx, id, query, conversationID)
	if err != nil {
		return nil, err
	}
	log := a.logger.With(
		slog.Int64("conversation_id", conv.ID),
		slog.Int64("company_id", id.TenantID),
	)

	if err := a.conversations.AddMessage(ctx, conv.ID, model.SenderUser, query); err != nil {
		return nil, err
	}

	answer := &Answer{ConversationID: conv.ID}

	vec, err := a.embedder.Embed(ctx, query)
	if err != nil {
		log.Error("Query embedding failed", slog.Any("error", err))
		answer.Text = embeddingFailedMessage
		return answer, a.conversations.AddMessage(ctx, conv.ID, model.SenderAI, answer.Text)
	}

	results, err := a.store.Search(ctx, id.TenantID, vec, a.cfg.TopK)
	if err != nil {
		log.Error("Document search failed", slog.Any("error", err))
		answer.Text = searchFailedMessage
		return answer, a.conversations.AddMessage(ctx, conv.ID, model.SenderAI, answer.Text)
	}

	var contexts []string
	for _, r := range results {
		if r.Content == "" || r.Content == model.PlaceholderContent {
			continue
		}
		contexts = append(contexts, r.Content)
		answer.Sources = append(answer.Sources, Source{ID: r.ID, Filename: r.Filename, Distance: r.Distance})
	}
	answer.Grounded = len(contexts) > 0

	log.Info("Documents retrieved",
		slog.Int("results", len(results)),
		slog.Int("contexts", len(contexts)),
	)

	text, err := a.generator.Generate(ctx, ai.GenerateRequest{
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: answerSystemPrompt},
			{Role: ai.RoleUser, Content: answerUserPrompt(query, contexts)},
		},
		Temperature: a.cfg.Temperature,
	})
	if err != nil {
		log.Error("Answer generation failed", slog.Any("error", err))
		text = generationFailedMessage
	}
	if !answer.Grounded {
		text = NoDocumentsPrefix + text
	}
	answer.Text = text

	if err := a.conversations.AddMessage(ctx, conv.ID, model.SenderAI, answer.Text); err != nil {
		return nil, err
	}
	return answer, nil
}

func (a *Answerer) conversation(ctx context.Context, id Identity, query string, conversationID *int64) (*model.Conversation, error) {
	if conversationID != nil {
		conv, err := a.conversations.GetConversation(ctx, id.UserID, *conversationID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, fmt.Errorf("conversation %d: %w", *conversationID, ErrNotFound)
			}
			return nil, fmt.Errorf("failed to load conversation: %w", err)
		}
		return conv, nil
	}
	return a.conversations.CreateConversation(ctx, id.UserID, ConversationTitle(query))
}

// ConversationTitle is the first 30 characters of the opening message.
func ConversationTitle(message string) string {
	runes := []rune(strings.TrimSpace(message))
	if len(runes) > conversationTitleLength {
		runes = runes[:conversationTitleLength]
	}
	return string(runes)
}
