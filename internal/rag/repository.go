package rag

import (
	"context"

	"github.com/cuongbtq/hr-rag/internal/model"
)

// TextExtractor reads an uploaded file as plain text.
type TextExtractor interface {
	Extract(path string) (string, error)
}

type DocumentRepository interface {
	GetDocument(ctx context.Context, id int64) (*model.Document, error)
	MarkDocumentEmpty(ctx context.Context, id int64) error
}

type ApplicationRepository interface {
	GetApplication(ctx context.Context, id int64) (*model.Application, error)
	GetJobPosting(ctx context.Context, id int64) (*model.JobPosting, error)
	SaveResumeText(ctx context.Context, id int64, text string) error
	SaveScore(ctx context.Context, id int64, score float64, feedback string) error
}

type ConversationRepository interface {
	CreateConversation(ctx context.Context, userID int64, title string) (*model.Conversation, error)
	GetConversation(ctx context.Context, userID, id int64) (*model.Conversation, error)
	AddMessage(ctx context.Context, conversationID int64, sender, content string) error
}
