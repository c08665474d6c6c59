package storage

import (
	"context"
	"fmt"

	"github.com/cuongbtq/hr-rag/internal/model"
)

func (s *Storage) CreateConversation(ctx context.Context, userID int64, title string) (*model.Conversation, error) {
	var c model.Conversation
	query := `
		INSERT INTO conversations (user_id, title) VALUES ($1, $2)
		RETURNING id, user_id, title, created_at`
	if err := s.db.GetContext(ctx, &c, query, userID, title); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return &c, nil
}

// GetConversation loads a conversation owned by userID.
func (s *Storage) GetConversation(ctx context.Context, userID, id int64) (*model.Conversation, error) {
	var c model.Conversation
	query := `SELECT id, user_id, title, created_at FROM conversations WHERE id = $1 AND user_id = $2`
	if err := s.db.GetContext(ctx, &c, query, id, userID); err != nil {
		return nil, notFound(err, "get conversation %d", id)
	}
	return &c, nil
}

func (s *Storage) AddMessage(ctx context.Context, conversationID int64, sender, content string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (conversation_id, sender, content) VALUES ($1, $2, $3)`,
		conversationID, sender, content)
	if err != nil {
		return fmt.Errorf("failed to add message: %w", err)
	}
	return nil
}

func (s *Storage) ListMessages(ctx context.Context, conversationID int64) ([]model.Message, error) {
	var msgs []model.Message
	query := `
		SELECT id, conversation_id, sender, content, created_at
		FROM messages WHERE conversation_id = $1 ORDER BY id`
	if err := s.db.SelectContext(ctx, &msgs, query, conversationID); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, nil
}
