package cli

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cuongbtq/hr-rag/internal/model"
	"github.com/cuongbtq/hr-rag/internal/storage"
)

// localRepository backs `ask --file`: documents and conversations live only
// for the duration of one command.
type localRepository struct {
	mu            sync.Mutex
	nextID        int64
	documents     map[int64]*model.Document
	conversations map[int64]*model.Conversation
	messages      []model.Message
}

func newLocalRepository() *localRepository {
	return &localRepository{
		documents:     make(map[int64]*model.Document),
		conversations: make(map[int64]*model.Conversation),
	}
}

func (r *localRepository) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *localRepository) addDocument(companyID int64, filename string) *model.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	doc := &model.Document{
		ID:        r.id(),
		CompanyID: companyID,
		Filename:  filename,
		Content:   model.PlaceholderContent,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.documents[doc.ID] = doc
	return doc
}

func (r *localRepository) GetDocument(_ context.Context, id int64) (*model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.documents[id]
	if !ok {
		return nil, fmt.Errorf("document %d: %w", id, storage.ErrNotFound)
	}
	cp := *doc
	return &cp, nil
}

func (r *localRepository) MarkDocumentEmpty(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.documents[id]
	if !ok {
		return fmt.Errorf("document %d: %w", id, storage.ErrNotFound)
	}
	doc.Content = ""
	doc.UpdatedAt = time.Now()
	return nil
}

func (r *localRepository) CreateConversation(_ context.Context, userID int64, title string) (*model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv := &model.Conversation{ID: r.id(), UserID: userID, Title: title, CreatedAt: time.Now()}
	r.conversations[conv.ID] = conv
	cp := *conv
	return &cp, nil
}

func (r *localRepository) GetConversation(_ context.Context, userID, id int64) (*model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.conversations[id]
	if !ok || conv.UserID != userID {
		return nil, fmt.Errorf("conversation %d: %w", id, storage.ErrNotFound)
	}
	cp := *conv
	return &cp, nil
}

func (r *localRepository) AddMessage(_ context.Context, conversationID int64, sender, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conversations[conversationID]; !ok {
		return fmt.Errorf("conversation %d: %w", conversationID, storage.ErrNotFound)
	}
	r.messages = append(r.messages, model.Message{
		ID:             r.id(),
		ConversationID: conversationID,
		Sender:         sender,
		Content:        content,
		CreatedAt:      time.Now(),
	})
	return nil
}
