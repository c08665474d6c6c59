package rag

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/cuongbtq/hr-rag/internal/ai"
	"github.com/cuongbtq/hr-rag/internal/model"
	"github.com/cuongbtq/hr-rag/internal/storage"
	"github.com/cuongbtq/hr-rag/internal/vectorstore"
)

type fakeExtractor struct {
	text string
	err  error
}

func (f fakeExtractor) Extract(string) (string, error) { return f.text, f.err }

// keywordEmbedder maps text onto three axes: leave, salary, other.
type keywordEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
	// failAt makes the n-th call (1-based) fail
	failAt int
}

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil && (e.failAt == 0 || e.calls == e.failAt) {
		return nil, e.err
	}
	lower := strings.ToLower(text)
	vec := []float32{0, 0, 0.1}
	if strings.Contains(lower, "leave") {
		vec[0] = 1
	}
	if strings.Contains(lower, "salary") {
		vec[1] = 1
	}
	return vec, nil
}

func (e *keywordEmbedder) Dimension() int { return 3 }

type fakeGenerator struct {
	mu       sync.Mutex
	response string
	err      error
	requests []ai.GenerateRequest
}

func (g *fakeGenerator) Generate(_ context.Context, req ai.GenerateRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	return g.response, g.err
}

func (g *fakeGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

// spyStore records writes on top of the in-memory store.
type spyStore struct {
	vectorstore.Store
	writes int
	err    error
}

func (s *spyStore) ReplaceChunks(ctx context.Context, doc vectorstore.Document, chunks []vectorstore.Chunk) error {
	s.writes++
	if s.err != nil {
		return s.err
	}
	return s.Store.ReplaceChunks(ctx, doc, chunks)
}

type fakeRepo struct {
	mu            sync.Mutex
	documents     map[int64]*model.Document
	emptied       []int64
	applications  map[int64]*model.Application
	postings      map[int64]*model.JobPosting
	resumeWrites  int
	scoreWrites   int
	conversations map[int64]*model.Conversation
	messages      []model.Message
	nextID        int64
	failMessages  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		documents:     make(map[int64]*model.Document),
		applications:  make(map[int64]*model.Application),
		postings:      make(map[int64]*model.JobPosting),
		conversations: make(map[int64]*model.Conversation),
		nextID:        100,
	}
}

func (r *fakeRepo) GetDocument(_ context.Context, id int64) (*model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.documents[id]
	if !ok {
		return nil, fmt.Errorf("get document %d: %w", id, storage.ErrNotFound)
	}
	cp := *d
	return &cp, nil
}

func (r *fakeRepo) MarkDocumentEmpty(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emptied = append(r.emptied, id)
	return nil
}

func (r *fakeRepo) GetApplication(_ context.Context, id int64) (*model.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.applications[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeRepo) GetJobPosting(_ context.Context, id int64) (*model.JobPosting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.postings[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeRepo) SaveResumeText(_ context.Context, id int64, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.applications[id]
	if !ok {
		return storage.ErrNotFound
	}
	r.resumeWrites++
	a.ResumeText = sql.NullString{String: text, Valid: true}
	return nil
}

func (r *fakeRepo) SaveScore(_ context.Context, id int64, score float64, feedback string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.applications[id]
	if !ok {
		return storage.ErrNotFound
	}
	r.scoreWrites++
	a.MatchScore = score
	a.AIFeedback = sql.NullString{String: feedback, Valid: true}
	a.Status = model.ApplicationReviewed
	return nil
}

func (r *fakeRepo) CreateConversation(_ context.Context, userID int64, title string) (*model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c := &model.Conversation{ID: r.nextID, UserID: userID, Title: title}
	r.conversations[c.ID] = c
	cp := *c
	return &cp, nil
}

func (r *fakeRepo) GetConversation(_ context.Context, userID, id int64) (*model.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[id]
	if !ok || c.UserID != userID {
		return nil, storage.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeRepo) AddMessage(_ context.Context, conversationID int64, sender, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failMessages != nil {
		return r.failMessages
	}
	r.messages = append(r.messages, model.Message{ConversationID: conversationID, Sender: sender, Content: content})
	return nil
}

var errBackendDown = ai.EmbeddingError("fake", true, errors.New("connection refused"))
