package handler

import (
	"context"
	"sync"
	"time"

	"github.com/cuongbtq/hr-rag/internal/jobs"
	"github.com/cuongbtq/hr-rag/internal/model"
	"github.com/cuongbtq/hr-rag/internal/rag"
	"github.com/cuongbtq/hr-rag/internal/storage"
)

type fakeRepo struct {
	mu            sync.Mutex
	nextID        int64
	docs          map[int64]*model.DocumentSummary
	postings      map[int64]*model.JobPosting
	apps          map[int64]*model.Application
	conversations map[int64]*model.Conversation
	messages      map[int64][]model.Message
	listFilter    storage.DocumentFilter
	listResult    []model.DocumentSummary
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		nextID:        100,
		docs:          map[int64]*model.DocumentSummary{},
		postings:      map[int64]*model.JobPosting{},
		apps:          map[int64]*model.Application{},
		conversations: map[int64]*model.Conversation{},
		messages:      map[int64][]model.Message{},
	}
}

func (f *fakeRepo) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeRepo) CreateDocument(_ context.Context, companyID int64, filename string) (*model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc := model.Document{ID: f.id(), CompanyID: companyID, Filename: filename, Content: model.PlaceholderContent, CreatedAt: time.Now()}
	f.docs[doc.ID] = &model.DocumentSummary{Document: doc, Chunks: 1}
	return &doc, nil
}

func (f *fakeRepo) GetTenantDocument(_ context.Context, companyID, id int64) (*model.DocumentSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	if !ok || d.CompanyID != companyID {
		return nil, storage.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeRepo) setDocument(d model.DocumentSummary) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[d.ID] = &d
}

func (f *fakeRepo) ListDocuments(_ context.Context, filter storage.DocumentFilter) ([]model.DocumentSummary, error) {
	f.listFilter = filter
	return f.listResult, nil
}

func (f *fakeRepo) CreateJobPosting(_ context.Context, p *model.JobPosting) error {
	p.ID = f.id()
	p.CreatedAt = time.Now()
	cp := *p
	f.postings[p.ID] = &cp
	return nil
}

func (f *fakeRepo) ListJobPostings(_ context.Context, companyID int64) ([]model.JobPosting, error) {
	var out []model.JobPosting
	for _, p := range f.postings {
		if p.CompanyID == companyID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetTenantJobPosting(_ context.Context, companyID, id int64) (*model.JobPosting, error) {
	p, ok := f.postings[id]
	if !ok || p.CompanyID != companyID {
		return nil, storage.ErrNotFound
	}
	return p, nil
}

func (f *fakeRepo) CreateApplication(_ context.Context, jobID int64, name, email string) (*model.Application, error) {
	app := &model.Application{ID: f.id(), CandidateName: name, CandidateEmail: email, Status: model.ApplicationScanning}
	app.JobID.Int64, app.JobID.Valid = jobID, true
	f.apps[app.ID] = app
	return app, nil
}

func (f *fakeRepo) GetTenantApplication(_ context.Context, companyID, id int64) (*model.Application, error) {
	app, ok := f.apps[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if p, ok := f.postings[app.JobID.Int64]; !ok || p.CompanyID != companyID {
		return nil, storage.ErrNotFound
	}
	return app, nil
}

func (f *fakeRepo) ListApplicants(_ context.Context, jobID int64) ([]model.Application, error) {
	var out []model.Application
	for _, a := range f.apps {
		if a.JobID.Int64 == jobID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetConversation(_ context.Context, userID, id int64) (*model.Conversation, error) {
	c, ok := f.conversations[id]
	if !ok || c.UserID != userID {
		return nil, storage.ErrNotFound
	}
	return c, nil
}

func (f *fakeRepo) ListMessages(_ context.Context, conversationID int64) ([]model.Message, error) {
	return f.messages[conversationID], nil
}

type fakeSubmitter struct {
	mu       sync.Mutex
	payloads []jobs.Payload
	err      error
}

func (s *fakeSubmitter) Submit(_ context.Context, p jobs.Payload) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	if err := p.Validate(); err != nil {
		return "", err
	}
	s.payloads = append(s.payloads, p)
	return "job-" + string(p.Kind()), nil
}

type fakeAnswerer struct {
	gotID    rag.Identity
	gotQuery string
	gotConv  *int64
	answer   *rag.Answer
	err      error
}

func (a *fakeAnswerer) Answer(_ context.Context, id rag.Identity, query string, conv *int64) (*rag.Answer, error) {
	a.gotID, a.gotQuery, a.gotConv = id, query, conv
	return a.answer, a.err
}
