// Package status derives the progress of background work from the rows it
// mutates. No job entity is stored; a document or application row is the
// only evidence of how far its job got.
package status

import (
	"context"
	"time"

	"github.com/cuongbtq/hr-rag/internal/model"
)

type DocumentState string

const (
	DocumentProcessing DocumentState = "processing"
	DocumentIndexed    DocumentState = "indexed"
	DocumentEmpty      DocumentState = "empty"
)

type Repository interface {
	GetTenantDocument(ctx context.Context, companyID, id int64) (*model.DocumentSummary, error)
	GetTenantApplication(ctx context.Context, companyID, id int64) (*model.Application, error)
}

type DocumentStatus struct {
	ID        int64         `json:"id"`
	Filename  string        `json:"filename"`
	State     DocumentState `json:"state"`
	Chunks    int           `json:"chunks"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Terminal reports whether the ingestion job has left its mark.
func (s DocumentStatus) Terminal() bool {
	return s.State != DocumentProcessing
}

type ApplicationStatus struct {
	ID         int64     `json:"id"`
	Status     string    `json:"status"`
	MatchScore float64   `json:"match_score"`
	AIFeedback string    `json:"ai_feedback,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Terminal is true once scoring has moved the application past Scanning.
func (s ApplicationStatus) Terminal() bool {
	return s.Status != model.ApplicationScanning
}

type Projector struct {
	repo Repository
}

func NewProjector(repo Repository) *Projector {
	return &Projector{repo: repo}
}

// Document projects an upload row. A row with an embedding is indexed; one
// whose placeholder was cleared without an embedding had no text.
func (p *Projector) Document(ctx context.Context, tenantID, id int64) (*DocumentStatus, error) {
	doc, err := p.repo.GetTenantDocument(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return ProjectDocument(doc), nil
}

// ProjectDocument derives the status of a loaded upload row.
func ProjectDocument(doc *model.DocumentSummary) *DocumentStatus {
	st := &DocumentStatus{
		ID:        doc.ID,
		Filename:  doc.Filename,
		State:     DocumentProcessing,
		UpdatedAt: doc.UpdatedAt,
	}
	switch {
	case doc.HasEmbedding:
		st.State = DocumentIndexed
		st.Chunks = doc.Chunks
	case doc.Content != model.PlaceholderContent:
		st.State = DocumentEmpty
	}
	return st
}

func (p *Projector) Application(ctx context.Context, tenantID, id int64) (*ApplicationStatus, error) {
	app, err := p.repo.GetTenantApplication(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return &ApplicationStatus{
		ID:         app.ID,
		Status:     app.Status,
		MatchScore: app.MatchScore,
		AIFeedback: app.AIFeedback.String,
		UpdatedAt:  app.UpdatedAt,
	}, nil
}
