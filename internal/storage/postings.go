package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/hr-rag/internal/model"
)

const postingColumns = `id, company_id, title, description, location, status, created_at`

func (s *Storage) CreateJobPosting(ctx context.Context, p *model.JobPosting) error {
	query := `
		INSERT INTO job_postings (company_id, title, description, location, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	if p.Status == "" {
		p.Status = model.JobPostingOpen
	}
	err := s.db.QueryRowxContext(ctx, query, p.CompanyID, p.Title, p.Description, p.Location, p.Status).
		Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create job posting: %w", err)
	}

	s.logger.Info("Job posting created",
		slog.Int64("job_posting_id", p.ID),
		slog.Int64("company_id", p.CompanyID),
	)
	return nil
}

// GetJobPosting loads a posting regardless of tenant, for the scoring job.
func (s *Storage) GetJobPosting(ctx context.Context, id int64) (*model.JobPosting, error) {
	var p model.JobPosting
	query := `SELECT ` + postingColumns + ` FROM job_postings WHERE id = $1`
	if err := s.db.GetContext(ctx, &p, query, id); err != nil {
		return nil, notFound(err, "get job posting %d", id)
	}
	return &p, nil
}

func (s *Storage) GetTenantJobPosting(ctx context.Context, companyID, id int64) (*model.JobPosting, error) {
	var p model.JobPosting
	query := `SELECT ` + postingColumns + ` FROM job_postings WHERE id = $1 AND company_id = $2`
	if err := s.db.GetContext(ctx, &p, query, id, companyID); err != nil {
		return nil, notFound(err, "get job posting %d", id)
	}
	return &p, nil
}

func (s *Storage) ListJobPostings(ctx context.Context, companyID int64) ([]model.JobPosting, error) {
	var postings []model.JobPosting
	query := `SELECT ` + postingColumns + ` FROM job_postings WHERE company_id = $1 ORDER BY created_at DESC, id DESC`
	if err := s.db.SelectContext(ctx, &postings, query, companyID); err != nil {
		return nil, fmt.Errorf("failed to list job postings: %w", err)
	}
	return postings, nil
}
