package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/hr-rag/internal/model"
)

const applicationColumns = `
	a.id, a.job_id, a.candidate_name, a.candidate_email, a.resume_text,
	a.match_score, a.ai_feedback, a.status, a.created_at, a.updated_at`

// CreateApplication inserts an application in Scanning state.
func (s *Storage) CreateApplication(ctx context.Context, jobID int64, name, email string) (*model.Application, error) {
	query := `
		INSERT INTO applications AS a (job_id, candidate_name, candidate_email, status, match_score)
		VALUES ($1, $2, $3, $4, 0)
		RETURNING` + applicationColumns

	var app model.Application
	if err := s.db.GetContext(ctx, &app, query, jobID, name, email, model.ApplicationScanning); err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	s.logger.Info("Application created",
		slog.Int64("application_id", app.ID),
		slog.Int64("job_posting_id", jobID),
	)
	return &app, nil
}

func (s *Storage) GetApplication(ctx context.Context, id int64) (*model.Application, error) {
	var app model.Application
	query := `SELECT` + applicationColumns + ` FROM applications a WHERE a.id = $1`
	if err := s.db.GetContext(ctx, &app, query, id); err != nil {
		return nil, notFound(err, "get application %d", id)
	}
	return &app, nil
}

// GetTenantApplication loads an application whose posting belongs to companyID.
func (s *Storage) GetTenantApplication(ctx context.Context, companyID, id int64) (*model.Application, error) {
	var app model.Application
	query := `
		SELECT` + applicationColumns + `
		FROM applications a
		JOIN job_postings j ON j.id = a.job_id
		WHERE a.id = $1 AND j.company_id = $2`
	if err := s.db.GetContext(ctx, &app, query, id, companyID); err != nil {
		return nil, notFound(err, "get application %d", id)
	}
	return &app, nil
}

// ListApplicants returns a posting's applications, best match first.
func (s *Storage) ListApplicants(ctx context.Context, jobID int64) ([]model.Application, error) {
	var apps []model.Application
	query := `SELECT` + applicationColumns + ` FROM applications a WHERE a.job_id = $1 ORDER BY a.match_score DESC, a.id`
	if err := s.db.SelectContext(ctx, &apps, query, jobID); err != nil {
		return nil, fmt.Errorf("failed to list applicants: %w", err)
	}
	return apps, nil
}

// SaveResumeText stores the extracted resume. It commits on its own so HR
// can read the text even if scoring never finishes.
func (s *Storage) SaveResumeText(ctx context.Context, id int64, text string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE applications SET resume_text = $1, updated_at = now() WHERE id = $2`, text, id)
	if err != nil {
		return fmt.Errorf("failed to save resume text: %w", err)
	}
	return requireAffected(res, fmt.Sprintf("application %d", id))
}

// SaveScore overwrites the score and feedback and marks the application Reviewed.
func (s *Storage) SaveScore(ctx context.Context, id int64, score float64, feedback string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE applications
		SET match_score = $1, ai_feedback = $2, status = $3, updated_at = now()
		WHERE id = $4`, score, feedback, model.ApplicationReviewed, id)
	if err != nil {
		return fmt.Errorf("failed to save score: %w", err)
	}
	if err := requireAffected(res, fmt.Sprintf("application %d", id)); err != nil {
		return err
	}

	s.logger.Info("Application reviewed",
		slog.Int64("application_id", id),
		slog.Float64("match_score", score),
	)
	return nil
}
