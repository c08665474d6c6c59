package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/hr-rag/internal/model"
)

const documentColumns = `
	id, company_id, filename, content, embedding IS NOT NULL AS has_embedding,
	source_document_id, chunk_index, created_at, updated_at`

// CreateDocument inserts the placeholder row for an uploaded file.
func (s *Storage) CreateDocument(ctx context.Context, companyID int64, filename string) (*model.Document, error) {
	query := `
		INSERT INTO documents (company_id, filename, content)
		VALUES ($1, $2, $3)
		RETURNING` + documentColumns

	var doc model.Document
	if err := s.db.GetContext(ctx, &doc, query, companyID, filename, model.PlaceholderContent); err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	s.logger.Info("Document placeholder created",
		slog.Int64("document_id", doc.ID),
		slog.Int64("company_id", companyID),
		slog.String("filename", filename),
	)
	return &doc, nil
}

// GetDocument loads any document row by id. Only background jobs call this;
// request handlers use GetTenantDocument.
func (s *Storage) GetDocument(ctx context.Context, id int64) (*model.Document, error) {
	var doc model.Document
	query := `SELECT` + documentColumns + ` FROM documents WHERE id = $1`
	if err := s.db.GetContext(ctx, &doc, query, id); err != nil {
		return nil, notFound(err, "get document %d", id)
	}
	return &doc, nil
}

// GetTenantDocument loads an uploaded document owned by companyID.
func (s *Storage) GetTenantDocument(ctx context.Context, companyID, id int64) (*model.DocumentSummary, error) {
	var doc model.DocumentSummary
	query := `
		SELECT` + documentColumns + `,
			1 + (SELECT count(*) FROM documents c WHERE c.source_document_id = d.id) AS chunks
		FROM documents d
		WHERE id = $1 AND company_id = $2 AND source_document_id IS NULL`
	if err := s.db.GetContext(ctx, &doc, query, id, companyID); err != nil {
		return nil, notFound(err, "get document %d", id)
	}
	return &doc, nil
}

// MarkDocumentEmpty records that the uploaded file had no text. The upload
// row is a status marker, not a chunk: its embedding stays NULL so search
// never returns it. Rows that were already indexed are left alone.
func (s *Storage) MarkDocumentEmpty(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET content = '', updated_at = now()
		WHERE id = $1 AND embedding IS NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to mark document empty: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		s.logger.Warn("Document not marked empty (missing or already indexed)", slog.Int64("document_id", id))
	}
	return nil
}

type DocumentFilter struct {
	CompanyID int64
	PageSize  int
	Cursor    *DocumentCursor
}

type DocumentCursor struct {
	CreatedAt time.Time
	ID        int64
}

// ListDocuments pages through a tenant's uploads, newest first. It fetches
// PageSize+1 rows so the caller can tell whether another page exists.
func (s *Storage) ListDocuments(ctx context.Context, filter DocumentFilter) ([]model.DocumentSummary, error) {
	query := `
		SELECT` + documentColumns + `,
			1 + (SELECT count(*) FROM documents c WHERE c.source_document_id = d.id) AS chunks
		FROM documents d
		WHERE company_id = $1 AND source_document_id IS NULL`
	args := []interface{}{filter.CompanyID}
	argIdx := 2

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.ID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, id DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var docs []model.DocumentSummary
	if err := s.db.SelectContext(ctx, &docs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}
