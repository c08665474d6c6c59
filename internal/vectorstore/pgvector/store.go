// Package pgvector stores chunks in the documents table using the pgvector
// extension.
package pgvector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	pgv "github.com/pgvector/pgvector-go"

	"github.com/cuongbtq/hr-rag/internal/ai"
	"github.com/cuongbtq/hr-rag/internal/vectorstore"
	"github.com/cuongbtq/hr-rag/shared/postgresql"
)

type Store struct {
	db        *sqlx.DB
	dimension int
	logger    *slog.Logger
}

// New creates a Store writing vectors of exactly dimension entries.
func New(db *sqlx.DB, dimension int, logger *slog.Logger) *Store {
	return &Store{db: db, dimension: dimension, logger: logger}
}

// ReplaceChunks writes chunk 0 into the upload row and upserts the other
// chunks keyed by (source_document_id, chunk_index). Chunks left over from a
// longer previous run are deleted. All of it is one transaction.
func (s *Store) ReplaceChunks(ctx context.Context, doc vectorstore.Document, chunks []vectorstore.Chunk) error {
	if len(chunks) == 0 {
		return errors.New("no chunks to write")
	}
	for _, c := range chunks {
		if err := ai.CheckDimension(c.Embedding, s.dimension); err != nil {
			return fmt.Errorf("chunk %d: %w", c.Index, err)
		}
	}

	err := postgresql.RunInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		first := chunks[0]
		res, err := tx.ExecContext(ctx, `
			UPDATE documents
			SET content = $1, embedding = $2, chunk_index = 0, updated_at = now()
			WHERE id = $3 AND company_id = $4 AND source_document_id IS NULL`,
			first.Content, pgv.NewVector(first.Embedding), doc.ID, doc.TenantID)
		if err != nil {
			return fmt.Errorf("failed to update document row: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("document %d: %w", doc.ID, vectorstore.ErrDocumentNotFound)
		}

		for _, c := range chunks[1:] {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO documents (company_id, filename, content, embedding, source_document_id, chunk_index)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (source_document_id, chunk_index) DO UPDATE
				SET filename = EXCLUDED.filename,
				    content = EXCLUDED.content,
				    embedding = EXCLUDED.embedding,
				    updated_at = now()`,
				doc.TenantID, vectorstore.PartName(doc.Filename, c.Index), c.Content,
				pgv.NewVector(c.Embedding), doc.ID, c.Index)
			if err != nil {
				return fmt.Errorf("failed to upsert chunk %d: %w", c.Index, err)
			}
		}

		res, err = tx.ExecContext(ctx,
			`DELETE FROM documents WHERE source_document_id = $1 AND chunk_index >= $2`,
			doc.ID, len(chunks))
		if err != nil {
			return fmt.Errorf("failed to delete stale chunks: %w", err)
		}
		if stale, _ := res.RowsAffected(); stale > 0 {
			s.logger.Info("Removed stale chunks",
				slog.Int64("document_id", doc.ID),
				slog.Int64("count", stale),
			)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("Chunks written",
		slog.Int64("document_id", doc.ID),
		slog.Int64("company_id", doc.TenantID),
		slog.Int("chunks", len(chunks)),
	)
	return nil
}

type searchRow struct {
	ID       int64   `db:"id"`
	Filename string  `db:"filename"`
	Content  string  `db:"content"`
	Distance float64 `db:"distance"`
}

// Search orders the tenant's embedded rows by L2 distance (the <-> operator).
func (s *Store) Search(ctx context.Context, tenantID int64, query []float32, k int) ([]vectorstore.Result, error) {
	if k <= 0 {
		return nil, vectorstore.ErrInvalidK
	}
	if err := ai.CheckDimension(query, s.dimension); err != nil {
		return nil, err
	}

	var rows []searchRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, filename, content, embedding <-> $2 AS distance
		FROM documents
		WHERE company_id = $1 AND embedding IS NOT NULL
		ORDER BY embedding <-> $2
		LIMIT $3`,
		tenantID, pgv.NewVector(query), k)
	if err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}

	results := make([]vectorstore.Result, 0, len(rows))
	for _, r := range rows {
		results = append(results, vectorstore.Result(r))
	}
	return results, nil
}
