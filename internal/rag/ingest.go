// Package rag runs the retrieval-augmented pipeline: document ingestion,
// grounded answering and resume scoring.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cuongbtq/hr-rag/internal/ai"
	"github.com/cuongbtq/hr-rag/internal/document"
	"github.com/cuongbtq/hr-rag/internal/storage"
	"github.com/cuongbtq/hr-rag/internal/vectorstore"
)

type IngestStatus string

const (
	IngestIndexed   IngestStatus = "indexed"
	IngestNoContent IngestStatus = "no_content"
	IngestNotFound  IngestStatus = "not_found"
)

type IngestOutcome struct {
	Status IngestStatus
	Chunks int
}

type Ingestor struct {
	docs      DocumentRepository
	extractor TextExtractor
	chunker   *document.Chunker
	embedder  ai.Embedder
	store     vectorstore.Store
	logger    *slog.Logger
}

func NewIngestor(
	docs DocumentRepository,
	extractor TextExtractor,
	chunker *document.Chunker,
	embedder ai.Embedder,
	store vectorstore.Store,
	logger *slog.Logger,
) *Ingestor {
	return &Ingestor{
		docs:      docs,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		logger:    logger,
	}
}

// ProcessDocument extracts, chunks and embeds the file behind an upload row
// and writes every chunk in one step. Nothing is written when extraction or
// any embedding fails, and running it again for the same document replaces
// the chunks instead of adding more.
func (i *Ingestor) ProcessDocument(ctx context.Context, documentID int64, path string) (IngestOutcome, error) {
	log := i.logger.With(slog.Int64("document_id", documentID))

	doc, err := i.docs.GetDocument(ctx, documentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return IngestOutcome{Status: IngestNotFound}, fmt.Errorf("document %d: %w", documentID, ErrNotFound)
		}
		return IngestOutcome{}, fmt.Errorf("failed to load document: %w", err)
	}
	if doc.SourceDocumentID.Valid {
		return IngestOutcome{Status: IngestNotFound}, fmt.Errorf("document %d is a chunk row: %w", documentID, ErrNotFound)
	}

	text, err := i.extractor.Extract(path)
	if err != nil {
		return IngestOutcome{}, err
	}

	segments := i.chunker.Split(text)
	if strings.TrimSpace(text) == "" || len(segments) == 0 {
		log.Warn("No text extracted from document", slog.String("path", path))
		if err := i.docs.MarkDocumentEmpty(ctx, documentID); err != nil {
			return IngestOutcome{}, err
		}
		return IngestOutcome{Status: IngestNoContent}, nil
	}

	log.Info("Document split into chunks", slog.Int("chunks", len(segments)))

	chunks := make([]vectorstore.Chunk, 0, len(segments))
	for idx, seg := range segments {
		vec, err := i.embedder.Embed(ctx, seg)
		if err != nil {
			return IngestOutcome{}, fmt.Errorf("embed chunk %d: %w", idx, err)
		}
		chunks = append(chunks, vectorstore.Chunk{Index: idx, Content: seg, Embedding: vec})
	}

	err = i.store.ReplaceChunks(ctx, vectorstore.Document{
		ID:       doc.ID,
		TenantID: doc.CompanyID,
		Filename: doc.Filename,
	}, chunks)
	if err != nil {
		if errors.Is(err, vectorstore.ErrDocumentNotFound) {
			return IngestOutcome{Status: IngestNotFound}, fmt.Errorf("document %d: %w", documentID, ErrNotFound)
		}
		return IngestOutcome{}, fmt.Errorf("failed to write chunks: %w", err)
	}

	log.Info("Document indexed",
		slog.Int64("company_id", doc.CompanyID),
		slog.Int("chunks", len(chunks)),
	)
	return IngestOutcome{Status: IngestIndexed, Chunks: len(chunks)}, nil
}
