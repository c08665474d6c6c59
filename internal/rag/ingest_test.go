package rag

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/hr-rag/internal/ai"
	"github.com/cuongbtq/hr-rag/internal/document"
	"github.com/cuongbtq/hr-rag/internal/model"
	"github.com/cuongbtq/hr-rag/internal/vectorstore"
	"github.com/cuongbtq/hr-rag/internal/vectorstore/memory"
	"github.com/cuongbtq/hr-rag/shared/logger"
)

type ingestFixture struct {
	repo     *fakeRepo
	embedder *keywordEmbedder
	mem      *memory.Store
	store    *spyStore
}

func newIngestor(t *testing.T, extractor TextExtractor) (*Ingestor, *ingestFixture) {
	t.Helper()
	chunker, err := document.NewChunker(1000, 200)
	require.NoError(t, err)

	f := &ingestFixture{
		repo:     newFakeRepo(),
		embedder: &keywordEmbedder{},
		mem:      memory.New(3),
	}
	f.store = &spyStore{Store: f.mem}
	f.repo.documents[1] = &model.Document{ID: 1, CompanyID: 10, Filename: "leave-policy.pdf", Content: model.PlaceholderContent}

	return NewIngestor(f.repo, extractor, chunker, f.embedder, f.store, logger.NewNop()), f
}

func longPolicy() string {
	return strings.Repeat("Employees accrue leave every month. ", 70)
}

func TestIngestor_ProcessDocument(t *testing.T) {
	ing, f := newIngestor(t, fakeExtractor{text: longPolicy()})

	out, err := ing.ProcessDocument(context.Background(), 1, "uploads/10_leave-policy.pdf")
	require.NoError(t, err)
	assert.Equal(t, IngestIndexed, out.Status)
	assert.GreaterOrEqual(t, out.Chunks, 2)
	assert.Equal(t, out.Chunks, f.embedder.calls)
	assert.Equal(t, out.Chunks, f.mem.Len())

	results, err := f.mem.Search(context.Background(), 10, []float32{1, 0, 0.1}, 10)
	require.NoError(t, err)
	require.Len(t, results, out.Chunks)
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Filename)
	}
	assert.Contains(t, names, "leave-policy.pdf")
	assert.Contains(t, names, "leave-policy.pdf (Part 2)")
}

func TestIngestor_RedeliveryDoesNotDuplicate(t *testing.T) {
	ing, f := newIngestor(t, fakeExtractor{text: longPolicy()})

	first, err := ing.ProcessDocument(context.Background(), 1, "p")
	require.NoError(t, err)
	second, err := ing.ProcessDocument(context.Background(), 1, "p")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first.Chunks, f.mem.Len())
}

func TestIngestor_EmptyTextWritesNothing(t *testing.T) {
	for _, text := range []string{"", "  \n\n\t "} {
		ing, f := newIngestor(t, fakeExtractor{text: text})

		out, err := ing.ProcessDocument(context.Background(), 1, "empty.txt")
		require.NoError(t, err)
		assert.Equal(t, IngestNoContent, out.Status)
		assert.Zero(t, out.Chunks)
		assert.Zero(t, f.store.writes)
		assert.Zero(t, f.embedder.calls)
		assert.Equal(t, []int64{1}, f.repo.emptied)
	}
}

func TestIngestor_Failures(t *testing.T) {
	t.Run("missing document", func(t *testing.T) {
		ing, f := newIngestor(t, fakeExtractor{text: "x"})
		out, err := ing.ProcessDocument(context.Background(), 404, "p")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, IngestNotFound, out.Status)
		assert.Zero(t, f.store.writes)
	})

	t.Run("chunk row instead of upload", func(t *testing.T) {
		ing, f := newIngestor(t, fakeExtractor{text: "x"})
		f.repo.documents[2] = &model.Document{ID: 2, CompanyID: 10, SourceDocumentID: sql.NullInt64{Int64: 1, Valid: true}, ChunkIndex: 1}
		_, err := ing.ProcessDocument(context.Background(), 2, "p")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("extraction failure", func(t *testing.T) {
		extractErr := &document.ExtractionError{Path: "p.pdf", Format: document.FormatPDF, Kind: document.ErrExtractionFailed, Err: errors.New("bad xref")}
		ing, f := newIngestor(t, fakeExtractor{err: extractErr})
		_, err := ing.ProcessDocument(context.Background(), 1, "p.pdf")
		assert.ErrorIs(t, err, document.ErrExtractionFailed)
		assert.Zero(t, f.store.writes)
		assert.Empty(t, f.repo.emptied)
	})

	t.Run("embedding failure on a later chunk aborts without writes", func(t *testing.T) {
		ing, f := newIngestor(t, fakeExtractor{text: longPolicy()})
		f.embedder.err = errBackendDown
		f.embedder.failAt = 2
		_, err := ing.ProcessDocument(context.Background(), 1, "p")
		assert.ErrorIs(t, err, ai.ErrEmbedding)
		assert.True(t, ai.IsTransient(err))
		assert.Zero(t, f.store.writes)
		assert.Zero(t, f.mem.Len())
	})

	t.Run("upload row deleted before write", func(t *testing.T) {
		ing, f := newIngestor(t, fakeExtractor{text: "short leave note"})
		f.store.err = vectorstore.ErrDocumentNotFound
		out, err := ing.ProcessDocument(context.Background(), 1, "p")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, IngestNotFound, out.Status)
	})
}
