// Package vectorstore defines tenant-scoped chunk storage with nearest-neighbour
// search over embeddings.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
)

// ErrDocumentNotFound is returned by ReplaceChunks when the upload row is gone
// or belongs to another tenant.
var ErrDocumentNotFound = errors.New("document not found")

// ErrInvalidK is returned by Search for a non-positive result count.
var ErrInvalidK = errors.New("k must be greater than 0")

// Document identifies the upload whose chunks are being written.
type Document struct {
	ID       int64
	TenantID int64
	Filename string
}

// Chunk is one embedded segment. Index is its position in the document.
type Chunk struct {
	Index     int
	Content   string
	Embedding []float32
}

// Result is a search hit. Distance is the Euclidean distance to the query.
type Result struct {
	ID       int64
	Filename string
	Content  string
	Distance float64
}

// Store persists chunks and answers similarity queries. Every method is
// scoped to a single tenant.
type Store interface {
	// ReplaceChunks makes chunks the complete chunk set of doc. Re-running it
	// with the same input leaves the same rows behind.
	ReplaceChunks(ctx context.Context, doc Document, chunks []Chunk) error

	// Search returns at most k chunks of tenantID ordered by ascending L2
	// distance to query. Rows of other tenants are never considered.
	Search(ctx context.Context, tenantID int64, query []float32, k int) ([]Result, error)
}

// PartName is the filename stored on chunk index > 0.
func PartName(filename string, index int) string {
	if index == 0 {
		return filename
	}
	return fmt.Sprintf("%s (Part %d)", filename, index+1)
}
