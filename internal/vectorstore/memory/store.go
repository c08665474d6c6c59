// Package memory is an in-process vector store using brute-force L2 search.
// It backs ragctl's local mode and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/cuongbtq/hr-rag/internal/ai"
	"github.com/cuongbtq/hr-rag/internal/vectorstore"
)

type row struct {
	id       int64
	tenantID int64
	filename string
	content  string
	vector   []float32
}

type Store struct {
	mu        sync.RWMutex
	dimension int
	nextID    int64
	// rows by upload document id, in chunk order
	docs map[int64][]row
}

func New(dimension int) *Store {
	return &Store{dimension: dimension, docs: make(map[int64][]row)}
}

// ReplaceChunks swaps the whole chunk set of doc. Chunk 0 keeps the
// document's own id, mirroring the placeholder row of the SQL store.
func (s *Store) ReplaceChunks(_ context.Context, doc vectorstore.Document, chunks []vectorstore.Chunk) error {
	if len(chunks) == 0 {
		return errors.New("no chunks to write")
	}
	for _, c := range chunks {
		if err := ai.CheckDimension(c.Embedding, s.dimension); err != nil {
			return fmt.Errorf("chunk %d: %w", c.Index, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.docs[doc.ID]; ok && prev[0].tenantID != doc.TenantID {
		return fmt.Errorf("document %d: %w", doc.ID, vectorstore.ErrDocumentNotFound)
	}

	rows := make([]row, 0, len(chunks))
	for _, c := range chunks {
		id := doc.ID
		// part rows get negative ids so they never collide with upload ids
		if c.Index > 0 {
			s.nextID++
			id = -s.nextID
		}
		rows = append(rows, row{
			id:       id,
			tenantID: doc.TenantID,
			filename: vectorstore.PartName(doc.Filename, c.Index),
			content:  c.Content,
			vector:   append([]float32(nil), c.Embedding...),
		})
	}
	s.docs[doc.ID] = rows
	return nil
}

// Search filters by tenant before computing any distance.
func (s *Store) Search(_ context.Context, tenantID int64, query []float32, k int) ([]vectorstore.Result, error) {
	if k <= 0 {
		return nil, vectorstore.ErrInvalidK
	}
	if err := ai.CheckDimension(query, s.dimension); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []vectorstore.Result
	for _, rows := range s.docs {
		if rows[0].tenantID != tenantID {
			continue
		}
		for _, r := range rows {
			results = append(results, vectorstore.Result{
				ID:       r.id,
				Filename: r.filename,
				Content:  r.content,
				Distance: l2(r.vector, query),
			})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].Filename < results[j].Filename
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Len returns the number of stored chunks across all tenants.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, rows := range s.docs {
		n += len(rows)
	}
	return n
}

func l2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
