// Package ai defines the embedding and generation backend contracts shared by
// the Gemini and OpenAI-compatible implementations.
package ai

import (
	"context"
	"errors"
	"fmt"
)

// Role tags a message for the generation backend.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged prompt entry.
type Message struct {
	Role    Role
	Content string
}

// GenerateRequest is the generation call contract. JSON asks the backend for
// a single JSON object instead of free text.
type GenerateRequest struct {
	Messages    []Message
	Temperature float32
	JSON        bool
}

// Embedder maps text to a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Generator returns one completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

var (
	// ErrEmbedding marks any failure of the embedding backend.
	ErrEmbedding = errors.New("embedding backend failed")

	// ErrGeneration marks any failure of the generation backend.
	ErrGeneration = errors.New("generation backend failed")

	// ErrDimensionMismatch is returned when a vector's length differs from the deployment dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// BackendError describes a failed backend call. Transient is set for
// failures worth retrying later: rate limits, 5xx responses and network errors.
type BackendError struct {
	Provider  string
	Kind      error
	Transient bool
	Err       error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Provider, e.Kind, e.Err)
}

func (e *BackendError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// EmbeddingError builds an ErrEmbedding BackendError.
func EmbeddingError(provider string, transient bool, err error) error {
	return &BackendError{Provider: provider, Kind: ErrEmbedding, Transient: transient, Err: err}
}

// GenerationError builds an ErrGeneration BackendError.
func GenerationError(provider string, transient bool, err error) error {
	return &BackendError{Provider: provider, Kind: ErrGeneration, Transient: transient, Err: err}
}

// IsTransient reports whether err carries a transient BackendError.
func IsTransient(err error) bool {
	var be *BackendError
	return errors.As(err, &be) && be.Transient
}

// CheckDimension fails with ErrDimensionMismatch unless len(vec) == dim.
func CheckDimension(vec []float32, dim int) error {
	if len(vec) != dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), dim)
	}
	return nil
}

type guardedEmbedder struct {
	Embedder
	dim int
}

// WithDimensionGuard wraps e so that every returned vector has exactly dim
// entries. A vector of any other length becomes a non-transient embedding
// error instead of reaching storage.
func WithDimensionGuard(e Embedder, dim int) Embedder {
	return &guardedEmbedder{Embedder: e, dim: dim}
}

func (g *guardedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := g.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := CheckDimension(vec, g.dim); err != nil {
		return nil, EmbeddingError("dimension-guard", false, err)
	}
	return vec, nil
}

func (g *guardedEmbedder) Dimension() int { return g.dim }
