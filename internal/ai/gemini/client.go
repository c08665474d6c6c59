package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/cuongbtq/hr-rag/internal/ai"
	"github.com/cuongbtq/hr-rag/shared/logger"
)

const (
	providerName           = "gemini"
	defaultGenerationModel = "gemini-2.5-flash"
	defaultEmbeddingModel  = "gemini-embedding-001"
)

// modelsAPI is the subset of *genai.Models the client calls.
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Config configures the Gemini backend.
type Config struct {
	APIKey          string
	GenerationModel string
	EmbeddingModel  string
	Dimension       int
}

// Client implements ai.Generator and ai.Embedder on the Gemini API.
type Client struct {
	models          modelsAPI
	generationModel string
	embeddingModel  string
	dimension       int
	logger          *slog.Logger
}

// New creates a Client for the Gemini API backend.
func New(ctx context.Context, cfg Config, log *slog.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newClient(client.Models, cfg, log), nil
}

func newClient(models modelsAPI, cfg Config, log *slog.Logger) *Client {
	c := &Client{
		models:          models,
		generationModel: strings.TrimSpace(cfg.GenerationModel),
		embeddingModel:  strings.TrimSpace(cfg.EmbeddingModel),
		dimension:       cfg.Dimension,
		logger:          log,
	}
	if c.generationModel == "" {
		c.generationModel = defaultGenerationModel
	}
	if c.embeddingModel == "" {
		c.embeddingModel = defaultEmbeddingModel
	}
	return c
}

// Generate sends the messages to Gemini. System messages become the system
// instruction; the rest are sent as conversation turns.
func (c *Client) Generate(ctx context.Context, req ai.GenerateRequest) (string, error) {
	var (
		system   []string
		contents []*genai.Content
	)
	for _, m := range req.Messages {
		switch m.Role {
		case ai.RoleSystem:
			system = append(system, m.Content)
		case ai.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(contents) == 0 {
		return "", ai.GenerationError(providerName, false, errors.New("prompt must contain a user message"))
	}

	config := &genai.GenerateContentConfig{
		Temperature: ptr(req.Temperature),
	}
	if len(system) > 0 {
		config.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	if req.JSON {
		config.ResponseMIMEType = "application/json"
	}

	resp, err := c.models.GenerateContent(ctx, c.generationModel, contents, config)
	if err != nil {
		return "", ai.GenerationError(providerName, isTransient(err), fmt.Errorf("generate content: %w", err))
	}

	output := responseText(resp)
	if output == "" {
		return "", ai.GenerationError(providerName, false, errors.New("gemini api returned empty response"))
	}

	c.logger.Debug("Gemini generation completed",
		slog.String("model", c.generationModel),
		slog.String("preview", logger.TruncateForLog(output, 120)),
	)
	return output, nil
}

// Embed returns the embedding of text, requesting the configured dimensionality.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	config := &genai.EmbedContentConfig{}
	if c.dimension > 0 {
		config.OutputDimensionality = ptr(int32(c.dimension))
	}

	resp, err := c.models.EmbedContent(ctx, c.embeddingModel, genai.Text(text), config)
	if err != nil {
		return nil, ai.EmbeddingError(providerName, isTransient(err), fmt.Errorf("embed content: %w", err))
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil || len(resp.Embeddings[0].Values) == 0 {
		return nil, ai.EmbeddingError(providerName, false, errors.New("gemini api returned no embedding"))
	}

	return resp.Embeddings[0].Values, nil
}

// Dimension returns the requested output dimensionality.
func (c *Client) Dimension() int { return c.dimension }

// Close releases the client. The genai client holds no resources of its own.
func (c *Client) Close() error { return nil }

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
		// first candidate only
		break
	}
	return strings.TrimSpace(builder.String())
}

func isTransient(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func ptr[T any](v T) *T { return &v }
