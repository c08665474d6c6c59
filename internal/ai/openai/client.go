// Package openai talks to OpenAI-compatible chat completion and embedding
// endpoints, such as Groq or a self-hosted embedding server.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cuongbtq/hr-rag/internal/ai"
	"github.com/cuongbtq/hr-rag/shared/logger"
)

const (
	providerName       = "openai"
	defaultTimeout     = 60 * time.Second
	defaultMaxRetries  = 3
	maxRetryDelay      = 5 * time.Second
	errorBodyLogLength = 300
)

// Config configures the client.
type Config struct {
	BaseURL        string
	APIKey         string
	ChatModel      string
	EmbeddingModel string
	Dimension      int
	Timeout        time.Duration
	MaxRetries     int
}

// Client implements ai.Generator and ai.Embedder over HTTP.
type Client struct {
	baseURL        string
	apiKey         string
	chatModel      string
	embeddingModel string
	dimension      int
	maxRetries     int
	httpClient     *http.Client
	logger         *slog.Logger

	// sleep is replaced in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Client.
func New(cfg Config, log *slog.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("openai base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	return &Client{
		baseURL:        baseURL,
		apiKey:         strings.TrimSpace(cfg.APIKey),
		chatModel:      cfg.ChatModel,
		embeddingModel: cfg.EmbeddingModel,
		dimension:      cfg.Dimension,
		maxRetries:     maxRetries,
		httpClient:     &http.Client{Timeout: timeout},
		logger:         log,
		sleep:          sleepContext,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float32         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type embeddingRequest struct {
	Model      string `json:"model"`
	Input      string `json:"input"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
}

// Generate calls /chat/completions and returns the first choice.
func (c *Client) Generate(ctx context.Context, req ai.GenerateRequest) (string, error) {
	body := chatRequest{
		Model:       c.chatModel,
		Temperature: req.Temperature,
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	if req.JSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	var resp chatResponse
	if err := c.post(ctx, "/chat/completions", body, &resp); err != nil {
		return "", ai.GenerationError(providerName, isTransient(err), err)
	}
	if resp.Error != nil {
		return "", ai.GenerationError(providerName, false, fmt.Errorf("api error: %s", resp.Error.Message))
	}
	if len(resp.Choices) == 0 {
		return "", ai.GenerationError(providerName, false, errors.New("no choices returned"))
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if req.JSON {
		content = cleanMarkdownJSON(content)
	}
	if content == "" {
		return "", ai.GenerationError(providerName, false, errors.New("empty completion"))
	}

	c.logger.Debug("Chat completion received",
		slog.String("model", c.chatModel),
		slog.String("preview", logger.TruncateForLog(content, 120)),
	)
	return content, nil
}

// Embed calls /embeddings for a single input.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	body := embeddingRequest{
		Model:      c.embeddingModel,
		Input:      text,
		Dimensions: c.dimension,
	}

	var resp embeddingResponse
	if err := c.post(ctx, "/embeddings", body, &resp); err != nil {
		return nil, ai.EmbeddingError(providerName, isTransient(err), err)
	}
	if resp.Error != nil {
		return nil, ai.EmbeddingError(providerName, false, fmt.Errorf("api error: %s", resp.Error.Message))
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, ai.EmbeddingError(providerName, false, errors.New("no embedding returned"))
	}
	return resp.Data[0].Embedding, nil
}

// Dimension returns the requested embedding dimension.
func (c *Client) Dimension() int { return c.dimension }

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// statusError is a non-2xx response.
type statusError struct {
	Code       int
	Body       string
	RetryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

// post sends body as JSON, retrying 429 and 5xx responses and network
// errors with exponential backoff. A Retry-After header in seconds
// overrides the computed delay.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	url := c.baseURL + path

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryDelay(attempt - 1)
			var se *statusError
			if errors.As(lastErr, &se) && se.RetryAfter > 0 {
				delay = se.RetryAfter
			}
			c.logger.Warn("Retrying backend request",
				slog.String("path", path),
				slog.Int("attempt", attempt+1),
				slog.Duration("delay", delay),
				slog.Any("error", lastErr),
			)
			if err := c.sleep(ctx, delay); err != nil {
				return err
			}
		}

		lastErr = c.do(ctx, url, payload, out)
		if lastErr == nil || !isTransient(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) do(ctx context.Context, url string, payload []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := &statusError{Code: resp.StatusCode, Body: logger.TruncateForLog(string(data), errorBodyLogLength)}
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			se.RetryAfter = time.Duration(secs) * time.Second
		}
		return se
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func isTransient(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= http.StatusInternalServerError
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func retryDelay(attempt int) time.Duration {
	d := 200 * time.Millisecond << attempt
	if d > maxRetryDelay {
		d = maxRetryDelay
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// cleanMarkdownJSON strips a ```json fence some models wrap around JSON output.
func cleanMarkdownJSON(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimSuffix(content, "```")
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
	}
	return strings.TrimSpace(content)
}
