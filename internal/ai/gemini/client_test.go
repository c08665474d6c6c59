package gemini

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/cuongbtq/hr-rag/internal/ai"
	"github.com/cuongbtq/hr-rag/shared/logger"
)

type fakeModels struct {
	genModel    string
	genContents []*genai.Content
	genConfig   *genai.GenerateContentConfig
	genResp     *genai.GenerateContentResponse
	genErr      error

	embedModel  string
	embedConfig *genai.EmbedContentConfig
	embedResp   *genai.EmbedContentResponse
	embedErr    error
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.genModel, f.genContents, f.genConfig = model, contents, config
	return f.genResp, f.genErr
}

func (f *fakeModels) EmbedContent(_ context.Context, model string, _ []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	f.embedModel, f.embedConfig = model, config
	return f.embedResp, f.embedErr
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{Role: genai.RoleModel}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func TestNew_RequiresAPIKey(t *testing.T) {
	c, err := New(context.Background(), Config{APIKey: "  "}, logger.NewNop())
	require.Error(t, err)
	assert.Nil(t, c)
}

func TestClient_Generate(t *testing.T) {
	models := &fakeModels{genResp: textResponse("  The policy allows ", "20 days.")}
	c := newClient(models, Config{GenerationModel: "gemini-2.5-flash"}, logger.NewNop())

	out, err := c.Generate(context.Background(), ai.GenerateRequest{
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: "Answer from context."},
			{Role: ai.RoleUser, Content: "How many days?"},
		},
		Temperature: 0.1,
		JSON:        true,
	})
	require.NoError(t, err)
	assert.Equal(t, "The policy allows\n20 days.", out)

	assert.Equal(t, "gemini-2.5-flash", models.genModel)
	require.Len(t, models.genContents, 1)
	assert.Equal(t, genai.RoleUser, models.genContents[0].Role)
	require.NotNil(t, models.genConfig.SystemInstruction)
	assert.Equal(t, "Answer from context.", models.genConfig.SystemInstruction.Parts[0].Text)
	require.NotNil(t, models.genConfig.Temperature)
	assert.InDelta(t, 0.1, *models.genConfig.Temperature, 1e-6)
	assert.Equal(t, "application/json", models.genConfig.ResponseMIMEType)
}

func TestClient_GenerateErrors(t *testing.T) {
	tests := []struct {
		name          string
		models        *fakeModels
		messages      []ai.Message
		wantTransient bool
	}{
		{
			name:          "rate limited",
			models:        &fakeModels{genErr: genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED"}},
			messages:      []ai.Message{{Role: ai.RoleUser, Content: "hi"}},
			wantTransient: true,
		},
		{
			name:          "server error",
			models:        &fakeModels{genErr: genai.APIError{Code: http.StatusServiceUnavailable}},
			messages:      []ai.Message{{Role: ai.RoleUser, Content: "hi"}},
			wantTransient: true,
		},
		{
			name:     "bad request",
			models:   &fakeModels{genErr: genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"}},
			messages: []ai.Message{{Role: ai.RoleUser, Content: "hi"}},
		},
		{
			name:     "empty response",
			models:   &fakeModels{genResp: textResponse("   ")},
			messages: []ai.Message{{Role: ai.RoleUser, Content: "hi"}},
		},
		{
			name:     "system only",
			models:   &fakeModels{},
			messages: []ai.Message{{Role: ai.RoleSystem, Content: "rules"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(tt.models, Config{}, logger.NewNop())
			out, err := c.Generate(context.Background(), ai.GenerateRequest{Messages: tt.messages})
			require.Error(t, err)
			assert.Empty(t, out)
			assert.ErrorIs(t, err, ai.ErrGeneration)
			assert.Equal(t, tt.wantTransient, ai.IsTransient(err))
		})
	}
}

func TestClient_Embed(t *testing.T) {
	models := &fakeModels{embedResp: &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{{Values: []float32{0.1, 0.2, 0.3}}},
	}}
	c := newClient(models, Config{Dimension: 3}, logger.NewNop())

	vec, err := c.Embed(context.Background(), "leave policy")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, defaultEmbeddingModel, models.embedModel)
	require.NotNil(t, models.embedConfig.OutputDimensionality)
	assert.Equal(t, int32(3), *models.embedConfig.OutputDimensionality)
	assert.Equal(t, 3, c.Dimension())
}

func TestClient_EmbedErrors(t *testing.T) {
	t.Run("no embeddings", func(t *testing.T) {
		c := newClient(&fakeModels{embedResp: &genai.EmbedContentResponse{}}, Config{Dimension: 3}, logger.NewNop())
		_, err := c.Embed(context.Background(), "x")
		assert.ErrorIs(t, err, ai.ErrEmbedding)
		assert.False(t, ai.IsTransient(err))
	})

	t.Run("deadline exceeded is transient", func(t *testing.T) {
		c := newClient(&fakeModels{embedErr: context.DeadlineExceeded}, Config{Dimension: 3}, logger.NewNop())
		_, err := c.Embed(context.Background(), "x")
		assert.ErrorIs(t, err, ai.ErrEmbedding)
		assert.True(t, ai.IsTransient(err))
	})

	t.Run("plain error is permanent", func(t *testing.T) {
		c := newClient(&fakeModels{embedErr: errors.New("boom")}, Config{Dimension: 3}, logger.NewNop())
		_, err := c.Embed(context.Background(), "x")
		assert.False(t, ai.IsTransient(err))
	})
}
