package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/mail-lens/internal/core"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// EmbeddingClient is an implementation of the EmbeddingProvider interface using Google Gemini
type EmbeddingClient struct {
	client    *genai.Client
	model     *genai.EmbeddingModel
	modelName string
	logger    *zap.Logger

	dimension int
}

// NewEmbeddingClient creates a new Gemini embedding client
func NewEmbeddingClient(ctx context.Context, apiKey, modelName string, logger *zap.Logger) (*EmbeddingClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.EmbeddingModel(modelName)
	model.TaskType = genai.TaskTypeSemanticSimilarity

	return &EmbeddingClient{
		client:    client,
		model:     model,
		modelName: modelName,
		logger:    logger,
	}, nil
}

// Name returns the model name
func (c *EmbeddingClient) Name() string {
	return c.modelName
}

// Dimension returns the vector length, known after the first response
func (c *EmbeddingClient) Dimension() int {
	return c.dimension
}

// Embed encodes texts in one batch request
func (c *EmbeddingClient) Embed(ctx context.Context, texts []string) ([]core.Embedding, error) {
	batch := c.model.NewBatch()
	for _, text := range texts {
		batch.AddContent(genai.Text(text))
	}

	resp, err := c.model.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("failed to embed content with Gemini: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini returned %d embeddings for %d inputs", len(resp.Embeddings), len(texts))
	}

	out := make([]core.Embedding, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if e == nil || len(e.Values) == 0 {
			return nil, fmt.Errorf("empty embedding from Gemini for input %d", i)
		}
		out[i] = core.Embedding(e.Values)
	}
	c.dimension = len(out[0])

	c.logger.Debug("Gemini embeddings created",
		zap.String("model", c.modelName),
		zap.Int("inputs", len(texts)))

	return out, nil
}

// Close closes the underlying client
func (c *EmbeddingClient) Close() error {
	return c.client.Close()
}
