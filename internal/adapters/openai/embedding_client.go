package openai

import (
	"context"
	"fmt"
	"sort"

	"github.com/mikey/mail-lens/internal/core"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// EmbeddingClient is an implementation of the EmbeddingProvider interface using the OpenAI embeddings API.
// Any OpenAI-compatible server works when a base URL is configured.
type EmbeddingClient struct {
	client     *openai.Client
	modelName  string
	dimensions int
	logger     *zap.Logger

	dimension int
}

// NewEmbeddingClient creates a new OpenAI embedding client
func NewEmbeddingClient(client *openai.Client, modelName string, dimensions int, logger *zap.Logger) *EmbeddingClient {
	return &EmbeddingClient{
		client:     client,
		modelName:  modelName,
		dimensions: dimensions,
		logger:     logger,
		dimension:  dimensions,
	}
}

// Name returns the model name
func (c *EmbeddingClient) Name() string {
	return c.modelName
}

// Dimension returns the vector length, known after the first response
func (c *EmbeddingClient) Dimension() int {
	return c.dimension
}

// Embed encodes texts in a single API request
func (c *EmbeddingClient) Embed(ctx context.Context, texts []string) ([]core.Embedding, error) {
	req := openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(c.modelName),
	}
	if c.dimensions > 0 {
		req.Dimensions = c.dimensions
	}

	resp, err := c.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings with OpenAI: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("OpenAI returned %d embeddings for %d inputs", len(resp.Data), len(texts))
	}

	// responses carry their input index; do not rely on arrival order
	sort.Slice(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })

	out := make([]core.Embedding, len(resp.Data))
	for i, d := range resp.Data {
		out[i] = core.Embedding(d.Embedding)
	}
	if len(out) > 0 {
		c.dimension = len(out[0])
	}

	c.logger.Debug("OpenAI embeddings created",
		zap.String("model", c.modelName),
		zap.Int("inputs", len(texts)),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens))

	return out, nil
}

// Close is a no-op for the HTTP client
func (c *EmbeddingClient) Close() error {
	return nil
}
