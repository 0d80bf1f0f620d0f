package bedrock

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/goccy/go-json"
	"github.com/mikey/mail-lens/internal/core"
	"go.uber.org/zap"
)

// InvokeModelAPI is the subset of the Bedrock runtime client used for embeddings
type InvokeModelAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// EmbeddingClient is an implementation of the EmbeddingProvider interface using Amazon Titan embeddings
type EmbeddingClient struct {
	client     InvokeModelAPI
	modelID    string
	dimensions int
	logger     *zap.Logger

	dimension int
}

type titanRequest struct {
	InputText  string `json:"inputText"`
	Dimensions int    `json:"dimensions,omitempty"`
	Normalize  *bool  `json:"normalize,omitempty"`
}

type titanResponse struct {
	Embedding           []float32 `json:"embedding"`
	InputTextTokenCount int       `json:"inputTextTokenCount"`
}

// NewEmbeddingClient creates a new Bedrock embedding client
func NewEmbeddingClient(client InvokeModelAPI, modelID string, dimensions int, logger *zap.Logger) *EmbeddingClient {
	return &EmbeddingClient{
		client:     client,
		modelID:    modelID,
		dimensions: dimensions,
		logger:     logger,
	}
}

// isTitanV2 checks if the model accepts the dimensions and normalize parameters
func (c *EmbeddingClient) isTitanV2() bool {
	return strings.Contains(c.modelID, "titan-embed-text-v2")
}

// Name returns the model id
func (c *EmbeddingClient) Name() string {
	return c.modelID
}

// Dimension returns the vector length, known after the first response
func (c *EmbeddingClient) Dimension() int {
	return c.dimension
}

// Embed encodes texts one request at a time; Titan has no batch endpoint
func (c *EmbeddingClient) Embed(ctx context.Context, texts []string) ([]core.Embedding, error) {
	out := make([]core.Embedding, 0, len(texts))
	tokens := 0

	for _, text := range texts {
		req := titanRequest{InputText: text}
		if c.isTitanV2() {
			normalize := false
			req.Normalize = &normalize
			req.Dimensions = c.dimensions
		}

		payload, err := json.Marshal(req)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}

		resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
			ModelId:     aws.String(c.modelID),
			Body:        payload,
			Accept:      aws.String("application/json"),
			ContentType: aws.String("application/json"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to invoke Bedrock model: %w", err)
		}

		var titanResp titanResponse
		if err := json.Unmarshal(resp.Body, &titanResp); err != nil {
			return nil, fmt.Errorf("failed to parse Bedrock response: %w", err)
		}
		if len(titanResp.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding from Bedrock")
		}

		tokens += titanResp.InputTextTokenCount
		out = append(out, core.Embedding(titanResp.Embedding))
	}

	if len(out) > 0 {
		c.dimension = len(out[0])
	}
	c.logger.Debug("Bedrock embeddings created",
		zap.String("model", c.modelID),
		zap.Int("inputs", len(texts)),
		zap.Int("input_tokens", tokens))

	return out, nil
}

// Close is a no-op for the HTTP client
func (c *EmbeddingClient) Close() error {
	return nil
}
