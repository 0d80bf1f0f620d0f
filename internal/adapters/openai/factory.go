package openai

import (
	"fmt"

	"github.com/mikey/mail-lens/internal/config"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Factory creates new instances of EmbeddingClient
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new factory for EmbeddingClient instances
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateClient creates a new EmbeddingClient for model
func (f *Factory) CreateClient(model string) (*EmbeddingClient, error) {
	openaiCfg := f.cfg.GetOpenAI()
	if openaiCfg.APIKey == "" && openaiCfg.BaseURL == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	clientCfg := openai.DefaultConfig(openaiCfg.APIKey)
	if openaiCfg.BaseURL != "" {
		clientCfg.BaseURL = openaiCfg.BaseURL
	}

	return NewEmbeddingClient(
		openai.NewClientWithConfig(clientCfg),
		model,
		openaiCfg.Dimensions,
		f.logger,
	), nil
}
