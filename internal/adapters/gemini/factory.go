package gemini

import (
	"context"

	"github.com/mikey/mail-lens/internal/config"
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
func (f *Factory) CreateClient(ctx context.Context, model string) (*EmbeddingClient, error) {
	return NewEmbeddingClient(ctx, f.cfg.GetGemini().APIKey, model, f.logger)
}
