package factory

import (
	"context"
	"fmt"

	"github.com/mikey/mail-lens/internal/adapters/bedrock"
	"github.com/mikey/mail-lens/internal/adapters/gemini"
	"github.com/mikey/mail-lens/internal/adapters/openai"
	"github.com/mikey/mail-lens/internal/adapters/resilience"
	"github.com/mikey/mail-lens/internal/adapters/sbert"
	"github.com/mikey/mail-lens/internal/config"
	"github.com/mikey/mail-lens/internal/core"
	"github.com/mikey/mail-lens/internal/embedding"
	"go.uber.org/zap"
)

// EmbeddingFactory creates the embedding provider from the configured model chain
type EmbeddingFactory struct {
	cfg          *config.Config
	logger       *zap.Logger
	cacheFactory *CacheFactory
}

// NewEmbeddingFactory creates a new embedding factory
func NewEmbeddingFactory(cfg *config.Config, logger *zap.Logger, cacheFactory *CacheFactory) *EmbeddingFactory {
	return &EmbeddingFactory{
		cfg:          cfg,
		logger:       logger,
		cacheFactory: cacheFactory,
	}
}

// CreateProvider loads the first working model of the chain. Remote providers
// are wrapped in a circuit breaker, and the result is wrapped in the embedding
// cache when caching is enabled.
func (f *EmbeddingFactory) CreateProvider(ctx context.Context) (core.EmbeddingProvider, error) {
	embCfg, err := f.cfg.GetEmbedding()
	if err != nil {
		return nil, err
	}
	breakerCfg, err := f.cfg.GetBreaker()
	if err != nil {
		return nil, err
	}

	load := func(ctx context.Context, candidate config.ModelCandidate) (core.EmbeddingProvider, error) {
		provider, remote, err := f.createCandidate(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if remote && breakerCfg.Enabled {
			provider = resilience.NewBreakerProvider(provider, breakerCfg, f.logger)
		}
		return provider, nil
	}

	provider, err := embedding.LoadChain(ctx, embCfg.Candidates, load, embCfg.ProbeText, f.logger)
	if err != nil {
		return nil, err
	}

	if !f.cacheFactory.IsCacheEnabled() {
		return provider, nil
	}

	ttl, err := f.cacheFactory.GetCacheTTL()
	if err != nil {
		_ = provider.Close()
		return nil, fmt.Errorf("invalid cache ttl: %w", err)
	}
	repo, err := f.cacheFactory.CreateCacheRepository(ctx)
	if err != nil {
		_ = provider.Close()
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}
	f.logger.Info("Embedding cache enabled",
		zap.String("type", f.cfg.GetString("cache.type")),
		zap.Duration("ttl", ttl))

	return embedding.NewCachedProvider(provider, repo, ttl, f.logger), nil
}

// createCandidate builds the provider for one chain entry and reports whether it is remote
func (f *EmbeddingFactory) createCandidate(ctx context.Context, candidate config.ModelCandidate) (core.EmbeddingProvider, bool, error) {
	switch candidate.Provider {
	case "sbert":
		sbertCfg := f.cfg.GetSBERT()
		client, err := sbert.NewClient(ctx, sbert.Options{
			Python:         sbertCfg.Python,
			Model:          candidate.Model,
			CacheDir:       sbertCfg.CacheDir,
			Device:         sbertCfg.Device,
			BatchSize:      sbertCfg.BatchSize,
			StartupTimeout: sbertCfg.StartupTimeout,
		}, f.logger)
		if err != nil {
			return nil, false, err
		}
		return client, false, nil
	case "openai":
		client, err := openai.NewFactory(f.cfg, f.logger).CreateClient(candidate.Model)
		if err != nil {
			return nil, true, err
		}
		return client, true, nil
	case "bedrock":
		client, err := bedrock.NewFactory(f.cfg, f.logger).CreateClient(ctx, candidate.Model)
		if err != nil {
			return nil, true, err
		}
		return client, true, nil
	case "gemini":
		client, err := gemini.NewFactory(f.cfg, f.logger).CreateClient(ctx, candidate.Model)
		if err != nil {
			return nil, true, err
		}
		return client, true, nil
	default:
		return nil, false, fmt.Errorf("unsupported embedding provider: %s", candidate.Provider)
	}
}
