package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/mikey/mail-lens/internal/core"
	"github.com/mikey/mail-lens/internal/ports"
	"go.uber.org/zap"
)

// CachedProvider serves vectors from a cache and delegates misses to the wrapped provider.
// Cache failures are logged and otherwise ignored.
type CachedProvider struct {
	core.EmbeddingProvider
	cache  ports.CacheRepository
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedProvider wraps provider with cache
func NewCachedProvider(provider core.EmbeddingProvider, cache ports.CacheRepository, ttl time.Duration, logger *zap.Logger) *CachedProvider {
	return &CachedProvider{
		EmbeddingProvider: provider,
		cache:             cache,
		ttl:               ttl,
		logger:            logger,
	}
}

// CacheKey identifies the vector of text under model
func CacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// Embed returns cached vectors where available and encodes the rest in one call
func (p *CachedProvider) Embed(ctx context.Context, texts []string) ([]core.Embedding, error) {
	model := p.Name()
	out := make([]core.Embedding, len(texts))
	keys := make([]string, len(texts))

	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		keys[i] = CacheKey(model, text)
		entry, err := p.cache.Get(ctx, keys[i])
		switch {
		case err == nil && len(entry.Vector) > 0:
			out[i] = entry.Vector
			continue
		case err != nil && !errors.Is(err, core.ErrCacheMiss):
			p.logger.Warn("Embedding cache lookup failed", zap.Error(err))
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	p.logger.Debug("Embedding cache lookup",
		zap.Int("hits", len(texts)-len(missTexts)),
		zap.Int("misses", len(missTexts)))

	if len(missTexts) == 0 {
		return out, nil
	}

	vectors, err := p.EmbeddingProvider.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missTexts) {
		// let the encoder report the count mismatch
		return vectors, nil
	}

	now := time.Now()
	for j, i := range missIdx {
		out[i] = vectors[j]
		entry := &core.CacheEntry{
			Key:       keys[i],
			Model:     model,
			Vector:    vectors[j],
			CreatedAt: now,
			ExpiresAt: now.Add(p.ttl),
		}
		if err := p.cache.Set(ctx, entry); err != nil {
			p.logger.Warn("Failed to store embedding in cache", zap.Error(err))
		}
	}
	return out, nil
}

// Close releases the wrapped provider and stops the cache
func (p *CachedProvider) Close() error {
	p.cache.Stop()
	return p.EmbeddingProvider.Close()
}
