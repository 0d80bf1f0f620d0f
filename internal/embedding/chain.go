package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/mikey/mail-lens/internal/config"
	"github.com/mikey/mail-lens/internal/core"
	"go.uber.org/zap"
)

// Loader builds a provider for one candidate of the chain
type Loader func(ctx context.Context, candidate config.ModelCandidate) (core.EmbeddingProvider, error)

// LoadChain tries candidates in order and returns the first provider that
// loads and encodes a probe text. When every candidate fails, the returned
// error wraps core.ErrModelUnavailable and each candidate's failure.
func LoadChain(ctx context.Context, candidates []config.ModelCandidate, load Loader, probeText string, logger *zap.Logger) (core.EmbeddingProvider, error) {
	if probeText == "" {
		probeText = "test"
	}

	errs := []error{core.ErrModelUnavailable}
	for i, candidate := range candidates {
		logger.Info("Loading embedding model",
			zap.Int("attempt", i+1),
			zap.Int("candidates", len(candidates)),
			zap.String("model", candidate.String()))

		provider, err := load(ctx, candidate)
		if err != nil {
			logger.Warn("Failed to load embedding model", zap.String("model", candidate.String()), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", candidate, err))
			continue
		}

		dim, err := probe(ctx, provider, probeText)
		if err != nil {
			logger.Warn("Embedding model failed probe", zap.String("model", candidate.String()), zap.Error(err))
			if cerr := provider.Close(); cerr != nil {
				logger.Warn("Failed to close embedding model", zap.String("model", candidate.String()), zap.Error(cerr))
			}
			errs = append(errs, fmt.Errorf("%s: probe: %w", candidate, err))
			continue
		}

		logger.Info("Embedding model loaded",
			zap.String("model", provider.Name()),
			zap.Int("dimension", dim))
		return provider, nil
	}

	if len(candidates) == 0 {
		errs = append(errs, errors.New("no embedding models configured"))
	}
	return nil, errors.Join(errs...)
}

func probe(ctx context.Context, provider core.EmbeddingProvider, text string) (int, error) {
	vectors, err := provider.Embed(ctx, []string{text})
	if err != nil {
		return 0, err
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return 0, errors.New("empty probe vector")
	}
	return len(vectors[0]), nil
}
