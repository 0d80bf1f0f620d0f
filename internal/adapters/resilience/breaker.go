package resilience

import (
	"context"
	"errors"

	"github.com/mikey/mail-lens/internal/config"
	"github.com/mikey/mail-lens/internal/core"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerProvider guards a remote embedding provider with a circuit breaker.
// While the breaker is open, calls fail fast and the encoder's retry fails with them.
type BreakerProvider struct {
	core.EmbeddingProvider
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

// NewBreakerProvider wraps provider
func NewBreakerProvider(provider core.EmbeddingProvider, cfg config.BreakerConfig, logger *zap.Logger) *BreakerProvider {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	settings := gobreaker.Settings{
		Name:        "embedding:" + provider.Name(),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		// cancellation does not count as a failure
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}

	return &BreakerProvider{
		EmbeddingProvider: provider,
		cb:                gobreaker.NewCircuitBreaker(settings),
		logger:            logger,
	}
}

// Embed runs the wrapped call through the breaker
func (p *BreakerProvider) Embed(ctx context.Context, texts []string) ([]core.Embedding, error) {
	result, err := p.cb.Execute(func() (interface{}, error) {
		return p.EmbeddingProvider.Embed(ctx, texts)
	})
	if err != nil {
		return nil, err
	}
	return result.([]core.Embedding), nil
}

// State reports the breaker state
func (p *BreakerProvider) State() gobreaker.State {
	return p.cb.State()
}
