package embedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mikey/mail-lens/internal/adapters/cache"
	"github.com/mikey/mail-lens/internal/config"
	"github.com/mikey/mail-lens/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubProvider struct {
	name    string
	fail    bool
	closed  bool
	batches [][]string
}

func (p *stubProvider) Embed(ctx context.Context, texts []string) ([]core.Embedding, error) {
	p.batches = append(p.batches, texts)
	if p.fail {
		return nil, errors.New("model crashed")
	}
	out := make([]core.Embedding, len(texts))
	for i, text := range texts {
		out[i] = core.Embedding{float32(len(text)), 1}
	}
	return out, nil
}

func (p *stubProvider) Name() string   { return p.name }
func (p *stubProvider) Dimension() int { return 2 }
func (p *stubProvider) Close() error {
	p.closed = true
	return nil
}

func candidates(names ...string) []config.ModelCandidate {
	out := make([]config.ModelCandidate, len(names))
	for i, n := range names {
		out[i] = config.ModelCandidate{Provider: "stub", Model: n}
	}
	return out
}

func TestLoadChainFallsBack(t *testing.T) {
	probeFails := &stubProvider{name: "second", fail: true}
	works := &stubProvider{name: "third"}
	var attempted []string

	load := func(ctx context.Context, c config.ModelCandidate) (core.EmbeddingProvider, error) {
		attempted = append(attempted, c.Model)
		switch c.Model {
		case "first":
			return nil, errors.New("not installed")
		case "second":
			return probeFails, nil
		default:
			return works, nil
		}
	}

	provider, err := LoadChain(context.Background(), candidates("first", "second", "third"), load, "", zap.NewNop())
	require.NoError(t, err)
	assert.Same(t, works, provider)
	assert.Equal(t, []string{"first", "second", "third"}, attempted)
	assert.True(t, probeFails.closed, "a provider failing its probe is released")
	assert.Equal(t, [][]string{{"test"}}, works.batches)
}

func TestLoadChainStopsAtFirstSuccess(t *testing.T) {
	calls := 0
	load := func(ctx context.Context, c config.ModelCandidate) (core.EmbeddingProvider, error) {
		calls++
		return &stubProvider{name: c.Model}, nil
	}

	provider, err := LoadChain(context.Background(), candidates("a", "b"), load, "probe", zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "a", provider.Name())
	assert.Equal(t, 1, calls)
}

func TestLoadChainAllFail(t *testing.T) {
	load := func(ctx context.Context, c config.ModelCandidate) (core.EmbeddingProvider, error) {
		return nil, errors.New(c.Model + " unavailable")
	}

	_, err := LoadChain(context.Background(), candidates("a", "b"), load, "", zap.NewNop())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrModelUnavailable)
	assert.Contains(t, err.Error(), "a unavailable")
	assert.Contains(t, err.Error(), "b unavailable")
}

func TestLoadChainNoCandidates(t *testing.T) {
	_, err := LoadChain(context.Background(), nil, nil, "", zap.NewNop())
	assert.ErrorIs(t, err, core.ErrModelUnavailable)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, CacheKey("m", "text"), CacheKey("m", "text"))
	assert.NotEqual(t, CacheKey("m1", "text"), CacheKey("m2", "text"))
	assert.Len(t, CacheKey("m", "text"), 64)
}

func TestCachedProvider(t *testing.T) {
	inner := &stubProvider{name: "model"}
	repo := cache.NewMemoryCache(zap.NewNop(), 0)
	provider := NewCachedProvider(inner, repo, time.Hour, zap.NewNop())

	first, err := provider.Embed(context.Background(), []string{"aa", "bbb"})
	require.NoError(t, err)
	assert.Equal(t, []core.Embedding{{2, 1}, {3, 1}}, first)

	second, err := provider.Embed(context.Background(), []string{"bbb", "c"})
	require.NoError(t, err)
	assert.Equal(t, []core.Embedding{{3, 1}, {1, 1}}, second)

	// only the miss reached the model on the second call
	assert.Equal(t, [][]string{{"aa", "bbb"}, {"c"}}, inner.batches)
	assert.Equal(t, 3, repo.Len())

	third, err := provider.Embed(context.Background(), []string{"aa", "c"})
	require.NoError(t, err)
	assert.Equal(t, []core.Embedding{{2, 1}, {1, 1}}, third)
	assert.Len(t, inner.batches, 2)

	require.NoError(t, provider.Close())
	assert.True(t, inner.closed)
}

func TestCachedProviderDoesNotCacheFailures(t *testing.T) {
	inner := &stubProvider{name: "model", fail: true}
	repo := cache.NewMemoryCache(zap.NewNop(), 0)
	provider := NewCachedProvider(inner, repo, time.Hour, zap.NewNop())

	_, err := provider.Embed(context.Background(), []string{"x"})
	assert.Error(t, err)
	assert.Equal(t, 0, repo.Len())
}
