package core

import (
	"context"
	"strings"
	"testing"

	"github.com/mikey/mail-lens/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// lengthLimitedProvider fails for texts longer than limit characters
type lengthLimitedProvider struct {
	*fakeProvider
	limit int
}

func (p *lengthLimitedProvider) Embed(ctx context.Context, texts []string) ([]Embedding, error) {
	for _, text := range texts {
		if utils.RuneLen(text) > p.limit {
			p.fakeProvider.mu.Lock()
			p.fakeProvider.calls = append(p.fakeProvider.calls, texts)
			p.fakeProvider.mu.Unlock()
			return nil, errFakeEncode
		}
	}
	return p.fakeProvider.Embed(ctx, texts)
}

func TestEncodeOneRetriesWithTruncatedText(t *testing.T) {
	provider := &lengthLimitedProvider{fakeProvider: financeTravel(), limit: 60}
	encoder := NewEncoder(provider, utils.NewTextProcessor(nil), zap.NewNop(), 40)

	text := "finance " + strings.Repeat("a", 100)
	vector, err := encoder.EncodeOne(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, Embedding{1, 0}, vector)

	calls := provider.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, text, calls[0][0])
	retried := calls[1][0]
	assert.True(t, strings.HasSuffix(retried, " [TEXT TRUNCATED]"))
	assert.Equal(t, 40+utils.RuneLen(" [TEXT TRUNCATED]"), utils.RuneLen(retried))
}

func TestEncodeOneGivesUpAfterRetry(t *testing.T) {
	provider := financeTravel()
	encoder := NewEncoder(provider, utils.NewTextProcessor(nil), zap.NewNop(), 0)

	_, err := encoder.EncodeOne(context.Background(), "boom")
	assert.ErrorIs(t, err, ErrEncodingFailed)
	assert.ErrorIs(t, err, errFakeEncode)
	assert.Len(t, provider.Calls(), 2)
}

func TestEncodeOneRetryKeepsShortTextWhole(t *testing.T) {
	provider := financeTravel()
	encoder := NewEncoder(provider, utils.NewTextProcessor(nil), zap.NewNop(), 0)

	_, err := encoder.EncodeOne(context.Background(), "boom")
	require.Error(t, err)

	calls := provider.Calls()
	require.Len(t, calls, 2)
	// nothing to cut, so no marker either
	assert.Equal(t, "boom", calls[1][0])
}

func TestEncodeBatch(t *testing.T) {
	provider := financeTravel()
	encoder := NewEncoder(provider, utils.NewTextProcessor(nil), zap.NewNop(), 0)

	vectors, err := encoder.EncodeBatch(context.Background(), []string{"finance", "travel"})
	require.NoError(t, err)
	assert.Equal(t, []Embedding{{1, 0}, {0, 1}}, vectors)
	assert.Len(t, provider.Calls(), 1)

	vectors, err = encoder.EncodeBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)

	_, err = encoder.EncodeBatch(context.Background(), []string{"finance", "boom"})
	assert.ErrorIs(t, err, ErrEncodingFailed)
}
