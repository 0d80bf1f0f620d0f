package core

import (
	"context"
	"fmt"

	"github.com/mikey/mail-lens/internal/utils"
	"go.uber.org/zap"
)

const (
	// DefaultRetryTruncateLength is the hard cap applied to a text before the single retry
	DefaultRetryTruncateLength = 3000

	truncatedMarker = " [TEXT TRUNCATED]"
)

// Encoder turns texts into embeddings through a provider, with a single
// truncated retry for per-email texts
type Encoder struct {
	provider      EmbeddingProvider
	textProcessor *utils.TextProcessor
	logger        *zap.Logger
	retryLength   int
}

// NewEncoder creates a new encoder. A non-positive retryLength selects DefaultRetryTruncateLength.
func NewEncoder(provider EmbeddingProvider, textProcessor *utils.TextProcessor, logger *zap.Logger, retryLength int) *Encoder {
	if retryLength <= 0 {
		retryLength = DefaultRetryTruncateLength
	}
	return &Encoder{
		provider:      provider,
		textProcessor: textProcessor,
		logger:        logger,
		retryLength:   retryLength,
	}
}

// ModelName returns the name of the underlying model
func (e *Encoder) ModelName() string {
	return e.provider.Name()
}

// EncodeBatch encodes all texts in one provider call
func (e *Encoder) EncodeBatch(ctx context.Context, texts []string) ([]Embedding, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors, err := e.provider.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodingFailed, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: provider returned %d vectors for %d texts",
			ErrEncodingFailed, len(vectors), len(texts))
	}
	return vectors, nil
}

// EncodeOne encodes a single text. If the first attempt fails, the text is cut
// to the retry length and encoded once more before giving up.
func (e *Encoder) EncodeOne(ctx context.Context, text string) (Embedding, error) {
	vector, err := e.encodeSingle(ctx, text)
	if err == nil {
		return vector, nil
	}

	e.logger.Warn("Encoding failed, retrying with truncated text",
		zap.Int("attempt", 1),
		zap.Int("text_length", utils.RuneLen(text)),
		zap.Int("retry_length", e.retryLength),
		zap.Error(err))

	truncated := e.textProcessor.TruncateText(text, e.retryLength, truncatedMarker)
	vector, err = e.encodeSingle(ctx, truncated)
	if err != nil {
		e.logger.Error("Encoding failed after retry", zap.Int("attempt", 2), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrEncodingFailed, err)
	}
	return vector, nil
}

func (e *Encoder) encodeSingle(ctx context.Context, text string) (Embedding, error) {
	vectors, err := e.provider.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("provider %s returned no vector", e.provider.Name())
	}
	return vectors[0], nil
}
