package core

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// DefaultEmptyLabel is the sentinel category reported for emails without text
const DefaultEmptyLabel = "Empty email"

// CategoryIndex holds category embeddings computed once per category set
type CategoryIndex struct {
	names       []string
	vectors     []Embedding
	fingerprint string
	model       string
}

// BuildCategoryIndex embeds every category description in one batch
func BuildCategoryIndex(ctx context.Context, encoder *Encoder, set *CategorySet) (*CategoryIndex, error) {
	if set == nil || set.Len() == 0 {
		return nil, ErrCategoryLoadFailed
	}
	vectors, err := encoder.EncodeBatch(ctx, set.Descriptions())
	if err != nil {
		return nil, fmt.Errorf("failed to embed categories: %w", err)
	}
	return &CategoryIndex{
		names:       set.Names(),
		vectors:     vectors,
		fingerprint: set.Fingerprint(),
		model:       encoder.ModelName(),
	}, nil
}

// Matches reports whether the index was built from this set with this model
func (idx *CategoryIndex) Matches(set *CategorySet, model string) bool {
	return idx != nil && set != nil && idx.fingerprint == set.Fingerprint() && idx.model == model
}

// Len returns the number of indexed categories
func (idx *CategoryIndex) Len() int {
	return len(idx.names)
}

// CosineSimilarity returns the cosine of the angle between a and b, in [-1, 1].
// A zero vector has similarity 0 with everything.
func CosineSimilarity(a, b Embedding) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// ToConfidence maps a cosine similarity from [-1, 1] onto [0, 1]
func ToConfidence(cosine float64) float64 {
	c := (cosine + 1) / 2
	if c < 0 || math.IsNaN(c) {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// EffectiveThreshold accepts both threshold conventions: negative values are
// raw cosine thresholds and get remapped, others are already normalized.
func EffectiveThreshold(threshold float64) float64 {
	if threshold < 0 {
		return (threshold + 1) / 2
	}
	return threshold
}

// Rank scores one email embedding against every category embedding and returns
// the entries at or above the threshold, best first, at most topN of them.
// Equal confidences are ordered by category name. A non-positive topN keeps all entries.
func Rank(text Embedding, categories []Embedding, names []string, threshold float64, topN int) ([]ScoredCategory, error) {
	if len(categories) != len(names) {
		return nil, fmt.Errorf("got %d category embeddings for %d names", len(categories), len(names))
	}

	scored := make([]ScoredCategory, 0, len(names))
	for i, name := range names {
		cosine, err := CosineSimilarity(text, categories[i])
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", name, err)
		}
		scored = append(scored, ScoredCategory{Category: name, Confidence: ToConfidence(cosine)})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Confidence != scored[j].Confidence {
			return scored[i].Confidence > scored[j].Confidence
		}
		return scored[i].Category < scored[j].Category
	})

	cutoff := EffectiveThreshold(threshold)
	filtered := scored[:0]
	for _, s := range scored {
		if s.Confidence >= cutoff {
			filtered = append(filtered, s)
		}
	}

	if topN > 0 && len(filtered) > topN {
		filtered = filtered[:topN]
	}
	return filtered, nil
}

// ScoreResult is the scorer output for one text. Empty marks text without
// content, in which case the model was never invoked and Ranked is nil.
type ScoreResult struct {
	Empty  bool
	Ranked []ScoredCategory
}

// Scorer ranks categories for a text
type Scorer struct {
	encoder    *Encoder
	logger     *zap.Logger
	emptyLabel string
}

// NewScorer creates a new scorer
func NewScorer(encoder *Encoder, logger *zap.Logger, emptyLabel string) *Scorer {
	if emptyLabel == "" {
		emptyLabel = DefaultEmptyLabel
	}
	return &Scorer{
		encoder:    encoder,
		logger:     logger,
		emptyLabel: emptyLabel,
	}
}

// Score embeds text and ranks it against the index. Encoding errors are returned as is.
func (s *Scorer) Score(ctx context.Context, text string, index *CategoryIndex, topN int, threshold float64) (ScoreResult, error) {
	if strings.TrimSpace(text) == "" {
		return ScoreResult{Empty: true}, nil
	}

	vector, err := s.encoder.EncodeOne(ctx, text)
	if err != nil {
		return ScoreResult{}, err
	}

	ranked, err := Rank(vector, index.vectors, index.names, threshold, topN)
	if err != nil {
		return ScoreResult{}, err
	}

	s.logger.Debug("Scored text",
		zap.Int("candidates", len(ranked)),
		zap.Float64("effective_threshold", EffectiveThreshold(threshold)))

	return ScoreResult{Ranked: ranked}, nil
}

// ClassifyText is Score flattened to a ranked list, with the empty sentinel
// entry standing in for text without content
func (s *Scorer) ClassifyText(ctx context.Context, text string, index *CategoryIndex, topN int, threshold float64) ([]ScoredCategory, error) {
	res, err := s.Score(ctx, text, index, topN, threshold)
	if err != nil {
		return nil, err
	}
	if res.Empty {
		return []ScoredCategory{{Category: s.emptyLabel, Confidence: 0}}, nil
	}
	return res.Ranked, nil
}
