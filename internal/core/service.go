package core

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mikey/mail-lens/internal/utils"
	"go.uber.org/zap"
)

const (
	// DefaultTopN is the number of ranked categories kept per email
	DefaultTopN = 5
	// DefaultPreviewLength is the number of normalized characters kept as body preview
	DefaultPreviewLength = 300
	// DefaultErrorLabel is the placeholder category for emails that failed
	DefaultErrorLabel = "Classification error"

	failedPreviewLength = 100
	errorMessageLength  = 100
)

// BatchOptions controls ranking for one run
type BatchOptions struct {
	TopN      int
	Threshold float64
}

// ClassifierService is the core service for batch email classification
type ClassifierService struct {
	encoder       *Encoder
	normalizer    *Normalizer
	scorer        *Scorer
	policy        Policy
	logger        *zap.Logger
	previewLength int
	errorLabel    string

	// the embedding provider is an exclusive resource, so runs never overlap
	mu    sync.Mutex
	index *CategoryIndex
}

// NewClassifierService creates a new classifier service
func NewClassifierService(
	encoder *Encoder,
	normalizer *Normalizer,
	policy Policy,
	logger *zap.Logger,
	previewLength int,
	errorLabel string,
) *ClassifierService {
	if previewLength <= 0 {
		previewLength = DefaultPreviewLength
	}
	if errorLabel == "" {
		errorLabel = DefaultErrorLabel
	}
	return &ClassifierService{
		encoder:       encoder,
		normalizer:    normalizer,
		scorer:        NewScorer(encoder, logger, policy.EmptyLabel),
		policy:        policy,
		logger:        logger,
		previewLength: previewLength,
		errorLabel:    errorLabel,
	}
}

// ModelName returns the name of the embedding model in use
func (s *ClassifierService) ModelName() string {
	return s.encoder.ModelName()
}

// Policy returns the threshold policy applied to every email
func (s *ClassifierService) Policy() Policy {
	return s.policy
}

// ClassifyBatch classifies emails sequentially against the category set.
// Category embeddings are computed once and reused while the set is unchanged.
// Only fatal conditions return an error; per-email failures are recorded on the results.
func (s *ClassifierService) ClassifyBatch(ctx context.Context, emails []EmailRecord, categories *CategorySet, opts BatchOptions) (*BatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if categories == nil || categories.Len() == 0 {
		return nil, fmt.Errorf("%w: no categories to classify against", ErrCategoryLoadFailed)
	}

	index, err := s.categoryIndex(ctx, categories)
	if err != nil {
		return nil, err
	}

	stats := newStatsAccumulator(uuid.NewString(), s.encoder.ModelName(), len(emails))
	results := make([]ClassificationResult, 0, len(emails))

	s.logger.Info("Starting batch classification",
		zap.String("run_id", stats.RunID),
		zap.String("model", stats.Model),
		zap.Int("emails", len(emails)),
		zap.Int("categories", categories.Len()),
		zap.Int("top_n", opts.TopN),
		zap.Float64("threshold", opts.Threshold))

	for i, email := range emails {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("batch interrupted after %d of %d emails: %w", i, len(emails), err)
		}
		if email.Filename == "" {
			email.Filename = fmt.Sprintf("email_%d", i+1)
		}
		s.logger.Info("Classifying email",
			zap.Int("index", i+1),
			zap.Int("total", len(emails)),
			zap.String("file", email.Filename))

		results = append(results, s.classifyEmail(ctx, email, index, opts, stats))
	}

	stats.finish()
	s.logStats(&stats.RunStats)

	return &BatchResult{Results: results, Stats: stats.RunStats}, nil
}

// ClassifyEmail classifies a single email outside of a batch
func (s *ClassifierService) ClassifyEmail(ctx context.Context, email EmailRecord, categories *CategorySet, opts BatchOptions) (ClassificationResult, error) {
	batch, err := s.ClassifyBatch(ctx, []EmailRecord{email}, categories, opts)
	if err != nil {
		return ClassificationResult{}, err
	}
	return batch.Results[0], nil
}

// categoryIndex returns the cached index, rebuilding it when the categories or model changed
func (s *ClassifierService) categoryIndex(ctx context.Context, categories *CategorySet) (*CategoryIndex, error) {
	if s.index.Matches(categories, s.encoder.ModelName()) {
		return s.index, nil
	}

	s.logger.Info("Preparing category embeddings", zap.Int("categories", categories.Len()))
	index, err := BuildCategoryIndex(ctx, s.encoder, categories)
	if err != nil {
		s.index = nil
		return nil, err
	}
	s.index = index
	s.logger.Info("Category embeddings ready", zap.Int("categories", index.Len()))
	return index, nil
}

func (s *ClassifierService) classifyEmail(ctx context.Context, email EmailRecord, index *CategoryIndex, opts BatchOptions, stats *statsAccumulator) (result ClassificationResult) {
	result = ClassificationResult{
		Filename: email.Filename,
		Subject:  email.Subject,
	}

	normalized := NormalizedEmail{}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Unexpected failure while classifying email",
				zap.String("file", email.Filename),
				zap.Any("panic", r))
			result = s.failure(result, normalized, fmt.Errorf("unexpected failure: %v", r))
			stats.recordError()
		}
	}()

	normalized = s.normalizer.NormalizeEmail(email.Body, email.Subject)
	result.SubjectDecoded = normalized.SubjectDecoded

	s.logger.Debug("Normalized email text",
		zap.String("file", email.Filename),
		zap.Int("length", utils.RuneLen(normalized.Text)))

	scored, err := s.scorer.Score(ctx, normalized.Text, index, opts.TopN, opts.Threshold)
	if err != nil {
		s.logger.Error("Failed to classify email", zap.String("file", email.Filename), zap.Error(err))
		stats.recordError()
		return s.failure(result, normalized, err)
	}

	decision := s.policy.Decide(scored)
	result.Categories = decision.Categories
	result.Confidence = decision.Confidence
	result.IsOtherCategory = decision.IsOther

	if decision.State == StateEmpty {
		s.logger.Warn("Email is empty, skipping", zap.String("file", email.Filename))
		result.Outcome = OutcomeEmpty
		result.Error = s.policy.EmptyLabel
		stats.recordEmpty()
		return result
	}

	result.Outcome = OutcomeClassified
	result.Processed = true
	result.BodyPreview = utils.TruncateRunes(normalized.Text, s.previewLength)
	stats.recordSuccess(decision)
	s.logDecision(email.Filename, decision, opts)

	return result
}

func (s *ClassifierService) failure(result ClassificationResult, normalized NormalizedEmail, err error) ClassificationResult {
	result.Outcome = OutcomeFailed
	result.Processed = false
	result.SubjectDecoded = normalized.SubjectDecoded
	result.BodyPreview = utils.TruncateRunes(normalized.Text, failedPreviewLength)
	result.Categories = []ScoredCategory{{Category: s.errorLabel, Confidence: 0}}
	result.Confidence = 0
	result.IsOtherCategory = false
	result.Error = "classification failed: " + utils.TruncateRunes(err.Error(), errorMessageLength)
	return result
}

func (s *ClassifierService) logDecision(file string, d Decision, opts BatchOptions) {
	fields := []zap.Field{
		zap.String("file", file),
		zap.String("state", d.State.String()),
		zap.String("category", d.Categories[0].Category),
		zap.Float64("confidence", d.Confidence),
	}
	if d.LowConfidence {
		fields = append(fields, zap.String("note", "very low confidence"))
	}

	switch d.State {
	case StateReassignedToOther:
		fields = append(fields,
			zap.String("original_category", d.Best.Category),
			zap.Float64("original_confidence", d.Best.Confidence))
	case StateNoCandidates:
		fields = append(fields, zap.Float64("threshold", EffectiveThreshold(opts.Threshold)))
	case StateAboveOtherThreshold:
		if len(d.Categories) > 1 {
			runnersUp := d.Categories[1:]
			if len(runnersUp) > 2 {
				runnersUp = runnersUp[:2]
			}
			fields = append(fields, zap.Any("runners_up", runnersUp))
		}
	}

	s.logger.Info("Assigned category", fields...)
}

func (s *ClassifierService) logStats(stats *RunStats) {
	s.logger.Info("Batch classification finished",
		zap.String("run_id", stats.RunID),
		zap.Int("total", stats.Total),
		zap.Int("successful", stats.Successful),
		zap.Int("errors", stats.Errors),
		zap.Int("empty", stats.Empty),
		zap.Float64("success_rate", stats.SuccessRate()),
		zap.Int("reassigned_to_other", stats.ReassignedToOther),
		zap.Float64("other_rate", stats.OtherRate()),
		zap.Float64("confidence_min", stats.Confidence.Min),
		zap.Float64("confidence_mean", stats.Confidence.Mean),
		zap.Float64("confidence_max", stats.Confidence.Max),
		zap.Duration("elapsed", stats.FinishedAt.Sub(stats.StartedAt)))
}

// statsAccumulator collects run counters while emails are processed
type statsAccumulator struct {
	RunStats
	sum float64
}

func newStatsAccumulator(runID, model string, total int) *statsAccumulator {
	return &statsAccumulator{
		RunStats: RunStats{
			RunID:     runID,
			Model:     model,
			Total:     total,
			StartedAt: time.Now(),
			Confidence: ConfidenceSummary{
				Min: math.Inf(1),
				Max: math.Inf(-1),
			},
		},
	}
}

func (a *statsAccumulator) recordError() {
	a.Errors++
}

func (a *statsAccumulator) recordEmpty() {
	a.Empty++
}

func (a *statsAccumulator) recordSuccess(d Decision) {
	a.Successful++
	if d.State == StateReassignedToOther || d.State == StateNoCandidates {
		a.ReassignedToOther++
	}
	// the distribution tracks the scorer's best confidence, before any relabelling
	if d.Best != nil {
		c := d.Best.Confidence
		a.Confidence.Count++
		a.sum += c
		a.Confidence.Min = math.Min(a.Confidence.Min, c)
		a.Confidence.Max = math.Max(a.Confidence.Max, c)
	}
}

func (a *statsAccumulator) finish() {
	a.FinishedAt = time.Now()
	if a.Confidence.Count == 0 {
		a.Confidence = ConfidenceSummary{}
		return
	}
	a.Confidence.Mean = a.sum / float64(a.Confidence.Count)
}
