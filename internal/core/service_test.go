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

func newTestService(provider EmbeddingProvider) *ClassifierService {
	logger := zap.NewNop()
	normalizer := NewNormalizer(utils.NewTextProcessor(logger), logger, 0)
	encoder := NewEncoder(provider, utils.NewTextProcessor(logger), logger, 0)
	return NewClassifierService(encoder, normalizer, DefaultPolicy(), logger, 0, "")
}

var defaultOpts = BatchOptions{TopN: DefaultTopN, Threshold: 0.25}

func TestClassifyBatch(t *testing.T) {
	service := newTestService(financeTravel())

	emails := []EmailRecord{
		{Filename: "finance_1.eml", Subject: "Invoice", Body: "Your finance statement is attached"},
		{Filename: "empty.eml", Subject: "  ", Body: ""},
		{Filename: "broken.eml", Subject: "", Body: "boom"},
		{Filename: "other_1.eml", Subject: "", Body: "a negative example"},
	}

	batch, err := service.ClassifyBatch(context.Background(), emails, financeTravelSet(), defaultOpts)
	require.NoError(t, err)
	require.Len(t, batch.Results, len(emails))

	for i, r := range batch.Results {
		assert.Equal(t, emails[i].Filename, r.Filename, "results keep input order")
		assert.NotEmpty(t, r.Categories)
	}

	finance := batch.Results[0]
	assert.Equal(t, OutcomeClassified, finance.Outcome)
	assert.True(t, finance.Processed)
	assert.Equal(t, "Finance", finance.Categories[0].Category)
	assert.Equal(t, 1.0, finance.Confidence)
	assert.False(t, finance.IsOtherCategory)
	assert.Equal(t, "Invoice", finance.SubjectDecoded)
	assert.True(t, strings.HasPrefix(finance.BodyPreview, "Invoice. Invoice. Invoice."))

	empty := batch.Results[1]
	assert.Equal(t, OutcomeEmpty, empty.Outcome)
	assert.False(t, empty.Processed)
	assert.Equal(t, []ScoredCategory{{Category: DefaultEmptyLabel, Confidence: 0}}, empty.Categories)
	assert.Equal(t, DefaultEmptyLabel, empty.Error)

	broken := batch.Results[2]
	assert.Equal(t, OutcomeFailed, broken.Outcome)
	assert.False(t, broken.Processed)
	assert.Equal(t, []ScoredCategory{{Category: DefaultErrorLabel, Confidence: 0}}, broken.Categories)
	assert.True(t, strings.HasPrefix(broken.Error, "classification failed: "))
	assert.Equal(t, "boom", broken.BodyPreview)

	other := batch.Results[3]
	assert.Equal(t, OutcomeClassified, other.Outcome)
	assert.True(t, other.Processed)
	assert.True(t, other.IsOtherCategory)
	assert.Equal(t, []ScoredCategory{{Category: DefaultOtherCategory, Confidence: 0}}, other.Categories)

	stats := batch.Stats
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Successful)
	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, 1, stats.Empty)
	assert.Equal(t, 1, stats.ReassignedToOther)
	assert.Equal(t, 1, stats.Confidence.Count)
	assert.Equal(t, 1.0, stats.Confidence.Mean)
	assert.Equal(t, "fake-model", stats.Model)
	assert.NotEmpty(t, stats.RunID)
	assert.InDelta(t, 50.0, stats.SuccessRate(), 1e-9)
}

func TestClassifyBatchIsIdempotent(t *testing.T) {
	emails := []EmailRecord{
		{Filename: "finance.eml", Subject: "Invoice", Body: "finance statement"},
		{Filename: "travel.eml", Subject: "Trip", Body: "travel plans"},
		// equal scores on both categories
		{Filename: "tie.eml", Subject: "", Body: "nothing in particular"},
		{Filename: "other.eml", Subject: "", Body: "a negative example"},
	}
	set := financeTravelSet()

	service := newTestService(financeTravel())
	first, err := service.ClassifyBatch(context.Background(), emails, set, defaultOpts)
	require.NoError(t, err)
	second, err := service.ClassifyBatch(context.Background(), emails, set, defaultOpts)
	require.NoError(t, err)
	fresh, err := newTestService(financeTravel()).ClassifyBatch(context.Background(), emails, set, defaultOpts)
	require.NoError(t, err)

	require.Len(t, first.Results, len(emails))
	require.Len(t, second.Results, len(emails))
	require.Len(t, fresh.Results, len(emails))
	for i := range emails {
		assert.Equal(t, first.Results[i].Categories, second.Results[i].Categories, emails[i].Filename)
		assert.Equal(t, first.Results[i].Categories, fresh.Results[i].Categories, emails[i].Filename)
		assert.Equal(t, first.Results[i].Outcome, second.Results[i].Outcome, emails[i].Filename)
	}

	tie := first.Results[2].Categories
	require.Len(t, tie, 2)
	assert.Equal(t, "Finance", tie[0].Category)
	assert.Equal(t, "Travel", tie[1].Category)
	assert.Equal(t, tie[0].Confidence, tie[1].Confidence)
}

func TestClassifyBatchReassignsLowConfidence(t *testing.T) {
	service := newTestService(financeTravel())

	// cosine -0.707 against both categories, confidence about 0.146
	email := EmailRecord{Filename: "low.eml", Body: "negative"}
	result, err := service.ClassifyEmail(context.Background(), email, financeTravelSet(), BatchOptions{TopN: 5, Threshold: 0})
	require.NoError(t, err)

	require.Len(t, result.Categories, 1)
	assert.Equal(t, DefaultOtherCategory, result.Categories[0].Category)
	assert.InDelta(t, 0.1464, result.Confidence, 1e-3)
	assert.Equal(t, result.Confidence, result.Categories[0].Confidence)
	assert.True(t, result.IsOtherCategory)
}

func TestClassifyBatchReusesCategoryEmbeddings(t *testing.T) {
	provider := financeTravel()
	service := newTestService(provider)
	set := financeTravelSet()
	emails := []EmailRecord{{Filename: "a.eml", Body: "travel plans"}}

	_, err := service.ClassifyBatch(context.Background(), emails, set, defaultOpts)
	require.NoError(t, err)
	_, err = service.ClassifyBatch(context.Background(), emails, set, defaultOpts)
	require.NoError(t, err)

	categoryCalls := 0
	for _, call := range provider.Calls() {
		if len(call) == set.Len() {
			categoryCalls++
		}
	}
	assert.Equal(t, 1, categoryCalls)

	changed, err := NewCategorySet([]CategoryDescription{
		{Name: "Finance", Description: "finance"},
		{Name: "Travel", Description: "travel and hotels"},
	})
	require.NoError(t, err)
	_, err = service.ClassifyBatch(context.Background(), emails, changed, defaultOpts)
	require.NoError(t, err)

	categoryCalls = 0
	for _, call := range provider.Calls() {
		if len(call) == changed.Len() {
			categoryCalls++
		}
	}
	assert.Equal(t, 2, categoryCalls)
}

func TestClassifyBatchRequiresCategories(t *testing.T) {
	service := newTestService(financeTravel())
	_, err := service.ClassifyBatch(context.Background(), []EmailRecord{{Body: "x"}}, nil, defaultOpts)
	assert.ErrorIs(t, err, ErrCategoryLoadFailed)
}

func TestClassifyBatchCategoryEncodingIsFatal(t *testing.T) {
	service := newTestService(financeTravel())
	set, err := NewCategorySet([]CategoryDescription{{Name: "Broken", Description: "boom"}})
	require.NoError(t, err)

	_, err = service.ClassifyBatch(context.Background(), []EmailRecord{{Body: "finance"}}, set, defaultOpts)
	assert.ErrorIs(t, err, ErrEncodingFailed)
}

func TestClassifyBatchHonoursCancellation(t *testing.T) {
	service := newTestService(financeTravel())
	set := financeTravelSet()

	// warm the category index so cancellation is observed by the email loop
	_, err := service.ClassifyBatch(context.Background(), nil, set, defaultOpts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = service.ClassifyBatch(ctx, []EmailRecord{{Body: "finance"}}, set, defaultOpts)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClassifyBatchNamesUnnamedEmails(t *testing.T) {
	service := newTestService(financeTravel())
	batch, err := service.ClassifyBatch(context.Background(), []EmailRecord{{Body: "finance"}}, financeTravelSet(), defaultOpts)
	require.NoError(t, err)
	assert.Equal(t, "email_1", batch.Results[0].Filename)
}

func TestEmptyBatchStats(t *testing.T) {
	service := newTestService(financeTravel())
	batch, err := service.ClassifyBatch(context.Background(), nil, financeTravelSet(), defaultOpts)
	require.NoError(t, err)
	assert.Empty(t, batch.Results)
	assert.Equal(t, 0, batch.Stats.Total)
	assert.Equal(t, ConfidenceSummary{}, batch.Stats.Confidence)
	assert.Equal(t, 0.0, batch.Stats.SuccessRate())
}
