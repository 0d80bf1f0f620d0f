package console

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/mikey/mail-lens/internal/core"
	"github.com/mikey/mail-lens/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type axisProvider struct{}

func (axisProvider) Embed(ctx context.Context, texts []string) ([]core.Embedding, error) {
	out := make([]core.Embedding, len(texts))
	for i, text := range texts {
		if strings.Contains(strings.ToLower(text), "invoice") {
			out[i] = core.Embedding{1, 0}
		} else {
			out[i] = core.Embedding{0, 1}
		}
	}
	return out, nil
}

func (axisProvider) Name() string   { return "axis" }
func (axisProvider) Dimension() int { return 2 }
func (axisProvider) Close() error   { return nil }

func TestProcessEmail(t *testing.T) {
	logger := zap.NewNop()
	service := core.NewClassifierService(
		core.NewEncoder(axisProvider{}, utils.NewTextProcessor(logger), logger, 0),
		core.NewNormalizer(utils.NewTextProcessor(logger), logger, 0),
		core.DefaultPolicy(), logger, 0, "")

	set, err := core.NewCategorySet([]core.CategoryDescription{
		{Name: "Finance", Description: "invoice"},
		{Name: "Travel", Description: "tickets"},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	printer := NewPrinter(service, logger, &buf, true)
	result, err := printer.ProcessEmail(context.Background(),
		core.EmailRecord{Filename: "a.eml", Subject: "Invoice", Body: "Please pay the invoice"},
		set, core.BatchOptions{TopN: 5, Threshold: 0.1})
	require.NoError(t, err)

	assert.Equal(t, "Finance", result.Categories[0].Category)
	out := buf.String()
	assert.Contains(t, out, "Model: axis")
	assert.Contains(t, out, "Body preview:\nPlease pay the invoice\n")
	assert.Contains(t, out, "1. Finance")
	assert.Contains(t, out, "Outcome: classified")
}

func TestPrintResultOther(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(nil, zap.NewNop(), &buf, false).PrintResult(&core.ClassificationResult{
		Outcome:         core.OutcomeClassified,
		Categories:      []core.ScoredCategory{{Category: core.DefaultOtherCategory, Confidence: 0.2}},
		IsOtherCategory: true,
	})
	assert.Contains(t, buf.String(), "Assigned to the fallback category")
}
