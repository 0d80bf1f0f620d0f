package metrics

import (
	"path/filepath"
	"testing"

	"github.com/mikey/mail-lens/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLabelFromFilename(t *testing.T) {
	tests := []struct {
		filename string
		want     string
		ok       bool
	}{
		{"financial_transactions_and_cheques_12.eml", "Финансовые операции", true},
		{"dir/TRANSPORT_AND_TRAVEL_3.msg", "Транспорт и путешествия", true},
		{"vacancies_and_career_1.eml", "Вакансии и карьера", true},
		{"other_7.eml", "Другое", true},
		{"random.eml", "", false},
		{".eml", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got, ok := LabelFromFilename(tt.filename, "Другое")
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompute(t *testing.T) {
	yTrue := []string{"a", "a", "b", "b"}
	yPred := []string{"a", "b", "b", "b"}

	r := Compute(yTrue, yPred)
	assert.Equal(t, 0.75, r.Accuracy)
	assert.Equal(t, []string{"a", "b"}, r.Classes)
	assert.Equal(t, [][]int{{1, 1}, {0, 2}}, r.ConfusionMatrix)

	a := r.PerClass["a"]
	assert.Equal(t, 1.0, a.Precision)
	assert.Equal(t, 0.5, a.Recall)
	assert.InDelta(t, 2.0/3.0, a.F1, 1e-9)
	assert.Equal(t, 2, a.Support)

	b := r.PerClass["b"]
	assert.InDelta(t, 2.0/3.0, b.Precision, 1e-9)
	assert.Equal(t, 1.0, b.Recall)
	assert.InDelta(t, 0.8, b.F1, 1e-9)

	assert.InDelta(t, (2.0/3.0+0.8)/2, r.MacroAvg.F1, 1e-9)
	assert.InDelta(t, (2.0/3.0+0.8)/2, r.WeightedAvg.F1, 1e-9)
	assert.Equal(t, 4, r.MacroAvg.Support)
	assert.Equal(t, map[string]int{"a": 2, "b": 2}, r.TrueDistribution)
	assert.Equal(t, map[string]int{"a": 1, "b": 3}, r.PredictedDistribution)
}

func TestComputePredictionOutsideLabels(t *testing.T) {
	r := Compute([]string{"a"}, []string{"z"})
	assert.Equal(t, 0.0, r.Accuracy)
	assert.Equal(t, []string{"a", "z"}, r.Classes)
	assert.Equal(t, 0, r.PerClass["z"].Support)
	assert.Equal(t, 0.0, r.PerClass["z"].F1)
}

func TestEvaluate(t *testing.T) {
	results := []core.ClassificationResult{
		{Filename: "newsletters_1.eml", Processed: true, Categories: []core.ScoredCategory{{Category: "Новостные рассылки", Confidence: 0.8}}},
		{Filename: "other_2.eml", Processed: true, Categories: []core.ScoredCategory{{Category: "Другое"}}},
		{Filename: "unknown.eml", Processed: true, Categories: []core.ScoredCategory{{Category: "Другое"}}},
		{Filename: "newsletters_3.eml", Processed: false},
	}

	r, err := NewEvaluator("Другое", zap.NewNop()).Evaluate(results)
	require.NoError(t, err)
	assert.Equal(t, 1.0, r.Accuracy)
	assert.Equal(t, 1, r.Skipped)
	assert.Len(t, r.YTrue, 2)
}

func TestEvaluateWithoutLabels(t *testing.T) {
	_, err := NewEvaluator("Другое", zap.NewNop()).Evaluate([]core.ClassificationResult{
		{Filename: "x.eml", Processed: true, Categories: []core.ScoredCategory{{Category: "A"}}},
	})
	assert.ErrorIs(t, err, ErrNoLabelledResults)
}

func TestSaveAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "metrics")
	r := Compute([]string{"a", "b"}, []string{"a", "a"})

	path, err := Save(r, dir, "classification_metrics")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "classification_metrics.json"), path)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, r.Accuracy, loaded.Accuracy)
	assert.Equal(t, r.ConfusionMatrix, loaded.ConfusionMatrix)
	assert.Equal(t, r.PerClass, loaded.PerClass)
}
