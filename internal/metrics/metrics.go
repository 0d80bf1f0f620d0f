package metrics

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/mikey/mail-lens/internal/core"
	"go.uber.org/zap"
)

// ErrNoLabelledResults is returned when no processed result has a recognisable label
var ErrNoLabelledResults = errors.New("no labelled results to evaluate")

// otherToken marks files whose expected category is the Other bucket
const otherToken = "other"

// filenameLabels maps dataset file name tokens to category names, checked in order
var filenameLabels = []struct {
	token    string
	category string
}{
	{"business_and_correspondence", "Бизнес-корреспонденция"},
	{"financial_transactions_and_cheques", "Финансовые операции"},
	{"harm_content", "Неприемлемый контент"},
	{"transport_and_travel", "Транспорт и путешествия"},
	{"newsletters", "Новостные рассылки"},
	{"registration_confirmation", "Регистрация и подтверждение"},
	{"promotional_mailing", "Рекламная рассылка"},
	{"system_and_service_notifications", "Системные уведомления"},
	{"technical_support", "Техническая поддержка"},
	{"vacancies_careers", "Вакансии и карьера"},
	{"vacancies_and_career", "Вакансии и карьера"},
	{otherToken, ""},
}

// LabelFromFilename derives the expected category from a file name stem.
// otherCategory names the Other bucket.
func LabelFromFilename(filename, otherCategory string) (string, bool) {
	stem := strings.ToLower(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	if stem == "" {
		return "", false
	}
	for _, l := range filenameLabels {
		if strings.Contains(stem, l.token) {
			if l.token == otherToken {
				return otherCategory, true
			}
			return l.category, true
		}
	}
	return "", false
}

// ClassMetrics holds per-class scores
type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1_score"`
	Support   int     `json:"support"`
}

// Report is the evaluation of predictions against file name labels
type Report struct {
	Accuracy              float64                 `json:"accuracy"`
	YTrue                 []string                `json:"y_true"`
	YPred                 []string                `json:"y_pred"`
	Classes               []string                `json:"classes"`
	ConfusionMatrix       [][]int                 `json:"confusion_matrix"`
	PerClass              map[string]ClassMetrics `json:"per_class"`
	MacroAvg              ClassMetrics            `json:"macro_avg"`
	WeightedAvg           ClassMetrics            `json:"weighted_avg"`
	TrueDistribution      map[string]int          `json:"true_distribution"`
	PredictedDistribution map[string]int          `json:"predicted_distribution"`
	Skipped               int                     `json:"skipped"`
}

// Evaluator computes classification metrics for a batch
type Evaluator struct {
	otherCategory string
	logger        *zap.Logger
}

// NewEvaluator creates a new evaluator
func NewEvaluator(otherCategory string, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		otherCategory: otherCategory,
		logger:        logger,
	}
}

// Evaluate compares the top category of each processed result with the label
// derived from its file name. Results without a recognisable label are skipped.
func (e *Evaluator) Evaluate(results []core.ClassificationResult) (*Report, error) {
	var yTrue, yPred []string
	skipped := 0

	for i := range results {
		r := &results[i]
		if !r.Processed {
			continue
		}
		label, ok := LabelFromFilename(r.Filename, e.otherCategory)
		if !ok {
			e.logger.Warn("Cannot derive expected category from file name", zap.String("file", r.Filename))
			skipped++
			continue
		}
		top, ok := r.TopCategory()
		if !ok {
			skipped++
			continue
		}
		yTrue = append(yTrue, label)
		yPred = append(yPred, top.Category)
	}

	if len(yTrue) == 0 {
		return nil, ErrNoLabelledResults
	}

	report := Compute(yTrue, yPred)
	report.Skipped = skipped
	return report, nil
}

// Compute builds a report from aligned label slices
func Compute(yTrue, yPred []string) *Report {
	classSet := make(map[string]struct{})
	for i := range yTrue {
		classSet[yTrue[i]] = struct{}{}
		classSet[yPred[i]] = struct{}{}
	}
	classes := make([]string, 0, len(classSet))
	for c := range classSet {
		classes = append(classes, c)
	}
	sort.Strings(classes)

	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}

	cm := make([][]int, len(classes))
	for i := range cm {
		cm[i] = make([]int, len(classes))
	}
	correct := 0
	trueDist := make(map[string]int)
	predDist := make(map[string]int)
	for i := range yTrue {
		cm[index[yTrue[i]]][index[yPred[i]]]++
		trueDist[yTrue[i]]++
		predDist[yPred[i]]++
		if yTrue[i] == yPred[i] {
			correct++
		}
	}

	perClass := make(map[string]ClassMetrics, len(classes))
	var macro, weighted ClassMetrics
	total := len(yTrue)
	for i, c := range classes {
		tp := cm[i][i]
		predicted, support := 0, 0
		for j := range classes {
			predicted += cm[j][i]
			support += cm[i][j]
		}
		m := ClassMetrics{
			Precision: ratio(tp, predicted),
			Recall:    ratio(tp, support),
			Support:   support,
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		perClass[c] = m

		macro.Precision += m.Precision
		macro.Recall += m.Recall
		macro.F1 += m.F1
		w := float64(support) / float64(total)
		weighted.Precision += m.Precision * w
		weighted.Recall += m.Recall * w
		weighted.F1 += m.F1 * w
	}
	n := float64(len(classes))
	macro.Precision /= n
	macro.Recall /= n
	macro.F1 /= n
	macro.Support = total
	weighted.Support = total

	return &Report{
		Accuracy:              float64(correct) / float64(total),
		YTrue:                 yTrue,
		YPred:                 yPred,
		Classes:               classes,
		ConfusionMatrix:       cm,
		PerClass:              perClass,
		MacroAvg:              macro,
		WeightedAvg:           weighted,
		TrueDistribution:      trueDist,
		PredictedDistribution: predDist,
	}
}

// Save writes the report to <dir>/<prefix>.json
func Save(report *Report, dir, prefix string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create metrics folder: %w", err)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal metrics: %w", err)
	}
	path := filepath.Join(dir, prefix+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write metrics: %w", err)
	}
	return path, nil
}

// Load reads a saved report
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse metrics: %w", err)
	}
	return &report, nil
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}
