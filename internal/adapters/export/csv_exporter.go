package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/mikey/mail-lens/internal/core"
	"github.com/mikey/mail-lens/internal/utils"
)

const (
	// CSVCategoryColumns is the number of flattened category/score pairs per row
	CSVCategoryColumns = 5
	// UndeterminedCategory fills top_category for rows without categories
	UndeterminedCategory = "Undetermined"

	csvSubjectLength = 200
	csvPreviewLength = 300
)

// CSVExporter writes a flat table prefixed with a UTF-8 BOM
type CSVExporter struct{}

// NewCSVExporter creates a new CSV exporter
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Format returns "csv"
func (e *CSVExporter) Format() string {
	return "csv"
}

// Header returns the column names
func Header() []string {
	cols := []string{"filename", "subject", "body_preview", "processed", "error"}
	for i := 1; i <= CSVCategoryColumns; i++ {
		cols = append(cols, fmt.Sprintf("category_%d", i))
	}
	for i := 1; i <= CSVCategoryColumns; i++ {
		cols = append(cols, fmt.Sprintf("score_%d", i))
	}
	return append(cols, "top_category", "top_score", "confidence")
}

// Write serializes the batch
func (e *CSVExporter) Write(w io.Writer, batch *core.BatchResult) error {
	if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return err
	}
	for i := range batch.Results {
		if err := cw.Write(Row(&batch.Results[i])); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Row flattens one result
func Row(r *core.ClassificationResult) []string {
	subject := r.SubjectDecoded
	if subject == "" {
		subject = utils.TruncateRunes(r.Subject, csvSubjectLength)
	}

	row := []string{
		r.Filename,
		subject,
		utils.TruncateRunes(r.BodyPreview, csvPreviewLength),
		strconv.FormatBool(r.Processed),
		r.Error,
	}

	names := make([]string, CSVCategoryColumns)
	scores := make([]string, CSVCategoryColumns)
	for i, c := range r.Categories {
		if i == CSVCategoryColumns {
			break
		}
		names[i] = c.Category
		scores[i] = formatScore(c.Confidence)
	}
	row = append(row, names...)
	row = append(row, scores...)

	if top, ok := r.TopCategory(); ok {
		return append(row, top.Category, formatScore(top.Confidence), formatScore(r.Confidence))
	}
	return append(row, UndeterminedCategory, formatScore(0), "")
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
