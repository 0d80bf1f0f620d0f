package export

import (
	"io"
	"time"

	"github.com/goccy/go-json"
	"github.com/mikey/mail-lens/internal/core"
)

// Metadata describes an exported run
type Metadata struct {
	ExportDate       time.Time      `json:"export_date"`
	RunID            string         `json:"run_id"`
	Model            string         `json:"model"`
	TotalEmails      int            `json:"total_emails"`
	SuccessfulEmails int            `json:"successful_emails"`
	Stats            *core.RunStats `json:"stats,omitempty"`
	Format           string         `json:"format"`
}

// Document is the layout of a JSON export
type Document struct {
	Metadata Metadata                    `json:"metadata"`
	Results  []core.ClassificationResult `json:"results"`
}

// JSONExporter writes one indented document with run metadata
type JSONExporter struct {
	now func() time.Time
}

// NewJSONExporter creates a new JSON exporter
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{now: time.Now}
}

// Format returns "json"
func (e *JSONExporter) Format() string {
	return "json"
}

// Write serializes the batch
func (e *JSONExporter) Write(w io.Writer, batch *core.BatchResult) error {
	stats := batch.Stats
	doc := Document{
		Metadata: Metadata{
			ExportDate:       e.now(),
			RunID:            stats.RunID,
			Model:            stats.Model,
			TotalEmails:      len(batch.Results),
			SuccessfulEmails: countProcessed(batch.Results),
			Stats:            &stats,
			Format:           e.Format(),
		},
		Results: batch.Results,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(doc)
}

// ReadDocument parses a JSON export
func ReadDocument(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func countProcessed(results []core.ClassificationResult) int {
	n := 0
	for _, r := range results {
		if r.Processed {
			n++
		}
	}
	return n
}
