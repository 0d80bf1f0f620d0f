package export

import (
	"io"
	"time"

	"github.com/goccy/go-json"
	"github.com/mikey/mail-lens/internal/core"
)

type jsonlRecord struct {
	core.ClassificationResult
	ExportTimestamp time.Time `json:"export_timestamp"`
}

// JSONLExporter writes one result per line
type JSONLExporter struct {
	now func() time.Time
}

// NewJSONLExporter creates a new JSON Lines exporter
func NewJSONLExporter() *JSONLExporter {
	return &JSONLExporter{now: time.Now}
}

// Format returns "jsonl"
func (e *JSONLExporter) Format() string {
	return "jsonl"
}

// Write serializes the batch
func (e *JSONLExporter) Write(w io.Writer, batch *core.BatchResult) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, r := range batch.Results {
		if err := enc.Encode(jsonlRecord{ClassificationResult: r, ExportTimestamp: e.now()}); err != nil {
			return err
		}
	}
	return nil
}
