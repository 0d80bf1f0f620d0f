package ports

import (
	"io"

	"github.com/mikey/mail-lens/internal/core"
)

// ResultExporter defines the interface for serializing classification results
type ResultExporter interface {
	// Format names the output format and doubles as the file extension
	Format() string

	// Write serializes the batch to w
	Write(w io.Writer, batch *core.BatchResult) error
}
