package factory

import (
	"fmt"
	"strings"

	"github.com/mikey/mail-lens/internal/adapters/export"
	"github.com/mikey/mail-lens/internal/adapters/parser"
	"github.com/mikey/mail-lens/internal/config"
	"github.com/mikey/mail-lens/internal/ports"
	"go.uber.org/zap"
)

// IOFactory creates the email source and the result exporters
type IOFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewIOFactory creates a new IOFactory
func NewIOFactory(cfg *config.Config, logger *zap.Logger) *IOFactory {
	return &IOFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateEmailSource creates the directory-backed email source
func (f *IOFactory) CreateEmailSource() ports.EmailSource {
	return parser.NewDirSource(f.logger)
}

// CreateExportManager creates an export manager for the configured formats
func (f *IOFactory) CreateExportManager() (*export.Manager, error) {
	var exporters []ports.ResultExporter
	for _, format := range f.cfg.GetExport().Formats {
		switch strings.ToLower(format) {
		case "json":
			exporters = append(exporters, export.NewJSONExporter())
		case "jsonl":
			exporters = append(exporters, export.NewJSONLExporter())
		case "csv":
			exporters = append(exporters, export.NewCSVExporter())
		default:
			return nil, fmt.Errorf("unsupported export format: %s", format)
		}
	}
	return export.NewManager(f.logger, exporters...), nil
}
