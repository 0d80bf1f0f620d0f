package export

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mikey/mail-lens/internal/core"
	"github.com/mikey/mail-lens/internal/ports"
	"go.uber.org/zap"
)

const timestampLayout = "20060102_150405"

// Manager writes a batch in several formats with a shared timestamped file name
type Manager struct {
	exporters map[string]ports.ResultExporter
	logger    *zap.Logger
	now       func() time.Time
}

// NewManager creates a manager that knows the given exporters
func NewManager(logger *zap.Logger, exporters ...ports.ResultExporter) *Manager {
	m := &Manager{
		exporters: make(map[string]ports.ResultExporter, len(exporters)),
		logger:    logger,
		now:       time.Now,
	}
	for _, e := range exporters {
		m.exporters[e.Format()] = e
	}
	return m
}

// NewDefaultManager creates a manager with the json, csv and jsonl exporters
func NewDefaultManager(logger *zap.Logger) *Manager {
	return NewManager(logger, NewJSONExporter(), NewCSVExporter(), NewJSONLExporter())
}

// ExportAll writes the batch once per format into dir as <prefix>_<timestamp>.<format>.
// A failing or unknown format is logged and skipped. The created paths are keyed by format.
func (m *Manager) ExportAll(ctx context.Context, batch *core.BatchResult, dir, prefix string, formats []string) (map[string]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output folder: %w", err)
	}

	stamp := m.now().Format(timestampLayout)
	written := make(map[string]string, len(formats))

	for _, format := range formats {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		format = strings.ToLower(strings.TrimSpace(format))
		exporter, ok := m.exporters[format]
		if !ok {
			m.logger.Warn("Unsupported export format", zap.String("format", format))
			continue
		}

		path := filepath.Join(dir, fmt.Sprintf("%s_%s.%s", prefix, stamp, format))
		if err := writeFile(path, exporter, batch); err != nil {
			m.logger.Warn("Export failed", zap.String("format", format), zap.Error(err))
			continue
		}

		m.logger.Info("Results exported", zap.String("format", format), zap.String("file", path))
		written[format] = path
	}

	return written, nil
}

func writeFile(path string, exporter ports.ResultExporter, batch *core.BatchResult) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(f)
	if err := exporter.Write(w, batch); err != nil {
		return err
	}
	return w.Flush()
}

// LatestFile returns the most recently modified <prefix>_*.<format> file in dir
func LatestFile(dir, prefix, format string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"_*."+format))
	if err != nil {
		return "", err
	}

	var latest string
	var latestMod time.Time
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if latest == "" || info.ModTime().After(latestMod) {
			latest, latestMod = path, info.ModTime()
		}
	}
	if latest == "" {
		return "", os.ErrNotExist
	}
	return latest, nil
}
