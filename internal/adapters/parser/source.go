package parser

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mikey/mail-lens/internal/core"
	"go.uber.org/zap"
)

// Supported message file extensions
const (
	ExtEML = ".eml"
	ExtMSG = ".msg"
)

// DirSource loads .eml and .msg files from the file system
type DirSource struct {
	logger *zap.Logger
}

// NewDirSource creates a new directory source
func NewDirSource(logger *zap.Logger) *DirSource {
	return &DirSource{
		logger: logger,
	}
}

// IsSupported reports whether path has a parseable extension
func IsSupported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtEML, ExtMSG:
		return true
	default:
		return false
	}
}

// LoadDir parses every supported file in dir in name order.
// Unsupported and unparseable files are skipped.
func (s *DirSource) LoadDir(ctx context.Context, dir string) ([]core.EmailRecord, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input folder: %w", err)
	}

	var emails []core.EmailRecord
	skipped := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !IsSupported(entry.Name()) {
			continue
		}

		email, err := s.LoadFile(ctx, filepath.Join(dir, entry.Name()))
		if err != nil {
			s.logger.Warn("Skipping unparseable email", zap.String("file", entry.Name()), zap.Error(err))
			skipped++
			continue
		}
		emails = append(emails, email)
	}

	s.logger.Info("Parsed emails",
		zap.String("dir", dir),
		zap.Int("parsed", len(emails)),
		zap.Int("skipped", skipped))

	return emails, nil
}

// LoadFile parses a single message file
func (s *DirSource) LoadFile(ctx context.Context, path string) (core.EmailRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.EmailRecord{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var email core.EmailRecord
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtEML:
		email, err = ParseEML(bytes.NewReader(data))
	case ExtMSG:
		email, err = ParseMSG(bytes.NewReader(data))
	default:
		return core.EmailRecord{}, fmt.Errorf("unsupported file type: %s", filepath.Base(path))
	}
	if err != nil {
		return core.EmailRecord{}, err
	}

	email.Filename = filepath.Base(path)
	s.logger.Debug("Parsed email",
		zap.String("file", email.Filename),
		zap.Int("body_length", len(email.Body)))

	return email, nil
}
