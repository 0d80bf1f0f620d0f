package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
)

// TextProcessor provides utilities for processing text
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TextProcessor{
		logger: logger,
	}
}

// RuneLen counts characters rather than bytes
func RuneLen(text string) int {
	return utf8.RuneCountInString(text)
}

// TruncateRunes returns at most maxRunes characters of text.
// A non-positive limit yields an empty string.
func TruncateRunes(text string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	count := 0
	for i := range text {
		if count == maxRunes {
			return text[:i]
		}
		count++
	}
	return text
}

// CollapseWhitespace replaces every whitespace run with a single space and trims both ends
func CollapseWhitespace(text string) string {
	return strings.Join(strings.FieldsFunc(text, unicode.IsSpace), " ")
}

// TruncateText safely truncates text to the specified number of characters
// and appends marker when anything was cut
func (tp *TextProcessor) TruncateText(text string, maxRunes int, marker string) string {
	// If no limit or text is already within limits, return as is
	if maxRunes <= 0 || RuneLen(text) <= maxRunes {
		return text
	}

	truncated := TruncateRunes(text, maxRunes)

	tp.logger.Debug("Text truncated",
		zap.Int("original_length", RuneLen(text)),
		zap.Int("truncated_length", RuneLen(truncated)),
		zap.Int("max_length", maxRunes))

	return truncated + marker
}

// SanitizeUTF8 ensures the string contains only valid UTF-8 characters
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	sanitized := strings.ToValidUTF8(text, "")

	tp.logger.Debug("Text sanitized",
		zap.Int("original_size", len(text)),
		zap.Int("sanitized_size", len(sanitized)))

	return sanitized
}

// ProcessText sanitizes and collapses whitespace in one operation
func (tp *TextProcessor) ProcessText(text string) string {
	return CollapseWhitespace(tp.SanitizeUTF8(text))
}
