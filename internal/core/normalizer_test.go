package core

import (
	"strings"
	"testing"

	"github.com/mikey/mail-lens/internal/utils"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestNormalizer(maxLength int) *Normalizer {
	return NewNormalizer(utils.NewTextProcessor(zap.NewNop()), zap.NewNop(), maxLength)
}

func TestNormalizeEmpty(t *testing.T) {
	n := newTestNormalizer(0)
	assert.Equal(t, "", n.Normalize("", ""))
	assert.Equal(t, "", n.Normalize(" \n\t ", "   "))
}

func TestNormalizeRepeatsSubject(t *testing.T) {
	n := newTestNormalizer(0)

	assert.Equal(t, "Invoice. Invoice. Invoice.", n.Normalize("", "Invoice"))
	assert.Equal(t, "Invoice. Invoice. Invoice. Please pay", n.Normalize("Please   pay\n", "Invoice"))
	assert.Equal(t, "Just a body", n.Normalize("  Just\ta\n\nbody ", ""))
}

func TestNormalizeDecodesSubject(t *testing.T) {
	n := newTestNormalizer(0)

	got := n.NormalizeEmail("текст", "=?UTF-8?B?0J/RgNC40LLQtdGCINC80LjRgA==?=")
	assert.Equal(t, "Привет мир", got.SubjectDecoded)
	assert.Equal(t, "Привет мир. Привет мир. Привет мир. текст", got.Text)

	assert.Equal(t, "Счёт", n.DecodeSubject("=?KOI8-R?B?896j1A==?="))
}

func TestNormalizeTruncatesLongBody(t *testing.T) {
	n := newTestNormalizer(500)
	body := strings.Repeat("слово ", 400)

	got := n.Normalize(body, "Тема")
	assert.LessOrEqual(t, utils.RuneLen(got), 500)
	assert.True(t, strings.HasPrefix(got, "Тема. Тема. Тема. слово"))
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestNormalizeTruncatesAtDefaultLength(t *testing.T) {
	n := newTestNormalizer(0)
	subject := strings.Repeat("s", 50)
	body := strings.Repeat("b", 10000)

	got := n.Normalize(body, subject)
	assert.LessOrEqual(t, utils.RuneLen(got), DefaultMaxTextLength)
	assert.True(t, strings.HasSuffix(got, "..."))

	prefix := subject + ". " + subject + ". " + subject + ". "
	assert.True(t, strings.HasPrefix(got, prefix))
	assert.True(t, strings.HasPrefix(got[len(prefix):], "bbb"))
}

func TestNormalizeOmitsPrefixForEmptySubject(t *testing.T) {
	n := newTestNormalizer(0)

	got := n.NormalizeEmail("body only", "")
	assert.Equal(t, "body only", got.Text)
	assert.Equal(t, "", got.SubjectDecoded)

	// a subject that collapses to nothing behaves the same
	assert.Equal(t, "body only", n.Normalize("body only", " \t "))
}

func TestNormalizeTruncatesOversizedSubject(t *testing.T) {
	n := newTestNormalizer(200)
	subject := strings.Repeat("x", 150)

	got := n.Normalize("body", subject)
	assert.LessOrEqual(t, utils.RuneLen(got), 200)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestNormalizeKeepsShortTextIntact(t *testing.T) {
	n := newTestNormalizer(100)
	got := n.Normalize("short body", "")
	assert.Equal(t, "short body", got)
}
