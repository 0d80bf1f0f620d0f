package core

import (
	"strings"

	"github.com/mikey/mail-lens/internal/utils"
	"go.uber.org/zap"
)

const (
	// DefaultMaxTextLength bounds the normalized text, in characters
	DefaultMaxTextLength = 4000

	truncationSlack    = 100
	truncationEllipsis = "..."
	rawSubjectFallback = 100
	subjectRepetitions = 3
	subjectSeparator   = ". "
)

// NormalizedEmail is the text that gets embedded for one email, plus the decoded subject
type NormalizedEmail struct {
	Text           string
	SubjectDecoded string
}

// Normalizer combines subject and body into one bounded representative string
type Normalizer struct {
	textProcessor *utils.TextProcessor
	logger        *zap.Logger
	maxLength     int
}

// NewNormalizer creates a new normalizer. A non-positive maxLength selects DefaultMaxTextLength.
func NewNormalizer(textProcessor *utils.TextProcessor, logger *zap.Logger, maxLength int) *Normalizer {
	if maxLength <= 0 {
		maxLength = DefaultMaxTextLength
	}
	return &Normalizer{
		textProcessor: textProcessor,
		logger:        logger,
		maxLength:     maxLength,
	}
}

// DecodeSubject decodes MIME encoded-words. On failure it falls back to the
// first characters of the raw value and never returns an error.
func (n *Normalizer) DecodeSubject(subject string) string {
	decoded, err := utils.DecodeSubject(subject)
	if err != nil {
		n.logger.Warn("Subject decoding failed, using raw value",
			zap.String("subject", utils.TruncateRunes(subject, 30)),
			zap.Error(err))
		return utils.TruncateRunes(subject, rawSubjectFallback)
	}
	return decoded
}

// Normalize returns the representative text for an email. It is empty only
// when both body and subject are empty or whitespace.
func (n *Normalizer) Normalize(body, subject string) string {
	return n.NormalizeEmail(body, subject).Text
}

// NormalizeEmail is Normalize that also reports the decoded subject
func (n *Normalizer) NormalizeEmail(body, subject string) NormalizedEmail {
	if strings.TrimSpace(body) == "" && strings.TrimSpace(subject) == "" {
		return NormalizedEmail{}
	}

	decoded := n.DecodeSubject(subject)
	return NormalizedEmail{
		Text:           n.compose(body, decoded),
		SubjectDecoded: decoded,
	}
}

// compose repeats the subject to weight it, appends the body, and keeps the
// result within maxLength characters.
func (n *Normalizer) compose(body, subject string) string {
	subject = n.textProcessor.ProcessText(subject)
	body = n.textProcessor.ProcessText(body)

	prefix := ""
	if subject != "" {
		parts := make([]string, subjectRepetitions)
		for i := range parts {
			parts[i] = subject
		}
		prefix = strings.Join(parts, subjectSeparator) + "."
	}

	enhanced := joinNonEmpty(prefix, body)
	if utils.RuneLen(enhanced) <= n.maxLength {
		return enhanced
	}

	budget := n.maxLength - utils.RuneLen(prefix) - truncationSlack
	bodyPart := strings.TrimRight(utils.TruncateRunes(body, budget), " ")
	out := joinNonEmpty(prefix, bodyPart) + truncationEllipsis

	// An oversized subject alone can still exceed the budget
	if utils.RuneLen(out) > n.maxLength {
		out = utils.TruncateRunes(out, n.maxLength-len(truncationEllipsis)) + truncationEllipsis
	}

	n.logger.Debug("Normalized text truncated",
		zap.Int("body_length", utils.RuneLen(body)),
		zap.Int("result_length", utils.RuneLen(out)))

	return out
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}
