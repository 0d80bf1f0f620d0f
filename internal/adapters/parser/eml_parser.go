package parser

import (
	"bufio"
	"fmt"
	"io"
	"net/mail"
	"net/textproto"
	"strings"
	"unicode/utf8"

	"github.com/mikey/mail-lens/internal/core"
	"github.com/mikey/mail-lens/internal/utils"
)

// subjectLinePrefix introduces the decoded subject at the top of the body
const subjectLinePrefix = "Subject: "

// ParseEML reads an RFC 5322 message. The subject is returned raw; the body
// starts with the decoded subject line followed by the text parts.
func ParseEML(r io.Reader) (core.EmailRecord, error) {
	msg, err := mail.ReadMessage(bufio.NewReader(r))
	if err != nil {
		return core.EmailRecord{}, fmt.Errorf("failed to parse message: %w", err)
	}

	subject := msg.Header.Get("Subject")
	if !utf8.ValidString(subject) {
		// 8-bit headers from legacy mailers
		subject = utils.DecodeBytes([]byte(subject), "")
	}

	header := textproto.MIMEHeader(msg.Header)
	parts := extractTextParts(header, msg.Body, 0)

	return core.EmailRecord{
		Subject: subject,
		Body:    composeBody(subject, parts),
	}, nil
}

// composeBody prefixes the decoded subject and appends every text part in order.
// Plain and HTML alternatives are both kept.
func composeBody(subject string, parts []textPart) string {
	var b strings.Builder

	if decoded, err := utils.DecodeSubject(subject); err == nil && decoded != "" {
		b.WriteString(subjectLinePrefix)
		b.WriteString(decoded)
		b.WriteString("\n\n")
	} else if err != nil && strings.TrimSpace(subject) != "" {
		b.WriteString(subjectLinePrefix)
		b.WriteString(strings.TrimSpace(subject))
		b.WriteString("\n\n")
	}

	for _, p := range parts {
		text := strings.TrimSpace(p.text)
		if text == "" {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	return strings.TrimSpace(b.String())
}
