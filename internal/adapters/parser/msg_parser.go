package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/mikey/mail-lens/internal/core"
	"github.com/mikey/mail-lens/internal/utils"
	"github.com/richardlehane/mscfb"
)

// MAPI property stream names inside an Outlook .msg compound file
const (
	propertyStreamPrefix = "__substg1.0_"
	propSubject          = "0037"
	propBody             = "1000"
	propHTMLBody         = "1013"

	typeUnicode = "001F"
	typeString8 = "001E"
	typeBinary  = "0102"
)

// ParseMSG reads the subject and body of an Outlook message
func ParseMSG(r io.ReaderAt) (core.EmailRecord, error) {
	doc, err := mscfb.New(r)
	if err != nil {
		return core.EmailRecord{}, fmt.Errorf("failed to open compound file: %w", err)
	}

	var subject, body, htmlBody string
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		if !isTopLevel(entry.Path) || !strings.HasPrefix(entry.Name, propertyStreamPrefix) {
			continue
		}

		tag := strings.TrimPrefix(entry.Name, propertyStreamPrefix)
		if len(tag) != 8 {
			continue
		}
		prop, typ := tag[:4], strings.ToUpper(tag[4:])

		switch prop {
		case propSubject, propBody, propHTMLBody:
		default:
			continue
		}

		data := make([]byte, entry.Size)
		if _, err := io.ReadFull(entry, data); err != nil {
			return core.EmailRecord{}, fmt.Errorf("failed to read property %s: %w", tag, err)
		}

		value, err := decodeProperty(data, typ)
		if err != nil {
			return core.EmailRecord{}, fmt.Errorf("failed to decode property %s: %w", tag, err)
		}

		switch prop {
		case propSubject:
			subject = value
		case propBody:
			body = value
		case propHTMLBody:
			htmlBody = value
		}
	}

	parts := []textPart{{text: body}}
	if strings.TrimSpace(body) == "" && htmlBody != "" {
		parts = []textPart{{html: true, text: htmlToText(htmlBody)}}
	}

	return core.EmailRecord{
		Subject: subject,
		Body:    composeBody(subject, parts),
	}, nil
}

func decodeProperty(data []byte, typ string) (string, error) {
	switch typ {
	case typeUnicode:
		return utils.DecodeUTF16LE(data)
	case typeString8, typeBinary:
		return strings.TrimRight(utils.DecodeBytes(data, ""), "\x00"), nil
	default:
		return "", fmt.Errorf("unexpected property type %s", typ)
	}
}

// isTopLevel excludes properties of attachments, recipients and named-property storages
func isTopLevel(path []string) bool {
	for _, p := range path {
		if strings.HasPrefix(p, "__") {
			return false
		}
	}
	return true
}
