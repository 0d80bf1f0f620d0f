package utils

import (
	"fmt"
	"io"
	"mime"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// Legacy Cyrillic encodings tried, in order, when bytes are not valid UTF-8
// and no charset was declared.
var fallbackEncodings = []encoding.Encoding{
	charmap.Windows1251,
	charmap.KOI8R,
	charmap.ISO8859_5,
}

// LookupCharset resolves a MIME/HTML charset label to an encoding
func LookupCharset(label string) (encoding.Encoding, error) {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return nil, fmt.Errorf("empty charset label")
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	return enc, nil
}

// DecodeBytes converts raw bytes into a UTF-8 string. The declared charset is
// used when it resolves; otherwise valid UTF-8 is returned as is and anything
// else is decoded with the first legacy encoding that succeeds.
func DecodeBytes(data []byte, charset string) string {
	if charset != "" {
		if enc, err := LookupCharset(charset); err == nil {
			if out, err := enc.NewDecoder().Bytes(data); err == nil {
				return string(out)
			}
		}
	}

	if utf8.Valid(data) {
		return string(data)
	}

	for _, enc := range fallbackEncodings {
		if out, err := enc.NewDecoder().Bytes(data); err == nil && utf8.Valid(out) {
			return string(out)
		}
	}

	return strings.ToValidUTF8(string(data), "")
}

// DecodeUTF16LE decodes little-endian UTF-16 bytes, dropping a trailing NUL terminator
func DecodeUTF16LE(data []byte) (string, error) {
	out, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(out), "\x00"), nil
}

var headerDecoder = &mime.WordDecoder{
	CharsetReader: func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := LookupCharset(charset)
		if err != nil {
			return nil, err
		}
		return enc.NewDecoder().Reader(input), nil
	},
}

// DecodeSubject decodes RFC 2047 encoded-words (=?charset?enc?text?=) in a
// header value. Plain values are returned trimmed.
func DecodeSubject(subject string) (string, error) {
	if subject == "" {
		return "", nil
	}
	decoded, err := headerDecoder.DecodeHeader(subject)
	if err != nil {
		return "", fmt.Errorf("failed to decode subject: %w", err)
	}
	return strings.TrimSpace(decoded), nil
}
