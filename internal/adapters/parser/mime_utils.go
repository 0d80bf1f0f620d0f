package parser

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
	"strings"

	"github.com/mikey/mail-lens/internal/utils"
	"golang.org/x/net/html"
)

// maxPartDepth bounds recursion into nested multiparts
const maxPartDepth = 8

// textPart is one readable body part in message order
type textPart struct {
	html bool
	text string
}

// extractTextParts walks a MIME entity and collects its text/plain and
// text/html parts. Attachments are skipped and nested multiparts recursed.
func extractTextParts(header textproto.MIMEHeader, body io.Reader, depth int) []textPart {
	contentType := header.Get("Content-Type")
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || contentType == "" {
		// RFC 2045 default
		mediaType, params = "text/plain", map[string]string{}
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" || depth >= maxPartDepth {
			return nil
		}
		return extractMultipart(multipart.NewReader(body, boundary), depth)
	}

	if isAttachment(header) {
		return nil
	}

	switch mediaType {
	case "text/plain", "text/html":
	default:
		return nil
	}

	raw, err := io.ReadAll(decodeTransferEncoding(header.Get("Content-Transfer-Encoding"), body))
	if err != nil && len(raw) == 0 {
		return nil
	}

	text := utils.DecodeBytes(raw, params["charset"])
	if mediaType == "text/html" {
		return []textPart{{html: true, text: htmlToText(text)}}
	}
	return []textPart{{text: text}}
}

func extractMultipart(mr *multipart.Reader, depth int) []textPart {
	var parts []textPart
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			// keep what was read before the damage
			break
		}
		parts = append(parts, extractTextParts(part.Header, part, depth+1)...)
		part.Close()
	}
	return parts
}

func isAttachment(header textproto.MIMEHeader) bool {
	disposition := header.Get("Content-Disposition")
	if disposition == "" {
		return false
	}
	d, _, err := mime.ParseMediaType(disposition)
	if err != nil {
		return strings.Contains(strings.ToLower(disposition), "attachment")
	}
	return d == "attachment"
}

// decodeTransferEncoding undoes base64 and quoted-printable; other encodings pass through
func decodeTransferEncoding(cte string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(cte)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, &base64Cleaner{r: r})
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}

// base64Cleaner drops line breaks and spaces that mailers insert into base64 bodies
type base64Cleaner struct {
	r io.Reader
}

func (c *base64Cleaner) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	j := 0
	for i := 0; i < n; i++ {
		switch p[i] {
		case '\r', '\n', ' ', '\t':
		default:
			p[j] = p[i]
			j++
		}
	}
	return j, err
}

// htmlToText renders the visible text of an HTML document, skipping scripts and styles
func htmlToText(doc string) string {
	z := html.NewTokenizer(strings.NewReader(doc))
	var buf bytes.Buffer
	skip := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			return utils.CollapseWhitespace(buf.String())
		case html.StartTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style", "head":
				skip++
			case "br", "p", "div", "tr", "li", "td", "h1", "h2", "h3":
				buf.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "script", "style", "head":
				if skip > 0 {
					skip--
				}
			}
			buf.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				buf.Write(z.Text())
			}
		}
	}
}
