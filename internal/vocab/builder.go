package vocab

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mikey/mail-lens/internal/core"
	"go.uber.org/zap"
)

const (
	// DefaultTopWords is the number of keywords written per category
	DefaultTopWords = 50

	minWordLength = 3
)

var (
	tagPattern    = regexp.MustCompile(`<[^>]+>`)
	urlPattern    = regexp.MustCompile(`https?://\S+|www\.\S+`)
	emailPattern  = regexp.MustCompile(`\S+@\S+\.\S+`)
	entityPattern = regexp.MustCompile(`&[a-z]+;`)
	hexPattern    = regexp.MustCompile(`(?i)\b[0-9a-f]{8,}\b`)
	symbolPattern = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
)

// CleanText strips markup, links, addresses, hex runs and punctuation, drops
// words shorter than three characters, and lowercases the rest.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	text = html.UnescapeString(text)
	text = tagPattern.ReplaceAllString(text, " ")
	text = urlPattern.ReplaceAllString(text, " ")
	text = emailPattern.ReplaceAllString(text, " ")
	text = entityPattern.ReplaceAllString(text, " ")
	text = hexPattern.ReplaceAllString(text, " ")
	text = symbolPattern.ReplaceAllString(text, " ")

	words := strings.Fields(text)
	kept := words[:0]
	for _, w := range words {
		if utf8.RuneCountInString(w) >= minWordLength {
			kept = append(kept, strings.ToLower(w))
		}
	}
	return strings.Join(kept, " ")
}

// CategoryKey is the file name prefix before the first underscore
func CategoryKey(filename string) string {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	key, _, _ := strings.Cut(stem, "_")
	return key
}

func readableName(key string) string {
	if key == "" {
		return key
	}
	r, size := utf8.DecodeRuneInString(key)
	return string(unicode.ToUpper(r)) + strings.ToLower(key[size:])
}

// Dictionary is the ranked keyword list of one category
type Dictionary struct {
	Key   string
	Name  string
	Words []string
}

// Builder derives keyword dictionaries from labelled example emails
type Builder struct {
	topWords int
	logger   *zap.Logger
}

// NewBuilder creates a new builder
func NewBuilder(topWords int, logger *zap.Logger) *Builder {
	if topWords <= 0 {
		topWords = DefaultTopWords
	}
	return &Builder{
		topWords: topWords,
		logger:   logger,
	}
}

// Build groups emails by file name prefix and ranks each group's words:
// words that occur in no other group come first, then by frequency.
// Groups keep the order of their first email.
func (b *Builder) Build(emails []core.EmailRecord) []Dictionary {
	var order []string
	counters := make(map[string]map[string]int)

	for _, e := range emails {
		key := CategoryKey(e.Filename)
		if key == "" {
			continue
		}
		counter, ok := counters[key]
		if !ok {
			counter = make(map[string]int)
			counters[key] = counter
			order = append(order, key)
		}
		for _, w := range strings.Fields(CleanText(e.Body)) {
			counter[w]++
		}
	}

	spread := make(map[string]int)
	for _, counter := range counters {
		for w := range counter {
			spread[w]++
		}
	}

	out := make([]Dictionary, 0, len(order))
	for _, key := range order {
		counter := counters[key]
		words := make([]string, 0, len(counter))
		for w := range counter {
			words = append(words, w)
		}
		sort.Slice(words, func(i, j int) bool {
			ui, uj := spread[words[i]] == 1, spread[words[j]] == 1
			if ui != uj {
				return ui
			}
			if counter[words[i]] != counter[words[j]] {
				return counter[words[i]] > counter[words[j]]
			}
			return words[i] < words[j]
		})
		if len(words) > b.topWords {
			words = words[:b.topWords]
		}

		b.logger.Debug("Built category dictionary",
			zap.String("category", key),
			zap.Int("distinct_words", len(counter)))

		out = append(out, Dictionary{Key: key, Name: readableName(key), Words: words})
	}
	return out
}

// Write renders dictionaries as "Name:" lines followed by comma-separated words
func Write(w io.Writer, dictionaries []Dictionary) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "CATEGORY DICTIONARIES (uniqueness + frequency)\n")
	fmt.Fprintf(bw, "%s\n\n", strings.Repeat("=", 60))
	for _, d := range dictionaries {
		fmt.Fprintf(bw, "%s:\n%s\n\n", d.Name, strings.Join(d.Words, ", "))
	}
	return bw.Flush()
}

// WriteFile writes the dictionaries to path, creating its folder when needed
func WriteFile(path string, dictionaries []Dictionary) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create vocabulary folder: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create vocabulary file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close vocabulary file: %w", cerr)
		}
	}()

	return Write(f, dictionaries)
}
