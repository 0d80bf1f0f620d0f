package categories

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mikey/mail-lens/internal/core"
	"github.com/mikey/mail-lens/internal/utils"
	"go.uber.org/zap"
)

// englishKeywords gives the multilingual models an English anchor for the stock categories.
// Categories outside this table are loaded without augmentation.
var englishKeywords = map[string]string{
	"Техническая поддержка":       "technical support, help desk, IT support, troubleshooting",
	"Финансовые операции":         "financial transactions, payments, invoices, bills, accounting",
	"Вакансии и карьера":          "vacancies, careers, jobs, recruitment, CV, resume",
	"Рекламная рассылка":          "advertising, marketing, promotion, commercial offers",
	"Новостные рассылки":          "newsletters, news, updates, announcements",
	"Регистрация и подтверждение": "registration, confirmation, account, verification",
	"Транспорт и путешествия":     "transport, travel, tickets, booking, flights, hotels",
	"Неприемлемый контент":        "spam, inappropriate content, adult, violence",
	"Бизнес-корреспонденция":      "business correspondence, partners, contracts, negotiations",
	"Системные уведомления":       "system notifications, alerts, reports, automated messages",
	"Другое":                      "other, miscellaneous, uncategorized",
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Loader reads category definitions of the form "Name: keyword, keyword"
type Loader struct {
	logger *zap.Logger
}

// NewLoader creates a new category loader
func NewLoader(logger *zap.Logger) *Loader {
	return &Loader{
		logger: logger,
	}
}

// LoadFile reads and parses a category file
func (l *Loader) LoadFile(path string) (*core.CategorySet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrCategoryLoadFailed, err)
	}
	defer f.Close()

	set, err := l.Load(f)
	if err != nil {
		return nil, err
	}

	l.logger.Info("Loaded categories",
		zap.String("file", path),
		zap.Int("count", set.Len()),
		zap.Strings("names", set.Names()))

	return set, nil
}

// Load parses category definitions from r. Blank lines are skipped and a line
// without a colon defines a category named after the whole line.
func (l *Loader) Load(r io.Reader) (*core.CategorySet, error) {
	lines, err := ReadLines(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrCategoryLoadFailed, err)
	}

	descriptions := make([]core.CategoryDescription, 0, len(lines))
	for _, line := range lines {
		d := ParseLine(line)
		l.logger.Debug("Parsed category",
			zap.String("name", d.Name),
			zap.String("description", utils.TruncateRunes(d.Description, 80)))
		descriptions = append(descriptions, d)
	}

	return core.NewCategorySet(descriptions)
}

// ReadLines returns the trimmed non-blank lines of a category file, BOM removed
func ReadLines(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

// ParseLine turns one non-blank definition line into an enriched description
func ParseLine(line string) core.CategoryDescription {
	name, keywords, ok := strings.Cut(line, ":")
	if !ok {
		return core.CategoryDescription{Name: line, Description: line}
	}

	name = strings.TrimSpace(name)
	description := name + ". " + strings.TrimSpace(keywords)
	if english, found := englishKeywords[name]; found {
		description += ". " + english
	}

	return core.CategoryDescription{Name: name, Description: description}
}

// Keywords splits the keyword part of a definition line, for display
func Keywords(line string) []string {
	_, keywords, ok := strings.Cut(line, ":")
	if !ok {
		return nil
	}
	var out []string
	for _, kw := range strings.Split(keywords, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
