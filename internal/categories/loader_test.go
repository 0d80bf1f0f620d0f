package categories

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mikey/mail-lens/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line     string
		wantName string
		wantDesc string
	}{
		{
			line:     "Финансовые операции: счет, оплата",
			wantName: "Финансовые операции",
			wantDesc: "Финансовые операции. счет, оплата. financial transactions, payments, invoices, bills, accounting",
		},
		{
			line:     "Hobbies: chess, hiking",
			wantName: "Hobbies",
			wantDesc: "Hobbies. chess, hiking",
		},
		{
			line:     "Just a name",
			wantName: "Just a name",
			wantDesc: "Just a name",
		},
		{
			line:     "Links: see http://example.com",
			wantName: "Links",
			wantDesc: "Links. see http://example.com",
		},
	}
	for _, tt := range tests {
		t.Run(tt.wantName, func(t *testing.T) {
			d := ParseLine(tt.line)
			assert.Equal(t, tt.wantName, d.Name)
			assert.Equal(t, tt.wantDesc, d.Description)
		})
	}
}

func TestLoadSkipsBlankLinesAndBOM(t *testing.T) {
	input := "\uFEFFTravel: tickets, hotels\n\n   \nDigest\nFinance: invoices\n"
	set, err := NewLoader(zap.NewNop()).Load(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"Travel", "Digest", "Finance"}, set.Names())
	d, ok := set.Get("Travel")
	require.True(t, ok)
	assert.Equal(t, "Travel. tickets, hotels", d.Description)
}

func TestLoadDuplicateKeepsFirstPosition(t *testing.T) {
	input := "A: one\nB: two\nA: three\n"
	set, err := NewLoader(zap.NewNop()).Load(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, set.Names())
	d, _ := set.Get("A")
	assert.Equal(t, "A. three", d.Description)
}

func TestLoadEmpty(t *testing.T) {
	_, err := NewLoader(zap.NewNop()).Load(strings.NewReader("\n  \n"))
	assert.ErrorIs(t, err, core.ErrCategoryLoadFailed)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := NewLoader(zap.NewNop()).LoadFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, core.ErrCategoryLoadFailed)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cats.txt")
	require.NoError(t, os.WriteFile(path, []byte("Другое: прочее\n"), 0644))

	set, err := NewLoader(zap.NewNop()).LoadFile(path)
	require.NoError(t, err)
	d, ok := set.Get("Другое")
	require.True(t, ok)
	assert.Equal(t, "Другое. прочее. other, miscellaneous, uncategorized", d.Description)
}

func TestKeywords(t *testing.T) {
	assert.Equal(t, []string{"tickets", "hotels"}, Keywords("Travel: tickets, , hotels "))
	assert.Nil(t, Keywords("No colon"))
}
