package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "Прив", TruncateRunes("Привет", 4))
	assert.Equal(t, "Привет", TruncateRunes("Привет", 10))
	assert.Equal(t, "", TruncateRunes("Привет", 0))
}

func TestCollapseWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", CollapseWhitespace("  a\t\tb\n\r\n c  "))
	assert.Equal(t, "", CollapseWhitespace(" \n "))
}

func TestTruncateText(t *testing.T) {
	tp := NewTextProcessor(zap.NewNop())
	assert.Equal(t, "short", tp.TruncateText("short", 10, "..."))
	assert.Equal(t, "abc...", tp.TruncateText("abcdef", 3, "..."))
	assert.Equal(t, "abcdef", tp.TruncateText("abcdef", 0, "..."))
}

func TestProcessText(t *testing.T) {
	tp := NewTextProcessor(nil)
	assert.Equal(t, "ok text", tp.ProcessText("ok\xff \n text"))
}

func TestDecodeBytes(t *testing.T) {
	cp1251, err := charmap.Windows1251.NewEncoder().String("Привет")
	require.NoError(t, err)
	koi8, err := charmap.KOI8R.NewEncoder().String("Привет")
	require.NoError(t, err)

	assert.Equal(t, "Привет", DecodeBytes([]byte("Привет"), ""))
	assert.Equal(t, "Привет", DecodeBytes([]byte(cp1251), ""))
	assert.Equal(t, "Привет", DecodeBytes([]byte(koi8), "koi8-r"))
	assert.Equal(t, "Привет", DecodeBytes([]byte(cp1251), "no-such-charset"))
}

func TestDecodeUTF16LE(t *testing.T) {
	raw, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder().String("Тема\x00")
	require.NoError(t, err)

	got, err := DecodeUTF16LE([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "Тема", got)
}

func TestDecodeSubject(t *testing.T) {
	got, err := DecodeSubject("=?UTF-8?B?0J/RgNC40LLQtdGC?= =?UTF-8?Q?_=D0=BC=D0=B8=D1=80?=")
	require.NoError(t, err)
	assert.Equal(t, "Привет мир", got)

	got, err = DecodeSubject("  plain subject ")
	require.NoError(t, err)
	assert.Equal(t, "plain subject", got)

	got, err = DecodeSubject("")
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestLookupCharset(t *testing.T) {
	_, err := LookupCharset("windows-1251")
	assert.NoError(t, err)
	_, err = LookupCharset("")
	assert.Error(t, err)
	_, err = LookupCharset("x-unknown")
	assert.Error(t, err)
}
