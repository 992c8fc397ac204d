package keywords

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onnwee/chatpulse/fsio"
	"github.com/onnwee/chatpulse/transcript"
)

func TestRead(t *testing.T) {
	kws, err := Read(strings.NewReader("world\r\n\n Peace \nworld\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"world", " Peace ", "world"}, kws)
}

func TestCountOccurrences(t *testing.T) {
	tests := []struct {
		text, kw string
		want     int
	}{
		{"hello world WORLD peace", "world", 2},
		{"aaaa", "aa", 2}, // non-overlapping
		{"aaa", "aa", 1},
		{"Pog pog POG poggers", "pog", 4},
		{"nothing here", "lul", 0},
		{"", "x", 0},
		{"abc", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.text+"/"+tt.kw, func(t *testing.T) {
			assert.Equal(t, tt.want, CountOccurrences(tt.text, tt.kw))
		})
	}
}

func TestCountIsCaseInvariant(t *testing.T) {
	texts := []string{"Hello World hello", "GG gg Gg gG", "kekw KEKW KeKw"}
	kws := []string{"hello", "gg", "kekw", "World"}
	for _, text := range texts {
		for _, kw := range kws {
			base := CountOccurrences(text, kw)
			assert.GreaterOrEqual(t, base, 0)
			assert.Equal(t, base, CountOccurrences(strings.ToUpper(text), kw))
			assert.Equal(t, base, CountOccurrences(strings.ToLower(text), strings.ToUpper(kw)))
		}
	}
}

func TestCountWindowStraddlesMessages(t *testing.T) {
	ts := time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC)
	records := []transcript.ChatRecord{
		{Timestamp: ts, Author: "a", Message: "good"},
		{Timestamp: ts, Author: "b", Message: "game"},
	}
	c := NewCounter([]string{"good game", "GOOD", "game"})
	assert.Equal(t, []int{1, 1, 1}, c.CountWindow(records))
	assert.Equal(t, "good game", JoinMessages(records))
}

func TestCounterPreservesDuplicateKeywords(t *testing.T) {
	c := NewCounter([]string{"world", "world"})
	assert.Equal(t, []string{"world", "world"}, c.Keywords())
	assert.Equal(t, []int{2, 2}, c.Count("hello world WORLD peace"))
}

func TestLoad(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "keywords.txt", []byte("pog\nkekw\n"), 0o644))
	kws, err := Load(fsys, "keywords.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"pog", "kekw"}, kws)

	_, err = Load(fsys, "missing.txt")
	assert.ErrorIs(t, err, fsio.ErrMissingFile)
}
