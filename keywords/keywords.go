// Package keywords loads the keyword list and counts case-insensitive keyword
// occurrences in chat windows.
package keywords

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/text/cases"

	"github.com/onnwee/chatpulse/fsio"
	"github.com/onnwee/chatpulse/transcript"
)

// Read returns one keyword per line, verbatim. Only a trailing carriage return
// is removed; zero-length lines are skipped. Duplicates are kept in order.
func Read(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	var out []string
	for sc.Scan() {
		kw := strings.TrimSuffix(sc.Text(), "\r")
		if kw == "" {
			continue
		}
		out = append(out, kw)
	}
	if err := sc.Err(); err != nil {
		return out, fmt.Errorf("read keywords: %w", err)
	}
	return out, nil
}

// Counter counts keyword occurrences. It is not safe for concurrent use.
type Counter struct {
	keywords []string
	folded   []string
	fold     cases.Caser
}

// NewCounter prepares a counter for the given keywords, in order.
func NewCounter(kws []string) *Counter {
	c := &Counter{keywords: kws, folded: make([]string, len(kws)), fold: cases.Fold()}
	for i, kw := range kws {
		c.folded[i] = c.fold.String(kw)
	}
	return c
}

// Keywords returns the configured keywords in column order.
func (c *Counter) Keywords() []string { return c.keywords }

// Count returns the number of non-overlapping, case-insensitive occurrences of
// each keyword in text, scanning left to right.
func (c *Counter) Count(text string) []int {
	folded := c.fold.String(text)
	counts := make([]int, len(c.folded))
	for i, kw := range c.folded {
		counts[i] = countFolded(folded, kw)
	}
	return counts
}

// CountWindow joins the messages of records with single spaces, in the order
// given, and counts every keyword in the result.
func (c *Counter) CountWindow(records []transcript.ChatRecord) []int {
	return c.Count(JoinMessages(records))
}

// JoinMessages concatenates the messages of records separated by one space.
func JoinMessages(records []transcript.ChatRecord) string {
	n := 0
	for _, r := range records {
		n += len(r.Message) + 1
	}
	var b strings.Builder
	b.Grow(n)
	for i, r := range records {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(r.Message)
	}
	return b.String()
}

// CountOccurrences is a one-off case-insensitive count of keyword in text.
func CountOccurrences(text, keyword string) int {
	f := cases.Fold()
	return countFolded(f.String(text), f.String(keyword))
}

func countFolded(text, kw string) int {
	if kw == "" {
		return 0
	}
	return strings.Count(text, kw)
}

// Load reads the keyword list at path. A missing file wraps fsio.ErrMissingFile.
func Load(fsys afero.Fs, path string) ([]string, error) {
	f, err := fsio.Open(fsys, path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("failed to close keywords file", slog.Any("err", err))
		}
	}()
	return Read(f)
}
