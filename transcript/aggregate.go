package transcript

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// maxLineBytes bounds a single transcript line; chat messages are short but
// pasted walls of text do show up.
const maxLineBytes = 1 << 20

// LineError describes one transcript line that could not be parsed.
type LineError struct {
	Line int // 1-based
	Text string
	Err  error
}

func (e *LineError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }

func (e *LineError) Unwrap() error { return e.Err }

// Result holds the records parsed from a transcript and the lines that failed.
type Result struct {
	Records  []ChatRecord
	Failures []*LineError
}

// AggregateOptions controls how Aggregate treats malformed lines.
type AggregateOptions struct {
	Parser Parser
	// Strict aborts on the first malformed line instead of skipping it.
	Strict bool
	Logger *slog.Logger
}

// Aggregate parses every line, keeping records in input order. Records that
// share a timestamp are all retained. Blank lines are ignored.
func Aggregate(lines []string, opts AggregateOptions) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	res := Result{Records: make([]ChatRecord, 0, len(lines))}
	for i, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		rec, err := opts.Parser.Parse(line)
		if err != nil {
			le := &LineError{Line: i + 1, Text: line, Err: err}
			if opts.Strict {
				return res, le
			}
			logger.Warn("skipping malformed transcript line", slog.Int("line", le.Line), slog.Any("err", err))
			res.Failures = append(res.Failures, le)
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

// ReadLines splits r into lines without interpreting them. Trailing carriage
// returns are dropped.
func ReadLines(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	var lines []string
	for sc.Scan() {
		lines = append(lines, strings.TrimSuffix(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return lines, fmt.Errorf("read transcript: %w", err)
	}
	return lines, nil
}
