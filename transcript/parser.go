package transcript

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ErrMalformedLine is wrapped by every line-level parse failure.
var ErrMalformedLine = errors.New("malformed line")

// linePattern captures timestamp, author and (optional) message. The message
// keeps any colons or brackets it contains.
var linePattern = regexp.MustCompile(`(?s)^\[(.+?)\]\s+([^:]+):(?:\s+(.*))?$`)

// Parser parses transcript lines. Timestamps without an explicit offset are
// read in Location; every parsed timestamp is converted into Location so a
// transcript never mixes zones.
type Parser struct {
	Location *time.Location
}

// ParseLine parses one line with a UTC parser.
func ParseLine(line string) (ChatRecord, error) {
	return Parser{Location: time.UTC}.Parse(line)
}

// Parse converts a single raw line into a ChatRecord. Failures wrap ErrMalformedLine.
func (p Parser) Parse(line string) (ChatRecord, error) {
	m := linePattern.FindStringSubmatch(line)
	if m == nil {
		return ChatRecord{}, fmt.Errorf("%w: does not match [timestamp] author: message", ErrMalformedLine)
	}
	rawTS, author, message := m[1], m[2], m[3]
	if strings.TrimSpace(author) == "" {
		return ChatRecord{}, fmt.Errorf("%w: empty author", ErrMalformedLine)
	}
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	ts, err := dateparse.ParseIn(strings.TrimSpace(rawTS), loc)
	if err != nil {
		return ChatRecord{}, fmt.Errorf("%w: timestamp %q: %v", ErrMalformedLine, rawTS, err)
	}
	// dateparse fills a missing year with zero, e.g. "3/4".
	if ts.Year() == 0 {
		return ChatRecord{}, fmt.Errorf("%w: timestamp %q has no year", ErrMalformedLine, rawTS)
	}
	return ChatRecord{Timestamp: ts.In(loc), Author: author, Message: message}, nil
}
