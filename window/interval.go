// Package window partitions chat records into fixed-width, calendar-aligned
// time windows.
package window

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidInterval is wrapped by every interval specification error.
var ErrInvalidInterval = errors.New("invalid interval")

// Unit is the granularity an interval is expressed in.
type Unit int

const (
	Second Unit = iota
	Minute
	Hour
)

func (u Unit) String() string {
	switch u {
	case Second:
		return "seconds"
	case Minute:
		return "minutes"
	case Hour:
		return "hours"
	default:
		return "unknown"
	}
}

// Duration returns the length of one unit.
func (u Unit) Duration() time.Duration {
	switch u {
	case Second:
		return time.Second
	case Minute:
		return time.Minute
	case Hour:
		return time.Hour
	default:
		return 0
	}
}

// unitAliases maps accepted spellings to units. The single letter pandas
// aliases (S, T, H) keep old command lines working.
var unitAliases = map[string]Unit{
	"s": Second, "sec": Second, "secs": Second, "second": Second, "seconds": Second,
	"m": Minute, "t": Minute, "min": Minute, "mins": Minute, "minute": Minute, "minutes": Minute,
	"h": Hour, "hr": Hour, "hrs": Hour, "hour": Hour, "hours": Hour,
}

var intervalPattern = regexp.MustCompile(`^\s*(\d+)\s*([A-Za-z]+)\s*$`)

// Interval is a positive magnitude of a unit, e.g. 4 minutes.
type Interval struct {
	Magnitude int
	Unit      Unit
}

// ParseInterval parses specifications such as "4T", "30s", "5 minutes" or "1H".
func ParseInterval(spec string) (Interval, error) {
	m := intervalPattern.FindStringSubmatch(spec)
	if m == nil {
		return Interval{}, fmt.Errorf("%w: %q: want <positive integer><unit>", ErrInvalidInterval, spec)
	}
	rawUnit := m[2]
	// "M" is month-end in pandas offset aliases; refuse to guess.
	if rawUnit == "M" {
		return Interval{}, fmt.Errorf("%w: %q: ambiguous unit %q", ErrInvalidInterval, spec, rawUnit)
	}
	unit, ok := unitAliases[strings.ToLower(rawUnit)]
	if !ok {
		return Interval{}, fmt.Errorf("%w: %q: unknown unit %q (use seconds, minutes or hours)", ErrInvalidInterval, spec, rawUnit)
	}
	mag, err := strconv.Atoi(m[1])
	if err != nil || mag <= 0 {
		return Interval{}, fmt.Errorf("%w: %q: magnitude must be a positive integer", ErrInvalidInterval, spec)
	}
	if int64(mag) > math.MaxInt64/int64(unit.Duration()) {
		return Interval{}, fmt.Errorf("%w: %q: too large", ErrInvalidInterval, spec)
	}
	return Interval{Magnitude: mag, Unit: unit}, nil
}

// MustParseInterval is ParseInterval for constants; it panics on error.
func MustParseInterval(spec string) Interval {
	iv, err := ParseInterval(spec)
	if err != nil {
		panic(err)
	}
	return iv
}

// Duration is the width of one window.
func (i Interval) Duration() time.Duration {
	return time.Duration(i.Magnitude) * i.Unit.Duration()
}

func (i Interval) String() string {
	return fmt.Sprintf("%d %s", i.Magnitude, i.Unit)
}

// Align returns the start of the window containing t, in t's location.
// Intervals that divide a day evenly are counted from midnight of t's
// calendar day, so a 4 minute window lines up with the top of the hour. Any
// other interval is counted from midnight of 1970-01-01 in t's location, so
// the windows of consecutive days never overlap.
func (i Interval) Align(t time.Time) time.Time {
	d := i.Duration()
	if d <= 0 {
		return t
	}
	loc := t.Location()
	origin := time.Date(1970, 1, 1, 0, 0, 0, 0, loc)
	if (24*time.Hour)%d == 0 {
		y, mo, day := t.Date()
		origin = time.Date(y, mo, day, 0, 0, 0, 0, loc)
	}
	// Whole seconds keep far-off dates exact; time.Sub saturates after ~292 years.
	step := int64(d / time.Second)
	off := t.Unix() - origin.Unix()
	n := off / step
	if off%step < 0 {
		n--
	}
	return time.Unix(origin.Unix()+n*step, 0).In(loc)
}
