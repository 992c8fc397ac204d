// Package report builds the per-window keyword table and writes it out.
package report

import (
	"sort"
	"time"

	"github.com/ncruces/go-strftime"

	"github.com/onnwee/chatpulse/keywords"
	"github.com/onnwee/chatpulse/window"
)

// DefaultTimestampPattern is the strftime pattern used for window starts.
const DefaultTimestampPattern = "%Y-%m-%d %H:%M:%S"

// Row holds the keyword counts of one non-empty window. Counts are positional
// against Table.Keywords.
type Row struct {
	WindowStart time.Time `json:"window_start"`
	Counts      []int     `json:"counts"`
}

// Table is the keyword count time series, ordered by window start.
type Table struct {
	Keywords []string `json:"keywords"`
	Rows     []Row    `json:"rows"`
}

// Build counts every keyword in every window and returns the rows sorted by
// window start. Windows are expected to be non-empty; empty ones are dropped.
func Build(windows []window.Window, counter *keywords.Counter) Table {
	t := Table{Keywords: counter.Keywords(), Rows: make([]Row, 0, len(windows))}
	for _, w := range windows {
		if len(w.Records) == 0 {
			continue
		}
		t.Rows = append(t.Rows, Row{WindowStart: w.Start, Counts: counter.CountWindow(w.Records)})
	}
	sort.SliceStable(t.Rows, func(i, j int) bool {
		return t.Rows[i].WindowStart.Before(t.Rows[j].WindowStart)
	})
	return t
}

// Empty reports whether the table has no rows.
func (t Table) Empty() bool { return len(t.Rows) == 0 }

// Column returns the counts of keyword column i across all rows.
func (t Table) Column(i int) []int {
	out := make([]int, len(t.Rows))
	for r, row := range t.Rows {
		out[r] = row.Counts[i]
	}
	return out
}

// Totals sums each keyword column.
func (t Table) Totals() []int {
	out := make([]int, len(t.Keywords))
	for _, row := range t.Rows {
		for i, c := range row.Counts {
			out[i] += c
		}
	}
	return out
}

// FormatTime renders ts with a strftime pattern; an empty pattern uses
// DefaultTimestampPattern.
func FormatTime(ts time.Time, pattern string) string {
	if pattern == "" {
		pattern = DefaultTimestampPattern
	}
	return strftime.Format(pattern, ts)
}
