// Package chart draws the keyword table as a stacked bar chart in the
// terminal: one bar per window, time ascending downwards, one segment per
// keyword.
package chart

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/onnwee/chatpulse/report"
)

// palette is cycled when there are more keywords than colours.
var palette = []lipgloss.Color{"39", "208", "42", "199", "226", "99", "160", "51", "214", "141"}

// glyphs tell segments apart when colour is unavailable.
var glyphs = []string{"█", "▓", "▒", "░", "#", "=", "+", "*", "o", "."}

// Options controls rendering.
type Options struct {
	// Width is the number of cells of the longest bar.
	Width int
	// Pattern is the strftime pattern for row labels.
	Pattern string
	// Plain uses a distinct glyph per keyword instead of colour.
	Plain bool
	Title string
}

// IsTerminal reports whether w is a terminal, which decides between colour
// and glyph rendering.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Render writes the chart for t to w. An empty table renders the title, the
// legend and a "no data" line.
func Render(w io.Writer, t report.Table, opts Options) error {
	if opts.Width <= 0 {
		opts.Width = 60
	}
	r := lipgloss.NewRenderer(w)
	segStyles := make([]lipgloss.Style, len(t.Keywords))
	for i := range t.Keywords {
		segStyles[i] = r.NewStyle().Foreground(palette[i%len(palette)])
	}
	glyph := func(i int) string {
		if opts.Plain {
			return glyphs[i%len(glyphs)]
		}
		return "█"
	}
	labelStyle := r.NewStyle().Faint(true)
	titleStyle := r.NewStyle().Bold(true)

	var b strings.Builder
	title := opts.Title
	if title == "" {
		title = "keyword mentions per window"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteByte('\n')

	if t.Empty() {
		b.WriteString(labelStyle.Render("(no data)"))
		b.WriteByte('\n')
	}

	maxTotal := 0
	for _, row := range t.Rows {
		if s := sum(row.Counts); s > maxTotal {
			maxTotal = s
		}
	}
	for _, row := range t.Rows {
		b.WriteString(labelStyle.Render(report.FormatTime(row.WindowStart, opts.Pattern)))
		b.WriteString(" │")
		for i, c := range row.Counts {
			n := scale(c, maxTotal, opts.Width)
			if n == 0 {
				continue
			}
			b.WriteString(segStyles[i].Render(strings.Repeat(glyph(i), n)))
		}
		fmt.Fprintf(&b, " %d\n", sum(row.Counts))
	}

	if len(t.Keywords) > 0 {
		b.WriteByte('\n')
		totals := t.Totals()
		for i, kw := range t.Keywords {
			fmt.Fprintf(&b, "%s %q %d\n", segStyles[i].Render(glyph(i)+glyph(i)), kw, totals[i])
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// scale maps a count onto the bar width, keeping any non-zero count visible.
func scale(count, maxTotal, width int) int {
	if count <= 0 || maxTotal <= 0 {
		return 0
	}
	n := count * width / maxTotal
	if n == 0 {
		n = 1
	}
	return n
}

func sum(xs []int) int {
	s := 0
	for _, x := range xs {
		s += x
	}
	return s
}
