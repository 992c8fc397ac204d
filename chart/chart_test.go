package chart

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onnwee/chatpulse/report"
)

func TestRenderPlain(t *testing.T) {
	tbl := report.Table{
		Keywords: []string{"pog", "kekw"},
		Rows: []report.Row{
			{WindowStart: time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC), Counts: []int{2, 2}},
			{WindowStart: time.Date(2023, 1, 1, 10, 4, 0, 0, time.UTC), Counts: []int{0, 1}},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, tbl, Options{Width: 8, Plain: true}))
	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.GreaterOrEqual(t, len(lines), 6)
	assert.Equal(t, "2023-01-01 10:00:00 │████▓▓▓▓ 4", lines[1])
	assert.Equal(t, "2023-01-01 10:04:00 │▓▓ 1", lines[2])
	assert.Contains(t, out, `"pog" 2`)
	assert.Contains(t, out, `"kekw" 3`)
	assert.Less(t, strings.Index(out, "10:00:00"), strings.Index(out, "10:04:00"))
}

func TestRenderEmptyTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, report.Table{Keywords: []string{"a"}}, Options{Plain: true}))
	assert.Contains(t, buf.String(), "(no data)")
	assert.Contains(t, buf.String(), `"a" 0`)
}

func TestRenderNoKeywords(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, report.Table{}, Options{}))
	assert.Contains(t, buf.String(), "(no data)")
}

func TestScale(t *testing.T) {
	assert.Equal(t, 0, scale(0, 10, 60))
	assert.Equal(t, 1, scale(1, 1000, 60))
	assert.Equal(t, 60, scale(10, 10, 60))
	assert.Equal(t, 30, scale(5, 10, 60))
	assert.Equal(t, 0, scale(3, 0, 60))
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, IsTerminal(&bytes.Buffer{}))
}
