package analysis

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onnwee/chatpulse/fsio"
	"github.com/onnwee/chatpulse/report"
	"github.com/onnwee/chatpulse/transcript"
	"github.com/onnwee/chatpulse/window"
)

func opts(interval string, kws ...string) Options {
	return Options{Interval: window.MustParseInterval(interval), Keywords: kws}
}

func TestRunCountsAcrossMessages(t *testing.T) {
	lines := []string{
		"[2023-01-01 10:00:00] Alice: hello world",
		"[2023-01-01 10:00:10] Bob: WORLD peace",
	}
	res, err := Run(context.Background(), lines, opts("1 minute", "world"))
	require.NoError(t, err)
	require.Len(t, res.Table.Rows, 1)
	assert.Equal(t, time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC), res.Table.Rows[0].WindowStart)
	assert.Equal(t, []int{2}, res.Table.Rows[0].Counts)
	assert.Equal(t, "2023-01-01 10:00:00", report.FormatTime(res.Table.Rows[0].WindowStart, ""))
}

func TestRunSkipsMalformedLines(t *testing.T) {
	lines := []string{
		"not a valid chat line",
		"[2023-01-01 10:00:00] Alice: hello world",
	}
	res, err := Run(context.Background(), lines, opts("1T", "hello"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Records)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, KindMalformedLine, ClassifyError(res.Failures[0]))
	require.Len(t, res.Table.Rows, 1)
}

func TestRunStrictAbortsOnMalformedLine(t *testing.T) {
	lines := []string{"[2023-01-01 10:00:00] Alice: hi", "broken"}
	o := opts("1T", "hi")
	o.Strict = true
	_, err := Run(context.Background(), lines, o)
	require.Error(t, err)
	assert.Equal(t, KindMalformedLine, ClassifyError(err))
}

func TestRunOmitsEmptyWindows(t *testing.T) {
	lines := []string{
		"[2023-01-01 10:00:30] Alice: gg",
		"[2023-01-01 10:01:31] Bob: gg",
	}
	res, err := Run(context.Background(), lines, opts("1T", "gg"))
	require.NoError(t, err)
	require.Len(t, res.Table.Rows, 2)
	assert.Equal(t, time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC), res.Table.Rows[0].WindowStart)
	assert.Equal(t, time.Date(2023, 1, 1, 10, 1, 0, 0, time.UTC), res.Table.Rows[1].WindowStart)

	lines = []string{
		"[2023-01-01 10:00:30] Alice: gg",
		"[2023-01-01 10:05:00] Bob: gg",
	}
	res, err = Run(context.Background(), lines, opts("1T", "gg"))
	require.NoError(t, err)
	require.Len(t, res.Table.Rows, 2, "no zero rows between 10:00 and 10:05")
}

func TestRunEmptyTranscript(t *testing.T) {
	res, err := Run(context.Background(), nil, opts("4T", "a", "b"))
	require.NoError(t, err)
	assert.True(t, res.Empty())
	assert.True(t, res.Table.Empty())

	var buf bytes.Buffer
	require.NoError(t, report.WriteCSV(&buf, res.Table, ""))
	assert.Equal(t, "window_start,a,b\n", buf.String())
}

func TestRunKeepsDuplicateKeywords(t *testing.T) {
	lines := []string{"[2023-01-01 10:00:00] Alice: world world"}
	res, err := Run(context.Background(), lines, opts("1T", "world", "world"))
	require.NoError(t, err)
	assert.Equal(t, []string{"world", "world"}, res.Table.Keywords)
	require.Len(t, res.Table.Rows, 1)
	assert.Equal(t, []int{2, 2}, res.Table.Rows[0].Counts)
}

func TestRunUnsortedInputYieldsSortedTable(t *testing.T) {
	lines := []string{
		"[2023-01-01 10:09:00] Alice: b",
		"[2023-01-01 10:01:00] Bob: a",
		"[2023-01-01 10:05:00] Carol: c",
	}
	res, err := Run(context.Background(), lines, opts("4T", "a"))
	require.NoError(t, err)
	require.Len(t, res.Table.Rows, 3)
	for i := 1; i < len(res.Table.Rows); i++ {
		assert.True(t, res.Table.Rows[i-1].WindowStart.Before(res.Table.Rows[i].WindowStart))
	}
}

func TestRunIsIdempotent(t *testing.T) {
	lines := []string{
		"[2023-01-01 10:00:00] Alice: pog pog",
		"[2023-01-01 10:03:00] Bob: kekw",
		"junk",
		"[2023-01-01 10:07:59] Carol: POG kekw",
	}
	o := opts("4T", "pog", "kekw")
	first, err := Run(context.Background(), lines, o)
	require.NoError(t, err)
	second, err := Run(context.Background(), lines, o)
	require.NoError(t, err)
	assert.Equal(t, first.Table, second.Table)
}

func TestRunRequiresInterval(t *testing.T) {
	_, err := Run(context.Background(), nil, Options{Keywords: []string{"a"}})
	assert.True(t, errors.Is(err, window.ErrInvalidInterval))
	_, err = RunRecords(context.Background(), nil, Options{})
	assert.True(t, errors.Is(err, window.ErrInvalidInterval))
}

func TestRunRecords(t *testing.T) {
	ts := time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC)
	records := []transcript.ChatRecord{
		{Timestamp: ts, Author: "a", Message: "hype"},
		{Timestamp: ts.Add(time.Hour), Author: "b", Message: "HYPE hype"},
	}
	res, err := RunRecords(context.Background(), records, opts("1H", "hype"))
	require.NoError(t, err)
	require.Len(t, res.Table.Rows, 2)
	assert.Equal(t, []int{1, 2}, res.Table.Column(0))
}

func TestRunRecordsAlignsInLocation(t *testing.T) {
	ts := time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC)
	records := []transcript.ChatRecord{{Timestamp: ts, Author: "a", Message: "hype"}}
	o := opts("3H", "hype")
	o.Location = time.FixedZone("UTC-1", -60*60)

	res, err := RunRecords(context.Background(), records, o)
	require.NoError(t, err)
	require.Len(t, res.Table.Rows, 1)
	// 09:00 local starts a 3 hour window; in UTC the window would start at 09:00Z.
	start := res.Table.Rows[0].WindowStart
	assert.True(t, start.Equal(ts), "got %v", start)
	assert.Equal(t, o.Location, start.Location())
	assert.Equal(t, time.UTC, records[0].Timestamp.Location(), "input records are left untouched")
}

func TestLoadTranscript(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "chat.txt", []byte("[2023-01-01 10:00:00] Alice: hi\n"), 0o644))
	lines, err := LoadTranscript(fsys, "chat.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"[2023-01-01 10:00:00] Alice: hi"}, lines)

	_, err = LoadTranscript(fsys, "other.txt")
	assert.True(t, errors.Is(err, fsio.ErrMissingFile))
	assert.Equal(t, KindMissingFile, ClassifyError(err))
}
