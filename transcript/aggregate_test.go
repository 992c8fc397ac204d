package transcript

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateSkipsMalformedLines(t *testing.T) {
	lines := []string{
		"not a valid chat line",
		"[2023-01-01 10:00:00] Alice: hello world",
	}
	res, err := Aggregate(lines, AggregateOptions{})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, 1, res.Failures[0].Line)
	assert.Equal(t, "not a valid chat line", res.Failures[0].Text)
	assert.True(t, errors.Is(res.Failures[0], ErrMalformedLine))
	assert.Equal(t, "Alice", res.Records[0].Author)
}

func TestAggregateStrict(t *testing.T) {
	lines := []string{
		"[2023-01-01 10:00:00] Alice: hello",
		"garbage",
		"[2023-01-01 10:00:05] Bob: hi",
	}
	res, err := Aggregate(lines, AggregateOptions{Strict: true})
	require.Error(t, err)
	var le *LineError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, 2, le.Line)
	assert.Len(t, res.Records, 1)
}

func TestAggregateKeepsDuplicateTimestamps(t *testing.T) {
	lines := []string{
		"[2023-01-01 10:00:00] Alice: first",
		"[2023-01-01 10:00:00] Bob: second",
		"[2023-01-01 10:00:00] Carol: third",
	}
	res, err := Aggregate(lines, AggregateOptions{})
	require.NoError(t, err)
	require.Len(t, res.Records, 3)
	assert.Equal(t, []string{"first", "second", "third"},
		[]string{res.Records[0].Message, res.Records[1].Message, res.Records[2].Message})
}

func TestAggregateIgnoresBlankLines(t *testing.T) {
	lines := []string{"", "[2023-01-01 10:00:00] Alice: hi\r", ""}
	res, err := Aggregate(lines, AggregateOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Failures)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "hi", res.Records[0].Message)
}

func TestAggregateEmpty(t *testing.T) {
	res, err := Aggregate(nil, AggregateOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Empty(t, res.Failures)
}

func TestReadLines(t *testing.T) {
	in := "[2023-01-01 10:00:00] Alice: hi\r\n[2023-01-01 10:00:01] Bob: yo\n"
	lines, err := ReadLines(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"[2023-01-01 10:00:00] Alice: hi", "[2023-01-01 10:00:01] Bob: yo"}, lines)
}
