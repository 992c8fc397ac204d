package window

import (
	"time"

	"github.com/onnwee/chatpulse/transcript"
)

// Window is the half-open interval [Start, End) and the records inside it,
// in their original order.
type Window struct {
	Start   time.Time
	End     time.Time
	Records []transcript.ChatRecord
}

// Bucket assigns every record to the window containing its timestamp and
// returns the non-empty windows in order of first appearance. Callers that
// need chronological order must sort.
func Bucket(records []transcript.ChatRecord, iv Interval) []Window {
	d := iv.Duration()
	index := make(map[windowKey]int)
	var out []Window
	for _, rec := range records {
		start := iv.Align(rec.Timestamp)
		key := windowKey{sec: start.Unix(), nsec: start.Nanosecond()}
		pos, ok := index[key]
		if !ok {
			pos = len(out)
			index[key] = pos
			out = append(out, Window{Start: start, End: start.Add(d)})
		}
		out[pos].Records = append(out[pos].Records, rec)
	}
	return out
}

// windowKey identifies a window start independent of location. UnixNano is
// undefined outside the years 1678 to 2262.
type windowKey struct {
	sec  int64
	nsec int
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}
