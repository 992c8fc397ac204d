package transcript

import (
	"strings"
	"time"
)

// TimestampLayout is the layout used when a record is written back out as a
// transcript line. It keeps sub-second precision when present.
const TimestampLayout = "2006-01-02 15:04:05.999999999"

// ChatRecord is one parsed chat message.
type ChatRecord struct {
	Timestamp time.Time
	Author    string
	Message   string
}

// FormatLine renders rec in transcript line form using the given Go time layout.
// An empty layout falls back to TimestampLayout.
func FormatLine(rec ChatRecord, layout string) string {
	if layout == "" {
		layout = TimestampLayout
	}
	var b strings.Builder
	b.Grow(len(rec.Author) + len(rec.Message) + len(layout) + 6)
	b.WriteByte('[')
	b.WriteString(rec.Timestamp.Format(layout))
	b.WriteString("] ")
	b.WriteString(rec.Author)
	b.WriteString(": ")
	b.WriteString(rec.Message)
	return b.String()
}
