package livechat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/onnwee/chatpulse/transcript"
)

// FileSink writes messages as transcript lines ("[ts] author: message").
type FileSink struct {
	w      *bufio.Writer
	closer io.Closer
	layout string
	loc    *time.Location
}

// NewFileSink writes to wc using the Go time layout (empty = transcript
// default). Timestamps are converted into loc when it is non-nil.
func NewFileSink(wc io.WriteCloser, layout string, loc *time.Location) *FileSink {
	return &FileSink{w: bufio.NewWriter(wc), closer: wc, layout: layout, loc: loc}
}

func (s *FileSink) Write(_ context.Context, m Message) error {
	rec := ToRecord(m)
	if s.loc != nil {
		rec.Timestamp = rec.Timestamp.In(s.loc)
	}
	if _, err := s.w.WriteString(transcript.FormatLine(rec, s.layout)); err != nil {
		return err
	}
	return s.w.WriteByte('\n')
}

// Close flushes buffered lines and closes the underlying writer.
func (s *FileSink) Close() error {
	ferr := s.w.Flush()
	cerr := s.closer.Close()
	if ferr != nil {
		return ferr
	}
	return cerr
}

// MemorySink keeps every captured message as a record, in order.
type MemorySink struct {
	mu      sync.Mutex
	records []transcript.ChatRecord
}

func (s *MemorySink) Write(_ context.Context, m Message) error {
	s.mu.Lock()
	s.records = append(s.records, ToRecord(m))
	s.mu.Unlock()
	return nil
}

func (s *MemorySink) Close() error { return nil }

// Records returns a copy of the collected records.
func (s *MemorySink) Records() []transcript.ChatRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]transcript.ChatRecord, len(s.records))
	copy(out, s.records)
	return out
}

// MessageStore persists captured messages. It uses primitive types so the db
// package does not need to import livechat.
type MessageStore interface {
	InsertChatMessage(ctx context.Context, sessionID, author, message string, ts time.Time) error
}

// StoreSink writes every message into a MessageStore under one session id.
type StoreSink struct {
	Store     MessageStore
	SessionID string
}

func (s *StoreSink) Write(ctx context.Context, m Message) error {
	// a message already received is persisted even if the capture is being cancelled
	if err := s.Store.InsertChatMessage(context.WithoutCancel(ctx), s.SessionID, m.Author, m.Text, m.Timestamp); err != nil {
		return fmt.Errorf("store chat message: %w", err)
	}
	return nil
}

func (s *StoreSink) Close() error { return nil }
