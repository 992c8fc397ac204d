// Package livechat defines the contract between live chat sources (YouTube,
// Twitch) and the rest of chatpulse, plus the sinks a capture writes to.
//
// A Source yields messages in order until the session ends. Capture fans each
// message out to sinks: a transcript file in the same line format the parser
// reads, an in-memory collector for immediate analysis, or the session store.
package livechat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/onnwee/chatpulse/telemetry"
	"github.com/onnwee/chatpulse/transcript"
)

// ErrSessionEnded is returned by sources that detect the end of a session
// through an error path. Capture treats it as a clean end.
var ErrSessionEnded = errors.New("live session ended")

// Message is one live chat message.
type Message struct {
	Timestamp time.Time
	Author    string
	Text      string
}

// ToRecord converts a live message into the record shape the pipeline uses.
func ToRecord(m Message) transcript.ChatRecord {
	return transcript.ChatRecord{Timestamp: m.Timestamp, Author: m.Author, Message: m.Text}
}

// Source streams a live chat session. Stream must call emit sequentially, in
// message order, and return when the session ends or ctx is cancelled. An
// error from emit must stop the stream and be returned.
type Source interface {
	Platform() string
	Stream(ctx context.Context, sessionID string, emit func(Message) error) error
}

// Sink receives captured messages.
type Sink interface {
	Write(ctx context.Context, m Message) error
	Close() error
}

// Capture streams sessionID from src into every sink and returns the number of
// messages captured. Sinks are closed before returning. Cancelling ctx ends the
// capture without error.
func Capture(ctx context.Context, src Source, sessionID string, sinks ...Sink) (n int, err error) {
	logger := slog.Default().With(slog.String("component", "live_capture"), slog.String("platform", src.Platform()), slog.String("session", sessionID))
	done := telemetry.CaptureStarted()
	defer done()
	defer func() {
		for _, s := range sinks {
			if cerr := s.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close sink: %w", cerr)
			}
		}
	}()

	logger.Info("live capture started")
	err = src.Stream(ctx, sessionID, func(m Message) error {
		for _, s := range sinks {
			if werr := s.Write(ctx, m); werr != nil {
				return fmt.Errorf("write message: %w", werr)
			}
		}
		n++
		telemetry.CountCaptured(src.Platform())
		if n%500 == 0 {
			logger.Debug("live capture progress", slog.Int("messages", n))
		}
		return nil
	})
	switch {
	case err == nil, errors.Is(err, ErrSessionEnded):
		err = nil
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		logger.Info("live capture cancelled")
		err = nil
	default:
		return n, fmt.Errorf("%s capture: %w", src.Platform(), err)
	}
	logger.Info("live capture finished", slog.Int("messages", n))
	return n, nil
}
