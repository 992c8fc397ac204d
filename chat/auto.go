package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/onnwee/chatpulse/twitchapi"
)

const defaultPollEvery = 30 * time.Second

// StreamChecker reports a channel's live streams; *twitchapi.HelixClient
// implements it.
type StreamChecker interface {
	GetStreams(ctx context.Context, login string) ([]twitchapi.Stream, error)
}

// WaitForLive polls until channel is live and returns its stream. every
// defaults to 30s (CHAT_AUTO_POLL_INTERVAL).
func WaitForLive(ctx context.Context, helix StreamChecker, channel string, every time.Duration) (twitchapi.Stream, error) {
	if every <= 0 {
		every = defaultPollEvery
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	slog.Info("auto chat: waiting for stream", slog.String("channel", channel), slog.Duration("interval", every))
	for {
		streams, err := helix.GetStreams(ctx, channel)
		switch {
		case err != nil:
			slog.Debug("auto chat: streams req", slog.Any("err", err))
		case len(streams) > 0:
			slog.Info("auto chat: stream live", slog.String("channel", channel), slog.String("title", streams[0].Title), slog.Time("started_at", streams[0].StartedAt))
			return streams[0], nil
		}
		select {
		case <-ctx.Done():
			return twitchapi.Stream{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// monitorOffline returns true once channel has been seen live and then
// reported offline, false when ctx ends first. Lookup errors are ignored
// so a flaky API does not end a capture.
func monitorOffline(ctx context.Context, helix StreamChecker, channel string, every time.Duration) bool {
	if every <= 0 {
		every = defaultPollEvery
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	seenLive := false
	for {
		streams, err := helix.GetStreams(ctx, channel)
		if err != nil {
			if ctx.Err() != nil {
				return false
			}
			slog.Debug("auto chat: streams req", slog.Any("err", err))
		} else if len(streams) > 0 {
			seenLive = true
		} else if seenLive {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}
