package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/onnwee/chatpulse/livechat"
)

// ircClient is the part of *twitch.Client the source drives.
type ircClient interface {
	OnPrivateMessage(func(twitch.PrivateMessage))
	Join(channels ...string)
	Connect() error
	Disconnect() error
}

// TwitchSource streams a Twitch channel's chat. The session id passed to
// Stream is the channel login.
type TwitchSource struct {
	Username   string
	OAuthToken string
	// Helix enables offline detection; nil streams until ctx is cancelled.
	Helix StreamChecker
	// PollEvery is the live status poll interval (default 30s).
	PollEvery time.Duration

	newClient func() ircClient
}

func (s *TwitchSource) Platform() string { return "twitch" }

func (s *TwitchSource) client() ircClient {
	if s.newClient != nil {
		return s.newClient()
	}
	if s.Username == "" || s.OAuthToken == "" {
		return twitch.NewAnonymousClient()
	}
	tok := s.OAuthToken
	if !strings.HasPrefix(tok, "oauth:") {
		tok = "oauth:" + tok
	}
	return twitch.NewClient(s.Username, tok)
}

// Stream joins channel and emits its messages until the stream ends or ctx is
// cancelled.
func (s *TwitchSource) Stream(ctx context.Context, channel string, emit func(livechat.Message) error) error {
	channel = strings.ToLower(strings.TrimPrefix(channel, "#"))
	if channel == "" {
		return errors.New("twitch: channel empty")
	}
	logger := slog.Default().With(slog.String("component", "twitch_chat"), slog.String("channel", channel))
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu      sync.Mutex
		emitErr error
		ended   bool
	)
	client := s.client()
	client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		mu.Lock()
		defer mu.Unlock()
		if emitErr != nil || runCtx.Err() != nil {
			return
		}
		if err := emit(toMessage(msg)); err != nil {
			emitErr = err
			cancel()
		}
	})

	var wg sync.WaitGroup
	if s.Helix != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if monitorOffline(runCtx, s.Helix, channel, s.PollEvery) {
				mu.Lock()
				ended = true
				mu.Unlock()
				logger.Info("channel went offline; ending capture")
				cancel()
			}
		}()
	}

	// Handle context cancellation by closing the client. Disconnect fails
	// until the connection is open, so keep trying until Connect returns.
	connDone := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-connDone:
			return
		case <-runCtx.Done():
		}
		for client.Disconnect() != nil {
			select {
			case <-connDone:
				return
			case <-time.After(100 * time.Millisecond):
			}
		}
	}()

	client.Join(channel)
	logger.Info("connecting to twitch chat", slog.Bool("anonymous", s.newClient == nil && (s.Username == "" || s.OAuthToken == "")))
	err := client.Connect()
	close(connDone)
	cancel()
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	switch {
	case emitErr != nil:
		return emitErr
	case ended:
		return livechat.ErrSessionEnded
	case ctx.Err() != nil:
		return ctx.Err()
	case err == nil, errors.Is(err, twitch.ErrClientDisconnected):
		return nil
	default:
		return err
	}
}

func toMessage(msg twitch.PrivateMessage) livechat.Message {
	ts := msg.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	author := msg.User.DisplayName
	if author == "" || strings.Contains(author, ":") {
		author = msg.User.Name
	}
	return livechat.Message{Timestamp: ts.UTC(), Author: author, Text: msg.Message}
}
