package youtubeapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	yt "google.golang.org/api/youtube/v3"

	"github.com/onnwee/chatpulse/livechat"
)

// ErrNoLiveChat is returned when a video has no active live chat.
var ErrNoLiveChat = errors.New("video has no active live chat")

const defaultMaxPoll = 30 * time.Second

// LiveChatSource streams a YouTube live chat by polling liveChatMessages.list.
// The session id passed to Stream is the video id.
type LiveChatSource struct {
	API *yt.Service
	// MinPoll and MaxPoll clamp the server-suggested polling interval.
	// Zero MaxPoll means 30s.
	MinPoll time.Duration
	MaxPoll time.Duration
}

func (s *LiveChatSource) Platform() string { return "youtube" }

// ActiveChatID looks up the live chat id of a video.
func (s *LiveChatSource) ActiveChatID(ctx context.Context, videoID string) (string, error) {
	resp, err := s.API.Videos.List([]string{"liveStreamingDetails"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("videos.list %s: %w", videoID, err)
	}
	if len(resp.Items) == 0 {
		return "", fmt.Errorf("video %s not found", videoID)
	}
	d := resp.Items[0].LiveStreamingDetails
	if d == nil || d.ActiveLiveChatId == "" {
		return "", fmt.Errorf("video %s: %w", videoID, ErrNoLiveChat)
	}
	return d.ActiveLiveChatId, nil
}

// Stream polls the chat of videoID until the broadcast goes offline, the chat
// ends, or ctx is cancelled.
func (s *LiveChatSource) Stream(ctx context.Context, videoID string, emit func(livechat.Message) error) error {
	if s.API == nil {
		return errors.New("youtube: nil api client")
	}
	chatID, err := s.ActiveChatID(ctx, videoID)
	if err != nil {
		return err
	}
	logger := slog.Default().With(slog.String("component", "youtube_chat"), slog.String("video", videoID))
	logger.Info("polling live chat", slog.String("chat_id", chatID))

	var pageToken string
	for {
		call := s.API.LiveChatMessages.List(chatID, []string{"snippet", "authorDetails"}).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if chatEnded(err) {
				return livechat.ErrSessionEnded
			}
			return fmt.Errorf("liveChatMessages.list: %w", err)
		}
		ended := false
		for _, item := range resp.Items {
			if item.Snippet == nil {
				continue
			}
			if item.Snippet.Type == "chatEndedEvent" {
				ended = true
				continue
			}
			m, ok := toMessage(item)
			if !ok {
				logger.Debug("skipping chat item", slog.String("id", item.Id), slog.String("type", item.Snippet.Type))
				continue
			}
			if err := emit(m); err != nil {
				return err
			}
		}
		if ended || resp.OfflineAt != "" || resp.NextPageToken == "" {
			logger.Info("live chat ended", slog.String("offline_at", resp.OfflineAt))
			return nil
		}
		pageToken = resp.NextPageToken

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.pollWait(resp.PollingIntervalMillis)):
		}
	}
}

func (s *LiveChatSource) pollWait(millis int64) time.Duration {
	wait := time.Duration(millis) * time.Millisecond
	maxPoll := s.MaxPoll
	if maxPoll <= 0 {
		maxPoll = defaultMaxPoll
	}
	if wait < s.MinPoll {
		wait = s.MinPoll
	}
	if wait > maxPoll {
		wait = maxPoll
	}
	return wait
}

func toMessage(item *yt.LiveChatMessage) (livechat.Message, bool) {
	ts, err := time.Parse(time.RFC3339Nano, item.Snippet.PublishedAt)
	if err != nil {
		return livechat.Message{}, false
	}
	author := ""
	if item.AuthorDetails != nil {
		author = item.AuthorDetails.DisplayName
	}
	// author names end at the first colon in transcript lines
	author = strings.TrimSpace(strings.ReplaceAll(author, ":", ""))
	if author == "" {
		return livechat.Message{}, false
	}
	text := strings.ReplaceAll(item.Snippet.DisplayMessage, "\n", " ")
	return livechat.Message{Timestamp: ts.UTC(), Author: author, Text: text}, true
}

func chatEnded(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	for _, e := range gerr.Errors {
		if e.Reason == "liveChatEnded" {
			return true
		}
	}
	return false
}
