// Package testutil holds HTTP mocks for the Twitch and YouTube APIs and a
// Postgres helper for store tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
)

// MockServer routes requests by path to registered handlers and records the
// calls it receives.
type MockServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc

	mu      sync.Mutex
	calls   map[string]int
	queries map[string]url.Values
	headers map[string]http.Header
}

func newMockServer(t *testing.T) *MockServer {
	t.Helper()
	m := &MockServer{
		Handlers: make(map[string]http.HandlerFunc),
		calls:    make(map[string]int),
		queries:  make(map[string]url.Values),
		headers:  make(map[string]http.Header),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		m.mu.Lock()
		m.calls[key]++
		m.queries[key] = r.URL.Query()
		m.headers[key] = r.Header.Clone()
		handler, ok := m.Handlers[key]
		m.mu.Unlock()
		if ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// Handle registers h for path.
func (m *MockServer) Handle(path string, h http.HandlerFunc) {
	m.mu.Lock()
	m.Handlers[path] = h
	m.mu.Unlock()
}

// Calls returns how many requests hit path.
func (m *MockServer) Calls(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[path]
}

// LastQuery returns the query of the most recent request to path.
func (m *MockServer) LastQuery(path string) url.Values {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queries[path]
}

// LastHeader returns the headers of the most recent request to path.
func (m *MockServer) LastHeader(path string) http.Header {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.headers[path]
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // test mock response
}

// MockTwitchServer mocks the Twitch Helix and identity endpoints.
// Helix lives under /helix, the token endpoint at /oauth2/token.
type MockTwitchServer struct {
	*MockServer
}

// NewMockTwitchServer creates a new mock Twitch API server
func NewMockTwitchServer(t *testing.T) *MockTwitchServer {
	t.Helper()
	return &MockTwitchServer{MockServer: newMockServer(t)}
}

// MockUserResponse adds a handler for /helix/users endpoint
func (m *MockTwitchServer) MockUserResponse(userID, login string) {
	m.Handle("/helix/users", func(w http.ResponseWriter, r *http.Request) {
		data := []map[string]string{}
		if r.URL.Query().Get("login") == login {
			data = append(data, map[string]string{"id": userID, "login": login})
		}
		writeJSON(w, map[string]interface{}{"data": data})
	})
}

// MockEmptyUserResponse makes every /helix/users lookup miss.
func (m *MockTwitchServer) MockEmptyUserResponse() {
	m.Handle("/helix/users", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"data": []map[string]string{}})
	})
}

// MockStreamsResponse adds a handler for /helix/streams endpoint. A nil or
// empty slice reports the channel offline.
func (m *MockTwitchServer) MockStreamsResponse(streams []map[string]interface{}) {
	if streams == nil {
		streams = []map[string]interface{}{}
	}
	m.Handle("/helix/streams", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"data": streams})
	})
}

// MockOAuthTokenResponse adds a handler for OAuth token endpoint
func (m *MockTwitchServer) MockOAuthTokenResponse(accessToken string, expiresIn int) {
	m.Handle("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"access_token": accessToken,
			"expires_in":   expiresIn,
			"token_type":   "bearer",
		})
	})
}

// YouTube Data API paths served by MockYouTubeServer.
const (
	YouTubeVideosPath   = "/youtube/v3/videos"
	YouTubeLiveChatPath = "/youtube/v3/liveChat/messages"
)

// LiveChatPage is one response of the liveChatMessages.list mock.
type LiveChatPage struct {
	Messages  []LiveChatItem
	OfflineAt string
	// Status, when non-zero, is returned with a Google API error body
	// carrying Reason instead of a page.
	Status int
	Reason string
}

// LiveChatItem is one text message in a LiveChatPage.
type LiveChatItem struct {
	PublishedAt string
	Author      string
	Text        string
}

// MockYouTubeServer mocks the subset of the YouTube Data API v3 used for live
// chat capture. Point the client at it with option.WithEndpoint(URL + "/").
type MockYouTubeServer struct {
	*MockServer
}

// NewMockYouTubeServer creates a new mock YouTube API server.
func NewMockYouTubeServer(t *testing.T) *MockYouTubeServer {
	t.Helper()
	return &MockYouTubeServer{MockServer: newMockServer(t)}
}

// MockVideo answers videos.list for videoID with the given active chat id.
// An empty chatID reports a video without live chat.
func (m *MockYouTubeServer) MockVideo(videoID, chatID string) {
	m.Handle(YouTubeVideosPath, func(w http.ResponseWriter, r *http.Request) {
		items := []map[string]interface{}{}
		if r.URL.Query().Get("id") == videoID {
			details := map[string]interface{}{}
			if chatID != "" {
				details["activeLiveChatId"] = chatID
			}
			items = append(items, map[string]interface{}{
				"id":                   videoID,
				"liveStreamingDetails": details,
			})
		}
		writeJSON(w, map[string]interface{}{"items": items})
	})
}

// MockLiveChat serves pages in order; page i is returned for pageToken "p<i>"
// and the first page for an empty token. The last page has no next token.
func (m *MockYouTubeServer) MockLiveChat(pages ...LiveChatPage) {
	m.Handle(YouTubeLiveChatPath, func(w http.ResponseWriter, r *http.Request) {
		idx := 0
		if tok := r.URL.Query().Get("pageToken"); tok != "" {
			for i := range pages {
				if tok == pageToken(i) {
					idx = i
				}
			}
		}
		if idx >= len(pages) {
			writeJSON(w, map[string]interface{}{"items": []any{}})
			return
		}
		page := pages[idx]
		if page.Status != 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(page.Status)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck // test mock response
				"error": map[string]interface{}{
					"code":    page.Status,
					"message": page.Reason,
					"errors":  []map[string]string{{"reason": page.Reason, "message": page.Reason}},
				},
			})
			return
		}
		items := make([]map[string]interface{}, 0, len(page.Messages))
		for _, msg := range page.Messages {
			items = append(items, map[string]interface{}{
				"snippet": map[string]interface{}{
					"type":           "textMessageEvent",
					"publishedAt":    msg.PublishedAt,
					"displayMessage": msg.Text,
				},
				"authorDetails": map[string]interface{}{"displayName": msg.Author},
			})
		}
		body := map[string]interface{}{"items": items}
		if idx+1 < len(pages) {
			body["nextPageToken"] = pageToken(idx + 1)
		}
		if page.OfflineAt != "" {
			body["offlineAt"] = page.OfflineAt
		}
		writeJSON(w, body)
	})
}

func pageToken(i int) string {
	return "p" + strconv.Itoa(i)
}
