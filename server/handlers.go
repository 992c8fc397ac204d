package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/onnwee/chatpulse/config"
	"github.com/onnwee/chatpulse/db"
	"github.com/onnwee/chatpulse/transcript"
	"github.com/onnwee/chatpulse/youtubeapi"
)

const (
	// Maximum number of OAuth states to keep in memory
	maxOAuthStates = 10000
)

// SessionStore is the read side of the session database.
type SessionStore interface {
	Ping(ctx context.Context) error
	ListSessions(ctx context.Context, limit int) ([]db.Session, error)
	GetSession(ctx context.Context, id string) (db.Session, error)
	ListChatMessages(ctx context.Context, sessionID string) ([]transcript.ChatRecord, error)
}

// OAuthFlow is the YouTube authorization code flow.
type OAuthFlow interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) error
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	store SessionStore
	cfg   *config.Config
	fs    afero.Fs
	yt    OAuthFlow

	stateStore map[string]time.Time
	stateMu    sync.Mutex
}

// NewHandlers creates a new Handlers instance. yt may be nil when the YouTube
// OAuth flow is not configured. fsys is used to read the default keyword file.
func NewHandlers(store SessionStore, cfg *config.Config, fsys afero.Fs, yt OAuthFlow) *Handlers {
	return &Handlers{
		store:      store,
		cfg:        cfg,
		fs:         fsys,
		yt:         yt,
		stateStore: make(map[string]time.Time),
	}
}

// YouTubeFlow adapts youtubeapi.Service to OAuthFlow.
type YouTubeFlow struct{ Service *youtubeapi.Service }

func (f YouTubeFlow) AuthCodeURL(state string) string { return f.Service.AuthCodeURL(state) }

func (f YouTubeFlow) Exchange(ctx context.Context, code string) error {
	_, err := f.Service.Exchange(ctx, code)
	return err
}

// cleanExpiredStates removes expired OAuth states from the store.
// This should be called with stateMu locked.
func (h *Handlers) cleanExpiredStates() {
	now := time.Now()
	for state, expiry := range h.stateStore {
		if now.After(expiry) {
			delete(h.stateStore, state)
		}
	}
}

// addOAuthState adds a new OAuth state to the store with cleanup if needed.
// It reports false when the store is full.
func (h *Handlers) addOAuthState(state string, expiry time.Time) bool {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	if len(h.stateStore)%100 == 0 {
		h.cleanExpiredStates()
	}
	if len(h.stateStore) >= maxOAuthStates {
		slog.Warn("oauth state store full; refusing new flow")
		return false
	}
	h.stateStore[state] = expiry
	return true
}

// consumeOAuthState removes state and reports whether it was valid.
func (h *Handlers) consumeOAuthState(state string) bool {
	h.stateMu.Lock()
	defer h.stateMu.Unlock()
	exp, ok := h.stateStore[state]
	delete(h.stateStore, state)
	return ok && time.Now().Before(exp)
}
