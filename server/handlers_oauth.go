package server

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/onnwee/chatpulse/telemetry"
)

const oauthStateTTL = 10 * time.Minute

// HandleYouTubeOAuthStart initiates the YouTube OAuth flow.
func (h *Handlers) HandleYouTubeOAuthStart(w http.ResponseWriter, r *http.Request) {
	if h.yt == nil {
		writeError(w, http.StatusBadRequest, "youtube oauth not configured (need YT_CLIENT_ID, YT_CLIENT_SECRET, YT_REDIRECT_URI)")
		return
	}
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		writeError(w, http.StatusInternalServerError, "state gen error")
		return
	}
	st := hex.EncodeToString(b)
	if !h.addOAuthState(st, time.Now().Add(oauthStateTTL)) {
		writeError(w, http.StatusServiceUnavailable, "too many pending oauth flows")
		return
	}
	http.Redirect(w, r, h.yt.AuthCodeURL(st), http.StatusFound)
}

// HandleYouTubeOAuthCallback handles the OAuth callback from Google and stores tokens.
func (h *Handlers) HandleYouTubeOAuthCallback(w http.ResponseWriter, r *http.Request) {
	if h.yt == nil {
		writeError(w, http.StatusBadRequest, "youtube oauth not configured")
		return
	}
	code := r.URL.Query().Get("code")
	st := r.URL.Query().Get("state")
	if code == "" || st == "" {
		writeError(w, http.StatusBadRequest, "missing code/state")
		return
	}
	if !h.consumeOAuthState(st) {
		writeError(w, http.StatusBadRequest, "invalid state")
		return
	}
	if err := h.yt.Exchange(r.Context(), code); err != nil {
		telemetry.LoggerWithCorr(r.Context()).Error("youtube token exchange failed", "err", err)
		writeError(w, http.StatusBadGateway, "token exchange failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "provider": "youtube"})
}
