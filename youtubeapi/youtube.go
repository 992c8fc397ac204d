// Package youtubeapi wraps the Google OAuth2 client config and the YouTube
// Data API for reading live chat. Access is either by API key (public
// streams) or by a stored OAuth token that the TokenStore persists so it can
// be refreshed and reused across runs.
package youtubeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/onnwee/chatpulse/config"
)

// Provider is the oauth_tokens provider key for YouTube.
const Provider = "youtube"

// ErrNoToken is returned when OAuth access is configured but no token has
// been stored yet (run the /auth/youtube/start flow first).
var ErrNoToken = errors.New("no youtube token stored")

type TokenStore interface {
	UpsertOAuthToken(ctx context.Context, provider string, accessToken string, refreshToken string, expiry time.Time, raw string) error
	GetOAuthToken(ctx context.Context, provider string) (accessToken string, refreshToken string, expiry time.Time, raw string, err error)
}

type Service struct {
	cfg   *config.Config
	db    TokenStore
	oauth *oauth2.Config
}

func New(cfg *config.Config, ts TokenStore) *Service {
	scopes := []string{yt.YoutubeReadonlyScope}
	if cfg.YTScopes != "" {
		// allow comma or space separated
		fields := strings.Fields(strings.ReplaceAll(cfg.YTScopes, ",", " "))
		if len(fields) > 0 {
			scopes = fields
		}
	}
	oauth := &oauth2.Config{
		ClientID:     cfg.YTClientID,
		ClientSecret: cfg.YTClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.YTRedirectURI,
		Scopes:       scopes,
	}
	return &Service{cfg: cfg, db: ts, oauth: oauth}
}

func (s *Service) AuthCodeURL(state string) string {
	return s.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token and stores it.
func (s *Service) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := s.store(ctx, tok); err != nil {
		return tok, err
	}
	return tok, nil
}

func (s *Service) store(ctx context.Context, tok *oauth2.Token) error {
	raw, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encode youtube token: %w", err)
	}
	if err := s.db.UpsertOAuthToken(ctx, Provider, tok.AccessToken, tok.RefreshToken, tok.Expiry, string(raw)); err != nil {
		return fmt.Errorf("store youtube token: %w", err)
	}
	return nil
}

// RefreshIfNeeded loads the stored token and refreshes it when it expires
// within two minutes. The refreshed token is written back to the store.
func (s *Service) RefreshIfNeeded(ctx context.Context) (*oauth2.Token, error) {
	access, refresh, expiry, raw, err := s.db.GetOAuthToken(ctx, Provider)
	if err != nil {
		return nil, err
	}
	if access == "" {
		return nil, ErrNoToken
	}
	var tok oauth2.Token
	if raw != "" {
		_ = json.Unmarshal([]byte(raw), &tok)
	}
	if tok.AccessToken == "" {
		tok.AccessToken = access
	}
	tok.RefreshToken = refresh
	tok.Expiry = expiry
	if time.Until(tok.Expiry) > 2*time.Minute {
		return &tok, nil
	}
	newTok, err := s.oauth.TokenSource(ctx, &tok).Token()
	if err != nil {
		return &tok, err
	}
	if err := s.store(ctx, newTok); err != nil {
		return newTok, err
	}
	return newTok, nil
}

// Client returns a YouTube API client authorised with the stored OAuth token.
func (s *Service) Client(ctx context.Context, opts ...option.ClientOption) (*yt.Service, error) {
	tok, err := s.RefreshIfNeeded(ctx)
	if err != nil {
		return nil, err
	}
	opts = append([]option.ClientOption{option.WithHTTPClient(s.oauth.Client(ctx, tok))}, opts...)
	return yt.NewService(ctx, opts...)
}

// NewClient picks the access mode from cfg: an API key when YT_API_KEY is set,
// otherwise the stored OAuth token (ts must be non-nil then).
func NewClient(ctx context.Context, cfg *config.Config, ts TokenStore, opts ...option.ClientOption) (*yt.Service, error) {
	if cfg.YTAPIKey != "" {
		return yt.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(cfg.YTAPIKey)}, opts...)...)
	}
	if ts == nil || cfg.YTClientID == "" {
		return nil, errors.New("youtube: set YT_API_KEY or YT_CLIENT_ID/YT_CLIENT_SECRET with a token store")
	}
	return New(cfg, ts).Client(ctx, opts...)
}
