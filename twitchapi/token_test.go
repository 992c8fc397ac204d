package twitchapi

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/onnwee/chatpulse/testutil"
)

func TestTokenSource_GetCached(t *testing.T) {
	m := testutil.NewMockTwitchServer(t)
	m.MockOAuthTokenResponse("test-token-123", 3600)
	ts := &TokenSource{ClientID: "test-client", ClientSecret: "test-secret", TokenURL: m.URL + "/oauth2/token"}

	ctx := context.Background()
	token1, err := ts.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if token1 != "test-token-123" {
		t.Errorf("Get() = %s, want test-token-123", token1)
	}
	token2, err := ts.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if token2 != token1 {
		t.Errorf("cached token = %s, want %s", token2, token1)
	}
	if got := m.Calls("/oauth2/token"); got != 1 {
		t.Errorf("expected 1 API call, got %d", got)
	}
}

func TestTokenSource_RefreshNearExpiry(t *testing.T) {
	m := testutil.NewMockTwitchServer(t)
	// inside the expiry buffer, so every Get refetches
	m.MockOAuthTokenResponse("short-lived", 30)
	ts := &TokenSource{ClientID: "c", ClientSecret: "s", TokenURL: m.URL + "/oauth2/token"}

	for i := 0; i < 3; i++ {
		if _, err := ts.Get(context.Background()); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
	}
	if got := m.Calls("/oauth2/token"); got != 3 {
		t.Errorf("expected 3 API calls, got %d", got)
	}
}

func TestTokenSource_Concurrent(t *testing.T) {
	m := testutil.NewMockTwitchServer(t)
	m.MockOAuthTokenResponse("shared", 3600)
	ts := &TokenSource{ClientID: "c", ClientSecret: "s", TokenURL: m.URL + "/oauth2/token"}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if tok, err := ts.Get(context.Background()); err != nil || tok != "shared" {
				t.Errorf("Get() = %q, %v", tok, err)
			}
		}()
	}
	wg.Wait()
	if got := m.Calls("/oauth2/token"); got != 1 {
		t.Errorf("expected a single token fetch, got %d", got)
	}
}

func TestTokenSource_Errors(t *testing.T) {
	t.Run("missing credentials", func(t *testing.T) {
		ts := &TokenSource{}
		if _, err := ts.Get(context.Background()); err == nil || !strings.Contains(err.Error(), "missing client id/secret") {
			t.Errorf("Get() error = %v", err)
		}
	})
	t.Run("non-200", func(t *testing.T) {
		m := testutil.NewMockTwitchServer(t)
		m.Handlers["/oauth2/token"] = func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "invalid client", http.StatusBadRequest)
		}
		ts := &TokenSource{ClientID: "c", ClientSecret: "s", TokenURL: m.URL + "/oauth2/token"}
		if _, err := ts.Get(context.Background()); err == nil || !strings.Contains(err.Error(), "invalid client") {
			t.Errorf("Get() error = %v", err)
		}
	})
	t.Run("empty token", func(t *testing.T) {
		m := testutil.NewMockTwitchServer(t)
		m.MockOAuthTokenResponse("", 3600)
		ts := &TokenSource{ClientID: "c", ClientSecret: "s", TokenURL: m.URL + "/oauth2/token"}
		if _, err := ts.Get(context.Background()); err == nil {
			t.Error("expected error for empty access_token")
		}
	})
}

func TestTokenSource_Invalidate(t *testing.T) {
	m := testutil.NewMockTwitchServer(t)
	m.MockOAuthTokenResponse("tok", 3600)
	ts := &TokenSource{ClientID: "c", ClientSecret: "s", TokenURL: m.URL + "/oauth2/token"}
	_, _ = ts.Get(context.Background())
	ts.Invalidate()
	_, _ = ts.Get(context.Background())
	if got := m.Calls("/oauth2/token"); got != 2 {
		t.Errorf("expected 2 token fetches, got %d", got)
	}
}
