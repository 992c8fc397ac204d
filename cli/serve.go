package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/onnwee/chatpulse/db"
	"github.com/onnwee/chatpulse/oauth"
	"github.com/onnwee/chatpulse/server"
	"github.com/onnwee/chatpulse/youtubeapi"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored sessions and their keyword tables over HTTP",
		Long: `Serve exposes /healthz, /readyz, /metrics, stored capture sessions
under /sessions and the YouTube OAuth flow under /auth/youtube.

The database schema is migrated on start. When YouTube OAuth is configured
the stored token is refreshed in the background.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			overrideString(cmd.Flags(), "addr", &a.cfg.HTTPAddr)
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().String("addr", "", "listen address (default $HTTP_ADDR or :8080)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg
	dbx, err := a.openDB(ctx)
	if err != nil {
		return err
	}
	defer closeDB(dbx)

	var flow server.OAuthFlow
	var refresherDone <-chan struct{}
	refreshCtx, cancelRefresh := context.WithCancel(ctx)
	defer cancelRefresh()
	if cfg.YouTubeOAuthEnabled() {
		ts, err := a.tokenStore(dbx)
		if err != nil {
			return err
		}
		svc := youtubeapi.New(cfg, ts)
		flow = server.YouTubeFlow{Service: svc}
		refresherDone = oauth.StartRefresher(refreshCtx, youtubeapi.Provider, cfg.OAuthRefreshInterval, func(rctx context.Context) error {
			_, err := svc.RefreshIfNeeded(rctx)
			if errors.Is(err, youtubeapi.ErrNoToken) {
				return oauth.ErrNotLinked
			}
			return err
		})
	} else {
		slog.Info("youtube oauth disabled (need YT_CLIENT_ID, YT_CLIENT_SECRET, YT_REDIRECT_URI)")
	}

	h := server.NewHandlers(&db.SessionStore{DB: dbx}, cfg, a.fs, flow)
	err = server.Start(ctx, server.NewMux(h), cfg.HTTPAddr)
	cancelRefresh()
	if refresherDone != nil {
		<-refresherDone
	}
	if err != nil {
		return err
	}
	slog.Info("shutting down")
	return nil
}
