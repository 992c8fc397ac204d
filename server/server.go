// Package server exposes the HTTP API: health, metrics, stored chat sessions
// and their keyword tables, and the YouTube OAuth flow. It injects
// correlation IDs into request contexts for consistent logging and wraps
// every request in a tracing span.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewMux returns the HTTP handler with all routes.
func NewMux(h *Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationMiddleware)
	r.Use(corsPolicyFromEnv().middleware)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", h.HandleHealthz)
	r.Get("/readyz", h.HandleReadyz)

	r.Get("/auth/youtube/start", h.HandleYouTubeOAuthStart)
	r.Get("/auth/youtube/callback", h.HandleYouTubeOAuthCallback)

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", h.HandleSessionsList)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleSessionGet)
			r.Get("/messages", h.HandleSessionMessages)
			r.Get("/keywords", h.HandleSessionKeywords)
			r.Get("/keywords.csv", h.HandleSessionKeywordsCSV)
		})
	})

	return otelhttp.NewHandler(r, "chatpulse-http",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// Start runs the HTTP server and shuts down gracefully on context cancellation.
func Start(ctx context.Context, handler http.Handler, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		// Use WithoutCancel to inherit context values but allow shutdown to complete
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", slog.Any("err", err))
		}
	}()

	slog.Info("http server listening", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("http server error", slog.Any("err", err))
		return err
	}
	<-shutdownDone
	return nil
}
