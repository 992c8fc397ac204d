package server

import (
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/onnwee/chatpulse/telemetry"
)

const tracerName = "chatpulse/http"

// correlationMiddleware reuses or generates X-Correlation-ID, starts a span
// named after the matched route and records the response status on it.
func correlationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		corr := r.Header.Get("X-Correlation-ID")
		if corr == "" {
			corr = uuid.New().String()
		}
		ctx := telemetry.WithCorrelation(r.Context(), corr)
		w.Header().Set("X-Correlation-ID", corr)

		ctx, span := telemetry.StartSpan(ctx, tracerName, r.Method+" "+r.URL.Path,
			telemetry.HTTPAttrs(r.Method, r.URL.Path)...)
		defer span.End()

		telemetry.LoggerWithCorr(ctx).Debug("request start", slog.String("method", r.Method), slog.String("path", r.URL.Path), slog.String("component", "http"))

		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		r = r.WithContext(ctx)
		next.ServeHTTP(rec, r)

		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				span.SetName(r.Method + " " + pattern)
			}
		}
		telemetry.SetSpanHTTPStatus(span, rec.statusCode)
	})
}

// statusRecorder wraps ResponseWriter to capture status code
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

// Flush implements http.Flusher if the underlying ResponseWriter supports it
func (r *statusRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// corsPolicy decides which browser origins may read the API. In
// development (ENV unset, dev or development) every origin is allowed unless
// CORS_PERMISSIVE says otherwise; elsewhere only CORS_ALLOWED_ORIGINS.
type corsPolicy struct {
	allowAll bool
	// exact origins ("https://dash.example.com") or host patterns ("*.example.com")
	origins []string
}

func corsPolicyFromEnv() corsPolicy {
	env := strings.ToLower(os.Getenv("ENV"))
	p := corsPolicy{allowAll: env == "" || env == "dev" || env == "development"}
	if v := os.Getenv("CORS_PERMISSIVE"); v != "" {
		p.allowAll = v == "1" || v == "true"
	}
	for _, origin := range strings.Split(os.Getenv("CORS_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			p.origins = append(p.origins, origin)
		}
	}
	if !p.allowAll && len(p.origins) == 0 {
		slog.Warn("CORS restricted but CORS_ALLOWED_ORIGINS is empty; browser requests from other origins will fail")
	}
	return p
}

func (p corsPolicy) allows(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	host := u.Hostname()
	for _, allowed := range p.origins {
		if domain, ok := strings.CutPrefix(allowed, "*."); ok {
			if host == domain || strings.HasSuffix(host, "."+domain) {
				return true
			}
			continue
		}
		if origin == allowed {
			return true
		}
	}
	return false
}

// middleware sets CORS headers for the read-only API and answers preflight
// requests itself.
func (p corsPolicy) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		origin := r.Header.Get("Origin")
		switch {
		case p.allowAll:
			h.Set("Access-Control-Allow-Origin", "*")
		case origin != "" && p.allows(origin):
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
		}
		if h.Get("Access-Control-Allow-Origin") != "" {
			h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, X-Correlation-ID")
			h.Set("Access-Control-Expose-Headers", "X-Correlation-ID")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
