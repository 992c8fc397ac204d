// Package telemetry holds the Prometheus collectors, correlation-id aware
// logging helpers and OpenTelemetry tracing shared by every command.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Pipeline counters
	LinesParsed    prometheus.Counter
	LinesMalformed prometheus.Counter
	WindowsEmitted prometheus.Counter
	PipelineRuns   prometheus.Counter
	PipelineFailed prometheus.Counter

	// Live capture
	MessagesCaptured *prometheus.CounterVec // label: platform
	ActiveCaptures   prometheus.Gauge

	// Histograms (seconds)
	PipelineDuration prometheus.Observer
	CaptureDuration  prometheus.Observer
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		LinesParsed = promauto.NewCounter(prometheus.CounterOpts{Name: "chatpulse_lines_parsed_total", Help: "Transcript lines parsed into chat records"})
		LinesMalformed = promauto.NewCounter(prometheus.CounterOpts{Name: "chatpulse_lines_malformed_total", Help: "Transcript lines skipped as malformed"})
		WindowsEmitted = promauto.NewCounter(prometheus.CounterOpts{Name: "chatpulse_windows_emitted_total", Help: "Non-empty time windows emitted into result tables"})
		PipelineRuns = promauto.NewCounter(prometheus.CounterOpts{Name: "chatpulse_pipeline_runs_total", Help: "Keyword pipeline runs started"})
		PipelineFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "chatpulse_pipeline_failed_total", Help: "Keyword pipeline runs that returned an error"})
		MessagesCaptured = promauto.NewCounterVec(prometheus.CounterOpts{Name: "chatpulse_live_messages_captured_total", Help: "Live chat messages captured"}, []string{"platform"})
		ActiveCaptures = promauto.NewGauge(prometheus.GaugeOpts{Name: "chatpulse_active_captures", Help: "Live chat captures currently running"})
		PipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "chatpulse_pipeline_duration_seconds", Help: "Keyword pipeline duration seconds", Buckets: prometheus.DefBuckets})
		CaptureDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "chatpulse_capture_duration_seconds", Help: "Live capture duration seconds", Buckets: []float64{60, 300, 900, 1800, 3600, 7200, 14400, 28800}})
	})
}

// AddLines records parsed and malformed line counts.
func AddLines(parsed, malformed int) {
	if LinesParsed != nil {
		LinesParsed.Add(float64(parsed))
	}
	if LinesMalformed != nil {
		LinesMalformed.Add(float64(malformed))
	}
}

// CaptureStarted bumps the active capture gauge and returns a func that undoes
// it and records the capture duration.
func CaptureStarted() func() {
	start := time.Now()
	if ActiveCaptures != nil {
		ActiveCaptures.Inc()
	}
	return func() {
		if ActiveCaptures != nil {
			ActiveCaptures.Dec()
		}
		if CaptureDuration != nil {
			CaptureDuration.Observe(time.Since(start).Seconds())
		}
	}
}

// CountCaptured increments the captured message counter for platform.
func CountCaptured(platform string) {
	if MessagesCaptured != nil {
		MessagesCaptured.WithLabelValues(platform).Inc()
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
