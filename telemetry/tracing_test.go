package telemetry

import (
	"context"
	"errors"
	"testing"
)

func TestInitTracingDisabledWithoutEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	shutdown, err := InitTracing("chatpulse-test", "0.0.0")
	if err != nil {
		t.Fatalf("InitTracing error: %v", err)
	}
	if shutdown == nil {
		t.Fatal("expected non-nil shutdown func")
	}
	shutdown()
}

func TestSampleRatio(t *testing.T) {
	tests := []struct {
		val  string
		want float64
	}{
		{"", 1},
		{"0.25", 0.25},
		{"2", 1},
		{"abc", 1},
	}
	for _, tt := range tests {
		t.Setenv("OTEL_TRACES_SAMPLER_ARG", tt.val)
		if got := sampleRatio(); got != tt.want {
			t.Errorf("sampleRatio(%q) = %v, want %v", tt.val, got, tt.want)
		}
	}
}

func TestSpanHelpersWithNoopProvider(t *testing.T) {
	ctx := WithCorrelation(context.Background(), "corr-1")
	_, span := StartSpan(ctx, "test", "op", HTTPAttrs("GET", "/healthz")...)
	RecordError(span, errors.New("boom"))
	RecordError(span, nil)
	SetSpanHTTPStatus(span, 503)
	SetSpanSuccess(span)
	span.End()
}

func TestTracingFromEnv(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "false")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.5")
	ts := tracingFromEnv()
	if ts.endpoint != "collector:4317" || ts.insecure || ts.sampleRatio != 0.5 {
		t.Fatalf("tracingFromEnv() = %+v", ts)
	}

	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "")
	if !tracingFromEnv().insecure {
		t.Fatal("insecure should default to true")
	}
}
