package observability

import (
	"context"
	"testing"

	"wakeel/internal/config"
)

func TestSetupTracingDisabledNoOp(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Monitoring.Tracing.Enabled = false

	shutdown, err := SetupTracing(context.Background(), cfg)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if shutdown == nil {
		t.Fatal("expected non-nil shutdown function")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown error: %v", err)
	}
}

func TestEndpointHostParse(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"http://localhost:4317", "localhost:4317"},
		{"https://otel-collector:4317", "otel-collector:4317"},
		{"127.0.0.1:4317", "127.0.0.1:4317"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := endpointHost(tt.input); got != tt.expected {
				t.Errorf("endpointHost(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
