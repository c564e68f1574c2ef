package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
)

func TestSetupTracing_DisabledIsNoop(t *testing.T) {
	for _, exporter := range []string{"", "none", " NONE "} {
		shutdown, err := SetupTracing(context.Background(), TraceConfig{Exporter: exporter}, zerolog.Nop())
		if err != nil {
			t.Fatalf("exporter %q: %v", exporter, err)
		}
		if err := shutdown(context.Background()); err != nil {
			t.Fatalf("shutdown: %v", err)
		}
	}
}

func TestSetupTracing_RejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  TraceConfig
		want string
	}{
		{name: "otlp without endpoint", cfg: TraceConfig{Exporter: "otlp"}, want: "requires endpoint"},
		{name: "unknown exporter", cfg: TraceConfig{Exporter: "zipkin"}, want: "unsupported trace exporter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SetupTracing(context.Background(), tt.cfg, zerolog.Nop())
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestSetupTracing_StdoutExportsSpans(t *testing.T) {
	var out bytes.Buffer
	shutdown, err := SetupTracing(context.Background(), TraceConfig{
		ServiceName: "pixelflow-edge-test",
		Exporter:    "stdout",
		Output:      &out,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("setup tracing: %v", err)
	}

	_, span := otel.Tracer("test").Start(context.Background(), "pipeline.encode")
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if !strings.Contains(out.String(), "pipeline.encode") {
		t.Fatalf("expected exported span in output, got %q", out.String())
	}
}
