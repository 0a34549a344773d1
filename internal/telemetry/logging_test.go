package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("failed to parse log line %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestLoggerAddsTraceContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, slog.LevelInfo)

	exp := tracetest.NewInMemoryExporter()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp)))
	defer otel.SetTracerProvider(tracenoop.NewTracerProvider())

	ctx, span := otel.Tracer("test").Start(context.Background(), "webhook")
	logger.InfoContext(ctx, "report published", "order_id", "4521")
	span.End()

	logger.InfoContext(context.Background(), "outside span")

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("expected 2 log lines, got %d", len(entries))
	}

	if entries[0]["trace_id"] != span.SpanContext().TraceID().String() {
		t.Errorf("expected trace_id %s, got %v", span.SpanContext().TraceID(), entries[0]["trace_id"])
	}
	if entries[0]["span_id"] != span.SpanContext().SpanID().String() {
		t.Errorf("expected span_id %s, got %v", span.SpanContext().SpanID(), entries[0]["span_id"])
	}
	if entries[0]["order_id"] != "4521" {
		t.Errorf("expected order_id attribute, got %v", entries[0]["order_id"])
	}

	if _, ok := entries[1]["trace_id"]; ok {
		t.Error("expected no trace_id outside a span")
	}
}

func TestLoggerRedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, slog.LevelDebug)

	logger.Info("config loaded",
		"wckey", "wc_live_123",
		"storage_secret_key", "abc",
		"redshift_password", "hunter2",
		"Signature", "deadbeef",
		"bucket", "reports",
	)
	logger.With("access_key_id", "AKIA").WithGroup("storage").Info("client ready", "secret", "x")

	out := buf.String()
	for _, leaked := range []string{"wc_live_123", "abc\"", "hunter2", "deadbeef", "AKIA", "\"x\""} {
		if strings.Contains(out, leaked) {
			t.Errorf("log output leaked %q: %s", leaked, out)
		}
	}

	entries := decodeLines(t, &buf)
	if entries[0]["bucket"] != "reports" {
		t.Errorf("expected non-sensitive attribute to pass through, got %v", entries[0]["bucket"])
	}
	if entries[0]["wckey"] != redacted {
		t.Errorf("expected wckey to be redacted, got %v", entries[0]["wckey"])
	}
	storage, ok := entries[1]["storage"].(map[string]any)
	if !ok {
		t.Fatalf("expected storage group, got %v", entries[1])
	}
	if storage["secret"] != redacted {
		t.Errorf("expected grouped secret to be redacted, got %v", storage["secret"])
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	tests := []struct {
		name      string
		level     slog.Level
		log       func(*slog.Logger)
		shouldLog bool
	}{
		{name: "info filters debug", level: slog.LevelInfo, log: func(l *slog.Logger) { l.Debug("d") }, shouldLog: false},
		{name: "info logs info", level: slog.LevelInfo, log: func(l *slog.Logger) { l.Info("i") }, shouldLog: true},
		{name: "warn filters info", level: slog.LevelWarn, log: func(l *slog.Logger) { l.Info("i") }, shouldLog: false},
		{name: "error logs error", level: slog.LevelError, log: func(l *slog.Logger) { l.Error("e") }, shouldLog: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(NewLoggerWithWriter(&buf, tt.level))
			if got := buf.Len() > 0; got != tt.shouldLog {
				t.Errorf("expected logged=%v, got %v", tt.shouldLog, got)
			}
		})
	}
}

func TestLoggerWithGroupsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, slog.LevelInfo).
		With("service", "report-webhook").
		WithGroup("request").
		With("id", "abc")

	logger.Info("handled", "status", 200)

	entries := decodeLines(t, &buf)
	if entries[0]["service"] != "report-webhook" {
		t.Errorf("expected top-level service attribute, got %v", entries[0])
	}
	group, ok := entries[0]["request"].(map[string]any)
	if !ok {
		t.Fatalf("expected request group, got %v", entries[0])
	}
	if group["id"] != "abc" || group["status"] != float64(200) {
		t.Errorf("unexpected group contents: %v", group)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		" error ": slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}

	for input, want := range tests {
		if got := ParseLevel(input); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}
