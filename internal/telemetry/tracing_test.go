package telemetry

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func setupTracerProvider(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp)))
	t.Cleanup(func() { otel.SetTracerProvider(tracenoop.NewTracerProvider()) })
	return exp
}

func TestStartSpan(t *testing.T) {
	exp := setupTracerProvider(t)

	ctx, span := StartSpan(context.Background(), "RecordSource.Fetch", attribute.String("report.code", "C"))
	AddSpanAttributes(span, attribute.Int("report.rows", 2))
	AddSpanEvent(span, "query.done", attribute.Int("rows", 2))
	EndSpan(span, nil)

	if TraceID(ctx) == "" || SpanID(ctx) == "" {
		t.Error("expected trace and span ids in context")
	}

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	got := spans[0]
	if got.Name != "RecordSource.Fetch" {
		t.Errorf("unexpected span name %s", got.Name)
	}
	if got.Status.Code != codes.Ok {
		t.Errorf("expected Ok status, got %v", got.Status.Code)
	}
	if len(got.Attributes) != 2 {
		t.Errorf("expected 2 attributes, got %v", got.Attributes)
	}
	if len(got.Events) != 1 || got.Events[0].Name != "query.done" {
		t.Errorf("expected query.done event, got %v", got.Events)
	}
}

func TestEndSpanWithError(t *testing.T) {
	exp := setupTracerProvider(t)

	_, span := StartSpan(context.Background(), "ArtifactPublisher.Publish")
	EndSpan(span, errors.New("access denied"))

	got := exp.GetSpans()[0]
	if got.Status.Code != codes.Error {
		t.Errorf("expected Error status, got %v", got.Status.Code)
	}
	if got.Status.Description != "access denied" {
		t.Errorf("unexpected status description %q", got.Status.Description)
	}
	if len(got.Events) != 1 || got.Events[0].Name != "exception" {
		t.Errorf("expected recorded exception event, got %v", got.Events)
	}
}

func TestNilSpanHelpers(t *testing.T) {
	AddSpanAttributes(nil, attribute.String("k", "v"))
	AddSpanEvent(nil, "event")
	EndSpan(nil, errors.New("ignored"))
}

func TestIDsWithoutSpan(t *testing.T) {
	if TraceID(context.Background()) != "" {
		t.Error("expected empty trace id")
	}
	if SpanID(context.Background()) != "" {
		t.Error("expected empty span id")
	}
}
