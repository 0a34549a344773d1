package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Failed to collect metrics: %v", err)
	}
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestRecordRequest(t *testing.T) {
	t.Run("records request count and duration per route and status", func(t *testing.T) {
		reader := sdkmetric.NewManualReader()
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

		metrics, err := NewMetrics(mp.Meter("test"))
		if err != nil {
			t.Fatalf("NewMetrics() failed: %v", err)
		}

		ctx := context.Background()
		metrics.RecordRequest(ctx, "POST", "/webhook", 200, 0.5)
		metrics.RecordRequest(ctx, "POST", "/webhook", 403, 0.01)

		got := collect(t, reader)

		counter, ok := got["http_requests_total"]
		if !ok {
			t.Fatal("http_requests_total metric not found")
		}
		sum, ok := counter.Data.(metricdata.Sum[int64])
		if !ok {
			t.Fatal("Expected Sum[int64] data type")
		}
		if len(sum.DataPoints) != 2 {
			t.Errorf("Expected 2 data points, got %d", len(sum.DataPoints))
		}

		latency, ok := got["http_request_duration_seconds"]
		if !ok {
			t.Fatal("http_request_duration_seconds metric not found")
		}
		histogram, ok := latency.Data.(metricdata.Histogram[float64])
		if !ok {
			t.Fatal("Expected Histogram[float64] data type")
		}
		if len(histogram.DataPoints) != 1 || histogram.DataPoints[0].Count != 2 {
			t.Errorf("Expected one data point with count 2, got %+v", histogram.DataPoints)
		}
	})
}

func TestRecordRejected(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	metrics, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() failed: %v", err)
	}

	metrics.RecordRejected(context.Background(), "signature")

	m, ok := collect(t, reader)["webhook_rejected_total"]
	if !ok {
		t.Fatal("webhook_rejected_total metric not found")
	}
	dp := m.Data.(metricdata.Sum[int64]).DataPoints[0]
	reason, _ := dp.Attributes.Value(attribute.Key("reason"))
	if reason.AsString() != "signature" || dp.Value != 1 {
		t.Errorf("unexpected data point %+v", dp)
	}
}

func TestWithMetricsUsesRoutePattern(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	metrics, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() failed: %v", err)
	}

	r := chi.NewRouter()
	r.Use(WithMetrics(metrics))
	r.Post("/hooks/{tenant}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/hooks/acme", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/hooks/globex", nil))

	m, ok := collect(t, reader)["http_requests_total"]
	if !ok {
		t.Fatal("http_requests_total metric not found")
	}
	points := m.Data.(metricdata.Sum[int64]).DataPoints
	if len(points) != 1 {
		t.Fatalf("expected both requests under one route, got %d points", len(points))
	}
	route, _ := points[0].Attributes.Value(attribute.Key("route"))
	if route.AsString() != "/hooks/{tenant}" {
		t.Errorf("unexpected route attribute %q", route.AsString())
	}
	status, _ := points[0].Attributes.Value(attribute.Key("status_code"))
	if status.AsInt64() != http.StatusNoContent {
		t.Errorf("unexpected status attribute %d", status.AsInt64())
	}
}
