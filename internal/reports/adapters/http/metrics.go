package http

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	requestDuration metric.Float64Histogram
	requestsTotal   metric.Int64Counter
	rejectedTotal   metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.requestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_request_duration histogram: %w", err)
	}

	m.requestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_requests_total counter: %w", err)
	}

	m.rejectedTotal, err = meter.Int64Counter(
		"webhook_rejected_total",
		metric.WithDescription("Webhook deliveries rejected before reaching the pipeline"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create webhook_rejected_total counter: %w", err)
	}

	return m, nil
}

// RecordRequest records one request. route is the matched chi pattern, not
// the raw path, to keep cardinality bounded.
func (m *Metrics) RecordRequest(ctx context.Context, method, route string, statusCode int, durationSeconds float64) {
	m.requestsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status_code", statusCode),
	))
	m.requestDuration.Record(ctx, durationSeconds, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
	))
}

// RecordRejected counts a delivery stopped at the HTTP boundary. reason is
// one of "unconfigured", "too_large", "signature" or "parse".
func (m *Metrics) RecordRejected(ctx context.Context, reason string) {
	m.rejectedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}
