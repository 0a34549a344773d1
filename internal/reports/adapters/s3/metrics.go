package s3

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	uploadLatency metric.Float64Histogram
	uploadBytes   metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.uploadLatency, err = meter.Float64Histogram(
		"storage_upload_duration_seconds",
		metric.WithDescription("Artifact upload and link signing latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create storage_upload_duration histogram: %w", err)
	}

	m.uploadBytes, err = meter.Int64Counter(
		"storage_uploaded_bytes_total",
		metric.WithDescription("Bytes of artifacts successfully uploaded"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("create storage_uploaded_bytes counter: %w", err)
	}

	return m, nil
}

// RecordPublish records one publish attempt. status is "success",
// "credentials" or "error".
func (m *Metrics) RecordPublish(ctx context.Context, bucket string, durationSeconds float64, status string, bytes int64) {
	m.uploadLatency.Record(ctx, durationSeconds, metric.WithAttributes(
		attribute.String("bucket", bucket),
		attribute.String("status", status),
	))
	if status == "success" {
		m.uploadBytes.Add(ctx, bytes, metric.WithAttributes(
			attribute.String("bucket", bucket),
		))
	}
}
