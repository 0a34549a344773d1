package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	reportsTotal       metric.Int64Counter
	generationDuration metric.Float64Histogram
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.reportsTotal, err = meter.Int64Counter(
		"reports_generated_total",
		metric.WithDescription("Webhook deliveries handled by the report pipeline, by outcome"),
		metric.WithUnit("{report}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create reports_generated_total counter: %w", err)
	}

	m.generationDuration, err = meter.Float64Histogram(
		"report_generation_duration_seconds",
		metric.WithDescription("Duration of the fetch, export and publish pipeline"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create report_generation_duration histogram: %w", err)
	}

	return m, nil
}

// RecordReport counts one pipeline run. outcome is the final domain status,
// or "error" when the run failed.
func (m *Metrics) RecordReport(ctx context.Context, outcome string) {
	m.reportsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

func (m *Metrics) RecordGenerationDuration(ctx context.Context, durationSeconds float64) {
	m.generationDuration.Record(ctx, durationSeconds)
}
