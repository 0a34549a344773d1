package telemetry

import (
	"context"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type discardTraceExporter struct{}

func (discardTraceExporter) ExportSpans(context.Context, []sdktrace.ReadOnlySpan) error { return nil }
func (discardTraceExporter) Shutdown(context.Context) error                             { return nil }

type discardMetricExporter struct{}

func (discardMetricExporter) Temporality(sdkmetric.InstrumentKind) metricdata.Temporality {
	return metricdata.CumulativeTemporality
}

func (discardMetricExporter) Aggregation(sdkmetric.InstrumentKind) sdkmetric.Aggregation {
	return sdkmetric.AggregationDefault{}
}

func (discardMetricExporter) Export(context.Context, *metricdata.ResourceMetrics) error { return nil }
func (discardMetricExporter) ForceFlush(context.Context) error                          { return nil }
func (discardMetricExporter) Shutdown(context.Context) error                            { return nil }

// NewDiscardTraceExporter returns a span exporter that drops everything.
// Pass it to Initialize with WithTraceExporter to run the pipeline without
// a collector.
func NewDiscardTraceExporter() sdktrace.SpanExporter {
	return discardTraceExporter{}
}

// NewDiscardMetricExporter returns a metric exporter that drops everything.
func NewDiscardMetricExporter() sdkmetric.Exporter {
	return discardMetricExporter{}
}
