package adapters

import (
	"context"
	"time"

	"github.com/dejobratic/reportwebhook/internal/database"
	"github.com/dejobratic/reportwebhook/internal/reports/domain"
	"github.com/dejobratic/reportwebhook/internal/reports/ports"
	"github.com/dejobratic/reportwebhook/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableSource struct {
	source  ports.RecordSource
	metrics *database.Metrics
}

func NewObservableSource(source ports.RecordSource, metrics *database.Metrics) *ObservableSource {
	return &ObservableSource{
		source:  source,
		metrics: metrics,
	}
}

func (s *ObservableSource) Fetch(ctx context.Context, code string) ([]domain.ReportRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "RecordSource.Fetch",
		attribute.String("report.code", code),
		attribute.String("operation", "fetch_report"),
	)

	start := time.Now()
	records, err := s.source.Fetch(ctx, code)
	duration := time.Since(start).Seconds()

	s.metrics.RecordQuery(ctx, "fetch_report", duration, err == nil)
	if err == nil {
		s.metrics.RecordRows(ctx, "fetch_report", len(records))
		telemetry.AddSpanAttributes(span, attribute.Int("result.count", len(records)))
	}

	telemetry.EndSpan(span, err)
	return records, err
}
