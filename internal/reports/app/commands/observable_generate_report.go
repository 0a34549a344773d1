package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/dejobratic/reportwebhook/internal/reports/domain"
	"github.com/dejobratic/reportwebhook/internal/reports/metrics"
	"github.com/dejobratic/reportwebhook/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableCommandHandler struct {
	handler CommandHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservableCommandHandler(handler CommandHandler, logger *slog.Logger, metrics *metrics.Metrics) *ObservableCommandHandler {
	return &ObservableCommandHandler{
		handler: handler,
		logger:  logger,
		metrics: metrics,
	}
}

func (o *ObservableCommandHandler) Handle(ctx context.Context, cmd GenerateReportCommand) (domain.Outcome, error) {
	ctx, span := telemetry.StartSpan(ctx, "GenerateReportCommand.Handle",
		attribute.String("order.id", cmd.Order.ID.String()),
		attribute.Int("order.line_items", len(cmd.Order.LineItems)),
	)

	start := time.Now()
	outcome, err := o.handler.Handle(ctx, cmd)
	o.metrics.RecordGenerationDuration(ctx, time.Since(start).Seconds())

	telemetry.AddSpanAttributes(span,
		attribute.String("report.stage", string(outcome.Stage)),
		attribute.String("report.code", outcome.Code),
	)

	if err != nil {
		o.metrics.RecordReport(ctx, "error")
		o.logger.ErrorContext(ctx, "report generation failed",
			"error", err,
			"order_id", cmd.Order.ID,
			"code", outcome.Code,
			"stage", outcome.Stage,
		)
		telemetry.EndSpan(span, err)
		return outcome, err
	}

	o.metrics.RecordReport(ctx, string(outcome.Status))
	telemetry.AddSpanAttributes(span, attribute.String("report.status", string(outcome.Status)))

	switch outcome.Status {
	case domain.StatusNoCode:
		o.logger.InfoContext(ctx, "no classification code in order",
			"order_id", cmd.Order.ID,
			"line_items", len(cmd.Order.LineItems),
		)
	case domain.StatusConflict:
		o.logger.WarnContext(ctx, "order already has a report for another code",
			"order_id", cmd.Order.ID,
			"code", outcome.Code,
		)
	case domain.StatusPartial:
		o.logger.WarnContext(ctx, "report exported but not published",
			"error", outcome.PublishErr,
			"order_id", cmd.Order.ID,
			"code", outcome.Code,
			"artifact", outcome.Artifact.Name,
		)
	default:
		o.logger.InfoContext(ctx, "report published",
			"order_id", cmd.Order.ID,
			"code", outcome.Code,
			"artifact", outcome.Artifact.Name,
			"rows", outcome.Artifact.Rows,
			"expires_at", outcome.Link.ExpiresAt,
		)
	}

	if outcome.NotifyErr != nil {
		o.logger.WarnContext(ctx, "failed to notify customer",
			"error", outcome.NotifyErr,
			"order_id", cmd.Order.ID,
		)
	}

	telemetry.EndSpan(span, nil)
	return outcome, nil
}
