package app

import (
	"context"
	"log/slog"

	"github.com/dejobratic/reportwebhook/internal/reports/app/commands"
	"github.com/dejobratic/reportwebhook/internal/reports/domain"
	"github.com/dejobratic/reportwebhook/internal/reports/metrics"
	"github.com/dejobratic/reportwebhook/internal/reports/ports"
)

// Dependencies are the adapters behind the report pipeline.
type Dependencies struct {
	Source    ports.RecordSource
	Writer    ports.ArtifactWriter
	Publisher ports.ArtifactPublisher
	Ledger    ports.ArtifactLedger
	Notifier  ports.Notifier
}

// Service bundles the use cases reachable from the webhook.
type Service struct {
	generateReportHandler commands.CommandHandler
}

// NewService wires required dependencies.
func NewService(deps Dependencies, opts commands.Options, logger *slog.Logger, metrics *metrics.Metrics) *Service {
	coreHandler := commands.NewGenerateReportCommandHandler(
		deps.Source,
		deps.Writer,
		deps.Publisher,
		deps.Ledger,
		deps.Notifier,
		opts,
	)

	return &Service{
		generateReportHandler: commands.NewObservableCommandHandler(coreHandler, logger, metrics),
	}
}

// GenerateReport runs an authenticated order through fetch, export and publish.
func (s *Service) GenerateReport(ctx context.Context, order domain.OrderPayload) (domain.Outcome, error) {
	return s.generateReportHandler.Handle(ctx, commands.GenerateReportCommand{Order: order})
}
