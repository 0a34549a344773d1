package commands

import (
	"context"
	"fmt"

	"github.com/dejobratic/reportwebhook/internal/reports/domain"
	"github.com/dejobratic/reportwebhook/internal/reports/ports"
)

type GenerateReportCommand struct {
	Order domain.OrderPayload
}

type CommandHandler interface {
	Handle(ctx context.Context, cmd GenerateReportCommand) (domain.Outcome, error)
}

type Options struct {
	// StrictPublish turns a publish failure into an error instead of a
	// partial outcome.
	StrictPublish bool
}

type GenerateReportCommandHandler struct {
	source    ports.RecordSource
	writer    ports.ArtifactWriter
	publisher ports.ArtifactPublisher
	ledger    ports.ArtifactLedger
	notifier  ports.Notifier
	opts      Options
}

func NewGenerateReportCommandHandler(
	source ports.RecordSource,
	writer ports.ArtifactWriter,
	publisher ports.ArtifactPublisher,
	ledger ports.ArtifactLedger,
	notifier ports.Notifier,
	opts Options,
) *GenerateReportCommandHandler {
	return &GenerateReportCommandHandler{
		source:    source,
		writer:    writer,
		publisher: publisher,
		ledger:    ledger,
		notifier:  notifier,
		opts:      opts,
	}
}

// Handle runs an authenticated, parsed order through the pipeline. A nil
// error always comes with a terminal Outcome; an error means the run must be
// answered with a server error.
func (h *GenerateReportCommandHandler) Handle(ctx context.Context, cmd GenerateReportCommand) (domain.Outcome, error) {
	order := cmd.Order
	outcome := domain.Outcome{OrderID: order.ID, Stage: domain.StageParsed}

	code, ok := domain.ExtractCode(order)
	if !ok {
		outcome.Stage = domain.StageCodeAbsent
		outcome.Status = domain.StatusNoCode
		return outcome, nil
	}
	outcome.Code = code
	outcome.Stage = domain.StageCodeFound

	name := domain.ArtifactName(order.ID)

	binding, err := h.ledger.Reserve(ctx, domain.LedgerEntry{
		OrderID:      order.ID,
		Code:         code,
		ArtifactName: name,
	})
	if err != nil {
		return outcome, fmt.Errorf("reserve ledger entry for order %s: %w", order.ID, err)
	}
	if binding.Code != code {
		outcome.Status = domain.StatusConflict
		return outcome, nil
	}

	records, err := h.source.Fetch(ctx, code)
	if err != nil {
		return outcome, err
	}
	outcome.Stage = domain.StageFetched

	artifact, err := h.writer.Export(ctx, records, name)
	if err != nil {
		return outcome, err
	}
	outcome.Stage = domain.StageExported
	outcome.Artifact = &artifact

	link, err := h.publisher.Publish(ctx, artifact)
	if err != nil {
		if h.opts.StrictPublish {
			return outcome, err
		}
		outcome.Status = domain.StatusPartial
		outcome.PublishErr = err
		return outcome, nil
	}
	outcome.Stage = domain.StagePublished
	outcome.Status = domain.StatusPublished
	outcome.Link = &link

	if order.Billing.Email != "" {
		outcome.NotifyErr = h.notifier.NotifyReportReady(ctx, order.Billing.Email, order.ID, link)
	}

	return outcome, nil
}
