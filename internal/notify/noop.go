// Package notify delivers "your report is ready" messages to customers.
package notify

import (
	"context"
	"log/slog"

	"github.com/dejobratic/reportwebhook/internal/reports/domain"
)

// NoopNotifier logs the notification instead of sending an email. Link
// delivery to the customer is not implemented yet.
type NoopNotifier struct {
	logger *slog.Logger
}

func NewNoopNotifier(logger *slog.Logger) *NoopNotifier {
	return &NoopNotifier{logger: logger}
}

func (n *NoopNotifier) NotifyReportReady(ctx context.Context, email string, orderID domain.OrderID, link domain.PublishedLink) error {
	n.logger.DebugContext(ctx, "notify::report_ready",
		"order_id", orderID,
		"has_email", email != "",
		"expires_at", link.ExpiresAt,
	)
	return nil
}
