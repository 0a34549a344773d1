package ports

import (
	"context"

	"github.com/dejobratic/reportwebhook/internal/reports/domain"
)

// RecordSource looks up report records for a classification code.
// Failures wrap domain.ErrDataSource.
type RecordSource interface {
	Fetch(ctx context.Context, code string) ([]domain.ReportRecord, error)
}

// ArtifactWriter serializes records under a fixed name, replacing any
// previous artifact with that name. Failures wrap domain.ErrExport.
type ArtifactWriter interface {
	Export(ctx context.Context, records []domain.ReportRecord, name string) (domain.Artifact, error)
}

// ArtifactPublisher uploads an artifact and returns a pre-signed link to it.
// Failures wrap domain.ErrStorage or domain.ErrCredentials.
type ArtifactPublisher interface {
	Publish(ctx context.Context, artifact domain.Artifact) (domain.PublishedLink, error)
}

// Notifier tells the customer a report is ready.
type Notifier interface {
	NotifyReportReady(ctx context.Context, email string, orderID domain.OrderID, link domain.PublishedLink) error
}
