package adapters

import (
	"context"
	"errors"
	"time"

	"github.com/dejobratic/reportwebhook/internal/reports/adapters/s3"
	"github.com/dejobratic/reportwebhook/internal/reports/domain"
	"github.com/dejobratic/reportwebhook/internal/reports/ports"
	"github.com/dejobratic/reportwebhook/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservablePublisher struct {
	publisher ports.ArtifactPublisher
	bucket    string
	metrics   *s3.Metrics
}

func NewObservablePublisher(publisher ports.ArtifactPublisher, bucket string, metrics *s3.Metrics) *ObservablePublisher {
	return &ObservablePublisher{
		publisher: publisher,
		bucket:    bucket,
		metrics:   metrics,
	}
}

func (p *ObservablePublisher) Publish(ctx context.Context, artifact domain.Artifact) (domain.PublishedLink, error) {
	ctx, span := telemetry.StartSpan(ctx, "ArtifactPublisher.Publish",
		attribute.String("storage.bucket", p.bucket),
		attribute.String("artifact.name", artifact.Name),
		attribute.Int64("artifact.size", artifact.Size),
	)

	start := time.Now()
	link, err := p.publisher.Publish(ctx, artifact)
	duration := time.Since(start).Seconds()

	status := "success"
	switch {
	case errors.Is(err, domain.ErrCredentials):
		status = "credentials"
	case err != nil:
		status = "error"
	}
	p.metrics.RecordPublish(ctx, p.bucket, duration, status, artifact.Size)

	telemetry.EndSpan(span, err)
	return link, err
}
