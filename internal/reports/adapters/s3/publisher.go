// Package s3 publishes report artifacts to S3-compatible object storage.
package s3

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/dejobratic/reportwebhook/internal/reports/domain"
)

const contentType = "text/csv; charset=utf-8"

// credentialErrorCodes are S3 error codes caused by the access keys
// themselves rather than by the bucket or the request.
var credentialErrorCodes = map[string]struct{}{
	"InvalidAccessKeyId":    {},
	"SignatureDoesNotMatch": {},
	"ExpiredToken":          {},
	"InvalidToken":          {},
	"InvalidClientTokenId":  {},
}

type Config struct {
	AccessKey    string
	SecretKey    string
	Region       string
	Endpoint     string
	UsePathStyle bool
	Bucket       string
	KeyPrefix    string
	LinkTTL      time.Duration
}

// NewClient builds an S3 client with static credentials. A custom endpoint
// selects an S3-compatible store such as MinIO.
func NewClient(ctx context.Context, cfg Config) (*s3.Client, error) {
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("%w: access key and secret key are required", domain.ErrCredentials)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: load aws config: %w", domain.ErrStorage, err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
			o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
		}
	}), nil
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type getPresigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Publisher uploads artifacts and hands out pre-signed GET links to them.
type Publisher struct {
	objects   objectPutter
	presigner getPresigner
	bucket    string
	prefix    string
	ttl       time.Duration
	now       func() time.Time
}

func NewPublisher(client *s3.Client, cfg Config) *Publisher {
	return &Publisher{
		objects:   client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		prefix:    cfg.KeyPrefix,
		ttl:       cfg.LinkTTL,
		now:       time.Now,
	}
}

func (p *Publisher) Bucket() string {
	return p.bucket
}

// Key returns the object key used for an artifact.
func (p *Publisher) Key(artifact domain.Artifact) string {
	if p.prefix == "" {
		return artifact.Name
	}
	return path.Join(p.prefix, artifact.Name)
}

// Publish uploads the artifact file and, only once the upload succeeded,
// signs a GET link valid for the configured TTL.
func (p *Publisher) Publish(ctx context.Context, artifact domain.Artifact) (domain.PublishedLink, error) {
	if err := p.upload(ctx, artifact); err != nil {
		return domain.PublishedLink{}, err
	}
	return p.presign(ctx, artifact)
}

func (p *Publisher) upload(ctx context.Context, artifact domain.Artifact) error {
	f, err := os.Open(artifact.Path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", domain.ErrStorage, artifact.Name, err)
	}
	defer f.Close()

	input := &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(p.Key(artifact)),
		Body:          f,
		ContentLength: aws.Int64(artifact.Size),
		ContentType:   aws.String(contentType),
	}
	if artifact.Checksum != "" {
		input.Metadata = map[string]string{"blake3": artifact.Checksum}
	}

	if _, err := p.objects.PutObject(ctx, input); err != nil {
		return classify(fmt.Sprintf("upload %s", artifact.Name), err)
	}
	return nil
}

func (p *Publisher) presign(ctx context.Context, artifact domain.Artifact) (domain.PublishedLink, error) {
	issuedAt := p.now()

	req, err := p.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(p.Key(artifact)),
	}, s3.WithPresignExpires(p.ttl))
	if err != nil {
		return domain.PublishedLink{}, classify(fmt.Sprintf("presign %s", artifact.Name), err)
	}

	return domain.PublishedLink{
		URL:       req.URL,
		ExpiresAt: issuedAt.Add(p.ttl).UTC(),
	}, nil
}

func classify(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if _, ok := credentialErrorCodes[apiErr.ErrorCode()]; ok {
			return fmt.Errorf("%w: %s: %w", domain.ErrCredentials, op, err)
		}
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrStorage, op, err)
}
