// Package store uploads rendered table artifacts to S3-compatible object
// storage under a fixed prefix.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectPutter is the slice of the S3 client the uploader needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader publishes CSV artifacts to a bucket.
type Uploader struct {
	client ObjectPutter
	bucket string
	prefix string
	logger *slog.Logger
}

// NewUploader builds an Uploader using the ambient AWS credential chain.
func NewUploader(ctx context.Context, bucket, prefix string, logger *slog.Logger) (*Uploader, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewUploaderWithClient(s3.NewFromConfig(awsCfg), bucket, prefix, logger), nil
}

// NewUploaderWithClient builds an Uploader around an existing client.
// Tests inject a fake ObjectPutter here.
func NewUploaderWithClient(client ObjectPutter, bucket, prefix string, logger *slog.Logger) *Uploader {
	return &Uploader{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: logger,
	}
}

// UploadCSV writes one CSV artifact under the configured prefix and returns
// the object key.
func (u *Uploader) UploadCSV(ctx context.Context, name, payload string) (string, error) {
	key := path.Join(u.prefix, name)

	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(payload),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	u.logger.InfoContext(ctx, "artifact uploaded",
		slog.String("bucket", u.bucket),
		slog.String("key", key),
		slog.Int("bytes", len(payload)))

	return key, nil
}
