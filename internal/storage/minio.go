package storage

import (
	"context"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Ensure MinioDownloader implements Downloader interface.
var _ Downloader = (*MinioDownloader)(nil)

// Minio (S3) backed downloader
type MinioDownloader struct {
	client *minio.Client
	bucket string
}

func NewMinioDownloader(
	endpoint, id, secret string,
	ssl bool,
	bucket string,
) (*MinioDownloader, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(id, secret, ""),
		Secure: ssl,
	})
	if err != nil {
		return nil, err
	}

	return &MinioDownloader{
		client: client,
		bucket: bucket,
	}, nil
}

func NewMinioDownloaderFromClient(client *minio.Client, bucket string) *MinioDownloader {
	return &MinioDownloader{
		client: client,
		bucket: bucket,
	}
}

func (d *MinioDownloader) Download(ctx context.Context, path string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "MinioDownloader.Download", trace.WithAttributes(
		attribute.String("bucket", d.bucket),
		attribute.String("path", path),
	))
	defer span.End()

	object, err := d.client.GetObject(ctx, d.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get object")
		return nil, translateMinioError(err)
	}
	defer object.Close()

	// GetObject is lazy, errors such as a missing key surface on the first read
	data, err := readAll(object)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read object")
		return nil, translateMinioError(err)
	}

	span.SetAttributes(attribute.Int("size", len(data)))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "downloaded object")
	return data, nil
}

func translateMinioError(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return ErrNotFound
	}

	return err
}
