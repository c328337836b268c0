package storage

import (
	"context"
	"errors"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Ensure AzureDownloader implements Downloader interface.
var _ Downloader = (*AzureDownloader)(nil)

// Azure blob backed downloader
type AzureDownloader struct {
	az *azblob.Client
	// `container` in the storage account where the test bundles are stored
	container string
}

// `container` must be part of the storage account provided
func NewAzureDownloader(accountName, accountKey, serviceURL, container string) (*AzureDownloader, error) {
	if container == "" {
		return nil, errors.New("container is required")
	}

	cred, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, err
	}

	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, &azblob.ClientOptions{
		ClientOptions: policy.ClientOptions{
			Retry: policy.RetryOptions{
				RetryDelay: time.Second,
			},
		},
	})
	if err != nil {
		return nil, err
	}

	return NewAzureDownloaderFromClient(client, container), nil
}

// `container` must be part of the storage account provided
func NewAzureDownloaderFromClient(client *azblob.Client, container string) *AzureDownloader {
	return &AzureDownloader{
		az:        client,
		container: container,
	}
}

func (a *AzureDownloader) Download(ctx context.Context, path string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "AzureDownloader.Download", trace.WithAttributes(
		attribute.String("container", a.container),
		attribute.String("path", path),
	))
	defer span.End()

	res, err := a.az.DownloadStream(ctx, a.container, path, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to download blob")
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer res.Body.Close()

	data, err := readAll(res.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read blob")
		return nil, err
	}

	span.SetAttributes(attribute.Int("size", len(data)))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "downloaded blob")
	return data, nil
}
