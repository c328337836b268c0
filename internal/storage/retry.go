package storage

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel/codes"
)

// Ensure RetryDownloader implements Downloader interface.
var _ Downloader = (*RetryDownloader)(nil)

// Meta downloader that wraps downloads in backoff loops. ErrNotFound is never retried.
type RetryDownloader struct {
	downloader Downloader
	backoff    func() retry.Backoff
}

func NewRetryDownloaderBackoff(downloader Downloader, backoff func() retry.Backoff) *RetryDownloader {
	return &RetryDownloader{
		downloader: downloader,
		backoff:    backoff,
	}
}

// Grading is latency sensitive so the retry budget is small
func NewRetryDownloader(downloader Downloader, maxRetries uint64, base time.Duration) *RetryDownloader {
	if base <= 0 {
		base = 250 * time.Millisecond
	}

	return &RetryDownloader{
		downloader: downloader,
		backoff: func() retry.Backoff {
			b := retry.NewExponential(base)
			b = retry.WithMaxRetries(maxRetries, b)
			return b
		},
	}
}

func (r *RetryDownloader) Download(ctx context.Context, path string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "RetryDownloader.Download")
	defer span.End()

	var data []byte
	err := retry.Do(ctx, r.backoff(), func(ctx context.Context) error {
		//nolint:govet // shadow: intentionally shadow ctx and span to avoid using the incorrect one.
		ctx, span := tracer.Start(ctx, "RetryDownloader.Download.Retry")
		defer span.End()

		var err error
		data, err = r.downloader.Download(ctx, path)
		if errors.Is(err, ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "object not found")
			return err
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to download")
			return retry.RetryableError(err)
		}

		span.RecordError(nil)
		span.SetStatus(codes.Ok, "successfully retried")
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to download")
		return nil, err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "downloaded")
	return data, nil
}
