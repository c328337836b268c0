package upload

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Ensure RetryUploader implements Uploader interface.
var _ Uploader = (*RetryUploader)(nil)

// Diagnostics are archived while the job's caller waits, so the whole retry loop is capped
const maxArchiveWait = 10 * time.Second

// Meta uploader that retries the wrapped store's operations with backoff. Cancellation of
// the caller's context is never retried.
type RetryUploader struct {
	uploader Uploader
	backoff  func() retry.Backoff
}

func NewRetryUploaderBackoff(uploader Uploader, backoff func() retry.Backoff) *RetryUploader {
	return &RetryUploader{
		uploader: uploader,
		backoff:  backoff,
	}
}

// Same budget knobs as the test material downloader: storage.retry.max_retries and base_delay
func NewRetryUploader(uploader Uploader, maxRetries uint64, base time.Duration) *RetryUploader {
	if base <= 0 {
		base = 250 * time.Millisecond
	}

	return NewRetryUploaderBackoff(uploader, func() retry.Backoff {
		b := retry.NewExponential(base)
		b = retry.WithMaxRetries(maxRetries, b)
		return retry.WithMaxDuration(maxArchiveWait, b)
	})
}

// Ends the retry loop with the wrapped error
type permanent struct{ error }

func (p permanent) Unwrap() error { return p.error }

// Runs op under the backoff, one child span per attempt
func attempt[T any](ctx context.Context, r *RetryUploader, name string, op func(context.Context) (T, error)) (T, error) {
	ctx, span := tracer.Start(ctx, "RetryUploader."+name)
	defer span.End()

	var (
		value  T
		tries  int
		result error
	)
	result = retry.Do(ctx, r.backoff(), func(ctx context.Context) error {
		tries++
		//nolint:govet // shadow: intentionally shadow ctx and span to avoid using the incorrect one.
		ctx, span := tracer.Start(ctx, "RetryUploader."+name+".Retry")
		defer span.End()

		var (
			err  error
			stop permanent
		)
		value, err = op(ctx)
		switch {
		case err == nil:
			span.SetStatus(codes.Ok, "attempt succeeded")
			return nil
		case errors.As(err, &stop):
			span.RecordError(stop.error)
			span.SetStatus(codes.Error, "attempt cannot be repeated")
			return stop.error
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			span.RecordError(err)
			span.SetStatus(codes.Error, "caller gave up")
			return err
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, "attempt failed")
			return retry.RetryableError(err)
		}
	})
	span.SetAttributes(attribute.Int("attempts", tries))
	if result != nil {
		span.RecordError(result)
		span.SetStatus(codes.Error, name+" failed")
		var zero T
		return zero, result
	}

	span.SetStatus(codes.Ok, name+" succeeded")
	return value, nil
}

func (r *RetryUploader) Exists(ctx context.Context, key string) (bool, error) {
	return attempt(ctx, r, "Exists", func(ctx context.Context) (bool, error) {
		return r.uploader.Exists(ctx, key)
	})
}

func (r *RetryUploader) StoreIdentifier(ctx context.Context) (string, error) {
	return attempt(ctx, r, "StoreIdentifier", r.uploader.StoreIdentifier)
}

// reader is rewound before every attempt so a partial upload is never resumed mid-stream
func (r *RetryUploader) Upload(
	ctx context.Context,
	reader io.ReadSeeker,
	length int64,
	key string,
	contentType string,
) error {
	_, err := attempt(ctx, r, "Upload", func(ctx context.Context) (struct{}, error) {
		if _, err := reader.Seek(0, io.SeekStart); err != nil {
			return struct{}{}, permanent{err}
		}
		return struct{}{}, r.uploader.Upload(ctx, reader, length, key, contentType)
	})
	return err
}
