package upload

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/classgrade/autograder/internal/hash"
)

var tracer = otel.Tracer(
	"github.com/classgrade/autograder/internal/upload",
)

//go:generate mockgen -destination ./mock/mock.go -package mock . Uploader

// Write side of the object store used for diagnostics bundles
type Uploader interface {
	// Create / Overwrite object contents by `key`
	Upload(ctx context.Context, reader io.ReadSeeker, length int64, key string, contentType string) error
	// Check if an object exists (focused on preventing uploading the same bundle twice, not authoritative existence)
	//
	// May always return false
	Exists(ctx context.Context, key string) (bool, error)
	// Provide an identifier for where objects are being uploaded to. Useful for logging and auditing purposes.
	StoreIdentifier(ctx context.Context) (string, error)
}

// Uploads a buffer under `prefix` + the hash of the contents of `reader` (CAS)
//
// Will:
// 1. seek to 0 so only pass in a buffer you want completely uploaded
// 2. not upload if an object with the same hash already exists
func Hashed(
	ctx context.Context,
	u Uploader,
	reader io.ReadSeeker,
	length int64,
	prefix string,
	contentType string,
) (string, error) {
	ctx, span := tracer.Start(ctx, "UploadHashed")
	defer span.End()

	_, err := reader.Seek(0, io.SeekStart)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to seek to start")
		return "", err
	}

	digest, err := hash.Stream(ctx, reader, length)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to hash reader")
		return "", err
	}
	key := digest.Key(prefix)

	exists, err := u.Exists(ctx, key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to check if object exists")
		return "", err
	}

	if exists {
		span.RecordError(nil)
		span.SetStatus(codes.Ok, "found existing object")
		return key, nil
	}

	_, err = reader.Seek(0, io.SeekStart)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to seek to start")
		return "", err
	}

	err = u.Upload(ctx, reader, length, key, contentType)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to upload object")
		return "", err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "uploaded object by hash")
	return key, nil
}
