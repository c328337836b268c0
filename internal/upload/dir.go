package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Ensure DirUploader implements Uploader interface.
var _ Uploader = (*DirUploader)(nil)

// Local directory backed uploader, the write side of storage.DirDownloader
type DirUploader struct {
	root string
}

func NewDirUploader(root string) *DirUploader {
	return &DirUploader{root: root}
}

func (u *DirUploader) path(key string) (string, error) {
	rel := filepath.FromSlash(key)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("key %q escapes upload root", key)
	}

	return filepath.Join(u.root, rel), nil
}

func (u *DirUploader) Upload(
	ctx context.Context,
	reader io.ReadSeeker,
	length int64,
	key string,
	_ string,
) error {
	_, span := tracer.Start(ctx, "DirUploader.Upload", trace.WithAttributes(
		attribute.String("root", u.root),
		attribute.String("key", key),
		attribute.Int64("length", length),
	))
	defer span.End()

	dest, err := u.path(key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid key")
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create parent directory")
		return err
	}

	// write next to the destination and rename so readers never see a partial object
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".upload-*")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create temp file")
		return err
	}
	defer os.Remove(tmp.Name())

	_, err = io.CopyN(tmp, reader, length)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), dest)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write object")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "wrote object")
	return nil
}

func (u *DirUploader) Exists(ctx context.Context, key string) (bool, error) {
	_, span := tracer.Start(ctx, "DirUploader.Exists", trace.WithAttributes(
		attribute.String("key", key),
	))
	defer span.End()

	dest, err := u.path(key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid key")
		return false, err
	}

	_, err = os.Stat(dest)
	if errors.Is(err, fs.ErrNotExist) {
		span.RecordError(nil)
		span.SetStatus(codes.Ok, "did not find object")
		return false, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to stat object")
		return false, err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "found object")
	return true, nil
}

func (u *DirUploader) StoreIdentifier(_ context.Context) (string, error) {
	return u.root, nil
}
