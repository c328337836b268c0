package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	cp "github.com/otiai10/copy"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Ensure DirDownloader implements Downloader interface.
var _ Downloader = (*DirDownloader)(nil)

// Serves objects from a local directory tree, used for development and seeded test stores
type DirDownloader struct {
	root string
}

func NewDirDownloader(root string) *DirDownloader {
	return &DirDownloader{root: root}
}

func (d *DirDownloader) Root() string {
	return d.root
}

func (d *DirDownloader) Download(ctx context.Context, path string) ([]byte, error) {
	_, span := tracer.Start(ctx, "DirDownloader.Download", trace.WithAttributes(
		attribute.String("root", d.root),
		attribute.String("path", path),
	))
	defer span.End()

	rel := filepath.FromSlash(path)
	if !filepath.IsLocal(rel) {
		err := fmt.Errorf("path %q escapes storage root", path)
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid path")
		return nil, err
	}

	f, err := os.Open(filepath.Join(d.root, rel))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open file")
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to stat file")
		return nil, err
	}
	if !info.Mode().IsRegular() {
		err = fmt.Errorf("%q is not a regular file", path)
		span.RecordError(err)
		span.SetStatus(codes.Error, "not a regular file")
		return nil, err
	}

	data, err := readAll(f)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read file")
		return nil, err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "read file")
	return data, nil
}

// Copies a local tree of test bundles into the store. Symlinks are copied as the files they
// point to and dotfiles are skipped. Existing objects are overwritten.
func (d *DirDownloader) Seed(ctx context.Context, src string) error {
	_, span := tracer.Start(ctx, "DirDownloader.Seed", trace.WithAttributes(
		attribute.String("root", d.root),
		attribute.String("src", src),
	))
	defer span.End()

	info, err := os.Stat(src)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to stat source")
		return err
	}
	if !info.IsDir() {
		err = fmt.Errorf("%q is not a directory", src)
		span.RecordError(err)
		span.SetStatus(codes.Error, "source is not a directory")
		return err
	}

	err = cp.Copy(src, d.root, cp.Options{
		OnSymlink: func(string) cp.SymlinkAction {
			return cp.Deep
		},
		Skip: func(_ os.FileInfo, srcPath, _ string) (bool, error) {
			return srcPath != src && strings.HasPrefix(filepath.Base(srcPath), "."), nil
		},
		PermissionControl: cp.AddPermission(0o600),
		Sync:              true,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to copy tree")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "seeded store")
	return nil
}
