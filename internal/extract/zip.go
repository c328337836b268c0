package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Ensure ZipExtractor implements Extractor interface.
var _ Extractor = (*ZipExtractor)(nil)

const DefaultMaxExtractedBytes = 512 << 20

// .zip extractor
type ZipExtractor struct {
	maxBytes int64
}

func NewZipExtractor() *ZipExtractor {
	return &ZipExtractor{maxBytes: DefaultMaxExtractedBytes}
}

func NewZipExtractorWithLimit(maxBytes int64) *ZipExtractor {
	return &ZipExtractor{maxBytes: maxBytes}
}

func (e *ZipExtractor) Extract(ctx context.Context, archivePath, outDir string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "ZipExtractor.Extract", trace.WithAttributes(
		attribute.String("archivePath", archivePath),
		attribute.String("outDir", outDir),
	))
	defer span.End()

	info, err := os.Stat(outDir)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to stat output directory")
		return nil, err
	}
	if !info.IsDir() {
		err = fmt.Errorf("%s is not a directory", outDir)
		span.RecordError(err)
		span.SetStatus(codes.Error, "output is not a directory")
		return nil, err
	}

	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open zip")
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}
	defer reader.Close()

	written := []string{}
	var total int64
	for _, f := range reader.File {
		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "extraction canceled")
			return written, err
		}

		name := strings.TrimSuffix(f.Name, "/")
		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			continue
		}
		if !f.Mode().IsRegular() {
			// symlinks and devices never reach the grading container
			continue
		}

		rel := filepath.FromSlash(name)
		if !filepath.IsLocal(rel) {
			err = fmt.Errorf("%w: %q", ErrUnsafePath, f.Name)
			span.RecordError(err)
			span.SetStatus(codes.Error, "unsafe entry path")
			return written, err
		}

		n, err := e.extractFile(f, filepath.Join(outDir, rel), e.maxBytes-total)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to extract entry")
			return written, fmt.Errorf("failed to extract %q: %w", f.Name, err)
		}
		total += n
		written = append(written, filepath.ToSlash(rel))
	}

	span.SetAttributes(
		attribute.Int("files", len(written)),
		attribute.Int64("bytes", total),
	)
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "extracted zip")
	return written, nil
}

func (e *ZipExtractor) extractFile(f *zip.File, dest string, budget int64) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, err
	}

	src, err := f.Open()
	if err != nil {
		return 0, err
	}
	defer src.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, io.LimitReader(src, budget+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, err
	}
	if n > budget {
		return n, ErrTooLarge
	}

	return n, nil
}
