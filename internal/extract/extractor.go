package extract

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer(
	"github.com/classgrade/autograder/internal/extract",
)

var (
	ErrUnsafePath = errors.New("archive entry escapes output directory")
	ErrTooLarge   = errors.New("archive expands past size limit")
)

//go:generate mockgen -destination ./mock/mock.go -package mock . Extractor

// Extract an archive file to a directory, returning the relative paths of the files written
type Extractor interface {
	Extract(ctx context.Context, archivePath, outDir string) ([]string, error)
}
