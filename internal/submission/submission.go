package submission

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/classgrade/autograder/internal/validator"
	workererrors "github.com/classgrade/autograder/internal/worker_errors"
)

var tracer = otel.Tracer(
	"github.com/classgrade/autograder/internal/submission",
)

// Student source as written into a workspace
type Artifact struct {
	Path     string
	Filename string
	Size     int
}

type Writer struct{}

func NewWriter() *Writer {
	return &Writer{}
}

// Writes sourceCode to sourceDir/filename. The filename must be a bare local name.
func (w *Writer) Write(ctx context.Context, sourceCode, filename, sourceDir string) (*Artifact, error) {
	_, span := tracer.Start(ctx, "Writer.Write", trace.WithAttributes(
		attribute.String("filename", filename),
		attribute.Int("size", len(sourceCode)),
	))
	defer span.End()

	if !validator.ValidFilename(filename) {
		err := workererrors.JobErrorWrap(
			workererrors.ErrSubmissionWrite,
			fmt.Errorf("invalid submission filename %q", filename),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid filename")
		return nil, err
	}

	dest := filepath.Join(sourceDir, filename)
	//nolint:gosec // G306: the grading container runs as an unprivileged user and must read the submission
	if err := os.WriteFile(dest, []byte(sourceCode), 0o644); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write submission")
		return nil, workererrors.JobErrorWrap(workererrors.ErrSubmissionWrite, err)
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "wrote submission")
	return &Artifact{
		Path:     dest,
		Filename: filename,
		Size:     len(sourceCode),
	}, nil
}
