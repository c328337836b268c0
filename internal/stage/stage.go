package stage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/classgrade/autograder/internal/extract"
	"github.com/classgrade/autograder/internal/logger"
	"github.com/classgrade/autograder/internal/storage"
	workererrors "github.com/classgrade/autograder/internal/worker_errors"
	"github.com/classgrade/autograder/internal/workspace"
)

var tracer = otel.Tracer(
	"github.com/classgrade/autograder/internal/stage",
)

// Name used when the testing path has no usable basename
const FallbackFilename = "test-file"

const archiveSuffix = ".zip"

type Format string

const (
	FormatSingleFile Format = "single_file"
	FormatArchive    Format = "archive"
)

// Test material as placed in a workspace tests directory
type Material struct {
	// Tests directory for archives, the written file for single files
	Path   string
	Format Format
	// Relative to the tests directory, slash separated
	Files []string
}

type Stager struct {
	downloader storage.Downloader
	extractor  extract.Extractor
}

func NewStager(downloader storage.Downloader, extractor extract.Extractor) *Stager {
	return &Stager{
		downloader: downloader,
		extractor:  extractor,
	}
}

// Archives are recognized by a case-sensitive .zip suffix
func FormatOf(testingPath string) Format {
	if strings.HasSuffix(testingPath, archiveSuffix) {
		return FormatArchive
	}

	return FormatSingleFile
}

// Fetches the test material at testingPath and places it in ws.TestsDir
func (s *Stager) Stage(ctx context.Context, testingPath string, ws *workspace.Workspace) (*Material, error) {
	format := FormatOf(testingPath)
	ctx, span := tracer.Start(ctx, "Stager.Stage", trace.WithAttributes(
		attribute.String("testingPath", testingPath),
		attribute.String("format", string(format)),
	))
	defer span.End()

	data, err := s.downloader.Download(ctx, testingPath)
	if err == nil && data == nil {
		err = errors.New("storage returned no data")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch test material")
		return nil, workererrors.JobErrorWrap(workererrors.ErrTestMaterialFetch, err)
	}
	span.SetAttributes(attribute.Int("size", len(data)))

	var material *Material
	switch format {
	case FormatArchive:
		material, err = s.stageArchive(ctx, data, ws)
	default:
		material, err = s.stageFile(testingPath, data, ws)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to stage test material")
		return nil, err
	}

	logger.Logger.DebugContext(ctx, "staged test material",
		"testingPath", testingPath,
		"format", material.Format,
		"files", len(material.Files),
	)
	span.SetAttributes(attribute.Int("files", len(material.Files)))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "staged test material")
	return material, nil
}

func (s *Stager) stageArchive(ctx context.Context, data []byte, ws *workspace.Workspace) (*Material, error) {
	// the temp archive lives in the job root so the container never sees it
	tmp, err := os.CreateTemp(ws.Root, "tests-*"+archiveSuffix)
	if err != nil {
		return nil, workererrors.JobErrorWrap(workererrors.ErrTestMaterialExtract, err)
	}
	defer func() {
		if err := os.Remove(tmp.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Logger.WarnContext(ctx, "failed to remove temporary archive",
				"path", tmp.Name(),
				"error", err,
			)
		}
	}()

	_, err = tmp.Write(data)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, workererrors.JobErrorWrap(
			workererrors.ErrTestMaterialExtract,
			fmt.Errorf("failed to write archive: %w", err),
		)
	}

	files, err := s.extractor.Extract(ctx, tmp.Name(), ws.TestsDir)
	if err != nil {
		return nil, workererrors.JobErrorWrap(workererrors.ErrTestMaterialExtract, err)
	}
	if files == nil {
		files = []string{}
	}

	return &Material{
		Path:   ws.TestsDir,
		Format: FormatArchive,
		Files:  files,
	}, nil
}

func (s *Stager) stageFile(testingPath string, data []byte, ws *workspace.Workspace) (*Material, error) {
	name := Filename(testingPath)
	dest := filepath.Join(ws.TestsDir, name)

	//nolint:gosec // G306: the grading container runs as an unprivileged user and must read tests
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return nil, workererrors.JobErrorWrap(workererrors.ErrTestMaterialFetch, err)
	}

	return &Material{
		Path:   dest,
		Format: FormatSingleFile,
		Files:  []string{name},
	}, nil
}

// Final segment of a storage path, or FallbackFilename if there is none
func Filename(testingPath string) string {
	name := path.Base(testingPath)
	switch name {
	case "", ".", "/", "..":
		return FallbackFilename
	}
	if !filepath.IsLocal(name) || strings.ContainsRune(name, '\\') {
		return FallbackFilename
	}

	return name
}
