package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/classgrade/autograder/internal/logger"
	workererrors "github.com/classgrade/autograder/internal/worker_errors"
)

var tracer = otel.Tracer("github.com/classgrade/autograder/internal/workspace")

const (
	rootPrefix = "autograder-"

	SourceDirName  = "source"
	TestsDirName   = "tests"
	ResultsDirName = "results"
)

// Isolated directory tree owned by exactly one grading job
type Workspace struct {
	destroyOnce sync.Once
	Root        string
	SourceDir   string
	TestsDir    string
	ResultsDir  string
	ID          uuid.UUID
}

// Allocates and tears down job workspaces under a base directory
type Manager struct {
	baseDir string
}

// `baseDir` must exist. An empty `baseDir` uses the system temp dir.
func NewManager(baseDir string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}

	return &Manager{baseDir: baseDir}
}

// Creates a fresh, uniquely named root with source, tests and results subdirectories.
//
// The root name comes from a random uuid and is created with a plain mkdir, so a collision
// fails instead of silently sharing a directory with another job.
func (m *Manager) Create(ctx context.Context) (*Workspace, error) {
	ctx, span := tracer.Start(ctx, "Manager.Create", trace.WithAttributes(
		attribute.String("baseDir", m.baseDir),
	))
	defer span.End()

	id, err := uuid.NewRandom()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to generate workspace id")
		return nil, workererrors.JobErrorWrap(workererrors.ErrWorkspaceAllocation, err)
	}

	root := filepath.Join(m.baseDir, rootPrefix+id.String())
	if err := os.Mkdir(root, 0o700); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create workspace root")
		return nil, workererrors.JobErrorWrap(workererrors.ErrWorkspaceAllocation, err)
	}

	ws := &Workspace{
		ID:         id,
		Root:       root,
		SourceDir:  filepath.Join(root, SourceDirName),
		TestsDir:   filepath.Join(root, TestsDirName),
		ResultsDir: filepath.Join(root, ResultsDirName),
	}

	for _, dir := range []string{ws.SourceDir, ws.TestsDir, ws.ResultsDir} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to create workspace subdirectory")
			m.Destroy(ctx, ws)
			return nil, workererrors.JobErrorWrap(workererrors.ErrWorkspaceAllocation, err)
		}
	}

	// The grading image may run as an unprivileged user and must be able to write its results.
	// Chmod is explicit so the process umask does not matter.
	if err := os.Chmod(ws.ResultsDir, 0o777); err != nil { //nolint:gosec // G302: container user is unknown
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open up results directory")
		m.Destroy(ctx, ws)
		return nil, workererrors.JobErrorWrap(workererrors.ErrWorkspaceAllocation, err)
	}
	if err := os.Chmod(root, 0o755); err != nil { //nolint:gosec // G302: mounted into the container
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to set workspace root permissions")
		m.Destroy(ctx, ws)
		return nil, workererrors.JobErrorWrap(workererrors.ErrWorkspaceAllocation, err)
	}

	span.SetAttributes(attribute.String("workspace.id", id.String()))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "created workspace")
	return ws, nil
}

// Removes the workspace tree. Safe to call any number of times and never fails;
// removal problems are logged because this also runs while unwinding other failures.
func (m *Manager) Destroy(ctx context.Context, ws *Workspace) {
	if ws == nil {
		return
	}

	ws.destroyOnce.Do(func() {
		ctx, span := tracer.Start(ctx, "Manager.Destroy", trace.WithAttributes(
			attribute.String("workspace.id", ws.ID.String()),
		))
		defer span.End()

		if err := os.RemoveAll(ws.Root); err != nil {
			logger.Logger.WarnContext(
				ctx,
				"failed to remove workspace",
				"workspace.id",
				ws.ID.String(),
				"path",
				ws.Root,
				"error",
				err,
			)
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to remove workspace")
			return
		}

		span.RecordError(nil)
		span.SetStatus(codes.Ok, "removed workspace")
	})
}

// Checks that the three subdirectories exist and do not overlap
func (w *Workspace) Validate() error {
	dirs := []string{w.SourceDir, w.TestsDir, w.ResultsDir}
	for i, dir := range dirs {
		info, err := os.Stat(dir)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("%s is not a directory", dir)
		}

		for _, other := range dirs[i+1:] {
			if overlaps(dir, other) {
				return fmt.Errorf("%s and %s overlap", dir, other)
			}
		}
	}

	return nil
}

func overlaps(a, b string) bool {
	rel, err := filepath.Rel(a, b)
	if err == nil && filepath.IsLocal(rel) {
		return true
	}

	rel, err = filepath.Rel(b, a)
	return err == nil && filepath.IsLocal(rel)
}
