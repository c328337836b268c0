package grader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/classgrade/autograder/internal/archive"
	"github.com/classgrade/autograder/internal/audit"
	"github.com/classgrade/autograder/internal/config"
	"github.com/classgrade/autograder/internal/container"
	"github.com/classgrade/autograder/internal/logger"
	"github.com/classgrade/autograder/internal/results"
	"github.com/classgrade/autograder/internal/stage"
	"github.com/classgrade/autograder/internal/submission"
	"github.com/classgrade/autograder/internal/types"
	"github.com/classgrade/autograder/internal/upload"
	"github.com/classgrade/autograder/internal/validator"
	workererrors "github.com/classgrade/autograder/internal/worker_errors"
	"github.com/classgrade/autograder/internal/workspace"
)

var tracer = otel.Tracer(
	"github.com/classgrade/autograder/internal/grader",
)

//go:generate mockgen -destination ./mock/mock.go -package mock . Service

// Runs grading jobs to completion
type Service interface {
	Grade(ctx context.Context, req Request) (*results.GradingResult, error)
}

// Ensure Grader implements Service interface.
var _ Service = (*Grader)(nil)

// One grading job
type Request struct {
	// Generated when empty
	JobID string
	// Key that submitted the job, recorded in audit events
	APIKeyID    *string
	StudentCode string
	TestingPath string
	Profile     config.Profile
}

type Dependencies struct {
	Workspaces  *workspace.Manager
	Stager      *stage.Stager
	Writer      *submission.Writer
	Runner      container.Runner
	Interpreter *results.Interpreter
	// Optional, failures carrying container output are archived when set
	Diagnostics upload.Uploader
}

type Options struct {
	MaxConcurrentJobs int64
	// Zero waits as long as the caller's context allows
	AdmissionTimeout time.Duration
}

// Runs the grading pipeline: workspace, test material, submission, container, results.
// Safe for concurrent use; at most MaxConcurrentJobs jobs run at once.
type Grader struct {
	deps             Dependencies
	slots            *semaphore.Weighted
	admissionTimeout time.Duration
	metrics          *metrics
}

func New(deps Dependencies, opts Options) (*Grader, error) {
	if deps.Workspaces == nil || deps.Stager == nil || deps.Writer == nil ||
		deps.Runner == nil || deps.Interpreter == nil {
		return nil, errors.New("grader is missing a pipeline dependency")
	}
	if opts.MaxConcurrentJobs < 1 {
		return nil, errors.New("max concurrent jobs must be at least 1")
	}

	m, err := newMetrics()
	if err != nil {
		return nil, err
	}

	return &Grader{
		deps:             deps,
		slots:            semaphore.NewWeighted(opts.MaxConcurrentJobs),
		admissionTimeout: opts.AdmissionTimeout,
		metrics:          m,
	}, nil
}

// Grades one submission. Every error is a workererrors.JobError; the workspace is removed
// before Grade returns on every path.
func (g *Grader) Grade(ctx context.Context, req Request) (*results.GradingResult, error) {
	if req.JobID == "" {
		req.JobID = uuid.NewString()
	}

	ctx, span := tracer.Start(ctx, "Grader.Grade", trace.WithAttributes(
		attribute.String("job.id", req.JobID),
		attribute.String("language", req.Profile.Name),
		attribute.String("image", req.Profile.Image),
		attribute.String("testingPath", req.TestingPath),
	))
	defer span.End()

	log := logger.ForJob(req.JobID)
	job := newTracker(span, log)

	err := checkProfile(req.Profile)
	if err == nil {
		err = g.admit(ctx)
	}
	if err != nil {
		job.fail(workererrors.KindName(err))
		log.WarnContext(ctx, "job not admitted", "kind", workererrors.KindName(err), "error", err)
		g.metrics.finished(ctx, req.Profile.Name, workererrors.KindName(err), 0)
		span.RecordError(err)
		span.SetStatus(codes.Error, "job not admitted")
		return nil, err
	}
	defer g.slots.Release(1)

	g.metrics.active.Add(ctx, 1)
	defer g.metrics.active.Add(context.WithoutCancel(ctx), -1)

	auditContext := audit.Context{APIKeyID: req.APIKeyID, JobID: req.JobID}
	audit.LogJobStarted(auditContext, req.TestingPath, req.Profile.Name, req.Profile.Image)
	log.InfoContext(ctx, "grading job started",
		"language", req.Profile.Name,
		"testingPath", req.TestingPath,
	)

	start := time.Now()
	result, outcome, err := g.run(ctx, job, req)
	err = canceled(ctx, err)
	elapsed := time.Since(start)

	if err != nil {
		job.fail(workererrors.KindName(err))
		g.failed(ctx, auditContext, req, err, elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "grading failed")
		return nil, err
	}

	g.completed(ctx, auditContext, req, result, outcome, elapsed)
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "graded submission")
	return result, nil
}

func (g *Grader) admit(ctx context.Context) error {
	actx := ctx
	if g.admissionTimeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, g.admissionTimeout)
		defer cancel()
	}

	if err := g.slots.Acquire(actx, 1); err != nil {
		return workererrors.JobErrorWrap(workererrors.ErrAdmissionRejected, err)
	}

	return nil
}

// A profile without an image or with an unusable filename fails before any slot or
// storage fetch is spent on it
func checkProfile(profile config.Profile) error {
	if !validator.ValidFilename(profile.Filename) {
		return workererrors.JobErrorWrap(
			workererrors.ErrSubmissionWrite,
			fmt.Errorf("grading profile filename %q is not a plain file name", profile.Filename),
		)
	}
	if profile.Image == "" {
		return workererrors.JobErrorWrap(
			workererrors.ErrContainerLaunch,
			errors.New("grading profile has no image"),
		)
	}

	return nil
}

// Once the caller has gone away any step failure is reported as a cancellation, keeping the
// step's error and container output as the cause
func canceled(ctx context.Context, err error) error {
	if err == nil || ctx.Err() == nil || errors.Is(err, workererrors.ErrJobCanceled) {
		return err
	}

	return workererrors.JobErrorWithOutput(workererrors.ErrJobCanceled, err, workererrors.OutputOf(err))
}

// The pipeline proper. Runs with an admission slot held.
func (g *Grader) run(
	ctx context.Context,
	job *tracker,
	req Request,
) (*results.GradingResult, *container.Outcome, error) {
	ws, err := g.deps.Workspaces.Create(ctx)
	if err != nil {
		return nil, nil, err
	}
	// removal must happen even when the caller has gone away
	defer g.deps.Workspaces.Destroy(context.WithoutCancel(ctx), ws)

	if err := ws.Validate(); err != nil {
		return nil, nil, workererrors.JobErrorWrap(workererrors.ErrWorkspaceAllocation, err)
	}
	if err := job.advance(StateWorkspaceReady); err != nil {
		return nil, nil, err
	}

	if _, err := g.deps.Stager.Stage(ctx, req.TestingPath, ws); err != nil {
		return nil, nil, err
	}
	if _, err := g.deps.Writer.Write(ctx, req.StudentCode, req.Profile.Filename, ws.SourceDir); err != nil {
		return nil, nil, err
	}
	if err := job.advance(StateMaterialsStaged); err != nil {
		return nil, nil, err
	}

	outcome, err := g.deps.Runner.Run(ctx, &container.Invocation{
		Name:       container.ContainerName(req.JobID),
		Image:      req.Profile.Image,
		SourceDir:  ws.SourceDir,
		TestsDir:   ws.TestsDir,
		ResultsDir: ws.ResultsDir,
	})
	if err != nil {
		return nil, outcome, err
	}
	if err := job.advance(StateExecuted); err != nil {
		return nil, outcome, err
	}

	result, err := g.deps.Interpreter.Read(ctx, ws.ResultsDir)
	if err != nil {
		return nil, outcome, workererrors.AttachOutput(err, outcome.Output())
	}
	if err := job.advance(StateResultsRead); err != nil {
		return nil, outcome, err
	}

	if err := job.advance(StateDone); err != nil {
		return nil, outcome, err
	}

	return result, outcome, nil
}

func (g *Grader) completed(
	ctx context.Context,
	auditContext audit.Context,
	req Request,
	result *results.GradingResult,
	outcome *container.Outcome,
	elapsed time.Duration,
) {
	var (
		score  *float64
		total  *int
		passed *int
	)
	if result.Summary != nil {
		score = result.Summary.OverallScore
		if result.Summary.Tests != nil {
			t, p := len(result.Summary.Tests), result.Summary.Passed()
			total, passed = &t, &p
		}
	}

	audit.LogJobCompleted(auditContext, outcome.ExitCode, elapsed, score, total, passed)
	logger.ForJob(req.JobID).InfoContext(ctx, "grading job completed",
		"exitCode", outcome.ExitCode,
		"durationMs", elapsed.Milliseconds(),
	)
	g.metrics.finished(ctx, req.Profile.Name, "completed", elapsed)
}

func (g *Grader) failed(
	ctx context.Context,
	auditContext audit.Context,
	req Request,
	err error,
	elapsed time.Duration,
) {
	kind := workererrors.KindName(err)
	output := workererrors.OutputOf(err)

	var exitCode *int
	if output != nil {
		exitCode = &output.ExitCode
	}

	attrs := []any{"kind", kind, "error", err}
	if output != nil {
		attrs = append(attrs,
			"exitCode", output.ExitCode,
			"stdout", tail(output.Stdout),
			"stderr", tail(output.Stderr),
		)
	}

	log := logger.ForJob(req.JobID)
	log.ErrorContext(ctx, "grading job failed", attrs...)

	audit.LogJobFailed(auditContext, kind, exitCode, elapsed)
	g.metrics.finished(ctx, req.Profile.Name, kind, elapsed)

	if g.deps.Diagnostics == nil || output == nil {
		return
	}

	diagnostics := archive.NewDiagnostics(req.JobID, err, req.StudentCode)
	diagnostics.Timestamp = types.UnixMilli(time.Now().UTC().UnixMilli())
	diagnostics.Language = req.Profile.Name
	diagnostics.Image = req.Profile.Image
	diagnostics.TestingPath = req.TestingPath

	key, aerr := archive.ArchiveDiagnostics(context.WithoutCancel(ctx), auditContext, g.deps.Diagnostics, diagnostics)
	if aerr != nil {
		log.WarnContext(ctx, "failed to archive diagnostics", "error", aerr)
		return
	}
	log.InfoContext(ctx, "archived diagnostics", "object", key)
}

// Container output attached to failure logs is cut to its last bytes
const maxLoggedOutput = 8 << 10

func tail(output []byte) string {
	if len(output) <= maxLoggedOutput {
		return string(output)
	}

	return "[truncated] " + string(output[len(output)-maxLoggedOutput:])
}
