package archive

import (
	"bytes"
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/classgrade/autograder/internal/audit"
	"github.com/classgrade/autograder/internal/hash"
	"github.com/classgrade/autograder/internal/types"
	"github.com/classgrade/autograder/internal/upload"
	workererrors "github.com/classgrade/autograder/internal/worker_errors"
)

var tracer = otel.Tracer("github.com/classgrade/autograder/internal/archive")

const (
	diagnosticsPrefix = "diagnostics/"
	contentType       = "application/json"
)

// Everything needed to diagnose a failed job without the workspace, which is gone by the time
// this is archived
type Diagnostics struct {
	Timestamp         types.UnixMilli `json:"timestamp"`
	ExitCode          *int            `json:"exit_code"`
	JobID             string          `json:"job_id"`
	FailureKind       string          `json:"failure_kind"`
	Error             string          `json:"error"`
	Language          string          `json:"language"`
	Image             string          `json:"image"`
	TestingPath       string          `json:"testing_path"`
	SubmissionSHA256  string          `json:"submission_sha256"`
	Stdout            string          `json:"stdout"`
	Stderr            string          `json:"stderr"`
	Cmd               []string        `json:"cmd"`
	SubmissionByteLen int             `json:"submission_bytes"`
}

// Fills in the failure fields from a job error and the submission fields from its source
func NewDiagnostics(jobID string, err error, sourceCode string) *Diagnostics {
	d := &Diagnostics{
		JobID:             jobID,
		FailureKind:       workererrors.KindName(err),
		Error:             err.Error(),
		SubmissionSHA256:  hash.Of([]byte(sourceCode)).String(),
		SubmissionByteLen: len(sourceCode),
	}

	if output := workererrors.OutputOf(err); output != nil {
		d.Cmd = output.Cmd
		d.Stdout = string(output.Stdout)
		d.Stderr = string(output.Stderr)
		exitCode := output.ExitCode
		d.ExitCode = &exitCode
	}

	return d
}

// Stores the diagnostics bundle content-addressed and emits a file_archived audit event.
// Returns the object key.
func ArchiveDiagnostics(
	ctx context.Context,
	auditContext audit.Context,
	u upload.Uploader,
	diagnostics *Diagnostics,
) (string, error) {
	ctx, span := tracer.Start(ctx, "ArchiveDiagnostics")
	defer span.End()

	span.AddEvent("encoding diagnostics bundle")
	encoded, err := json.Marshal(diagnostics)
	if err != nil {
		span.SetStatus(codes.Error, "failed to encode diagnostics")
		span.RecordError(err)
		return "", err
	}
	span.SetAttributes(attribute.Int("size", len(encoded)))

	objectName, err := upload.Hashed(
		ctx,
		u,
		bytes.NewReader(encoded),
		int64(len(encoded)),
		diagnosticsPrefix,
		contentType,
	)
	if err != nil {
		span.SetStatus(codes.Error, "failed to upload diagnostics")
		span.RecordError(err)
		return "", err
	}

	identifier, err := u.StoreIdentifier(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get identifier")
		return "", err
	}

	span.AddEvent("generating audit log message")
	audit.LogFileArchived(
		auditContext,
		identifier,
		objectName,
		audit.FileDiagnostics,
		audit.EntityJob,
		diagnostics.JobID,
	)

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "archived diagnostics")
	return objectName, nil
}
