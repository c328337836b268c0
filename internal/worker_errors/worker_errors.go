package workererrors

import (
	"errors"
	"fmt"
)

// Carries an exit code along with an error so the app can exit correctly
type ExitError struct {
	Err  error
	Code int
}

func (e ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%d", e.Code)
	}

	return fmt.Sprintf("%d: %s", e.Code, e.Err.Error())
}

func (e ExitError) Unwrap() error {
	return e.Err
}

// Wrap an error with an exit code
func ExitErrorWrap(code int, err error) error {
	return ExitError{Code: code, Err: err}
}

// Failure kinds of a grading job. Compare with errors.Is.
var (
	ErrWorkspaceAllocation    = errors.New("workspace allocation failed")
	ErrTestMaterialFetch      = errors.New("test material fetch failed")
	ErrTestMaterialExtract    = errors.New("test material extraction failed")
	ErrSubmissionWrite        = errors.New("submission write failed")
	ErrContainerLaunch        = errors.New("container launch failed")
	ErrContainerTimeout       = errors.New("container timed out")
	ErrResultsArtifactMissing = errors.New("container completed but produced no output")
	ErrResultsArtifactCorrupt = errors.New("results artifact is not valid structured data")
	ErrAdmissionRejected      = errors.New("grader is at capacity")
	ErrJobCanceled            = errors.New("grading job canceled")
)

// Process output of the grading container, kept for diagnosis
type Output struct {
	Cmd      []string
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Typed failure of one grading job.
//
// Kind is one of the sentinels above, Err is the underlying cause. Output is only
// present once the container has run.
type JobError struct {
	Kind   error
	Err    error
	Output *Output
}

func (e JobError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}

	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Err.Error())
}

func (e JobError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}

// Wrap an error as a job failure of `kind`
func JobErrorWrap(kind error, err error) error {
	return JobError{Kind: kind, Err: err}
}

// Wrap an error as a job failure of `kind` that happened after the container ran
func JobErrorWithOutput(kind error, err error, output *Output) error {
	return JobError{Kind: kind, Err: err, Output: output}
}

// Attach container output to an existing job error, keeping its kind
func AttachOutput(err error, output *Output) error {
	var je JobError
	if !errors.As(err, &je) {
		return err
	}

	je.Output = output
	return je
}

// Kind of a job failure, nil when err is not a JobError
func KindOf(err error) error {
	var je JobError
	if !errors.As(err, &je) {
		return nil
	}

	return je.Kind
}

// Container output of a job failure, nil when there is none
func OutputOf(err error) *Output {
	var je JobError
	if !errors.As(err, &je) {
		return nil
	}

	return je.Output
}

var kindNames = map[error]string{
	ErrWorkspaceAllocation:    "workspace_allocation",
	ErrTestMaterialFetch:      "test_material_fetch",
	ErrTestMaterialExtract:    "test_material_extract",
	ErrSubmissionWrite:        "submission_write",
	ErrContainerLaunch:        "container_launch",
	ErrContainerTimeout:       "container_timeout",
	ErrResultsArtifactMissing: "results_artifact_missing",
	ErrResultsArtifactCorrupt: "results_artifact_corrupt",
	ErrAdmissionRejected:      "admission_rejected",
	ErrJobCanceled:            "job_canceled",
}

// Stable name for the kind of a job failure, for logs, metrics and audit events. Errors that
// are not job failures are "internal".
func KindName(err error) string {
	if name, ok := kindNames[KindOf(err)]; ok {
		return name
	}

	return "internal"
}
