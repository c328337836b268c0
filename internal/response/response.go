package response

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/classgrade/autograder/internal/types"
	workererrors "github.com/classgrade/autograder/internal/worker_errors"
)

var (
	InternalServerError = echo.NewHTTPError(
		http.StatusInternalServerError,
		types.StringError("something went wrong"),
	)
	NotFoundError = echo.NewHTTPError(http.StatusNotFound, types.StringError("not found"))
)

// Message used for every failure caused by the grading container's output
const GradingFailedMessage = "Grading failed on the server."

type jobFailure struct {
	message string
	status  int
	// results failures report the generic message with this as details
	results bool
}

var jobFailures = map[error]jobFailure{
	workererrors.ErrWorkspaceAllocation: {
		status:  http.StatusServiceUnavailable,
		message: "grading workspace could not be allocated",
	},
	workererrors.ErrTestMaterialFetch: {
		status:  http.StatusUnprocessableEntity,
		message: "test material could not be fetched",
	},
	workererrors.ErrTestMaterialExtract: {
		status:  http.StatusUnprocessableEntity,
		message: "test material archive could not be extracted",
	},
	workererrors.ErrSubmissionWrite: {
		status:  http.StatusInternalServerError,
		message: "submission could not be written",
	},
	workererrors.ErrContainerLaunch: {
		status:  http.StatusServiceUnavailable,
		message: "grading runtime could not be started",
	},
	workererrors.ErrContainerTimeout: {
		status:  http.StatusGatewayTimeout,
		message: "grading timed out",
	},
	workererrors.ErrResultsArtifactMissing: {
		status:  http.StatusInternalServerError,
		message: "grading container produced no results",
		results: true,
	},
	workererrors.ErrResultsArtifactCorrupt: {
		status:  http.StatusInternalServerError,
		message: "grading container produced malformed results",
		results: true,
	},
	workererrors.ErrAdmissionRejected: {
		status:  http.StatusServiceUnavailable,
		message: "grader is at capacity",
	},
	workererrors.ErrJobCanceled: {
		status:  http.StatusServiceUnavailable,
		message: "grading was canceled",
	},
}

// Public body for a grading failure. Never includes paths, stderr or exit codes.
func JobErrorBody(err error) (int, types.Error) {
	failure, ok := jobFailures[workererrors.KindOf(err)]
	if !ok {
		return http.StatusInternalServerError, types.StringError("something went wrong")
	}

	if failure.results {
		return failure.status, types.DetailedError(GradingFailedMessage, failure.message)
	}

	return failure.status, types.StringError(failure.message)
}

// Translates a grading failure into the HTTP error returned to the caller
func JobError(err error) *echo.HTTPError {
	if err == nil {
		return nil
	}

	status, body := JobErrorBody(err)
	he := echo.NewHTTPError(status, body)
	var joberr workererrors.JobError
	if errors.As(err, &joberr) {
		he = he.SetInternal(joberr.Kind)
	}

	return he
}
