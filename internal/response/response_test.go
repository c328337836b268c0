package response_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classgrade/autograder/internal/response"
	"github.com/classgrade/autograder/internal/types"
	workererrors "github.com/classgrade/autograder/internal/worker_errors"
)

func TestJobError(t *testing.T) {
	tests := []struct {
		kind    error
		message string
		status  int
		details bool
	}{
		{workererrors.ErrWorkspaceAllocation, "grading workspace could not be allocated", http.StatusServiceUnavailable, false},
		{workererrors.ErrTestMaterialFetch, "test material could not be fetched", http.StatusUnprocessableEntity, false},
		{workererrors.ErrTestMaterialExtract, "test material archive could not be extracted", http.StatusUnprocessableEntity, false},
		{workererrors.ErrSubmissionWrite, "submission could not be written", http.StatusInternalServerError, false},
		{workererrors.ErrContainerLaunch, "grading runtime could not be started", http.StatusServiceUnavailable, false},
		{workererrors.ErrContainerTimeout, "grading timed out", http.StatusGatewayTimeout, false},
		{workererrors.ErrResultsArtifactMissing, response.GradingFailedMessage, http.StatusInternalServerError, true},
		{workererrors.ErrResultsArtifactCorrupt, response.GradingFailedMessage, http.StatusInternalServerError, true},
		{workererrors.ErrAdmissionRejected, "grader is at capacity", http.StatusServiceUnavailable, false},
		{workererrors.ErrJobCanceled, "grading was canceled", http.StatusServiceUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(workererrors.KindName(workererrors.JobErrorWrap(tt.kind, nil)), func(t *testing.T) {
			err := workererrors.JobErrorWithOutput(
				tt.kind,
				errors.New("/tmp/autograder-123/results: secret path"),
				&workererrors.Output{Stderr: []byte("stack trace")},
			)

			he := response.JobError(err)
			require.NotNil(t, he)
			assert.Equal(t, tt.status, he.Code, "wrong status")

			body, ok := he.Message.(types.Error)
			require.True(t, ok, "message should be a types.Error")
			assert.Equal(t, tt.message, body.Message, "wrong message")
			assert.Equal(t, tt.details, body.Details != nil, "details presence")
			assert.NotContains(t, body.Message, "/tmp", "paths must not leak")
			if body.Details != nil {
				assert.NotContains(t, *body.Details, "stack trace", "stderr must not leak")
			}
		})
	}

	t.Run("NotAJobError", func(t *testing.T) {
		he := response.JobError(errors.New("boom"))
		require.NotNil(t, he)
		assert.Equal(t, http.StatusInternalServerError, he.Code)
	})

	t.Run("Nil", func(t *testing.T) {
		assert.Nil(t, response.JobError(nil))
	})
}
