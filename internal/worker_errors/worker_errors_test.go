package workererrors_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	workererrors "github.com/classgrade/autograder/internal/worker_errors"
)

func TestJobError(t *testing.T) {
	t.Run("IsKindAndCause", func(t *testing.T) {
		cause := context.DeadlineExceeded
		err := workererrors.JobErrorWrap(workererrors.ErrContainerTimeout, cause)

		assert.ErrorIs(t, err, workererrors.ErrContainerTimeout, "kind should match")
		assert.ErrorIs(t, err, context.DeadlineExceeded, "cause should match")
		assert.NotErrorIs(t, err, workererrors.ErrContainerLaunch, "other kinds should not match")
	})

	t.Run("WrappedStillMatches", func(t *testing.T) {
		err := fmt.Errorf("job 1: %w", workererrors.JobErrorWrap(workererrors.ErrSubmissionWrite, nil))

		assert.ErrorIs(t, err, workererrors.ErrSubmissionWrite, "kind should survive wrapping")
		assert.Equal(t, workererrors.ErrSubmissionWrite, workererrors.KindOf(err), "wrong kind")
		assert.Equal(t, "job 1: submission write failed", err.Error(), "wrong message")
	})

	t.Run("AttachOutput", func(t *testing.T) {
		output := &workererrors.Output{Stdout: []byte("out"), Stderr: []byte("err"), ExitCode: 1}
		err := workererrors.JobErrorWrap(workererrors.ErrResultsArtifactMissing, errors.New("stat"))
		err = workererrors.AttachOutput(err, output)

		require.ErrorIs(t, err, workererrors.ErrResultsArtifactMissing, "kind should be kept")
		assert.Equal(t, output, workererrors.OutputOf(err), "output should be attached")
	})

	t.Run("NotAJobError", func(t *testing.T) {
		err := errors.New("plain")

		assert.Nil(t, workererrors.KindOf(err), "plain errors have no kind")
		assert.Nil(t, workererrors.OutputOf(err), "plain errors have no output")
		assert.Equal(t, err, workererrors.AttachOutput(err, &workererrors.Output{}), "should be untouched")
	})
}

func TestExitError(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", workererrors.ExitErrorWrap(3, errors.New("tests failed")))

	var ee workererrors.ExitError
	require.ErrorAs(t, err, &ee, "should find exit error")
	assert.Equal(t, 3, ee.Code, "wrong code")
	assert.Equal(t, "3: tests failed", ee.Error(), "wrong message")
}

func TestKindName(t *testing.T) {
	err := fmt.Errorf("grading: %w", workererrors.JobErrorWrap(workererrors.ErrContainerTimeout, nil))
	assert.Equal(t, "container_timeout", workererrors.KindName(err), "wrong name")
	assert.Equal(t, "internal", workererrors.KindName(errors.New("plain")), "plain errors are internal")
}
