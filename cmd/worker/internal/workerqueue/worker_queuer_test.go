package workerqueue_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/classgrade/autograder/cmd/worker/internal/workerqueue"
	mockqueue "github.com/classgrade/autograder/internal/queue/mock"
	"github.com/classgrade/autograder/internal/response"
	"github.com/classgrade/autograder/internal/types"
	workererrors "github.com/classgrade/autograder/internal/worker_errors"
)

var jobID = "job-1"

func TestCompleted(t *testing.T) {
	ctx := context.Background()

	ctrl := gomock.NewController(t)
	queuer := mockqueue.NewMockQueuer(ctrl)

	payload := json.RawMessage(`{"overallScore":100,"tests":[]}`)
	expected := types.GradeResultMessage{
		JobID:   jobID,
		Status:  types.JobStatusCompleted,
		Results: payload,
	}

	queuer.EXPECT().Enqueue(gomock.Any(), expected).Times(1)

	wq := workerqueue.NewWorkerQueue(jobID, queuer)
	err := wq.Completed(ctx, payload)
	assert.NoError(t, err, "failed to queue results")
}

func TestFailed(t *testing.T) {
	ctx := context.Background()

	t.Run("PublicBody", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		queuer := mockqueue.NewMockQueuer(ctrl)

		details := "grading container produced malformed results"
		expected := types.GradeResultMessage{
			JobID:  jobID,
			Status: types.JobStatusFailed,
			Error:  &types.Error{Message: response.GradingFailedMessage, Details: &details},
		}
		queuer.EXPECT().Enqueue(gomock.Any(), expected).Times(1)

		wq := workerqueue.NewWorkerQueue(jobID, queuer)
		err := wq.Failed(ctx, workererrors.JobErrorWrap(
			workererrors.ErrResultsArtifactCorrupt,
			errors.New("/tmp/autograder-123/results.json: unexpected EOF"),
		))
		assert.NoError(t, err, "failed to queue failure")
	})

	t.Run("EnqueueError", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		queuer := mockqueue.NewMockQueuer(ctrl)

		queuer.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(errors.New("queue down"))

		wq := workerqueue.NewWorkerQueue(jobID, queuer)
		err := wq.Failed(ctx, workererrors.JobErrorWrap(workererrors.ErrContainerTimeout, nil))
		require.Error(t, err, "enqueue failure must be returned")
	})
}
