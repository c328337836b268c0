package workerqueue

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/classgrade/autograder/internal/queue"
	"github.com/classgrade/autograder/internal/response"
	"github.com/classgrade/autograder/internal/types"
)

var tracer = otel.Tracer(
	"github.com/classgrade/autograder/worker/internal/workerqueue",
)

// Publishes the outcome of one grading job to the results queue
type WorkerQueuer struct {
	queuer queue.Queuer
	jobID  string
}

func NewWorkerQueue(jobID string, queuer queue.Queuer) *WorkerQueuer {
	return &WorkerQueuer{
		jobID:  jobID,
		queuer: queuer,
	}
}

// results.json of a graded submission, forwarded verbatim
func (q *WorkerQueuer) Completed(ctx context.Context, payload json.RawMessage) error {
	ctx, span := tracer.Start(ctx, "WorkerQueuer.Completed", trace.WithAttributes(
		attribute.String("job.id", q.jobID),
	))
	defer span.End()

	err := q.queuer.Enqueue(ctx, types.GradeResultMessage{
		JobID:   q.jobID,
		Status:  types.JobStatusCompleted,
		Results: payload,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to enqueue message")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "enqueued message")
	return nil
}

// Publishes the public body of a grading failure, the same one the HTTP API returns
func (q *WorkerQueuer) Failed(ctx context.Context, jobErr error) error {
	_, body := response.JobErrorBody(jobErr)
	return q.Rejected(ctx, body)
}

// Publishes a failure that never reached the grader
func (q *WorkerQueuer) Rejected(ctx context.Context, body types.Error) error {
	ctx, span := tracer.Start(ctx, "WorkerQueuer.Rejected", trace.WithAttributes(
		attribute.String("job.id", q.jobID),
		attribute.String("error", body.Message),
	))
	defer span.End()

	err := q.queuer.Enqueue(ctx, types.GradeResultMessage{
		JobID:  q.jobID,
		Status: types.JobStatusFailed,
		Error:  &body,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to enqueue message")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "enqueued message")
	return nil
}
