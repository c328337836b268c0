package workerqueue

import (
	"context"
	"encoding/json"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/classgrade/autograder/internal/config"
	"github.com/classgrade/autograder/internal/grader"
	"github.com/classgrade/autograder/internal/identifier"
	"github.com/classgrade/autograder/internal/logger"
	"github.com/classgrade/autograder/internal/queue"
	"github.com/classgrade/autograder/internal/types"
	"github.com/classgrade/autograder/internal/validator"
	workererrors "github.com/classgrade/autograder/internal/worker_errors"
)

// Grades jobs delivered over the jobs queue and publishes their outcome to the results queue
type JobHandler struct {
	grader   grader.Service
	detector *identifier.Detector
	grading  *config.GradingConfig
	results  queue.Queuer
	validate validator.CustomValidator
}

// Ensure JobHandler implements MessageHandler interface.
var _ queue.MessageHandler = (*JobHandler)(nil)

func NewJobHandler(
	g grader.Service,
	grading *config.GradingConfig,
	results queue.Queuer,
) *JobHandler {
	return &JobHandler{
		grader:   g,
		detector: identifier.NewDetector(grading.Languages),
		grading:  grading,
		results:  results,
		validate: validator.Create(),
	}
}

// Undecodable messages are poison. Invalid jobs get a failed result and are poison too.
// Jobs the grader could not take or finish because of capacity or shutdown are left on the
// queue to be retried.
func (h *JobHandler) Handle(ctx context.Context, message []byte) error {
	var msg types.GradeJobMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return queue.WrapPoisonError(err)
	}

	producer := otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(msg.Trace))
	ctx, span := tracer.Start(ctx, "JobHandler.Handle",
		trace.WithLinks(trace.LinkFromContext(producer)),
		trace.WithAttributes(attribute.String("job.id", msg.JobID)),
	)
	defer span.End()

	if msg.JobID == "" {
		err := errors.New("job message has no job id")
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid job message")
		return queue.WrapPoisonError(err)
	}

	log := logger.ForJob(msg.JobID)
	results := NewWorkerQueue(msg.JobID, h.results)

	if err := h.validate.Validate(msg); err != nil {
		log.WarnContext(ctx, "invalid job message", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid job message")
		return h.reject(ctx, results, types.ValidationError(err), err)
	}

	profile, ok := h.detector.Resolve(h.grading, msg.Language, []byte(msg.StudentCode))
	if !ok {
		err := errors.New("unsupported language")
		log.WarnContext(ctx, "unsupported language", "language", msg.Language)
		span.RecordError(err)
		span.SetStatus(codes.Error, "unsupported language")
		return h.reject(ctx, results, types.Error{
			Message: "validation error",
			Fields:  &map[string]string{"language": "unsupported language"},
		}, err)
	}

	result, err := h.grader.Grade(ctx, grader.Request{
		JobID:       msg.JobID,
		StudentCode: msg.StudentCode,
		TestingPath: msg.TestingPath,
		Profile:     *profile,
	})
	if err != nil {
		span.RecordError(err)
		if retryable(err) {
			span.SetStatus(codes.Error, "grading not finished, leaving job on the queue")
			return err
		}

		span.SetStatus(codes.Error, "grading failed")
		if perr := results.Failed(ctx, err); perr != nil {
			log.ErrorContext(ctx, "failed to publish job failure", "error", perr)
			return perr
		}
		return nil
	}

	if err := results.Completed(ctx, result.Payload); err != nil {
		log.ErrorContext(ctx, "failed to publish job results", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to publish results")
		return err
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "graded job")
	return nil
}

func (h *JobHandler) reject(
	ctx context.Context,
	results *WorkerQueuer,
	body types.Error,
	cause error,
) error {
	if err := results.Rejected(ctx, body); err != nil {
		return err
	}

	return queue.WrapPoisonError(cause)
}

func retryable(err error) bool {
	return errors.Is(err, workererrors.ErrAdmissionRejected) ||
		errors.Is(err, workererrors.ErrJobCanceled)
}
