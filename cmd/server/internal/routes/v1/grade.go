package v1

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	servermiddleware "github.com/classgrade/autograder/cmd/server/internal/middleware"
	"github.com/classgrade/autograder/internal/config"
	"github.com/classgrade/autograder/internal/grader"
	"github.com/classgrade/autograder/internal/response"
	"github.com/classgrade/autograder/internal/types"
)

// Grade runs a submission against its test material and returns the grading results
//
//	@Summary		Grade a submission
//	@Description	Stages the test material at testingPath, runs the grading image for the language
//	@Description	against studentCode and returns the image's results.json verbatim. The language is
//	@Description	detected from studentCode when omitted, falling back to the default language.
//	@Tags			grade
//	@Accept			json
//	@Produce		json
//
//	@Security		BasicAuth
//
//	@Param			payload	body		types.GradeRequest	true	"Submission"
//
//	@Success		200		{object}	object				"results.json produced by the grading image"
//
//	@Failure		400		{object}	types.Error
//	@Failure		401		{object}	types.Error
//	@Failure		403		{object}	types.Error
//	@Failure		422		{object}	types.Error
//	@Failure		429		{object}	types.Error
//	@Failure		500		{object}	types.Error
//	@Failure		503		{object}	types.Error
//	@Failure		504		{object}	types.Error
//
//	@Router			/v1/grade/ [post]
func (h *Handler) Grade(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "Grade")
	defer span.End()

	span.AddEvent("received grade request")

	key, ok := c.Get(servermiddleware.AuthKey).(*config.APIKey)
	if !ok {
		span.RecordError(errTypeAssertMismatch)
		span.SetStatus(codes.Error, fmt.Sprintf("auth: %s", errTypeAssertMismatch))
		return response.InternalServerError
	}

	// absent when the route is mounted without the job id middleware
	jobID, _ := c.Get(servermiddleware.JobIDKey).(string)

	span.SetAttributes(
		attribute.String("auth.note", key.Note),
		attribute.String("auth.id", key.ID),
		attribute.String("job.id", jobID),
	)

	var rdata types.GradeRequest

	span.AddEvent("parsing request body")
	err := c.Bind(&rdata)
	if err != nil {
		span.SetStatus(codes.Ok, "failed to parse request data")
		span.RecordError(err)
		return echo.NewHTTPError(
			http.StatusBadRequest,
			types.StringError("failed to parse request data"),
		)
	}

	span.AddEvent("validating request body")
	err = c.Validate(rdata)
	if err != nil {
		span.SetStatus(codes.Ok, "failed to validate request data")
		span.RecordError(err)
		return echo.NewHTTPError(http.StatusBadRequest, types.ValidationError(err))
	}

	span.AddEvent("resolving grading profile")
	profile, ok := h.detector.Resolve(h.grading, rdata.Language, []byte(rdata.StudentCode))
	if !ok {
		span.SetStatus(codes.Ok, "unsupported language")
		span.RecordError(nil)
		return echo.NewHTTPError(
			http.StatusBadRequest,
			types.Error{Message: "validation error", Fields: &map[string]string{
				"language": "unsupported language",
			}},
		)
	}

	span.SetAttributes(
		attribute.String("language", profile.Name),
		attribute.String("testingPath", rdata.TestingPath),
	)

	result, err := h.grader.Grade(ctx, grader.Request{
		JobID:       jobID,
		APIKeyID:    &key.ID,
		StudentCode: rdata.StudentCode,
		TestingPath: rdata.TestingPath,
		Profile:     *profile,
	})
	if err != nil {
		// the grader already logged the full failure
		span.SetStatus(codes.Error, "grading failed")
		span.RecordError(err)
		return response.JobError(err)
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "graded submission")
	return c.JSONBlob(http.StatusOK, result.Payload)
}
