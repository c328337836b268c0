package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Context key of the per request job id
const JobIDKey = "job"

// Response header carrying the job id, so callers can quote it when asking about a failure
const JobIDHeader = "X-Job-ID"

// Assigns the request its job id before any handler runs
func JobID(key string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			_, span := tracer.Start(c.Request().Context(), "JobID", trace.WithAttributes(
				attribute.String("key", key),
			))
			defer span.End()

			id := uuid.NewString()
			c.Set(key, id)
			c.Response().Header().Set(JobIDHeader, id)

			span.AddEvent("set_job_id", trace.WithAttributes(
				attribute.String("job.id", id),
			))

			span.RecordError(nil)
			span.SetStatus(codes.Ok, "set job id")
			return next(c)
		}
	}
}
