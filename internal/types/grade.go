package types

import "encoding/json"

type (
	GradeRequest struct {
		// Source text of the submission. Written verbatim to the profile's filename.
		StudentCode string `json:"studentCode"        validate:"required,max=1048576"`
		// Object storage path of the test bundle. A `.zip` suffix marks an archive.
		TestingPath string `json:"testingPath"        validate:"required,testingpath"`
		// Grading profile to use. Detected from the source when omitted.
		Language string `json:"language,omitempty" validate:"omitempty,max=64"`
	}

	PingResponse struct {
		Status string `json:"status" validate:"required"`
	}
)

type JobStatus string

const (
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

type (
	// Grading job delivered over the jobs queue
	GradeJobMessage struct {
		// Propagated trace context
		Trace map[string]string `json:"trace,omitempty"`
		GradeRequest
		JobID string `json:"job_id" validate:"required"`
	}

	// Outcome of a queued grading job, delivered over the results queue
	GradeResultMessage struct {
		Results json.RawMessage `json:"results,omitempty"`
		Error   *Error          `json:"error,omitempty"`
		JobID   string          `json:"job_id"`
		Status  JobStatus       `json:"status"`
	}
)

const (
	ExitNormal int = 0
	// Infrastructure failure or invalid input
	ExitErrored int = 1
	// The grading container misbehaved (no or malformed results)
	ExitGradingFailed int = 2
	// The grading container ran past its deadline
	ExitTimedOut int = 3
)

type UnixMilli int64
