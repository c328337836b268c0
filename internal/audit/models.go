package audit

import (
	"github.com/classgrade/autograder/internal/types"
)

var schemaVersion = "0.1.0"
var logContext = "audit"

type Disposition string

const (
	DispositionNeutral Disposition = "neutral"
	DispositionGood    Disposition = "good"
	DispositionBad     Disposition = "bad"
)

type FileArchivedEntity string

const (
	EntityJob FileArchivedEntity = "job"
)

type ArchivedFile string

const (
	FileDiagnostics ArchivedFile = "diagnostics"
)

type EventType string

const (
	EvtJobStarted   EventType = "job_started"
	EvtJobCompleted EventType = "job_completed"
	EvtJobFailed    EventType = "job_failed"
	EvtFileArchived EventType = "file_archived"
)

type Message struct {
	APIKeyID      *string     `json:"api_key_id"`
	LogContext    string      `json:"log_context" validate:"required"`
	SchemaVersion string      `json:"version"     validate:"required"`
	JobID         string      `json:"job_id"      validate:"required"`
	Disposition   Disposition `json:"disposition" validate:"required"`
	Type          EventType   `json:"event_type"  validate:"required"`

	Timestamp types.UnixMilli `json:"timestamp" validate:"required"`
}

type JobStartedEvent struct {
	TestingPath string `json:"testing_path" validate:"required"`
	Language    string `json:"language"     validate:"required"`
	Image       string `json:"image"        validate:"required"`
}

type JobStarted struct {
	Event JobStartedEvent `json:"event" validate:"required"`
	Message
}

type JobCompletedEvent struct {
	OverallScore *float64 `json:"overall_score"`
	TestsTotal   *int     `json:"tests_total"`
	TestsPassed  *int     `json:"tests_passed"`
	ExitCode     int      `json:"exit_code"`
	DurationMs   int64    `json:"duration_ms"`
}

type JobCompleted struct {
	Event JobCompletedEvent `json:"event" validate:"required"`
	Message
}

type JobFailedEvent struct {
	ExitCode    *int   `json:"exit_code"`
	FailureKind string `json:"failure_kind" validate:"required"`
	DurationMs  int64  `json:"duration_ms"`
}

type JobFailed struct {
	Event JobFailedEvent `json:"event" validate:"required"`
	Message
}

type FileArchivedEvent struct {
	BucketName   string             `json:"bucket_name"   validate:"required"`
	ObjectName   string             `json:"object_name"   validate:"required"`
	FileArchived ArchivedFile       `json:"file_archived" validate:"required"`
	Entity       FileArchivedEntity `json:"entity"        validate:"required"`
	EntityID     string             `json:"entity_id"     validate:"required"`
}

type FileArchived struct {
	Event FileArchivedEvent `json:"event" validate:"required"`
	Message
}
