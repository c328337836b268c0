package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/classgrade/autograder/internal/logger"
	"github.com/classgrade/autograder/internal/types"
)

type Context struct {
	APIKeyID *string
	JobID    string
}

func (c Context) message(evt EventType, disposition Disposition) Message {
	return Message{
		APIKeyID:      c.APIKeyID,
		LogContext:    logContext,
		SchemaVersion: schemaVersion,
		JobID:         c.JobID,
		Disposition:   disposition,
		Type:          evt,
		Timestamp:     types.UnixMilli(time.Now().UTC().UnixMilli()),
	}
}

var (
	outputMu sync.Mutex
	output   io.Writer = os.Stderr
)

// Audit events go to stderr unless redirected. Stdout is left to command results.
func SetOutput(w io.Writer) {
	outputMu.Lock()
	defer outputMu.Unlock()
	output = w
}

func emit(event any, evt EventType, jobID string) {
	evtStr, err := json.Marshal(event)
	if err != nil {
		logger.Logger.Error("could not serialize audit event", "event_type", evt, "job.id", jobID)
		return
	}

	outputMu.Lock()
	defer outputMu.Unlock()
	if _, err := fmt.Fprintln(output, string(evtStr)); err != nil {
		logger.Logger.Error("could not write audit event", "event_type", evt, "job.id", jobID, "error", err)
	}
}

func LogJobStarted(c Context, testingPath, language, image string) {
	event := JobStarted{}
	event.Message = c.message(EvtJobStarted, DispositionNeutral)

	event.Event.TestingPath = testingPath
	event.Event.Language = language
	event.Event.Image = image

	emit(event, EvtJobStarted, c.JobID)
}

// Summary fields are optional, they are only known for the standard results shape
func LogJobCompleted(
	c Context,
	exitCode int,
	duration time.Duration,
	overallScore *float64,
	testsTotal *int,
	testsPassed *int,
) {
	event := JobCompleted{}
	event.Message = c.message(EvtJobCompleted, DispositionGood)

	event.Event.ExitCode = exitCode
	event.Event.DurationMs = duration.Milliseconds()
	event.Event.OverallScore = overallScore
	event.Event.TestsTotal = testsTotal
	event.Event.TestsPassed = testsPassed

	emit(event, EvtJobCompleted, c.JobID)
}

// exitCode is nil when the container never ran
func LogJobFailed(c Context, failureKind string, exitCode *int, duration time.Duration) {
	event := JobFailed{}
	event.Message = c.message(EvtJobFailed, DispositionBad)

	event.Event.FailureKind = failureKind
	event.Event.ExitCode = exitCode
	event.Event.DurationMs = duration.Milliseconds()

	emit(event, EvtJobFailed, c.JobID)
}

func LogFileArchived(
	c Context,
	bucketName string,
	objectName string,
	fileArchived ArchivedFile,
	fileArchivedEntity FileArchivedEntity,
	entityID string,
) {
	event := FileArchived{}
	event.Message = c.message(EvtFileArchived, DispositionNeutral)

	event.Event.BucketName = bucketName
	event.Event.ObjectName = objectName
	event.Event.FileArchived = fileArchived
	event.Event.Entity = fileArchivedEntity
	event.Event.EntityID = entityID

	emit(event, EvtFileArchived, c.JobID)
}
