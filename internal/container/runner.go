package container

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"

	workererrors "github.com/classgrade/autograder/internal/worker_errors"
)

var tracer = otel.Tracer(
	"github.com/classgrade/autograder/internal/container",
)

// Mount points inside every grading container
const (
	SourceMount  = "/autograder/source"
	TestsMount   = "/autograder/tests"
	ResultsMount = "/autograder/results"
)

// One grading container run
type Invocation struct {
	// Container name, unique per job so a stuck run can be removed by name
	Name       string
	Image      string
	SourceDir  string
	TestsDir   string
	ResultsDir string
	// Extra `NAME=value` pairs for the container environment
	Env []string
}

// Process outcome of a container that ran to completion
type Outcome struct {
	Cmd       []string
	Stdout    []byte
	Stderr    []byte
	ExitCode  int
	Duration  time.Duration
	Truncated bool
}

func (o *Outcome) Output() *workererrors.Output {
	if o == nil {
		return nil
	}

	return &workererrors.Output{
		Cmd:      o.Cmd,
		Stdout:   o.Stdout,
		Stderr:   o.Stderr,
		ExitCode: o.ExitCode,
	}
}

//go:generate mockgen -destination ./mock/mock.go -package mock . Runner

type Runner interface {
	// Blocks until the container exits. A non-zero exit code is returned in the outcome, not
	// as an error. Errors are workererrors.JobError values of kind ErrContainerLaunch,
	// ErrContainerTimeout or ErrJobCanceled.
	Run(ctx context.Context, invocation *Invocation) (*Outcome, error)
}
