package command

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer(
	"github.com/classgrade/autograder/internal/command",
)

type Result struct {
	Cmd      []string
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	// Set when captured output went past the executor's limit and was cut
	Truncated bool
}

type Command struct {
	Stdin   io.Reader
	Program string
	Args    []string
	// Extra `NAME=value` pairs appended to the inherited environment
	Env []string
}

func New(program string, args ...string) *Command {
	return &Command{
		Program: program,
		Args:    args,
	}
}

// Program followed by its arguments, as it would be executed
func (c *Command) Argv() []string {
	argv := make([]string, 0, len(c.Args)+1)
	argv = append(argv, c.Program)
	return append(argv, c.Args...)
}

//go:generate mockgen -destination ./mock/mock.go -package mock . Executor

type Executor interface {
	// Runs the command to completion. A non-zero exit code is not an error; only a failure
	// to start or wait on the process is. A cancelled context yields exit code -1.
	Execute(ctx context.Context, cmd *Command) (*Result, error)
}
