package command

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/classgrade/autograder/internal/logger"
)

// Ensure ShellExecutor implements Executor interface.
var _ Executor = (*ShellExecutor)(nil)

// Default cap on each captured stream
const DefaultOutputLimit = 4 << 20

// Executes the command via fork / subprocess. No shell is involved; arguments are
// passed to the program as-is.
type ShellExecutor struct {
	outputLimit int
}

func NewShellExecutor() *ShellExecutor {
	return &ShellExecutor{outputLimit: DefaultOutputLimit}
}

// Caps each of stdout and stderr at `limit` bytes
func NewShellExecutorWithLimit(limit int) *ShellExecutor {
	return &ShellExecutor{outputLimit: limit}
}

func (s *ShellExecutor) Execute(ctx context.Context, command *Command) (*Result, error) {
	ctx, span := tracer.Start(ctx, "ShellExecutor.Execute", trace.WithAttributes(
		attribute.String("program", command.Program),
		attribute.StringSlice("args", command.Args),
	))
	defer span.End()

	stdout := &limitedBuffer{limit: s.outputLimit}
	stderr := &limitedBuffer{limit: s.outputLimit}

	//nolint:gosec // G204: not controllable by sanitizing here; callers should ensure sanitization
	cmd := exec.CommandContext(ctx, command.Program, command.Args...)
	cmd.Stdin = command.Stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = time.Second
	if len(command.Env) > 0 {
		cmd.Env = append(os.Environ(), command.Env...)
	}

	err := cmd.Run()
	if err != nil {
		var ee *exec.ExitError
		if !errors.As(err, &ee) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to execute command")
			return nil, err
		}
	}

	stdoutBytes := stdout.Bytes()
	stderrBytes := stderr.Bytes()

	logLines(ctx, "stdout", stdoutBytes)
	logLines(ctx, "stderr", stderrBytes)

	exitCode := cmd.ProcessState.ExitCode()
	truncated := stdout.truncated || stderr.truncated

	span.AddEvent("executed", trace.WithAttributes(
		attribute.Int("exitCode", exitCode),
		attribute.Bool("truncated", truncated),
	))

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "successfully executed command")
	return &Result{
		Cmd:       command.Argv(),
		Stdout:    stdoutBytes,
		Stderr:    stderrBytes,
		ExitCode:  exitCode,
		Truncated: truncated,
	}, nil
}

func logLines(ctx context.Context, stream string, output []byte) {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		logger.Logger.DebugContext(ctx, stream, "line", scanner.Text())
	}
}

// Keeps the first `limit` bytes written and silently drops the rest so a chatty
// process never blocks on a full pipe.
type limitedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	remaining := b.limit - b.buf.Len()
	if remaining <= 0 {
		b.truncated = len(p) > 0 || b.truncated
		return len(p), nil
	}

	if len(p) > remaining {
		b.buf.Write(p[:remaining])
		b.truncated = true
		return len(p), nil
	}

	b.buf.Write(p)
	return len(p), nil
}

func (b *limitedBuffer) Bytes() []byte {
	out := b.buf.Bytes()
	if out == nil {
		return []byte{}
	}

	return out
}
