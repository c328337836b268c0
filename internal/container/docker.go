package container

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/classgrade/autograder/internal/command"
	"github.com/classgrade/autograder/internal/logger"
	otelautograder "github.com/classgrade/autograder/internal/otel"
	workererrors "github.com/classgrade/autograder/internal/worker_errors"
)

// Ensure DockerRunner implements Runner interface.
var _ Runner = (*DockerRunner)(nil)

// Exit codes the docker (and podman) CLI uses for its own failures rather than the container's
const (
	exitRuntimeError   = 125
	exitCannotInvoke   = 126
	exitCommandMissing = 127
)

const removeTimeout = 30 * time.Second

type DockerOptions struct {
	// Runtime binary, docker or a compatible CLI such as podman
	Runtime string
	Network string
	Memory  string
	CPUs    string
	// Zero disables the limit
	Timeout time.Duration
}

// Runs grading containers through a docker compatible CLI
type DockerRunner struct {
	executor command.Executor
	opts     DockerOptions
}

func NewDockerRunner(executor command.Executor, opts DockerOptions) *DockerRunner {
	if opts.Runtime == "" {
		opts.Runtime = "docker"
	}

	return &DockerRunner{
		executor: executor,
		opts:     opts,
	}
}

// Arguments for `<runtime> run`, excluding the runtime itself
func (r *DockerRunner) Args(invocation *Invocation) []string {
	args := []string{"run", "--rm", "--name", invocation.Name}
	if r.opts.Network != "" {
		args = append(args, "--network", r.opts.Network)
	}
	if r.opts.Memory != "" {
		args = append(args, "--memory", r.opts.Memory)
	}
	if r.opts.CPUs != "" {
		args = append(args, "--cpus", r.opts.CPUs)
	}
	for _, env := range invocation.Env {
		args = append(args, "--env", env)
	}

	return append(args,
		"-v", invocation.SourceDir+":"+SourceMount,
		"-v", invocation.TestsDir+":"+TestsMount,
		"-v", invocation.ResultsDir+":"+ResultsMount,
		invocation.Image,
	)
}

func (r *DockerRunner) Run(ctx context.Context, invocation *Invocation) (*Outcome, error) {
	ctx, span := tracer.Start(ctx, "DockerRunner.Run", trace.WithAttributes(
		attribute.String("runtime", r.opts.Runtime),
		attribute.String("image", invocation.Image),
		attribute.String("name", invocation.Name),
		attribute.String("timeout", r.opts.Timeout.String()),
	))
	defer span.End()

	withTrace := *invocation
	withTrace.Env = append(append([]string{}, invocation.Env...), otelautograder.InjectEnv(ctx).Environ()...)

	runCtx := ctx
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	cmd := command.New(r.opts.Runtime, r.Args(&withTrace)...)
	start := time.Now()
	result, err := r.executor.Execute(runCtx, cmd)
	duration := time.Since(start)

	if ctxErr := runCtx.Err(); ctxErr != nil {
		r.remove(ctx, invocation.Name)

		outcome := &Outcome{Cmd: cmd.Argv(), ExitCode: -1, Duration: duration}
		if result != nil {
			outcome = outcomeOf(result, duration)
		}

		kind := workererrors.ErrContainerTimeout
		cause := fmt.Errorf("container exceeded %s", r.opts.Timeout)
		if ctx.Err() != nil {
			kind = workererrors.ErrJobCanceled
			cause = context.Cause(ctx)
		}

		span.RecordError(cause)
		span.SetStatus(codes.Error, "container did not finish")
		return outcome, workererrors.JobErrorWithOutput(kind, cause, outcome.Output())
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to start runtime")
		return nil, workererrors.JobErrorWithOutput(
			workererrors.ErrContainerLaunch,
			err,
			&workererrors.Output{Cmd: cmd.Argv(), ExitCode: -1},
		)
	}

	outcome := outcomeOf(result, duration)
	span.SetAttributes(
		attribute.Int("exitCode", outcome.ExitCode),
		attribute.Int64("durationMs", duration.Milliseconds()),
	)

	switch outcome.ExitCode {
	case exitRuntimeError, exitCannotInvoke, exitCommandMissing:
		err = fmt.Errorf("runtime exited with code %d", outcome.ExitCode)
		span.RecordError(err)
		span.SetStatus(codes.Error, "runtime failed to launch container")
		return outcome, workererrors.JobErrorWithOutput(workererrors.ErrContainerLaunch, err, outcome.Output())
	}

	if outcome.ExitCode != 0 {
		logger.Logger.InfoContext(ctx, "grading container exited non-zero",
			"name", invocation.Name,
			"exitCode", outcome.ExitCode,
		)
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "container finished")
	return outcome, nil
}

// Force-removes the named container. The run context is already done at this point so the
// removal gets its own bounded context.
func (r *DockerRunner) remove(ctx context.Context, name string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), removeTimeout)
	defer cancel()

	ctx, span := tracer.Start(ctx, "DockerRunner.remove", trace.WithAttributes(
		attribute.String("name", name),
	))
	defer span.End()

	result, err := r.executor.Execute(ctx, command.New(r.opts.Runtime, "rm", "-f", name))
	if err == nil && result.ExitCode != 0 {
		err = fmt.Errorf("exit code %d: %s", result.ExitCode, result.Stderr)
	}
	if err != nil {
		logger.Logger.WarnContext(ctx, "failed to remove grading container", "name", name, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to remove container")
		return
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "removed container")
}

func outcomeOf(result *command.Result, duration time.Duration) *Outcome {
	return &Outcome{
		Cmd:       result.Cmd,
		Stdout:    result.Stdout,
		Stderr:    result.Stderr,
		ExitCode:  result.ExitCode,
		Duration:  duration,
		Truncated: result.Truncated,
	}
}

// Docker object names allow [a-zA-Z0-9][a-zA-Z0-9_.-]*
func ContainerName(jobID string) string {
	return "autograder-" + jobID
}
