package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/classgrade/autograder/cmd/worker/cmds"
	"github.com/classgrade/autograder/internal/logger"
	autograderotel "github.com/classgrade/autograder/internal/otel"
	"github.com/classgrade/autograder/internal/types"
	workererrors "github.com/classgrade/autograder/internal/worker_errors"
)

var tracer = otel.Tracer("github.com/classgrade/autograder/worker")

func runApp(ctx context.Context) int {
	useOTLP, err := strconv.ParseBool(os.Getenv("USE_OTLP"))
	if err != nil {
		useOTLP = false
	}

	shutdown, err := autograderotel.SetupOTelSDK(ctx, "autograder-worker", useOTLP)
	if err != nil {
		logger.Logger.Warn("failed to setup otel sdk", "error", err)
	}
	defer func() {
		fail := shutdown(ctx)
		if fail != nil {
			logger.Logger.Warn("no clean shutdown for otel", "error", fail)
		}
	}()

	// a parent process or queue producer may hand us its trace context
	extractedContext := autograderotel.ExtractEnv(context.Background())
	ctx, span := tracer.Start(
		ctx,
		"Worker",
		trace.WithNewRoot(),
		trace.WithLinks(trace.LinkFromContext(extractedContext)),
	)
	defer span.End()

	err = cmds.Execute(ctx)
	if err != nil {
		var ee workererrors.ExitError
		if errors.As(err, &ee) {
			if ee.Err != nil {
				logger.Logger.Error("error executing subcommands", "error", ee.Err)
			}
			return ee.Code
		}

		logger.Logger.Error("error executing subcommands", "error", err)
		return types.ExitErrored
	}

	return types.ExitNormal
}

func main() {
	logger.LogLevel.Set(slog.LevelDebug)
	logger.InitSlog()

	ctx := context.Background()

	os.Exit(runApp(ctx))
}
