package cmds

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/classgrade/autograder/cmd/worker/internal/common"
	"github.com/classgrade/autograder/cmd/worker/internal/workerqueue"
	"github.com/classgrade/autograder/internal/grader"
	"github.com/classgrade/autograder/internal/logger"
	"github.com/classgrade/autograder/internal/types"
	workererrors "github.com/classgrade/autograder/internal/worker_errors"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Grade jobs from the jobs queue until interrupted",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ctx, span := tracer.Start(ctx, "listenCmd")
		defer span.End()

		cfg, err := loadConfig()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to load config")
			return err
		}
		if cfg.Queue == nil {
			err = workererrors.ExitErrorWrap(types.ExitErrored, errors.New("queue is not configured"))
			span.RecordError(err)
			span.SetStatus(codes.Error, "queue is not configured")
			return err
		}

		jobs, results, err := common.GetAzureQueueClients(cfg.Queue)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to make azure queues")
			return workererrors.ExitErrorWrap(types.ExitErrored, err)
		}

		g, err := grader.FromConfig(cfg)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to build grader")
			return workererrors.ExitErrorWrap(types.ExitErrored, err)
		}

		workers := common.Workers(cfg)
		span.SetAttributes(attribute.Int("workers", workers))
		logger.Logger.InfoContext(ctx, "Listening for grading jobs",
			"workers", workers,
			"job-timeout", cfg.Queue.JobTimeout,
		)

		handler := workerqueue.NewJobHandler(g, cfg.Grading, results)
		err = workerqueue.Listen(ctx, jobs, handler, cfg.Queue.JobTimeout, workers)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to listen")
			return workererrors.ExitErrorWrap(types.ExitErrored, err)
		}

		logger.Logger.InfoContext(ctx, "Stopped listening for grading jobs")
		span.RecordError(nil)
		span.SetStatus(codes.Ok, "stopped listening")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listenCmd)
}
