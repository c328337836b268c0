package cmds

import (
	"context"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/classgrade/autograder/internal/config"
	"github.com/classgrade/autograder/internal/logger"
	"github.com/classgrade/autograder/internal/types"
	workererrors "github.com/classgrade/autograder/internal/worker_errors"
)

var tracer = otel.Tracer("github.com/classgrade/autograder/worker/cmds")

var rootCmd = &cobra.Command{
	Use:           "worker",
	Short:         "Grades submissions from the command line or from the jobs queue",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.GetConfig()
	if err != nil {
		return nil, workererrors.ExitErrorWrap(types.ExitErrored, err)
	}

	logger.SetLevel(cfg.Logging.App.Level)
	return cfg, nil
}
