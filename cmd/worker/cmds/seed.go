package cmds

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/codes"

	"github.com/classgrade/autograder/internal/logger"
	"github.com/classgrade/autograder/internal/storage"
	"github.com/classgrade/autograder/internal/types"
	workererrors "github.com/classgrade/autograder/internal/worker_errors"
)

var seedSource string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Copy a local tree of test bundles into the directory store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, span := tracer.Start(cmd.Context(), "seedCmd")
		defer span.End()

		cfg, err := loadConfig()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to load config")
			return err
		}

		if cfg.Storage.Backend != "dir" || cfg.Storage.Dir == nil {
			err = workererrors.ExitErrorWrap(
				types.ExitErrored,
				errors.New("seeding requires the dir storage backend"),
			)
			span.RecordError(err)
			span.SetStatus(codes.Error, "wrong storage backend")
			return err
		}

		store := storage.NewDirDownloader(cfg.Storage.Dir.Root)
		if err := store.Seed(ctx, seedSource); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to seed store")
			return workererrors.ExitErrorWrap(types.ExitErrored, err)
		}

		logger.Logger.InfoContext(ctx, "Seeded directory store", "src", seedSource, "root", store.Root())
		span.RecordError(nil)
		span.SetStatus(codes.Ok, "seeded store")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().StringVar(&seedSource, "src", "", "Local directory of test bundles (required)")
	if err := seedCmd.MarkFlagRequired("src"); err != nil {
		logger.Logger.Error("error setting flag required", "flag", "src", "error", err)
		os.Exit(types.ExitErrored)
	}
}
