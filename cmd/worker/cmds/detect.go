package cmds

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/codes"

	"github.com/classgrade/autograder/internal/identifier"
	"github.com/classgrade/autograder/internal/logger"
	"github.com/classgrade/autograder/internal/types"
	workererrors "github.com/classgrade/autograder/internal/worker_errors"
)

var (
	detectPath     string
	detectLanguage identifier.Language
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detect the grading profile of a source file",
	Long: `
- Prints the detected profile name, or nothing when no profile matches.
- With --language, prints true or false and exits with 1 when the file does not match.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, span := tracer.Start(cmd.Context(), "detectCmd")
		defer span.End()

		cfg, err := loadConfig()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to load config")
			return err
		}

		content, err := os.ReadFile(detectPath)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to read file")
			return workererrors.ExitErrorWrap(types.ExitErrored, err)
		}

		found, _ := identifier.NewDetector(cfg.Grading.Languages).Detect(detectPath, content)

		if detectLanguage == identifier.LanguageInvalid {
			fmt.Fprintln(cmd.OutOrStdout(), found)
			span.SetStatus(codes.Ok, "detected language")
			return nil
		}

		fmt.Fprintln(cmd.OutOrStdout(), found == detectLanguage)
		span.SetStatus(codes.Ok, "checked language")
		if found != detectLanguage {
			return workererrors.ExitErrorWrap(types.ExitErrored, nil)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(detectCmd)

	detectCmd.Flags().StringVar(&detectPath, "path", "", "Path to file to check (required)")
	detectCmd.Flags().Var(&detectLanguage, "language", "Expected grading profile")

	if err := detectCmd.MarkFlagRequired("path"); err != nil {
		logger.Logger.Error("error setting flag required", "flag", "path", "error", err)
		os.Exit(types.ExitErrored)
	}
}
