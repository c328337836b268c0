package cmds

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/classgrade/autograder/internal/grader"
	"github.com/classgrade/autograder/internal/identifier"
	"github.com/classgrade/autograder/internal/logger"
	"github.com/classgrade/autograder/internal/types"
	"github.com/classgrade/autograder/internal/validator"
	workererrors "github.com/classgrade/autograder/internal/worker_errors"
)

var (
	studentCodeFile string
	testingPath     string
	gradeLanguage   identifier.Language
	gradeJobID      string
)

var gradeCmd = &cobra.Command{
	Use:   "grade",
	Short: "Grade one submission and print its results",
	Long: `
- Exits with 0 and prints results.json to stdout when grading completed.
- Exits with 2 when the grading container produced no or malformed results.
- Exits with 3 when the grading container timed out.
- Exits with 1 for all other errors.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, span := tracer.Start(cmd.Context(), "gradeCmd")
		defer span.End()

		span.SetAttributes(
			attribute.String("testingPath", testingPath),
			attribute.String("language", gradeLanguage.String()),
		)

		cfg, err := loadConfig()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to load config")
			return err
		}

		if !validator.ValidTestingPath(testingPath) {
			err = workererrors.ExitErrorWrap(
				types.ExitErrored,
				fmt.Errorf("invalid testing path %q", testingPath),
			)
			span.RecordError(err)
			span.SetStatus(codes.Error, "invalid testing path")
			return err
		}

		code, err := os.ReadFile(studentCodeFile)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to read student code")
			return workererrors.ExitErrorWrap(types.ExitErrored, err)
		}

		profile, ok := identifier.NewDetector(cfg.Grading.Languages).
			Resolve(cfg.Grading, gradeLanguage.String(), code)
		if !ok {
			err = workererrors.ExitErrorWrap(
				types.ExitErrored,
				fmt.Errorf("unsupported language %q", gradeLanguage),
			)
			span.RecordError(err)
			span.SetStatus(codes.Error, "unsupported language")
			return err
		}

		g, err := grader.FromConfig(cfg)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to build grader")
			return workererrors.ExitErrorWrap(types.ExitErrored, err)
		}

		logger.Logger.InfoContext(ctx, "Starting grading job",
			"testing-path", testingPath,
			"language", profile.Name,
			"image", profile.Image,
		)

		result, err := g.Grade(ctx, grader.Request{
			JobID:       gradeJobID,
			StudentCode: string(code),
			TestingPath: testingPath,
			Profile:     *profile,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to grade")
			return workererrors.ExitErrorWrap(exitCode(err), err)
		}

		if _, err := fmt.Fprintln(cmd.OutOrStdout(), string(result.Payload)); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to write results")
			return workererrors.ExitErrorWrap(types.ExitErrored, err)
		}

		span.RecordError(nil)
		span.SetStatus(codes.Ok, "graded successfully")
		return nil
	},
}

// Exit code for a grading failure
func exitCode(err error) int {
	switch {
	case errors.Is(err, workererrors.ErrResultsArtifactMissing),
		errors.Is(err, workererrors.ErrResultsArtifactCorrupt):
		return types.ExitGradingFailed
	case errors.Is(err, workererrors.ErrContainerTimeout):
		return types.ExitTimedOut
	default:
		return types.ExitErrored
	}
}

func init() {
	rootCmd.AddCommand(gradeCmd)

	gradeCmd.Flags().
		StringVar(&studentCodeFile, "student-code-file", "", "File holding the submission source (required)")
	gradeCmd.Flags().
		StringVar(&testingPath, "testing-path", "", "Storage path of the test bundle (required)")

	for _, requiredFlag := range []string{"student-code-file", "testing-path"} {
		err := gradeCmd.MarkFlagRequired(requiredFlag)
		if err != nil {
			logger.Logger.Error(
				"error setting flag required",
				"flag",
				requiredFlag,
				"error",
				err,
			)
			os.Exit(types.ExitErrored)
		}
	}

	gradeCmd.Flags().
		Var(&gradeLanguage, "language", "Grading profile. Detected from the source when omitted.")
	gradeCmd.Flags().
		StringVar(&gradeJobID, "job-id", "", "ID for the job in logs and audit events. Generated when omitted.")
}
