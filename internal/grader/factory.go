package grader

import (
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/classgrade/autograder/internal/command"
	"github.com/classgrade/autograder/internal/config"
	"github.com/classgrade/autograder/internal/container"
	"github.com/classgrade/autograder/internal/extract"
	"github.com/classgrade/autograder/internal/results"
	"github.com/classgrade/autograder/internal/stage"
	"github.com/classgrade/autograder/internal/storage"
	"github.com/classgrade/autograder/internal/submission"
	"github.com/classgrade/autograder/internal/upload"
	"github.com/classgrade/autograder/internal/workspace"
)

// Wires the full pipeline from config: the storage backend, a docker runner and, when enabled,
// a diagnostics uploader
func FromConfig(cfg *config.Config) (*Grader, error) {
	downloader, err := storage.FromConfig(cfg.Storage)
	if err != nil {
		return nil, err
	}

	var schema *jsonschema.Schema
	if cfg.Grading.ResultsSchema != nil && *cfg.Grading.ResultsSchema != "" {
		schema, err = results.LoadSchema(*cfg.Grading.ResultsSchema)
		if err != nil {
			return nil, err
		}
	}

	deps := Dependencies{
		Workspaces: workspace.NewManager(cfg.TempDirOrDefault()),
		Stager:     stage.NewStager(downloader, extract.NewZipExtractor()),
		Writer:     submission.NewWriter(),
		Runner: container.NewDockerRunner(command.NewShellExecutor(), container.DockerOptions{
			Runtime: cfg.Grading.Runtime,
			Network: cfg.Grading.Network,
			Memory:  cfg.Grading.Memory,
			CPUs:    cfg.Grading.CPUs,
			Timeout: cfg.Grading.ContainerTimeout,
		}),
		Interpreter: results.NewInterpreter(cfg.Grading.MaxResultsBytes, schema),
	}

	if cfg.Diagnostics != nil && cfg.Diagnostics.Enabled {
		deps.Diagnostics, err = upload.FromConfig(cfg.Storage, cfg.Diagnostics)
		if err != nil {
			return nil, fmt.Errorf("failed to create diagnostics uploader: %w", err)
		}
	}

	return New(deps, Options{
		MaxConcurrentJobs: cfg.Grading.MaxConcurrentJobs,
		AdmissionTimeout:  cfg.Grading.AdmissionTimeout,
	})
}
