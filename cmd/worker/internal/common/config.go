package common

import (
	"errors"

	"github.com/classgrade/autograder/internal/config"
	"github.com/classgrade/autograder/internal/queue"
)

// Jobs and results queues of the configured storage account
func GetAzureQueueClients(cfg *config.QueueConfig) (*queue.AzureQueuer, *queue.AzureQueuer, error) {
	if cfg == nil || cfg.Azure == nil {
		return nil, nil, errors.New("queue.azure is not configured")
	}
	az := cfg.Azure

	jobs, err := queue.NewAzureQueuer(az.AccountName, az.AccountKey, az.URL, az.Jobs)
	if err != nil {
		return nil, nil, err
	}

	results, err := queue.NewAzureQueuer(az.AccountName, az.AccountKey, az.URL, az.Results)
	if err != nil {
		return nil, nil, err
	}

	return jobs, results, nil
}

// Number of concurrent queue consumers, defaulting to the grader's admission limit
func Workers(cfg *config.Config) int {
	if cfg.Queue != nil && cfg.Queue.Workers > 0 {
		return cfg.Queue.Workers
	}

	return int(cfg.Grading.MaxConcurrentJobs)
}
