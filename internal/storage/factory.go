package storage

import (
	"errors"
	"fmt"

	"github.com/classgrade/autograder/internal/config"
)

// Builds the configured backend wrapped in a RetryDownloader
func FromConfig(cfg *config.StorageConfig) (Downloader, error) {
	if cfg == nil {
		return nil, errors.New("storage config is required")
	}

	var (
		backend Downloader
		err     error
	)
	switch cfg.Backend {
	case "minio":
		m := cfg.Minio
		backend, err = NewMinioDownloader(m.Endpoint, m.AccessKeyID, m.SecretAccessKey, m.SSLEnabled, m.Bucket)
	case "azure":
		a := cfg.Azure
		backend, err = NewAzureDownloader(a.AccountName, a.AccountKey, a.URL, a.Container)
	case "http":
		backend, err = NewHTTPDownloader(nil, cfg.HTTP.BaseURL, cfg.HTTP.Token)
	case "dir":
		backend = NewDirDownloader(cfg.Dir.Root)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s downloader: %w", cfg.Backend, err)
	}

	return NewRetryDownloader(backend, cfg.Retry.MaxRetries, cfg.Retry.BaseDelay), nil
}
