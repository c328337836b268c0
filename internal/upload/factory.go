package upload

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/classgrade/autograder/internal/config"
)

// Builds a diagnostics uploader on the same backend as the test material store, writing to
// diagnostics.bucket (a bucket, container or subdirectory depending on the backend).
func FromConfig(storage *config.StorageConfig, diagnostics *config.DiagnosticsConfig) (Uploader, error) {
	if storage == nil || diagnostics == nil {
		return nil, errors.New("storage and diagnostics config are required")
	}

	var (
		backend Uploader
		err     error
	)
	switch storage.Backend {
	case "minio":
		m := storage.Minio
		backend, err = NewMinioUploader(m.Endpoint, m.AccessKeyID, m.SecretAccessKey, m.SSLEnabled, diagnostics.Bucket)
	case "azure":
		a := storage.Azure
		backend, err = NewAzureUploader(a.AccountName, a.AccountKey, a.URL, diagnostics.Bucket)
	case "dir":
		backend = NewDirUploader(filepath.Join(storage.Dir.Root, diagnostics.Bucket))
	default:
		return nil, fmt.Errorf("diagnostics are not supported on the %q storage backend", storage.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s uploader: %w", storage.Backend, err)
	}

	return NewRetryUploader(backend, storage.Retry.MaxRetries, storage.Retry.BaseDelay), nil
}
