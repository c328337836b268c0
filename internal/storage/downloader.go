package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer(
	"github.com/classgrade/autograder/internal/storage",
)

// Largest object a downloader will buffer in memory
const MaxObjectSize = 256 << 20

var (
	ErrNotFound       = errors.New("object not found")
	ErrObjectTooLarge = fmt.Errorf("object larger than %d bytes", MaxObjectSize)
)

//go:generate mockgen -destination ./mock/mock.go -package mock . Downloader

// Read access to the object store holding test bundles, addressed by logical path
type Downloader interface {
	// Returns the full object contents. A missing object is reported as ErrNotFound.
	Download(ctx context.Context, path string) ([]byte, error)
}

// Reads all of `r`, refusing anything past MaxObjectSize
func readAll(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxObjectSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxObjectSize {
		return nil, ErrObjectTooLarge
	}

	return data, nil
}
