package hash

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/classgrade/autograder/internal/hash")

// SHA-256 of a submission or an archived bundle
type Digest [sha256.Size]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Content address of the digested bytes under prefix
func (d Digest) Key(prefix string) string {
	return prefix + d.String()
}

func Of(b []byte) Digest {
	return sha256.Sum256(b)
}

// Digests r to its end. length is the size the caller expects to upload; a reader that
// yields a different number of bytes is an error so the stored object always matches its key.
func Stream(ctx context.Context, r io.Reader, length int64) (Digest, error) {
	_, span := tracer.Start(ctx, "Stream", trace.WithAttributes(
		attribute.Int64("length", length),
	))
	defer span.End()

	var d Digest
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read content")
		return d, err
	}
	if n != length {
		err = fmt.Errorf("read %d bytes, expected %d", n, length)
		span.RecordError(err)
		span.SetStatus(codes.Error, "length mismatch")
		return d, err
	}

	copy(d[:], h.Sum(nil))
	span.SetAttributes(attribute.String("sum", d.String()))
	span.SetStatus(codes.Ok, "digested")
	return d, nil
}
