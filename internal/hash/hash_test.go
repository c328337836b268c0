package hash_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classgrade/autograder/internal/hash"
)

const helloWorld = "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"

func TestStream(t *testing.T) {
	ctx := context.Background()

	t.Run("MatchesOf", func(t *testing.T) {
		d, err := hash.Stream(ctx, strings.NewReader("hello world"), 11)
		require.NoError(t, err, "failed to hash")

		assert.Equal(t, helloWorld, d.String(), "wrong digest")
		assert.Equal(t, hash.Of([]byte("hello world")), d, "stream and buffer digests differ")
	})

	t.Run("LengthMismatch", func(t *testing.T) {
		_, err := hash.Stream(ctx, strings.NewReader("hello world"), 5)
		require.Error(t, err, "short length must be rejected")
	})
}

func TestKey(t *testing.T) {
	assert.Equal(t, "diagnostics/"+helloWorld, hash.Of([]byte("hello world")).Key("diagnostics/"), "wrong key")
}
