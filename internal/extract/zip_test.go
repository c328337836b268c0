package extract_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classgrade/autograder/internal/extract"
)

type entry struct {
	name    string
	content string
}

func writeZip(t *testing.T, entries ...entry) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tests.zip")
	f, err := os.Create(path)
	require.NoError(t, err, "failed to create zip")
	defer f.Close()

	w := zip.NewWriter(f)
	for _, e := range entries {
		fw, err := w.Create(e.name)
		require.NoError(t, err, "failed to add entry")
		_, err = fw.Write([]byte(e.content))
		require.NoError(t, err, "failed to write entry")
	}
	require.NoError(t, w.Close(), "failed to finish zip")

	return path
}

func TestZip(t *testing.T) {
	ctx := context.Background()

	t.Run("Valid", func(t *testing.T) {
		outDir := t.TempDir()
		archive := writeZip(t,
			entry{name: "TestA.java", content: "class TestA {}"},
			entry{name: "lib/"},
			entry{name: "lib/helper.txt", content: "help"},
		)

		files, err := extract.NewZipExtractor().Extract(ctx, archive, outDir)
		require.NoError(t, err, "failed to extract")

		assert.ElementsMatch(t, []string{"TestA.java", "lib/helper.txt"}, files, "wrong files reported")

		contents, err := os.ReadFile(filepath.Join(outDir, "lib", "helper.txt"))
		require.NoError(t, err, "failed to read extracted file")
		assert.Equal(t, "help", string(contents), "wrong content")
	})

	t.Run("Empty", func(t *testing.T) {
		outDir := t.TempDir()
		archive := writeZip(t)

		files, err := extract.NewZipExtractor().Extract(ctx, archive, outDir)
		require.NoError(t, err, "empty archive should extract")
		assert.Empty(t, files, "expected no files")
	})

	t.Run("Traversal", func(t *testing.T) {
		outDir := t.TempDir()
		archive := writeZip(t, entry{name: "../evil.sh", content: "rm -rf /"})

		_, err := extract.NewZipExtractor().Extract(ctx, archive, outDir)
		require.Error(t, err, "expected traversal to be rejected")

		_, err = os.Stat(filepath.Join(filepath.Dir(outDir), "evil.sh"))
		assert.True(t, os.IsNotExist(err), "nothing may be written outside outDir")
	})

	t.Run("Absolute", func(t *testing.T) {
		outDir := t.TempDir()
		archive := writeZip(t, entry{name: "/etc/evil", content: "x"})

		_, err := extract.NewZipExtractor().Extract(ctx, archive, outDir)
		require.Error(t, err, "expected absolute path to be rejected")

		_, err = os.Stat("/etc/evil")
		assert.True(t, os.IsNotExist(err), "nothing may be written outside outDir")
	})

	t.Run("Limit", func(t *testing.T) {
		outDir := t.TempDir()
		archive := writeZip(t,
			entry{name: "a", content: "12345"},
			entry{name: "b", content: "67890"},
		)

		_, err := extract.NewZipExtractorWithLimit(8).Extract(ctx, archive, outDir)
		require.ErrorIs(t, err, extract.ErrTooLarge, "expected size limit to trip")
	})

	t.Run("NotAZip", func(t *testing.T) {
		outDir := t.TempDir()
		path := filepath.Join(t.TempDir(), "tests.zip")
		require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o600))

		_, err := extract.NewZipExtractor().Extract(ctx, path, outDir)
		require.Error(t, err, "should fail")
	})

	t.Run("InvalidOutdir", func(t *testing.T) {
		archive := writeZip(t, entry{name: "a", content: "a"})

		_, err := extract.NewZipExtractor().Extract(ctx, archive, "foobar")
		require.Error(t, err, "should fail to extract")
	})
}
