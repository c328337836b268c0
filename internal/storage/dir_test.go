package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classgrade/autograder/internal/storage"
)

func TestDir(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(root, "course", "lab1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "course", "lab1", "Tests.java"), []byte("tests"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "empty"), nil, 0o600))

	d := storage.NewDirDownloader(root)

	t.Run("Nested", func(t *testing.T) {
		data, err := d.Download(ctx, "course/lab1/Tests.java")
		require.NoError(t, err, "failed to download")
		assert.Equal(t, []byte("tests"), data, "wrong content")
	})

	t.Run("Empty", func(t *testing.T) {
		data, err := d.Download(ctx, "empty")
		require.NoError(t, err, "failed to download")
		assert.NotNil(t, data, "empty file must be a non-nil payload")
		assert.Empty(t, data, "expected no content")
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := d.Download(ctx, "course/lab2/Tests.java")
		require.ErrorIs(t, err, storage.ErrNotFound, "expected not found")
	})

	t.Run("Escape", func(t *testing.T) {
		_, err := d.Download(ctx, "../etc/passwd")
		require.Error(t, err, "expected traversal to be rejected")
	})

	t.Run("Directory", func(t *testing.T) {
		_, err := d.Download(ctx, "course")
		require.Error(t, err, "expected directory to be rejected")
	})
}

func TestSeed(t *testing.T) {
	ctx := context.Background()

	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "lab1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "lab1", "tests.zip"), []byte("zip"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(src, ".DS_Store"), []byte("junk"), 0o600))

	d := storage.NewDirDownloader(t.TempDir())

	t.Run("Copies", func(t *testing.T) {
		require.NoError(t, d.Seed(ctx, src), "failed to seed")

		data, err := d.Download(ctx, "lab1/tests.zip")
		require.NoError(t, err, "seeded object should be downloadable")
		assert.Equal(t, []byte("zip"), data, "wrong content")

		_, err = d.Download(ctx, ".DS_Store")
		require.ErrorIs(t, err, storage.ErrNotFound, "dotfiles are not seeded")
	})

	t.Run("NotADirectory", func(t *testing.T) {
		err := d.Seed(ctx, filepath.Join(src, "lab1", "tests.zip"))
		require.Error(t, err, "expected a directory source")
	})

	t.Run("Missing", func(t *testing.T) {
		err := d.Seed(ctx, filepath.Join(src, "nope"))
		require.Error(t, err, "expected missing source to fail")
	})
}
