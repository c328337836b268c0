package storage_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classgrade/autograder/internal/storage"
)

func TestHTTP(t *testing.T) {
	ctx := context.Background()

	e := echo.New()
	content := "public class Tests {}"
	e.GET("/bundles/week 1/Tests.java", func(c echo.Context) error {
		return c.String(http.StatusOK, content)
	})
	e.GET("/private/Tests.java", func(c echo.Context) error {
		if c.Request().Header.Get("Authorization") != "Bearer secret" {
			return c.NoContent(http.StatusUnauthorized)
		}
		return c.String(http.StatusOK, content)
	})
	e.GET("/empty.txt", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	server := httptest.NewServer(e)
	defer server.Close()

	client := func() *http.Client {
		c := retryablehttp.NewClient()
		c.RetryMax = 0
		c.Logger = nil
		return c.StandardClient()
	}

	t.Run("EscapedPath", func(t *testing.T) {
		d, err := storage.NewHTTPDownloader(client(), server.URL, "")
		require.NoError(t, err, "failed to create downloader")

		data, err := d.Download(ctx, "bundles/week 1/Tests.java")
		require.NoError(t, err, "failed to download")
		assert.Equal(t, []byte(content), data, "wrong body downloaded")
	})

	t.Run("BearerToken", func(t *testing.T) {
		d, err := storage.NewHTTPDownloader(client(), server.URL+"/", "secret")
		require.NoError(t, err, "failed to create downloader")

		data, err := d.Download(ctx, "/private/Tests.java")
		require.NoError(t, err, "failed to download")
		assert.Equal(t, []byte(content), data, "wrong body downloaded")
	})

	t.Run("Unauthorized", func(t *testing.T) {
		d, err := storage.NewHTTPDownloader(client(), server.URL, "")
		require.NoError(t, err, "failed to create downloader")

		_, err = d.Download(ctx, "private/Tests.java")
		require.Error(t, err, "expected to fail")
		assert.False(t, errors.Is(err, storage.ErrNotFound), "401 is not a missing object")
	})

	t.Run("NotFound", func(t *testing.T) {
		d, err := storage.NewHTTPDownloader(client(), server.URL, "")
		require.NoError(t, err, "failed to create downloader")

		_, err = d.Download(ctx, "foobar")
		require.ErrorIs(t, err, storage.ErrNotFound, "expected not found")
	})

	t.Run("EmptyObject", func(t *testing.T) {
		d, err := storage.NewHTTPDownloader(client(), server.URL, "")
		require.NoError(t, err, "failed to create downloader")

		data, err := d.Download(ctx, "empty.txt")
		require.NoError(t, err, "failed to download")
		assert.NotNil(t, data, "empty object must be a non-nil payload")
		assert.Empty(t, data, "expected no content")
	})

	t.Run("BadBaseURL", func(t *testing.T) {
		_, err := storage.NewHTTPDownloader(nil, "ftp://example.com", "")
		require.Error(t, err, "expected unsupported scheme")
	})
}
