package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classgrade/autograder/internal/config"
	"github.com/classgrade/autograder/internal/logger"
)

func TestAuthorization(t *testing.T) {
	l := logger.Logger
	t.Run("NeedsOneHasNone", func(t *testing.T) {
		hasPerm := hasPermission(
			context.TODO(),
			&config.APIKeyPermissions{Grade: true},
			&config.APIKeyPermissions{},
			l,
		)
		assert.False(t, hasPerm, "needs grade but does not have")
	})

	t.Run("NeedsOneHasExtra", func(t *testing.T) {
		hasPerm := hasPermission(
			context.TODO(),
			&config.APIKeyPermissions{Grade: true},
			&config.APIKeyPermissions{Grade: true, Ping: true},
			l,
		)
		assert.True(t, hasPerm, "needs grade and has it")
	})

	t.Run("NeedsManyHasMany", func(t *testing.T) {
		hasPerm := hasPermission(
			context.TODO(),
			&config.APIKeyPermissions{Grade: true, Ping: true},
			&config.APIKeyPermissions{Grade: true, Ping: true},
			l,
		)
		assert.True(t, hasPerm, "needs both and has them")
	})

	t.Run("NeedsOneHasOther", func(t *testing.T) {
		hasPerm := hasPermission(
			context.TODO(),
			&config.APIKeyPermissions{Grade: true},
			&config.APIKeyPermissions{Ping: true},
			l,
		)
		assert.False(t, hasPerm, "needs grade but does not have it")
	})

	t.Run("NeedsNone", func(t *testing.T) {
		hasPerm := hasPermission(
			context.TODO(),
			&config.APIKeyPermissions{},
			&config.APIKeyPermissions{},
			l,
		)
		assert.True(t, hasPerm, "nothing needed")
	})
}

func TestHasPermissions(t *testing.T) {
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	mw := HasPermissions(AuthKey, &config.APIKeyPermissions{Grade: true})

	run := func(t *testing.T, key any) error {
		t.Helper()

		e := echo.New()
		c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), httptest.NewRecorder())
		if key != nil {
			c.Set(AuthKey, key)
		}
		return mw(ok)(c)
	}

	t.Run("Granted", func(t *testing.T) {
		require.NoError(t, run(t, &config.APIKey{Permissions: config.APIKeyPermissions{Grade: true}}))
	})

	t.Run("Missing", func(t *testing.T) {
		err := run(t, &config.APIKey{Permissions: config.APIKeyPermissions{Ping: true}})
		var he *echo.HTTPError
		require.ErrorAs(t, err, &he, "should be an http error")
		assert.Equal(t, http.StatusForbidden, he.Code, "should be forbidden")
	})

	t.Run("NoKey", func(t *testing.T) {
		err := run(t, nil)
		var he *echo.HTTPError
		require.ErrorAs(t, err, &he, "should be an http error")
		assert.Equal(t, http.StatusUnauthorized, he.Code, "should be unauthorized")
	})
}
