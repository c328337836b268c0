package routes

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	slogecho "github.com/samber/slog-echo"
	echoswagger "github.com/swaggo/echo-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	_ "github.com/classgrade/autograder/cmd/server/docs"
	servermiddleware "github.com/classgrade/autograder/cmd/server/internal/middleware"
	"github.com/classgrade/autograder/internal/validator"
)

func BuildEcho(logger *slog.Logger) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true

	validate := validator.Create()
	e.Validator = &validate

	e.Pre(
		middleware.AddTrailingSlashWithConfig(
			middleware.TrailingSlashConfig{Skipper: func(c echo.Context) bool {
				return strings.Contains(c.Request().URL.Path, "swagger")
			}},
		),
	)

	e.Use(
		otelecho.Middleware("autograder"),
		slogecho.NewWithConfig(logger, slogecho.Config{}),
		servermiddleware.JobID(servermiddleware.JobIDKey),
	)

	e.GET("/health/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/swagger/*", echoswagger.WrapHandler)

	return e, nil
}
