package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	servermiddleware "github.com/classgrade/autograder/cmd/server/internal/middleware"
	"github.com/classgrade/autograder/cmd/server/internal/ratelimit"
	"github.com/classgrade/autograder/internal/config"
	"github.com/classgrade/autograder/internal/grader"
	"github.com/classgrade/autograder/internal/identifier"
	"github.com/classgrade/autograder/internal/logger"
	"github.com/classgrade/autograder/internal/types"
)

const name = "github.com/classgrade/autograder/server/routes/v1"

var tracer = otel.Tracer(name)

type Handler struct {
	grader    grader.Service
	detector  *identifier.Detector
	grading   *config.GradingConfig
	rateLimit *config.RateLimitConfig
}

func NewRedisLimiter(
	redisHost string,
	limiterKey string,
	perMinute int64,
	failOpen bool,
	onlyMethod *string,
) middleware.RateLimiterConfig {
	l := logger.Logger

	redisAddr := redisHost + ":6379"
	l.Debug("Setting up rate limiter with Redis", "redis", redisAddr)
	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	store := ratelimit.NewRedisLimitStore(ratelimit.RedisLimiterConfig{
		PerMinute:   perMinute,
		RedisClient: rdb,
		LimiterKey:  limiterKey,
		FailOpen:    failOpen,
	})

	skipper := middleware.DefaultSkipper
	if onlyMethod != nil {
		skipper = func(c echo.Context) bool {
			return c.Request().Method != *onlyMethod
		}
	}

	return middleware.RateLimiterConfig{
		Skipper: skipper,
		Store:   store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			key, ok := c.Get(servermiddleware.AuthKey).(*config.APIKey)
			if !ok {
				return "", errTypeAssertMismatch
			}
			return key.ID, nil
		},
		ErrorHandler: func(c echo.Context, _ error) error {
			return c.JSON(http.StatusForbidden, types.StringError("Forbidden"))
		},
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return c.JSON(http.StatusTooManyRequests, types.StringError("rate limit exceeded"))
		},
	}
}

func NewHandler(
	g grader.Service,
	grading *config.GradingConfig,
	rateLimit *config.RateLimitConfig,
) Handler {
	return Handler{
		grader:    g,
		detector:  identifier.NewDetector(grading.Languages),
		grading:   grading,
		rateLimit: rateLimit,
	}
}

func (h *Handler) AddRoutes(e *echo.Echo, middlewareHandler *servermiddleware.Handler) {
	l := logger.Logger

	v1Group := e.Group("/v1", middleware.BasicAuth(middlewareHandler.BasicAuthValidator))

	v1Group.GET(
		"/ping/",
		h.Ping,
		servermiddleware.HasPermissions(servermiddleware.AuthKey, &config.APIKeyPermissions{Ping: true}),
	)

	gradeGroup := v1Group.Group(
		"/grade",
		servermiddleware.HasPermissions(servermiddleware.AuthKey, &config.APIKeyPermissions{Grade: true}),
	)

	if h.rateLimit != nil && h.rateLimit.GradePerMinute > 0 {
		post := http.MethodPost
		gradeGroup.Use(
			middleware.RateLimiterWithConfig(
				NewRedisLimiter(
					h.rateLimit.RedisHost,
					"grade",
					h.rateLimit.GradePerMinute,
					h.rateLimit.FailOpen,
					&post,
				),
			),
		)
	} else {
		l.Warn("not configured to have a grade rate limit")
	}

	gradeGroup.POST("/", h.Grade)
}
