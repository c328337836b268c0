package logger

import (
	"log/slog"
	"os"

	slogotel "github.com/remychantenay/slog-otel"
)

var LogLevel = new(slog.LevelVar)

var jsonHandler = slog.NewJSONHandler(
	os.Stderr,
	&slog.HandlerOptions{AddSource: true, Level: LogLevel},
)

// Trace and span ids are copied onto every record; span events are left alone so
// container output does not end up duplicated on the job span.
var otelHandler = slogotel.NewOtelHandler(slogotel.WithNoTraceEvents(true))

var Handler = otelHandler(jsonHandler)
var Logger = slog.New(Handler)

func InitSlog() {
	slog.SetDefault(Logger)
	LogLevel.Set(slog.LevelDebug)
}

// Applies a configured level. Unknown levels fall back to info.
func SetLevel(level int) {
	switch l := slog.Level(level); l {
	case slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError:
		LogLevel.Set(l)
	default:
		Logger.Warn("unknown log level, using info", "level", level)
		LogLevel.Set(slog.LevelInfo)
	}
}

// Logger scoped to a single grading job
func ForJob(jobID string) *slog.Logger {
	return Logger.With("job.id", jobID)
}
