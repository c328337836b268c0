package grader

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("github.com/classgrade/autograder/internal/grader")

type metrics struct {
	jobs     metric.Int64Counter
	active   metric.Int64UpDownCounter
	duration metric.Float64Histogram
}

func newMetrics() (*metrics, error) {
	jobs, err := meter.Int64Counter(
		"autograder.jobs",
		metric.WithDescription("Grading jobs finished, by outcome"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, err
	}

	active, err := meter.Int64UpDownCounter(
		"autograder.jobs.active",
		metric.WithDescription("Grading jobs holding an admission slot"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"autograder.job.duration",
		metric.WithDescription("Wall time of admitted grading jobs"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &metrics{jobs: jobs, active: active, duration: duration}, nil
}

func (m *metrics) finished(ctx context.Context, language, outcome string, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("language", language),
		attribute.String("outcome", outcome),
	)
	m.jobs.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}
