package workerqueue

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/classgrade/autograder/internal/logger"
	"github.com/classgrade/autograder/internal/queue"
)

// Pause after a failed dequeue so an unreachable queue is not hammered
const dequeueBackoff = 5 * time.Second

// Runs `workers` consumers of the jobs queue until ctx is done. Each consumer handles one
// message at a time, so at most `workers` jobs are in flight.
func Listen(
	ctx context.Context,
	jobs queue.Queuer,
	handler queue.MessageHandler,
	timeout time.Duration,
	workers int,
) error {
	if workers < 1 {
		return errors.New("at least one worker is required")
	}

	eg, ctx := errgroup.WithContext(ctx)
	for i := range workers {
		eg.Go(func() error {
			consume(ctx, i, jobs, handler, timeout)
			return nil
		})
	}

	return eg.Wait()
}

func consume(
	ctx context.Context,
	worker int,
	jobs queue.Queuer,
	handler queue.MessageHandler,
	timeout time.Duration,
) {
	log := logger.Logger.With("worker", worker)
	log.DebugContext(ctx, "consumer started")

	for ctx.Err() == nil {
		err := jobs.Dequeue(ctx, timeout, handler)
		if err == nil || ctx.Err() != nil {
			continue
		}

		log.WarnContext(ctx, "failed to dequeue job", "error", err)
		select {
		case <-ctx.Done():
		case <-time.After(dequeueBackoff):
		}
	}

	log.DebugContext(ctx, "consumer stopped")
}
