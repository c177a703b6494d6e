package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/pagecraft-dev/pagecraft/internal/tasks"
)

// Enqueuer is the part of *asynq.Client the scheduler needs
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// standard 5-field format: minute hour day-of-month month day-of-week
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// StartScheduler enqueues a session purge on every tick of schedule.
// The returned cron is already running; call Stop on shutdown.
func StartScheduler(client Enqueuer, schedule string, logger zerolog.Logger) (*cron.Cron, error) {
	c := cron.New(cron.WithParser(cronParser))

	if _, err := c.AddFunc(schedule, func() {
		enqueuePurge(context.Background(), client, logger)
	}); err != nil {
		return nil, fmt.Errorf("invalid maintenance schedule %q: %w", schedule, err)
	}

	c.Start()

	if next := nextRunTime(schedule, time.Now()); next != nil {
		logger.Info().
			Str("schedule", schedule).
			Time("next_run_at", *next).
			Msg("Maintenance scheduler started")
	}
	return c, nil
}

func enqueuePurge(ctx context.Context, client Enqueuer, logger zerolog.Logger) {
	if _, err := client.EnqueueContext(ctx, tasks.NewPurgeSessionsTask()); err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) {
			logger.Debug().Msg("Session purge already queued")
			return
		}
		logger.Error().Err(err).Msg("Failed to enqueue session purge")
		return
	}
	logger.Debug().Msg("Session purge enqueued")
}

// nextRunTime calculates the next run from a cron schedule
func nextRunTime(cronExpr string, from time.Time) *time.Time {
	if cronExpr == "" {
		return nil
	}

	schedule, err := cronParser.Parse(cronExpr)
	if err != nil {
		return nil
	}

	next := schedule.Next(from)
	return &next
}
