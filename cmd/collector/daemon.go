package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/riskibarqy/halo-stats/internal/app"
	"github.com/riskibarqy/halo-stats/internal/config"
	"github.com/riskibarqy/halo-stats/internal/platform/logging"
	"github.com/riskibarqy/halo-stats/internal/usecase"
)

type scheduledJob struct {
	name  string
	every time.Duration
	run   func(context.Context) error
}

func daemonJobs(c *app.Collector, cfg config.Config) []scheduledJob {
	return []scheduledJob{
		{
			name:  "next_player",
			every: cfg.ScheduleMatchInterval,
			run: func(ctx context.Context) error {
				_, err := c.Coverage.RunNextPlayer(ctx)
				if errors.Is(err, usecase.ErrNoPlayerQueued) {
					return nil
				}
				return err
			},
		},
		{
			name:  "detail",
			every: cfg.ScheduleDetailInterval,
			run: func(ctx context.Context) error {
				_, err := c.Detail.Run(ctx, c.DetailBatchLimit)
				return err
			},
		},
		{
			name:  "metadata",
			every: cfg.ScheduleMetadataInterval,
			run: func(ctx context.Context) error {
				_, err := c.Metadata.Run(ctx)
				return err
			},
		},
	}
}

// runDaemon schedules the collection jobs until ctx is cancelled. A job that
// is still running when its next tick arrives is rescheduled, never doubled.
func runDaemon(ctx context.Context, c *app.Collector, cfg config.Config, logger *logging.Logger) error {
	logger = logger.Named("daemon")

	scheduler, err := gocron.NewScheduler(gocron.WithLogger(logger.Named("scheduler")))
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	for _, job := range daemonJobs(c, cfg) {
		_, err := scheduler.NewJob(
			gocron.DurationJob(job.every),
			gocron.NewTask(func() {
				started := time.Now()
				if err := job.run(ctx); err != nil {
					logger.ErrorContext(ctx, "scheduled job failed", "job", job.name, "error", err)
					return
				}
				logger.InfoContext(ctx, "scheduled job finished", "job", job.name, "elapsed", time.Since(started))
			}),
			gocron.WithName(job.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			return fmt.Errorf("schedule %s: %w", job.name, err)
		}
		logger.Info("job scheduled", "job", job.name, "every", job.every)
	}

	scheduler.Start()
	<-ctx.Done()
	logger.Info("shutting down scheduler")
	if err := scheduler.Shutdown(); err != nil {
		return fmt.Errorf("shutdown scheduler: %w", err)
	}
	return nil
}
