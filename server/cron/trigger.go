// Package cron runs housekeeping jobs on a cron schedule.
//
// A CronTrigger wraps a Runnable and executes it according to a cron schedule.
// It is started once and runs until its context is cancelled.
//
// Example usage:
//
//	trigger, err := cron.NewCronTrigger("session-sweep", "*/5 * * * *", registry, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	trigger.Start(ctx)  // Returns immediately, runs in background
//	<-ctx.Done()        // Wait for shutdown signal
package cron

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidCronSpec is returned when the cron specification cannot be parsed.
var ErrInvalidCronSpec = errors.New("invalid cron spec")

// Runnable is implemented by anything that can be triggered by the cron scheduler.
type Runnable interface {
	Run() error
}

// RunFunc adapts a function to Runnable.
type RunFunc func() error

// Run calls f.
func (f RunFunc) Run() error {
	return f()
}

// CronTrigger executes a Runnable according to a cron schedule.
type CronTrigger struct {
	name     string
	spec     string
	schedule cron.Schedule
	runnable Runnable
	logger   *slog.Logger
}

// NewCronTrigger creates a CronTrigger for the job called name.
// The spec follows standard cron format (5 fields: minute, hour, day, month,
// weekday) and also accepts descriptors such as @hourly or @every 10m.
// Returns ErrInvalidCronSpec if the specification cannot be parsed.
func NewCronTrigger(name, spec string, runnable Runnable, logger *slog.Logger) (*CronTrigger, error) {
	if runnable == nil {
		return nil, errors.New("runnable is required")
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, errors.Join(ErrInvalidCronSpec, err)
	}

	return &CronTrigger{
		name:     name,
		spec:     spec,
		schedule: schedule,
		runnable: runnable,
		logger:   logger.With("job", name),
	}, nil
}

// Name returns the job name.
func (ct *CronTrigger) Name() string {
	return ct.name
}

// Start launches a goroutine that triggers runs according to the cron schedule.
// Returns immediately. The goroutine exits when ctx is cancelled.
func (ct *CronTrigger) Start(ctx context.Context) {
	go ct.loop(ctx)
}

// NextRun returns the next scheduled run time from now.
func (ct *CronTrigger) NextRun() time.Time {
	return ct.schedule.Next(time.Now())
}

func (ct *CronTrigger) loop(ctx context.Context) {
	for {
		nextRun := ct.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(nextRun))

		ct.logger.Debug("waiting for next scheduled run", "next_run", nextRun)

		select {
		case <-ctx.Done():
			timer.Stop()
			ct.logger.Info("cron trigger shutting down")
			return
		case <-timer.C:
			ct.executeRun()
		}
	}
}

// executeRun executes the runnable and logs the result.
func (ct *CronTrigger) executeRun() {
	start := time.Now()
	if err := ct.runnable.Run(); err != nil {
		ct.logger.Warn("scheduled run completed with error", "error", err, "duration", time.Since(start))
		return
	}
	ct.logger.Debug("scheduled run completed", "duration", time.Since(start))
}
