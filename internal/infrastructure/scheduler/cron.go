package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"NewsHarvester/internal/ports"
)

// CronScheduler drives recurring jobs on top of robfig/cron. It accepts
// standard five-field cron expressions and "@every" interval specs.
type CronScheduler struct {
	cron *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds an idle scheduler; jobs run once Start is called.
func NewCronScheduler() *CronScheduler {
	return &CronScheduler{cron: cron.New()}
}

// Add registers a job under a cron spec.
func (c *CronScheduler) Add(spec string, job func()) error {
	if job == nil {
		return nil
	}
	if _, err := c.cron.AddFunc(spec, job); err != nil {
		return fmt.Errorf("add cron job %q: %w", spec, err)
	}
	return nil
}

// Start launches the cron loop in its own goroutine.
func (c *CronScheduler) Start() {
	c.cron.Start()
}

// Stop halts scheduling and waits for running jobs, bounded by ctx.
func (c *CronScheduler) Stop(ctx context.Context) error {
	done := c.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
