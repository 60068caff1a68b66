package infra

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is the work a scheduler runs on every tick
type Job func(ctx context.Context)

// Scheduler runs a job at a fixed interval until stopped
type Scheduler struct {
	cron     *cron.Cron
	name     string
	interval time.Duration
	job      Job
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewScheduler creates a new scheduler.
// Intervals below one second are rounded up by cron.
func NewScheduler(name string, interval time.Duration, job Job) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DiscardLogger),
		)),
		name:     name,
		interval: interval,
		job:      job,
	}
}

// Start registers the job and starts ticking
func (s *Scheduler) Start(parent context.Context) error {
	s.ctx, s.cancel = context.WithCancel(parent)

	spec := fmt.Sprintf("@every %s", s.interval)
	_, err := s.cron.AddFunc(spec, func() {
		if s.ctx.Err() != nil {
			return
		}
		s.job(s.ctx)
	})
	if err != nil {
		s.cancel()
		return fmt.Errorf("failed to schedule %s: %w", s.name, err)
	}

	s.cron.Start()
	log.Printf("[CRON] %s scheduled every %s", s.name, s.interval)
	return nil
}

// Stop cancels the running job's context and stops future ticks.
// It does not wait for a running job to return.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.cron.Stop()
	log.Printf("[CRON] %s stopped", s.name)
}

// Interval returns the tick period
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}
