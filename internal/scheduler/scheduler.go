package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// Scheduler periodically re-runs the enrichment pipeline.
type Scheduler struct {
	scheduler *gocron.Scheduler
	interval  time.Duration
	job       func(context.Context) error
}

// New creates a Scheduler that invokes job every interval.
func New(interval time.Duration, job func(context.Context) error) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		interval:  interval,
		job:       job,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		log.Println("scheduler: no positive interval configured; nothing to schedule")
		return nil
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(func() {
		log.Println("scheduler: running enrichment job")

		ctx, cancel := context.WithTimeout(context.Background(), s.interval)
		defer cancel()

		if err := s.job(ctx); err != nil {
			log.Printf("scheduler: enrichment run failed: %v", err)
			return
		}
		log.Println("scheduler: completed enrichment job")
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
