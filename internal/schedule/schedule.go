// Package schedule runs a job on a cron timetable until the context is
// canceled. Overlapping runs are skipped rather than queued.
package schedule

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/robfig/cron/v3"

	"github.com/epigrid/epigridgo/internal/ctxlog"
)

// DefaultSpec is the timetable used when a pipeline declares no schedule.
const DefaultSpec = "0 1 * * *"

// Job is a single pipeline run. A non-nil error is logged but does not stop
// the scheduler.
type Job func(ctx context.Context) error

// Scheduler triggers a Job on a standard 5-field cron spec.
type Scheduler struct {
	spec string
	job  Job

	running atomic.Bool
}

// New validates the cron spec and returns a scheduler. An empty spec selects
// DefaultSpec.
func New(spec string, job Job) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSpec
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	return &Scheduler{spec: spec, job: job}, nil
}

// Spec returns the effective cron spec.
func (s *Scheduler) Spec() string {
	return s.spec
}

// Run blocks until ctx is canceled, firing the job at each scheduled tick. If
// a run is still in progress when the next tick arrives, the tick is skipped.
func (s *Scheduler) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	c := cron.New()
	_, err := c.AddFunc(s.spec, func() {
		if !s.running.CompareAndSwap(false, true) {
			logger.Warn("Previous run still in progress, skipping tick.", "spec", s.spec)
			return
		}
		defer s.running.Store(false)

		logger.Info("Scheduled run starting.", "spec", s.spec)
		if err := s.job(ctx); err != nil {
			logger.Error("Scheduled run failed.", "error", err)
			return
		}
		logger.Info("Scheduled run finished.")
	})
	if err != nil {
		return fmt.Errorf("failed to register cron job: %w", err)
	}

	c.Start()
	logger.Info("Scheduler started.", "spec", s.spec)

	<-ctx.Done()
	logger.Info("Scheduler stopping.")

	// Wait for an in-flight run to observe cancellation before returning.
	stopCtx := c.Stop()
	<-stopCtx.Done()

	return ctx.Err()
}
