package cron

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/angelmondragon/stackfinderz-backend/pkg/logger"
	"github.com/angelmondragon/stackfinderz-backend/pkg/metrics"
)

const defaultInterval = 5 * time.Minute

// Job timeouts default to the interval so one cycle never overlaps the next.
type timeoutJob interface {
	Timeout() time.Duration
}

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
}

// Service runs every registered job once per tick. Only the replica holding the lock runs.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.CronJobMetrics
	interval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case params.Lock == nil:
		return nil, fmt.Errorf("lock required")
	}
	svc := &Service{
		logg:     params.Logger,
		registry: params.Registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: params.Interval,
	}
	if svc.registry == nil {
		svc.registry = &Registry{}
	}
	if svc.interval <= 0 {
		svc.interval = defaultInterval
	}
	return svc, nil
}

// Run starts a cycle right away and then once per interval until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	ctx = s.logg.WithField(ctx, "jobs", s.registry.Names())
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			s.logg.Info(ctx, "cron service stopping")
			return ctx.Err()
		}
		if err := s.runCycle(ctx); err != nil {
			s.logg.Error(ctx, "cron cycle failed", err)
		}
		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
	}
}

// runCycle only fails when the lock cannot be consulted. Job failures are counted and logged.
func (s *Service) runCycle(ctx context.Context) error {
	jobs := s.registry.Jobs()
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		for _, job := range jobs {
			s.metrics.IncSkipped(job.Name())
		}
		s.logg.Debug(ctx, "cron lock held elsewhere, skipping cycle")
		return nil
	}
	defer func() {
		if err := s.lock.Release(ctx); err != nil {
			s.logg.Error(ctx, "failed to release cron lock", err)
		}
	}()

	failed := 0
	for _, job := range jobs {
		if ctx.Err() != nil {
			return nil
		}
		if !s.runJob(ctx, job) {
			failed++
		}
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"jobs_run":    len(jobs),
		"jobs_failed": failed,
	}), "cron cycle complete")
	return nil
}

func (s *Service) runJob(ctx context.Context, job Job) bool {
	name := job.Name()
	jobCtx := s.logg.WithField(ctx, "job", name)

	timeout := s.interval
	if tj, ok := job.(timeoutJob); ok && tj.Timeout() > 0 {
		timeout = tj.Timeout()
	}
	runCtx, cancel := context.WithTimeout(jobCtx, timeout)
	defer cancel()

	start := time.Now()
	err := invoke(runCtx, job)
	elapsed := time.Since(start)
	s.metrics.ObserveDuration(name, elapsed)

	jobCtx = s.logg.WithField(jobCtx, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		s.metrics.IncFailure(name)
		s.logg.Error(jobCtx, "job failed", err)
		return false
	}
	s.metrics.IncSuccess(name)
	s.logg.Info(jobCtx, "job completed")
	return true
}

// invoke turns a panicking job into an error so the worker keeps serving the other jobs.
func invoke(ctx context.Context, job Job) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job %s panicked: %v\n%s", job.Name(), rec, debug.Stack())
		}
	}()
	return job.Run(ctx)
}
