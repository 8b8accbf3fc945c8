package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

const (
	defaultInterval   = 6 * time.Hour
	defaultJobTimeout = 10 * time.Minute
)

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	// Interval between cycles in Run. Defaults to 6h.
	Interval time.Duration
	// JobTimeout bounds a single job. Defaults to 10m.
	JobTimeout time.Duration
}

// Service runs maintenance jobs. Only the instance holding the lock runs a
// cycle; the lock is extended between jobs.
type Service struct {
	logg       *logger.Logger
	registry   *Registry
	lock       Lock
	metrics    *metrics.CronJobMetrics
	interval   time.Duration
	jobTimeout time.Duration
}

// CycleReport summarizes one pass over the registry.
type CycleReport struct {
	Skipped bool
	Ran     []string
	Failed  []string
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry = &Registry{names: map[string]struct{}{}}
	}
	return &Service{
		logg:       params.Logger,
		registry:   registry,
		lock:       params.Lock,
		metrics:    params.Metrics,
		interval:   orDefault(params.Interval, defaultInterval),
		jobTimeout: orDefault(params.JobTimeout, defaultJobTimeout),
	}, nil
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

// Run executes a cycle immediately and then every interval until ctx ends.
// Cycle errors are logged; only cancellation stops the loop.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logg.Error(ctx, "cron.cycle_failed", err)
		}
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron.stopping")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce performs a single locked cycle. A job failure is reported in the
// report, not as an error; errors mean the lock could not be taken or was
// lost midway.
func (s *Service) RunOnce(ctx context.Context) (CycleReport, error) {
	var report CycleReport

	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return report, fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logg.Info(ctx, "cron.cycle_skipped_locked")
		report.Skipped = true
		return report, nil
	}
	defer func() {
		if relErr := s.lock.Release(ctx); relErr != nil {
			s.logg.Error(ctx, "cron.lock_release_failed", relErr)
		}
	}()

	for _, job := range s.registry.Jobs() {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.Ran = append(report.Ran, job.Name())
		if !s.runJob(ctx, job) {
			report.Failed = append(report.Failed, job.Name())
		}
		if err := s.lock.Extend(ctx); err != nil {
			return report, fmt.Errorf("after %s: %w", job.Name(), err)
		}
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"jobs":   len(report.Ran),
		"failed": report.Failed,
	}), "cron.cycle_complete")
	return report, nil
}

func (s *Service) runJob(ctx context.Context, job Job) bool {
	name := job.Name()
	jobCtx, cancel := context.WithTimeout(s.logg.WithField(ctx, "job", name), s.jobTimeout)
	defer cancel()

	start := time.Now()
	err := job.Run(jobCtx)
	elapsed := time.Since(start)
	s.metrics.ObserveDuration(name, elapsed)

	jobCtx = s.logg.WithField(jobCtx, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		s.metrics.IncFailure(name)
		s.logg.Error(jobCtx, "cron.job_failed", err)
		return false
	}
	s.metrics.IncSuccess(name)
	s.logg.Debug(jobCtx, "cron.job_complete")
	return true
}
