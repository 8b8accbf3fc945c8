package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type fakeLock struct {
	acquired bool
	lost     bool
	extends  int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.acquired {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Extend(context.Context) error {
	f.extends++
	if f.lost {
		return ErrLockLost
	}
	return nil
}

func (f *fakeLock) Release(context.Context) error { f.acquired = false; return nil }

func mustRegistry(t *testing.T, jobs ...Job) *Registry {
	t.Helper()
	registry, err := NewRegistry(jobs...)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return registry
}

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	registry := mustRegistry(t, &testJob{name: "success"}, &testJob{name: "fail", err: errors.New("boom")})
	service, err := NewService(ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     &fakeLock{},
		Interval: 0,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	report, err := service.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if len(report.Ran) != 2 || len(report.Failed) != 1 || report.Failed[0] != "fail" {
		t.Fatalf("unexpected report %+v", report)
	}
	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if success, ok := jobs[0].(*testJob); ok {
		if success.runs != 1 {
			t.Fatalf("expected success job to run once, ran %d", success.runs)
		}
	} else {
		t.Fatalf("first job type mismatch")
	}
	if failure, ok := jobs[1].(*testJob); ok {
		if failure.runs != 1 {
			t.Fatalf("expected failure job to run once, ran %d", failure.runs)
		}
	} else {
		t.Fatalf("second job type mismatch")
	}
}

func TestServiceRunCycleSkipsWhenLockHeld(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	job := &testJob{name: "outbox-retention"}
	service, err := NewService(ServiceParams{
		Logger:   logg,
		Registry: mustRegistry(t, job),
		Lock:     &fakeLock{acquired: true},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	report, err := service.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if !report.Skipped || job.runs != 0 {
		t.Fatalf("expected job to be skipped, ran %d", job.runs)
	}
}

func TestServiceRunCycleStopsWhenLockLost(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test"})
	first := &testJob{name: "outbox-retention"}
	second := &testJob{name: "dlq-retention"}
	lock := &fakeLock{lost: true}
	service, err := NewService(ServiceParams{
		Logger:   logg,
		Registry: mustRegistry(t, first, second),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	_, err = service.RunOnce(context.Background())
	if !errors.Is(err, ErrLockLost) {
		t.Fatalf("expected ErrLockLost, got %v", err)
	}
	if first.runs != 1 || second.runs != 0 {
		t.Fatalf("expected only the first job to run, got %d and %d", first.runs, second.runs)
	}
}

type deadlineJob struct {
	sawDeadline bool
}

func (d *deadlineJob) Name() string { return "deadline" }

func (d *deadlineJob) Run(ctx context.Context) error {
	_, d.sawDeadline = ctx.Deadline()
	return nil
}

func TestServiceBoundsJobsWithTimeout(t *testing.T) {
	job := &deadlineJob{}
	service, err := NewService(ServiceParams{
		Logger:     logger.New(logger.Options{ServiceName: "cron-test"}),
		Registry:   mustRegistry(t, job),
		Lock:       &fakeLock{},
		JobTimeout: time.Minute,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if _, err := service.RunOnce(context.Background()); err != nil {
		t.Fatalf("run cycle: %v", err)
	}
	if !job.sawDeadline {
		t.Fatal("expected job context to carry a deadline")
	}
}

func TestServiceRunStopsOnCancel(t *testing.T) {
	job := &testJob{name: "outbox-retention"}
	service, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test"}),
		Registry: mustRegistry(t, job),
		Lock:     &fakeLock{},
		Interval: time.Hour,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := service.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
