package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestAddJobRejectsInvalidSchedule(t *testing.T) {
	s := New()
	defer s.Stop()

	if err := s.AddJob("not a schedule", "broken", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestAddJobRejectsDuplicateName(t *testing.T) {
	s := New()
	defer s.Stop()

	job := func(context.Context) error { return nil }
	if err := s.AddJob("@every 1m", "sweep", job); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.AddJob("@every 1m", "sweep", job); err == nil {
		t.Fatal("expected duplicate name to be rejected")
	}
}

func TestStartWithoutJobsIsNoop(t *testing.T) {
	s := New()
	defer s.Stop()

	s.Start()
	if isRunning(s) {
		t.Fatal("scheduler without jobs should not run")
	}
}

func TestScheduledJobRuns(t *testing.T) {
	s := New()

	var runs atomic.Int32
	failing := errors.New("sweep failed")
	if err := s.AddJob("@every 1s", "sweep", func(ctx context.Context) error {
		if ctx == nil {
			t.Error("job context must not be nil")
		}
		if runs.Add(1) == 1 {
			return failing
		}
		return nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s.Start()
	if !isRunning(s) {
		t.Fatal("expected scheduler to be running")
	}

	deadline := time.After(5 * time.Second)
	for runs.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("job ran %d times, expected at least 2", runs.Load())
		case <-time.After(50 * time.Millisecond):
		}
	}

	s.Stop()
	if isRunning(s) {
		t.Fatal("expected scheduler to be stopped")
	}
}

func isRunning(s *Scheduler) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
