package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/zhouzirui/chat-relay/backend/internal/observability"
)

// Job is a unit of background maintenance work.
type Job func(ctx context.Context) error

// Scheduler runs maintenance jobs on cron schedules in UTC.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	entries map[string]cron.EntryID
	running bool
}

// New creates an idle scheduler.
func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	log := cronLogger{observability.WithFields("component", "scheduler")}

	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(log),
			cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)),
		),
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]cron.EntryID),
	}
}

// AddJob registers fn under name. schedule accepts standard five-field cron
// expressions and descriptors such as "@every 1m".
func (s *Scheduler) AddJob(schedule, name string, fn Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}

	id, err := s.cron.AddFunc(schedule, func() {
		start := time.Now()
		if err := fn(s.ctx); err != nil {
			observability.Logger().Error("scheduled job failed", "job", name, "error", err)
			return
		}
		observability.Logger().Debug("scheduled job finished", "job", name, "duration", time.Since(start))
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %q: %w", schedule, name, err)
	}

	s.entries[name] = id
	return nil
}

// Start begins running registered jobs. It is a no-op when nothing is registered.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) == 0 {
		observability.Logger().Warn("no jobs registered, scheduler not started")
		return
	}
	if s.running {
		return
	}
	s.cron.Start()
	s.running = true
	observability.Logger().Info("scheduler started", "jobs", len(s.entries))
}

// Stop cancels the job context and waits for running jobs to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	wasRunning := s.running
	s.running = false
	s.mu.Unlock()

	s.cancel()
	if wasRunning {
		<-s.cron.Stop().Done()
		observability.Logger().Info("scheduler stopped")
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}
