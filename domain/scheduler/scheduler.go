package scheduler

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/emergent-company/salon-monitor/pkg/logger"
)

// DefaultTaskTimeout bounds a single task run when no timeout is configured.
const DefaultTaskTimeout = 30 * time.Second

// TaskFunc is the function signature for scheduled tasks
type TaskFunc func(ctx context.Context) error

type scheduledTask struct {
	id       cron.EntryID
	schedule string

	// last run bookkeeping, guarded by Scheduler.mu
	lastRun      time.Time
	lastDuration time.Duration
	lastErr      string
	runs         int64
	failures     int64
}

// Scheduler runs the periodic monitoring tasks on top of robfig/cron.
// Tasks can be registered with a cron expression or a fixed interval.
type Scheduler struct {
	cron        *cron.Cron
	log         *slog.Logger
	taskTimeout time.Duration

	mu      sync.RWMutex
	tasks   map[string]*scheduledTask
	running bool
}

// NewScheduler creates a scheduler whose cron expressions carry a seconds field.
// A non-positive taskTimeout falls back to DefaultTaskTimeout.
func NewScheduler(log *slog.Logger, taskTimeout time.Duration) *Scheduler {
	if taskTimeout <= 0 {
		taskTimeout = DefaultTaskTimeout
	}
	return &Scheduler{
		cron:        cron.New(cron.WithSeconds()),
		log:         log.With(logger.Scope("scheduler")),
		taskTimeout: taskTimeout,
		tasks:       make(map[string]*scheduledTask),
	}
}

// Start begins the scheduler
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.cron.Start()
	s.running = true
	s.log.Info("scheduler started", slog.Int("tasks", len(s.tasks)))

	return nil
}

// Stop waits for running tasks to finish or for ctx to expire, whichever comes first.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	// Running tasks take the lock to record their result, so wait unlocked.
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
		s.log.Info("scheduler stopped gracefully")
	case <-ctx.Done():
		s.log.Warn("scheduler stop timeout")
	}

	return nil
}

// AddCronTask adds a task with a cron expression.
// Cron format: "second minute hour day-of-month month day-of-week"
func (s *Scheduler) AddCronTask(name string, schedule string, task TaskFunc) error {
	if err := s.add(name, schedule, task); err != nil {
		return err
	}
	s.log.Info("added cron task",
		slog.String("name", name),
		slog.String("schedule", schedule))
	return nil
}

// AddIntervalTask adds a task that runs at a fixed interval
func (s *Scheduler) AddIntervalTask(name string, interval time.Duration, task TaskFunc) error {
	if interval <= 0 {
		return fmt.Errorf("interval for task %s must be positive, got %s", name, interval)
	}
	if err := s.add(name, "@every "+interval.String(), task); err != nil {
		return err
	}
	s.log.Info("added interval task",
		slog.String("name", name),
		slog.Duration("interval", interval))
	return nil
}

// add registers task under name, replacing any task already registered with that name.
func (s *Scheduler) add(name, schedule string, task TaskFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.tasks[name]; ok {
		s.cron.Remove(existing.id)
		delete(s.tasks, name)
	}

	entryID, err := s.cron.AddFunc(schedule, func() {
		s.runTask(name, task)
	})
	if err != nil {
		return err
	}

	s.tasks[name] = &scheduledTask{id: entryID, schedule: schedule}
	return nil
}

// RemoveTask removes a scheduled task
func (s *Scheduler) RemoveTask(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.tasks[name]; ok {
		s.cron.Remove(existing.id)
		delete(s.tasks, name)
		s.log.Info("removed task", slog.String("name", name))
	}
}

// runTask executes a task under the task timeout and records the outcome.
func (s *Scheduler) runTask(name string, task TaskFunc) {
	startTime := time.Now()
	s.log.Debug("running scheduled task", slog.String("name", name))

	ctx, cancel := context.WithTimeout(context.Background(), s.taskTimeout)
	defer cancel()

	err := task(ctx)
	duration := time.Since(startTime)
	s.record(name, startTime, duration, err)

	if err != nil {
		s.log.Error("scheduled task failed",
			slog.String("name", name),
			logger.Error(err),
			slog.Duration("duration", duration))
		return
	}

	s.log.Debug("scheduled task completed",
		slog.String("name", name),
		slog.Duration("duration", duration))
}

func (s *Scheduler) record(name string, started time.Time, duration time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[name]
	if !ok {
		// removed while running
		return
	}
	t.lastRun = started
	t.lastDuration = duration
	t.runs++
	t.lastErr = ""
	if err != nil {
		t.failures++
		t.lastErr = err.Error()
	}
}

// ListTasks returns the names of all scheduled tasks in sorted order
func (s *Scheduler) ListTasks() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// TaskInfo represents information about a scheduled task
type TaskInfo struct {
	Name         string    `json:"name"`
	Schedule     string    `json:"schedule"`
	NextRun      time.Time `json:"next_run"`
	PrevRun      time.Time `json:"prev_run,omitempty"`
	Runs         int64     `json:"runs"`
	Failures     int64     `json:"failures"`
	LastDuration string    `json:"last_duration,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
}

// GetTaskInfo returns information about all scheduled tasks, sorted by name
func (s *Scheduler) GetTaskInfo() []TaskInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make(map[cron.EntryID]cron.Entry)
	for _, entry := range s.cron.Entries() {
		entries[entry.ID] = entry
	}

	info := make([]TaskInfo, 0, len(s.tasks))
	for name, t := range s.tasks {
		ti := TaskInfo{
			Name:      name,
			Schedule:  t.schedule,
			PrevRun:   t.lastRun,
			Runs:      t.runs,
			Failures:  t.failures,
			LastError: t.lastErr,
		}
		if t.runs > 0 {
			ti.LastDuration = t.lastDuration.String()
		}
		if entry, ok := entries[t.id]; ok {
			ti.NextRun = entry.Next
		}
		info = append(info, ti)
	}

	slices.SortFunc(info, func(a, b TaskInfo) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return info
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
