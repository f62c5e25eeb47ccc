// Package scheduler runs ingest jobs on cron schedules. Runs of the same job
// never overlap: a tick that arrives while the previous run is still busy
// is skipped.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/anstrom/surfacesync/internal/logging"
)

// JobFunc is the work executed on every tick.
type JobFunc func(ctx context.Context) error

// ScheduledJob describes a registered job.
type ScheduledJob struct {
	ID       uuid.UUID
	CronID   cron.EntryID
	Name     string
	Schedule string
	LastRun  time.Time
	LastErr  error
	Runs     int
	Running  bool
}

// Scheduler manages scheduled ingest jobs.
type Scheduler struct {
	cron    *cron.Cron
	logger  *logging.Logger
	jobs    map[uuid.UUID]*ScheduledJob
	mu      sync.RWMutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewScheduler creates a new job scheduler.
func NewScheduler(logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.WithComponent("scheduler")

	ctx, cancel := context.WithCancel(context.Background())
	cl := cronLogger{logger: logger}

	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		logger: logger,
		jobs:   make(map[uuid.UUID]*ScheduledJob),
		ctx:    ctx,
		cancel: cancel,
	}
}

// ValidateSchedule checks a standard 5-field cron expression or descriptor.
func ValidateSchedule(expr string) error {
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// AddJob registers fn under name with the given schedule.
func (s *Scheduler) AddJob(name, expr string, fn JobFunc) (uuid.UUID, error) {
	if err := ValidateSchedule(expr); err != nil {
		return uuid.Nil, err
	}

	job := &ScheduledJob{
		ID:       uuid.New(),
		Name:     name,
		Schedule: expr,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cronID, err := s.cron.AddFunc(expr, func() { s.execute(job, fn) })
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to add cron job: %w", err)
	}
	job.CronID = cronID
	s.jobs[job.ID] = job

	s.logger.Info("Added scheduled job", "job", name, "schedule", expr)
	return job.ID, nil
}

func (s *Scheduler) execute(job *ScheduledJob, fn JobFunc) {
	s.mu.Lock()
	job.Running = true
	job.LastRun = time.Now()
	s.mu.Unlock()

	log := s.logger.WithFields("job", job.Name)
	log.Info("Running scheduled job")

	err := fn(s.ctx)

	s.mu.Lock()
	job.Running = false
	job.Runs++
	job.LastErr = err
	s.mu.Unlock()

	if err != nil {
		log.Error("Scheduled job failed", "error", err)
		return
	}
	log.Info("Scheduled job finished", "duration", time.Since(job.LastRun))
}

// Start begins the scheduler.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("Scheduler started", "jobs", len(s.jobs))
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	<-s.cron.Stop().Done()

	s.logger.Info("Scheduler stopped")
}

// GetJobs returns a snapshot of the registered jobs.
func (s *Scheduler) GetJobs() []ScheduledJob {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]ScheduledJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, *job)
	}
	return jobs
}

// NextRun returns the next activation time of a job, zero if unknown or not started.
func (s *Scheduler) NextRun(id uuid.UUID) time.Time {
	s.mu.RLock()
	job, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return time.Time{}
	}
	return s.cron.Entry(job.CronID).Next
}

// cronLogger adapts the slog wrapper to cron.Logger.
type cronLogger struct {
	logger *logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
