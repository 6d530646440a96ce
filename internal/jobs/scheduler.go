// Package jobs runs the console's periodic maintenance on a cron schedule.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultJobTimeout bounds a single job run.
const DefaultJobTimeout = 5 * time.Minute

// ErrUnknownJob is returned by RunNow for a name that was never registered.
var ErrUnknownJob = errors.New("unknown job")

// JobFunc is the function signature for jobs.
type JobFunc func(ctx context.Context) error

// Job is a registered job.
type Job struct {
	Name     string
	Schedule string
	Func     JobFunc
	EntryID  cron.EntryID
}

// Scheduler manages background jobs.
type Scheduler struct {
	cron    *cron.Cron
	jobs    map[string]*Job
	timeout time.Duration
	logger  *slog.Logger
	mu      sync.RWMutex
	running sync.WaitGroup
}

// NewScheduler creates a scheduler. Schedules use the six-field cron format
// with a leading seconds field.
func NewScheduler(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		jobs:    make(map[string]*Job),
		timeout: DefaultJobTimeout,
		logger:  logger,
	}
}

// Register adds a job to the scheduler.
func (s *Scheduler) Register(name, schedule string, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}
	job := &Job{
		Name:     name,
		Schedule: schedule,
		Func:     fn,
	}

	entryID, err := s.cron.AddFunc(schedule, func() {
		s.runJob(job)
	})
	if err != nil {
		return fmt.Errorf("schedule job %q: %w", name, err)
	}

	job.EntryID = entryID
	s.jobs[name] = job

	s.logger.Info("job registered", "name", name, "schedule", schedule)
	return nil
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.jobs))
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running.Wait()
	s.logger.Info("scheduler stopped")
}

// RunNow runs a job immediately and waits for it.
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	job, ok := s.jobs[name]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.runJob(job)
}

func (s *Scheduler) runJob(job *Job) (err error) {
	s.running.Add(1)
	defer s.running.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name, rec)
		}
		duration := time.Since(start)
		if err != nil {
			s.logger.Error("job failed", "name", job.Name, "duration", duration, "error", err)
		} else {
			s.logger.Debug("job completed", "name", job.Name, "duration", duration)
		}
	}()

	return job.Func(ctx)
}

// ListJobs returns all registered jobs ordered by name.
func (s *Scheduler) ListJobs() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })
	return jobs
}
