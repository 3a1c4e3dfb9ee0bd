package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"github.com/knsuzuki/shopmail/internal/notification"
)

// Job is a named background task. Exactly one of Every or Cron must be set.
type Job struct {
	Name  string
	Every time.Duration
	Cron  string
	Run   func(ctx context.Context) error
	// StartNow runs the job once as soon as the scheduler starts.
	StartNow bool
}

// Scheduler runs maintenance jobs using gocron.
type Scheduler struct {
	cron   gocron.Scheduler
	jobs   map[string]uuid.UUID // job name → gocron job UUID
	mu     sync.Mutex
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Scheduler.
func New(logger *slog.Logger) (*Scheduler, error) {
	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("creating gocron scheduler: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron,
		jobs:   make(map[string]uuid.UUID),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Add schedules job, replacing any job of the same name.
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" {
		return fmt.Errorf("job name is required")
	}
	if job.Run == nil {
		return fmt.Errorf("job %q has no run function", job.Name)
	}
	def, err := buildJobDefinition(job)
	if err != nil {
		return fmt.Errorf("building job definition for %q: %w", job.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if jobID, ok := s.jobs[job.Name]; ok {
		if err := s.cron.RemoveJob(jobID); err != nil {
			s.logger.Warn("failed to remove existing job", "job", job.Name, "error", err)
		}
		delete(s.jobs, job.Name)
	}

	opts := []gocron.JobOption{
		gocron.WithName(job.Name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}
	if job.StartNow {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	name, run := job.Name, job.Run
	j, err := s.cron.NewJob(def, gocron.NewTask(func() {
		s.execute(name, run)
	}), opts...)
	if err != nil {
		return fmt.Errorf("scheduling job %q: %w", job.Name, err)
	}

	s.jobs[job.Name] = j.ID()
	s.logger.Info("job scheduled", "job", job.Name)
	return nil
}

// Remove unschedules the named job. Unknown names are ignored.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if jobID, ok := s.jobs[name]; ok {
		if err := s.cron.RemoveJob(jobID); err != nil {
			s.logger.Warn("failed to remove job", "job", name, "error", err)
		}
		delete(s.jobs, name)
		s.logger.Info("job unscheduled", "job", name)
	}
}

// Jobs returns the number of scheduled jobs.
func (s *Scheduler) Jobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Start starts the gocron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", s.Jobs())
}

// Stop cancels running jobs and shuts down the gocron scheduler.
func (s *Scheduler) Stop() error {
	s.cancel()
	return s.cron.Shutdown()
}

func (s *Scheduler) execute(name string, run func(ctx context.Context) error) {
	start := time.Now()
	if err := run(s.ctx); err != nil {
		s.logger.Warn("job failed", "job", name, "error", err,
			"elapsed", time.Since(start))
		return
	}
	s.logger.Debug("job finished", "job", name, "elapsed", time.Since(start))
}

func buildJobDefinition(job Job) (gocron.JobDefinition, error) {
	switch {
	case job.Every > 0 && job.Cron != "":
		return nil, fmt.Errorf("set either an interval or a cron expression, not both")
	case job.Every > 0:
		return gocron.DurationJob(job.Every), nil
	case job.Cron != "":
		return gocron.CronJob(job.Cron, false), nil
	default:
		return nil, fmt.Errorf("no schedule configured")
	}
}

// TemplateReloadJob drops the renderer's parsed templates every interval so
// edits in the override directory reach the next send.
func TemplateReloadJob(r *notification.TemplateRenderer, every time.Duration, logger *slog.Logger) Job {
	return Job{
		Name:  "template-reload",
		Every: every,
		Run: func(_ context.Context) error {
			if n := r.Reset(); n > 0 {
				logger.Debug("mail templates reloaded", "dropped", n)
			}
			return nil
		},
	}
}
