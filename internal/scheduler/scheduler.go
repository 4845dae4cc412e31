// Package scheduler re-runs exports on a fixed interval and swaps in a
// reloaded configuration between runs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/confexport/internal/config"
	"git.home.luguber.info/inful/confexport/internal/logfields"
)

// RunFunc performs one export with cfg.
type RunFunc func(ctx context.Context, cfg *config.Config) error

// Scheduler wraps a gocron scheduler running a single export job. Runs never
// overlap; a tick that fires while a run is in progress is skipped.
type Scheduler struct {
	scheduler gocron.Scheduler
	run       RunFunc
	logger    *slog.Logger

	mu       sync.RWMutex
	cfg      *config.Config
	job      gocron.Job
	interval time.Duration
	ctx      context.Context

	runs     atomic.Int64
	failures atomic.Int64
}

// New creates a scheduler for cfg. Start must be called to begin running.
func New(cfg *config.Config, run RunFunc, logger *slog.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{scheduler: s, run: run, logger: logger, cfg: cfg}, nil
}

// Config returns the configuration the next run will use.
func (s *Scheduler) Config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Runs returns how many runs finished (successfully or not).
func (s *Scheduler) Runs() int64 { return s.runs.Load() }

// Failures returns how many runs returned an error.
func (s *Scheduler) Failures() int64 { return s.failures.Load() }

// Start schedules the export job, running it immediately and then every
// schedule.interval. ctx bounds every run.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ctx = ctx
	s.interval = s.cfg.Schedule.Interval
	job, err := s.newJob(s.interval, gocron.WithStartAt(gocron.WithStartImmediately()))
	if err != nil {
		return err
	}
	s.job = job

	s.logger.Info("Starting scheduler", slog.Duration("interval", s.interval))
	s.scheduler.Start()
	return nil
}

func (s *Scheduler) newJob(interval time.Duration, extra ...gocron.JobOption) (gocron.Job, error) {
	opts := append([]gocron.JobOption{
		gocron.WithName("export"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}, extra...)
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.execute),
		opts...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create export job: %w", err)
	}
	return job, nil
}

// Stop shuts the scheduler down, waiting for a running export to return.
func (s *Scheduler) Stop() error {
	s.logger.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// Reload validates cfg and makes it the configuration of the next run. A
// changed interval replaces the job.
func (s *Scheduler) Reload(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg

	if s.job == nil || cfg.Schedule.Interval == s.interval {
		s.logger.Info("Configuration reloaded")
		return nil
	}
	job, err := s.scheduler.Update(s.job.ID(),
		gocron.DurationJob(cfg.Schedule.Interval),
		gocron.NewTask(s.execute),
		gocron.WithName("export"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to reschedule export job: %w", err)
	}
	s.job = job
	s.logger.Info("Configuration reloaded",
		slog.Duration("old_interval", s.interval),
		slog.Duration("interval", cfg.Schedule.Interval))
	s.interval = cfg.Schedule.Interval
	return nil
}

// execute is called by gocron for every tick.
func (s *Scheduler) execute() {
	s.mu.RLock()
	cfg, ctx := s.cfg, s.ctx
	s.mu.RUnlock()
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return
	}

	n := s.runs.Load() + 1
	s.logger.Info("Executing scheduled export", logfields.Count(int(n)))
	start := time.Now()
	err := s.run(ctx, cfg)
	s.runs.Add(1)
	if err != nil {
		s.failures.Add(1)
		s.logger.Error("Scheduled export failed",
			logfields.Error(err),
			logfields.Duration(time.Since(start)))
		return
	}
	s.logger.Info("Scheduled export finished", logfields.Duration(time.Since(start)))
}
