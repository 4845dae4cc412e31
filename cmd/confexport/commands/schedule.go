package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/confexport/internal/config"
	"git.home.luguber.info/inful/confexport/internal/exporter"
	"git.home.luguber.info/inful/confexport/internal/logfields"
	"git.home.luguber.info/inful/confexport/internal/scheduler"
)

// ScheduleCmd implements the 'schedule' command.
type ScheduleCmd struct {
	Overrides `embed:""`
	Interval  time.Duration `help:"Time between runs (overrides schedule.interval)"`
}

func (s *ScheduleCmd) apply(cfg *config.Config) error {
	if err := s.Apply(cfg); err != nil {
		return err
	}
	if s.Interval > 0 {
		cfg.Schedule.Interval = s.Interval
	}
	return nil
}

func (s *ScheduleCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	if err := s.apply(cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := g.Logger
	sched, err := scheduler.New(cfg, func(ctx context.Context, cfg *config.Config) error {
		runner, err := exporter.Open(cfg, logger)
		if err != nil {
			return err
		}
		defer func() { _ = runner.Close() }()
		_, err = runner.Run(ctx)
		return err
	}, logger)
	if err != nil {
		return err
	}

	if root.Config != "" {
		watcher, err := scheduler.NewConfigWatcher(root.Config, func(next *config.Config) error {
			if err := s.apply(next); err != nil {
				return err
			}
			return sched.Reload(next)
		}, logger)
		if err != nil {
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			return err
		}
		defer func() { _ = watcher.Stop() }()
	}

	if err := sched.Start(ctx); err != nil {
		return err
	}
	logger.Info("Scheduler running, waiting for shutdown signal")
	<-ctx.Done()

	logger.Info("Shutdown signal received", logfields.Count(int(sched.Runs())))
	return sched.Stop()
}
