package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"git.home.luguber.info/inful/confexport/internal/exporter"
)

// ExportCmd implements the 'export' command.
type ExportCmd struct {
	Overrides `embed:""`
}

func (e *ExportCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	if err := e.Apply(cfg); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runner, err := exporter.Open(cfg, g.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = runner.Close() }()

	s, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.Out, "Exported %d pages (%s) from %q to %s in %s\n",
		s.Pages, humanize.Bytes(uint64(s.Bytes)), s.RootTitle, s.Output, s.Duration().Round(time.Millisecond))
	if s.Skipped > 0 {
		_, _ = fmt.Fprintf(g.Out, "Skipped %d pages\n", s.Skipped)
	}
	return nil
}
