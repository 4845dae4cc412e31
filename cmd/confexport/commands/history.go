package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"git.home.luguber.info/inful/confexport/internal/foundation/errors"
	"git.home.luguber.info/inful/confexport/internal/manifest"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit    int    `short:"n" help:"Number of runs to list" default:"20"`
	RunID    string `name:"run" help:"Show the pages exported by this run" xor:"target"`
	PageID   string `name:"page" help:"Show the last successful run that exported this page" xor:"target"`
	Manifest string `help:"Manifest database (overrides manifest.path)"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	path := cfg.Manifest.Path
	if h.Manifest != "" {
		path = h.Manifest
	}
	if path == "" {
		return errors.ConfigError("no manifest configured (set manifest.path or --manifest)").Build()
	}

	store, err := manifest.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	switch {
	case h.RunID != "":
		return h.printRun(ctx, g, store)
	case h.PageID != "":
		return h.printPage(ctx, g, store)
	}
	return h.printRuns(ctx, g, store)
}

func (h *HistoryCmd) printRuns(ctx context.Context, g *Global, store *manifest.Store) error {
	runs, err := store.Runs(ctx, h.Limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(g.Out, "No runs recorded")
		return nil
	}

	tw := tabwriter.NewWriter(g.Out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "RUN\tSTARTED\tROOT\tMODE\tSTATUS\tPAGES\tSIZE\tDURATION")
	for _, r := range runs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			r.ID, r.Started.Local().Format(time.DateTime), r.RootTitle, r.Mode, r.Status,
			r.Pages, humanize.Bytes(uint64(r.Bytes)), r.Duration().Round(time.Millisecond))
	}
	return tw.Flush()
}

func (h *HistoryCmd) printRun(ctx context.Context, g *Global, store *manifest.Store) error {
	run, err := store.Run(ctx, h.RunID)
	if err != nil {
		return err
	}
	pages, err := store.Pages(ctx, run.ID)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(g.Out, "Run %s: %s export of %q (%s), %d pages, %s\n",
		run.ID, run.Mode, run.RootTitle, run.Status, run.Pages, humanize.Time(run.Finished))
	if run.Error != "" {
		_, _ = fmt.Fprintf(g.Out, "Error: %s\n", run.Error)
	}

	tw := tabwriter.NewWriter(g.Out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "#\tPAGE\tDEPTH\tTITLE\tPATH")
	for _, p := range pages {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n", p.Seq+1, p.PageID, p.Depth, p.Title, p.Path)
	}
	return tw.Flush()
}

func (h *HistoryCmd) printPage(ctx context.Context, g *Global, store *manifest.Store) error {
	run, err := store.LastExport(ctx, h.PageID)
	if err != nil {
		return err
	}
	pages, err := store.Pages(ctx, run.ID)
	if err != nil {
		return err
	}
	for _, p := range pages {
		if p.PageID != h.PageID {
			continue
		}
		_, _ = fmt.Fprintf(g.Out, "Page %s %q last exported by run %s (%s export of %q, %s)\n",
			p.PageID, p.Title, run.ID, run.Mode, run.RootTitle, humanize.Time(run.Finished))
		_, _ = fmt.Fprintf(g.Out, "Path: %s\n", p.Path)
		return nil
	}
	return manifest.ErrRunNotFound.WithContext("page_id", h.PageID)
}
