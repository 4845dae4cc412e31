// Package walker traverses a page tree depth-first in pre-order.
//
// The walk uses an explicit stack so arbitrarily deep trees cannot exhaust the
// goroutine stack, and a visited set so a page reachable twice (a cycle or a
// duplicated child) is exported once.
package walker

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/confexport/internal/confluence"
	"git.home.luguber.info/inful/confexport/internal/logfields"
	"git.home.luguber.info/inful/confexport/internal/metrics"
)

// ChildFetcher lists the direct children of a page in API order.
type ChildFetcher interface {
	FetchChildren(ctx context.Context, id string) ([]confluence.Page, error)
}

// Visit is handed to the visitor for each descendant of the root.
type Visit struct {
	Page      confluence.Page
	Ancestors []confluence.Page // root's children first, excluding the root itself
	Depth     int               // 1 for direct children of the root
}

// Visitor receives pages in traversal order. Returning an error aborts the walk.
type Visitor func(ctx context.Context, v Visit) error

// Stats summarizes a walk.
type Stats struct {
	Visited    int
	Duplicates int
	Requests   int // child listings performed
}

// Options tune a walk.
type Options struct {
	MaxDepth int // 0 = unlimited
	Logger   *slog.Logger
	Recorder metrics.Recorder
}

type entry struct {
	page      confluence.Page
	ancestors []confluence.Page
	depth     int
}

// Walk visits every descendant of rootID. The root itself is never visited.
func Walk(ctx context.Context, fetcher ChildFetcher, rootID string, visitor Visitor) (Stats, error) {
	return WalkWithOptions(ctx, fetcher, rootID, visitor, Options{})
}

// WalkWithOptions is Walk with a depth guard, logger and metrics.
func WalkWithOptions(ctx context.Context, fetcher ChildFetcher, rootID string, visitor Visitor, opts Options) (Stats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := metrics.OrNoop(opts.Recorder)

	var stats Stats
	visited := map[string]struct{}{rootID: {}}

	children, err := fetcher.FetchChildren(ctx, rootID)
	stats.Requests++
	if err != nil {
		return stats, err
	}
	stack := make([]entry, 0, len(children))
	stack = pushChildren(stack, children, nil, 1)

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, seen := visited[e.page.ID]; seen {
			stats.Duplicates++
			recorder.IncPageSkipped(metrics.SkipDuplicate)
			logger.Warn("Skipping page already visited",
				logfields.PageID(e.page.ID),
				logfields.Title(e.page.Title),
				logfields.Depth(e.depth))
			continue
		}
		visited[e.page.ID] = struct{}{}

		if err := visitor(ctx, Visit{Page: e.page, Ancestors: e.ancestors, Depth: e.depth}); err != nil {
			return stats, err
		}
		stats.Visited++

		if opts.MaxDepth > 0 && e.depth >= opts.MaxDepth {
			logger.Debug("Not expanding page at max depth",
				logfields.PageID(e.page.ID),
				logfields.Depth(e.depth))
			continue
		}
		grandchildren, err := fetcher.FetchChildren(ctx, e.page.ID)
		stats.Requests++
		if err != nil {
			return stats, err
		}
		stack = pushChildren(stack, grandchildren, withPage(e.ancestors, e.page), e.depth+1)
	}
	return stats, nil
}

// pushChildren pushes in reverse so the first child is popped first.
func pushChildren(stack []entry, children []confluence.Page, ancestors []confluence.Page, depth int) []entry {
	for i := len(children) - 1; i >= 0; i-- {
		stack = append(stack, entry{page: children[i], ancestors: ancestors, depth: depth})
	}
	return stack
}

// withPage returns a new ancestry slice; siblings share the parent's copy.
func withPage(ancestors []confluence.Page, p confluence.Page) []confluence.Page {
	out := make([]confluence.Page, len(ancestors)+1)
	copy(out, ancestors)
	out[len(ancestors)] = p
	return out
}
