// Package sink writes visited pages to disk in one of three layouts: a folder
// tree with one file per page, a single flat file, or size-capped chunks.
package sink

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/confexport/internal/metrics"
	"git.home.luguber.info/inful/confexport/internal/walker"
)

// Sink consumes pages in traversal order. Close must be called on every exit
// path; it is idempotent and returns the first close error.
type Sink interface {
	Visit(ctx context.Context, v walker.Visit) error
	Close() error
	Stats() Stats
	// Current is the file the most recent page was written to.
	Current() string
}

// Stats describes what a sink has written so far.
type Stats struct {
	Pages int
	Bytes int64
	Files []string // every file created, in creation order
}

// Option configures a sink.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	recorder metrics.Recorder
}

// WithLogger sets the logger used for per-page debug output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRecorder records pages, bytes and chunk rotations.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *options) { o.recorder = metrics.OrNoop(r) }
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default(), recorder: metrics.NoopRecorder{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
