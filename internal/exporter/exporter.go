// Package exporter runs a complete export: it resolves the root page, picks
// the output sink for the configured mode, walks the tree into it and reports
// the run to the manifest, metrics and NATS side channels.
package exporter

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/confexport/internal/config"
	"git.home.luguber.info/inful/confexport/internal/confluence"
	"git.home.luguber.info/inful/confexport/internal/foundation/errors"
	"git.home.luguber.info/inful/confexport/internal/logfields"
	"git.home.luguber.info/inful/confexport/internal/manifest"
	"git.home.luguber.info/inful/confexport/internal/metrics"
	"git.home.luguber.info/inful/confexport/internal/notify"
	"git.home.luguber.info/inful/confexport/internal/sanitize"
	"git.home.luguber.info/inful/confexport/internal/sink"
	"git.home.luguber.info/inful/confexport/internal/walker"
)

// Fetcher is the content API surface the exporter needs.
type Fetcher interface {
	walker.ChildFetcher
	FetchPage(ctx context.Context, id string) (confluence.Page, error)
}

// ManifestWriter persists finished runs.
type ManifestWriter interface {
	RecordRun(ctx context.Context, run manifest.Run, pages []manifest.PageRecord) error
}

// TextfileWriter dumps metrics to a file.
type TextfileWriter interface {
	WriteTextfile(path string) error
}

// skipCounter is implemented by fetchers that drop malformed results.
type skipCounter interface {
	Skipped() int
}

// Exporter performs export runs for one configuration.
type Exporter struct {
	cfg       *config.Config
	fetcher   Fetcher
	manifest  ManifestWriter
	recorder  metrics.Recorder
	textfile  TextfileWriter
	publisher notify.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// Option customizes an Exporter.
type Option func(*Exporter)

// WithManifest records every run in m.
func WithManifest(m ManifestWriter) Option {
	return func(e *Exporter) { e.manifest = m }
}

// WithRecorder records metrics on r. When r can write a textfile and
// metrics.textfile is configured, the file is refreshed after every run.
func WithRecorder(r metrics.Recorder) Option {
	return func(e *Exporter) {
		e.recorder = metrics.OrNoop(r)
		if tw, ok := r.(TextfileWriter); ok {
			e.textfile = tw
		}
	}
}

// WithPublisher publishes a RunEvent after every run.
func WithPublisher(p notify.Publisher) Option {
	return func(e *Exporter) {
		if p != nil {
			e.publisher = p
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) { e.now = now }
}

// New creates an Exporter reading pages through fetcher.
func New(cfg *config.Config, fetcher Fetcher, opts ...Option) *Exporter {
	e := &Exporter{
		cfg:       cfg,
		fetcher:   fetcher,
		recorder:  metrics.NoopRecorder{},
		publisher: notify.NoopPublisher{},
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run performs one export. The returned summary is never nil; when err is
// non-nil it describes how far the run got.
func (e *Exporter) Run(ctx context.Context) (*Summary, error) {
	s := &Summary{
		RunID:   uuid.NewString(),
		RootID:  e.cfg.Confluence.RootPageID,
		Mode:    e.cfg.Export.Mode,
		Started: e.now(),
	}
	logger := e.logger.With(logfields.RunID(s.RunID))
	logger.Info("Starting export",
		logfields.PageID(s.RootID),
		logfields.Mode(string(s.Mode)))

	skippedBefore := 0
	if sc, ok := e.fetcher.(skipCounter); ok {
		skippedBefore = sc.Skipped()
	}

	pages, err := e.export(ctx, s, logger)
	s.Err = err
	s.Finished = e.now()
	if sc, ok := e.fetcher.(skipCounter); ok {
		s.Skipped += sc.Skipped() - skippedBefore
	}

	e.report(ctx, s, pages, logger)

	if err != nil {
		logger.Error("Export failed", logfields.Error(err), logfields.Count(s.Pages))
		return s, err
	}
	logger.Info("Export complete",
		logfields.Title(s.RootTitle),
		logfields.Count(s.Pages),
		logfields.Bytes(s.Bytes),
		logfields.Path(s.Output),
		logfields.Duration(s.Duration()))
	return s, nil
}

func (e *Exporter) export(ctx context.Context, s *Summary, logger *slog.Logger) ([]manifest.PageRecord, error) {
	root, err := e.fetcher.FetchPage(ctx, s.RootID)
	if err != nil {
		return nil, err
	}
	s.RootTitle = root.Title
	rootName := sanitize.Name(root.Title, e.cfg.Export.NameMaxLength)
	logger.Info("Resolved root page", logfields.Title(root.Title), logfields.Path(rootName))

	snk, err := e.newSink(rootName, root.ID, s, logger)
	if err != nil {
		return nil, err
	}

	var pages []manifest.PageRecord
	visitor := func(ctx context.Context, v walker.Visit) error {
		if err := snk.Visit(ctx, v); err != nil {
			return err
		}
		parentID := root.ID
		if n := len(v.Ancestors); n > 0 {
			parentID = v.Ancestors[n-1].ID
		}
		pages = append(pages, manifest.PageRecord{
			PageID:   v.Page.ID,
			ParentID: parentID,
			Title:    v.Page.Title,
			Depth:    v.Depth,
			Path:     snk.Current(),
		})
		return nil
	}

	stats, walkErr := walker.WalkWithOptions(ctx, e.fetcher, root.ID, visitor, walker.Options{
		MaxDepth: e.cfg.Export.MaxDepth,
		Logger:   logger,
		Recorder: e.recorder,
	})
	closeErr := snk.Close()

	st := snk.Stats()
	s.Pages = st.Pages
	s.Bytes = st.Bytes
	s.Files = st.Files
	s.Skipped = stats.Duplicates
	s.Requests = stats.Requests + 1

	return pages, stderrors.Join(walkErr, closeErr)
}

// newSink builds the sink for the configured mode and records its output path.
func (e *Exporter) newSink(rootName, rootID string, s *Summary, logger *slog.Logger) (sink.Sink, error) {
	out := e.cfg.Export.OutputDir
	if err := os.MkdirAll(out, 0o750); err != nil {
		return nil, errors.FileSystemError("failed to create output directory").
			WithCause(err).
			WithContext("path", out).
			Build()
	}
	opts := []sink.Option{sink.WithLogger(logger), sink.WithRecorder(e.recorder)}

	switch e.cfg.Export.Mode {
	case config.ModePerFile:
		s.Output = filepath.Join(out, rootName)
		return sink.NewPerFile(s.Output, e.cfg.Export.NameMaxLength, opts...)
	case config.ModeFlat:
		s.Output = filepath.Join(out, rootName+"_"+rootID+".txt")
		return sink.NewFlat(s.Output, sink.FlatHeader(rootName, rootID), opts...)
	case config.ModeChunked:
		s.Output = filepath.Join(out, rootName+"_"+rootID)
		return sink.NewChunked(s.Output, e.cfg.Export.ChunkBytes, opts...)
	default:
		return nil, errors.ValidationError("unknown export mode").
			WithContext("mode", string(e.cfg.Export.Mode)).
			Build()
	}
}

// report feeds the side channels. Their failures are logged only.
func (e *Exporter) report(ctx context.Context, s *Summary, pages []manifest.PageRecord, logger *slog.Logger) {
	result := metrics.ResultSuccess
	switch {
	case s.Err != nil && ctx.Err() != nil:
		result = metrics.ResultCanceled
	case s.Err != nil:
		result = metrics.ResultFailed
	}
	e.recorder.ObserveRun(string(s.Mode), s.Duration(), result)

	// Side channels must still work after the run context was canceled.
	bg := context.WithoutCancel(ctx)

	if e.manifest != nil {
		if err := e.manifest.RecordRun(bg, s.manifestRun(), pages); err != nil {
			logger.Warn("Failed to record run in manifest", logfields.Error(err))
		}
	}
	if e.textfile != nil && e.cfg.Metrics.Textfile != "" {
		if err := e.textfile.WriteTextfile(e.cfg.Metrics.Textfile); err != nil {
			logger.Warn("Failed to write metrics textfile",
				logfields.Path(e.cfg.Metrics.Textfile),
				logfields.Error(err))
		}
	}
	if err := e.publisher.Publish(bg, s.event()); err != nil {
		logger.Warn("Failed to publish run event", logfields.Error(err))
	}
}
