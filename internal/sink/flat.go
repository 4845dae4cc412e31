package sink

import (
	"context"
	"os"

	"git.home.luguber.info/inful/confexport/internal/foundation/errors"
	"git.home.luguber.info/inful/confexport/internal/logfields"
	"git.home.luguber.info/inful/confexport/internal/textextract"
	"git.home.luguber.info/inful/confexport/internal/walker"
)

const modeFlat = "flat"

// Flat appends every page block to a single file after a run header.
type Flat struct {
	path   string
	file   *os.File
	opts   options
	stats  Stats
	closed bool
	errC   error
}

// NewFlat creates (truncating) path and writes header.
func NewFlat(path, header string, opts ...Option) (*Flat, error) {
	f, err := os.Create(path) // #nosec G304 -- output path chosen by the operator
	if err != nil {
		return nil, errors.FileSystemError("failed to create export file").
			WithCause(err).
			WithContext("path", path).
			Build()
	}
	s := &Flat{path: path, file: f, opts: buildOptions(opts)}
	s.stats.Files = []string{path}
	if _, err := f.WriteString(header); err != nil {
		_ = f.Close()
		return nil, writeError(err, path)
	}
	s.stats.Bytes = int64(len(header))
	return s, nil
}

func (s *Flat) Visit(ctx context.Context, v walker.Visit) error {
	if s.closed {
		return errors.InternalError("write to closed sink").WithContext("path", s.path).Build()
	}
	block := FormatBlock(v.Page.Title, v.Page.ID, textextract.Text(v.Page.Body))
	if _, err := s.file.Write(block); err != nil {
		return writeError(err, s.path)
	}
	s.stats.Pages++
	s.stats.Bytes += int64(len(block))
	s.opts.recorder.IncPageExported(modeFlat)
	s.opts.recorder.AddBytesWritten(modeFlat, len(block))
	s.opts.logger.DebugContext(ctx, "Appended page",
		logfields.PageID(v.Page.ID),
		logfields.Title(v.Page.Title),
		logfields.Bytes(int64(len(block))))
	return nil
}

func (s *Flat) Close() error {
	if s.closed {
		return s.errC
	}
	s.closed = true
	if err := s.file.Close(); err != nil {
		s.errC = errors.FileSystemError("failed to close export file").
			WithCause(err).
			WithContext("path", s.path).
			Build()
	}
	return s.errC
}

func (s *Flat) Stats() Stats { return s.stats }

func (s *Flat) Current() string { return s.path }

func writeError(err error, path string) error {
	return errors.FileSystemError("failed to write export file").
		WithCause(err).
		WithContext("path", path).
		Build()
}
