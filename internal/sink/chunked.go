package sink

import (
	"context"
	"fmt"
	"os"

	"git.home.luguber.info/inful/confexport/internal/foundation/errors"
	"git.home.luguber.info/inful/confexport/internal/logfields"
	"git.home.luguber.info/inful/confexport/internal/textextract"
	"git.home.luguber.info/inful/confexport/internal/walker"
)

const modeChunked = "chunked"

// ChunkPath returns the file name of chunk n (1-based).
func ChunkPath(basePath string, n int) string {
	return fmt.Sprintf("%s_%d.txt", basePath, n)
}

// ChunkWriter writes whole entries into numbered files capped by a byte
// budget. An entry that would overflow the current chunk starts a new one,
// even when the current chunk is still empty; entries are never split, so an
// entry larger than the budget gets a chunk of its own.
type ChunkWriter struct {
	basePath string
	budget   int64
	file     *os.File
	index    int
	written  int64
	files    []string
	closed   bool
	errC     error

	// OnRotate is called after a new chunk (index > 1) is opened.
	OnRotate func(index int, path string)
}

// NewChunkWriter opens chunk 1 immediately.
func NewChunkWriter(basePath string, budget int64) (*ChunkWriter, error) {
	if budget <= 0 {
		return nil, errors.ValidationError("chunk budget must be positive").
			WithContext("budget", budget).
			Build()
	}
	w := &ChunkWriter{basePath: basePath, budget: budget}
	if err := w.open(1); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *ChunkWriter) open(n int) error {
	path := ChunkPath(w.basePath, n)
	f, err := os.Create(path) // #nosec G304 -- output path chosen by the operator
	if err != nil {
		return errors.FileSystemError("failed to create chunk file").
			WithCause(err).
			WithContext("path", path).
			WithContext("chunk", n).
			Build()
	}
	w.file = f
	w.index = n
	w.written = 0
	w.files = append(w.files, path)
	return nil
}

// WriteEntry writes b into the current chunk, rotating first when it would
// exceed the budget.
func (w *ChunkWriter) WriteEntry(b []byte) error {
	if w.closed {
		return errors.InternalError("write to closed chunk writer").Build()
	}
	if w.written+int64(len(b)) > w.budget {
		if err := w.rotate(); err != nil {
			return err
		}
	}
	if _, err := w.file.Write(b); err != nil {
		return writeError(err, w.Path())
	}
	w.written += int64(len(b))
	return nil
}

func (w *ChunkWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		w.closed = true
		return errors.FileSystemError("failed to close chunk file").
			WithCause(err).
			WithContext("path", w.Path()).
			Build()
	}
	if err := w.open(w.index + 1); err != nil {
		w.closed = true
		return err
	}
	if w.OnRotate != nil {
		w.OnRotate(w.index, w.Path())
	}
	return nil
}

// Index is the number of the chunk currently open.
func (w *ChunkWriter) Index() int { return w.index }

// Written is the byte count of the current chunk.
func (w *ChunkWriter) Written() int64 { return w.written }

// Path is the file of the current chunk.
func (w *ChunkWriter) Path() string { return ChunkPath(w.basePath, w.index) }

// Files lists every chunk created so far.
func (w *ChunkWriter) Files() []string { return append([]string(nil), w.files...) }

// Close closes the current chunk. It is idempotent.
func (w *ChunkWriter) Close() error {
	if w.closed {
		return w.errC
	}
	w.closed = true
	if err := w.file.Close(); err != nil {
		w.errC = errors.FileSystemError("failed to close chunk file").
			WithCause(err).
			WithContext("path", w.Path()).
			Build()
	}
	return w.errC
}

// Chunked writes page blocks through a ChunkWriter.
type Chunked struct {
	w     *ChunkWriter
	opts  options
	stats Stats
}

// NewChunked opens <basePath>_1.txt.
func NewChunked(basePath string, budget int64, opts ...Option) (*Chunked, error) {
	w, err := NewChunkWriter(basePath, budget)
	if err != nil {
		return nil, err
	}
	s := &Chunked{w: w, opts: buildOptions(opts)}
	w.OnRotate = func(index int, path string) {
		s.opts.recorder.IncChunkRotation()
		s.opts.logger.Info("Started new chunk", logfields.Chunk(index), logfields.Path(path))
	}
	return s, nil
}

func (s *Chunked) Visit(ctx context.Context, v walker.Visit) error {
	block := FormatBlock(v.Page.Title, v.Page.ID, textextract.Text(v.Page.Body))
	if err := s.w.WriteEntry(block); err != nil {
		return err
	}
	s.stats.Pages++
	s.stats.Bytes += int64(len(block))
	s.opts.recorder.IncPageExported(modeChunked)
	s.opts.recorder.AddBytesWritten(modeChunked, len(block))
	s.opts.logger.DebugContext(ctx, "Appended page",
		logfields.PageID(v.Page.ID),
		logfields.Title(v.Page.Title),
		logfields.Chunk(s.w.Index()))
	return nil
}

func (s *Chunked) Close() error { return s.w.Close() }

func (s *Chunked) Current() string { return s.w.Path() }

func (s *Chunked) Stats() Stats {
	st := s.stats
	st.Files = s.w.Files()
	return st
}
