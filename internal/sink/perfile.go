package sink

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/confexport/internal/confluence"
	"git.home.luguber.info/inful/confexport/internal/foundation/errors"
	"git.home.luguber.info/inful/confexport/internal/logfields"
	"git.home.luguber.info/inful/confexport/internal/sanitize"
	"git.home.luguber.info/inful/confexport/internal/textextract"
	"git.home.luguber.info/inful/confexport/internal/walker"
)

const modePerFile = "per-file"

// PerFile mirrors the page tree as nested folders, one <id>.txt per page.
type PerFile struct {
	rootDir string
	maxLen  int
	opts    options
	stats   Stats
	current string
}

// NewPerFile creates rootDir (and parents) and returns the sink.
func NewPerFile(rootDir string, maxLen int, opts ...Option) (*PerFile, error) {
	if err := os.MkdirAll(rootDir, 0o750); err != nil {
		return nil, errors.FileSystemError("failed to create export directory").
			WithCause(err).
			WithContext("path", rootDir).
			Build()
	}
	return &PerFile{rootDir: rootDir, maxLen: maxLen, opts: buildOptions(opts)}, nil
}

// FolderName is the directory name used for a page: <sanitized title>_<id>.
func FolderName(p confluence.Page, maxLen int) string {
	return sanitize.Name(p.Title, maxLen) + "_" + p.ID
}

// Dir returns the folder of the visited page.
func (s *PerFile) Dir(v walker.Visit) string {
	parts := make([]string, 0, len(v.Ancestors)+2)
	parts = append(parts, s.rootDir)
	for _, a := range v.Ancestors {
		parts = append(parts, FolderName(a, s.maxLen))
	}
	parts = append(parts, FolderName(v.Page, s.maxLen))
	return filepath.Join(parts...)
}

func (s *PerFile) Visit(ctx context.Context, v walker.Visit) error {
	if err := checkID(v.Page.ID); err != nil {
		return err
	}
	dir := s.Dir(v)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return errors.FileSystemError("failed to create page directory").
			WithCause(err).
			WithContext("path", dir).
			WithContext("page_id", v.Page.ID).
			Build()
	}

	path := filepath.Join(dir, v.Page.ID+".txt")
	content := "### " + v.Page.Title + "\n\n" + textextract.Text(v.Page.Body)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return errors.FileSystemError("failed to write page file").
			WithCause(err).
			WithContext("path", path).
			WithContext("page_id", v.Page.ID).
			Build()
	}

	s.stats.Pages++
	s.stats.Bytes += int64(len(content))
	s.stats.Files = append(s.stats.Files, path)
	s.current = path
	s.opts.recorder.IncPageExported(modePerFile)
	s.opts.recorder.AddBytesWritten(modePerFile, len(content))
	s.opts.logger.DebugContext(ctx, "Saved page",
		logfields.PageID(v.Page.ID),
		logfields.Title(v.Page.Title),
		logfields.Path(path))
	return nil
}

// Close is a no-op; every page file is closed as soon as it is written.
func (s *PerFile) Close() error { return nil }

func (s *PerFile) Stats() Stats { return s.stats }

func (s *PerFile) Current() string { return s.current }

// checkID rejects IDs that would escape the page folder.
func checkID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return errors.DataShapeError("page id cannot be used as a file name").
			WithContext("page_id", id).
			Build()
	}
	return nil
}
