// Package manifest records export runs and the pages each run wrote in a
// SQLite database, so operators can audit what was exported and when.
package manifest

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Run is one export run.
type Run struct {
	ID        string
	RootID    string
	RootTitle string
	Mode      string
	Status    string // "success" or "failed"
	Error     string
	Pages     int
	Bytes     int64
	Files     int
	Skipped   int
	Output    string
	Started   time.Time
	Finished  time.Time
}

// Duration is Finished - Started.
func (r Run) Duration() time.Duration { return r.Finished.Sub(r.Started) }

// PageRecord is one page written by a run, in traversal order.
type PageRecord struct {
	RunID    string
	Seq      int
	PageID   string
	ParentID string
	Title    string
	Depth    int
	Path     string
}

// Store is the SQLite manifest.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens (creating if needed) the manifest at dbPath. ":memory:" gives a
// throwaway database.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, wrap(ErrOpenFailed, err)
	}
	// A single connection keeps ":memory:" databases consistent and
	// serializes writers.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, wrap(ErrSchemaFailed, err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		root_id TEXT NOT NULL,
		root_title TEXT NOT NULL,
		mode TEXT NOT NULL,
		status TEXT NOT NULL,
		error TEXT,
		pages INTEGER NOT NULL,
		bytes INTEGER NOT NULL,
		files INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		output TEXT,
		started INTEGER NOT NULL,
		finished INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started);
	CREATE TABLE IF NOT EXISTS pages (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		page_id TEXT NOT NULL,
		parent_id TEXT,
		title TEXT NOT NULL,
		depth INTEGER NOT NULL,
		path TEXT,
		PRIMARY KEY (run_id, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_pages_page_id ON pages(page_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordRun stores a run and its pages in one transaction.
func (s *Store) RecordRun(ctx context.Context, run Run, pages []PageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap(ErrWriteFailed, err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, root_id, root_title, mode, status, error, pages, bytes, files, skipped, output, started, finished)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.RootID, run.RootTitle, run.Mode, run.Status, run.Error,
		run.Pages, run.Bytes, run.Files, run.Skipped, run.Output,
		run.Started.UnixNano(), run.Finished.UnixNano(),
	)
	if err != nil {
		return wrap(ErrWriteFailed, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO pages (run_id, seq, page_id, parent_id, title, depth, path) VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return wrap(ErrWriteFailed, err)
	}
	defer func() { _ = stmt.Close() }()

	for i, p := range pages {
		if _, err := stmt.ExecContext(ctx, run.ID, i, p.PageID, p.ParentID, p.Title, p.Depth, p.Path); err != nil {
			return wrap(ErrWriteFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return wrap(ErrWriteFailed, err)
	}
	return nil
}

const runColumns = "id, root_id, root_title, mode, status, error, pages, bytes, files, skipped, output, started, finished"

// Runs returns the newest runs first. limit <= 0 returns all.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT " + runColumns + " FROM runs ORDER BY started DESC, id"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap(ErrQueryFailed, err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, wrap(ErrQueryFailed, err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(ErrQueryFailed, err)
	}
	return runs, nil
}

// Run returns a single run by ID.
func (s *Store) Run(ctx context.Context, id string) (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrRunNotFound.WithContext("run_id", id)
	}
	if err != nil {
		return Run{}, wrap(ErrQueryFailed, err)
	}
	return r, nil
}

// Pages returns the pages of a run in traversal order.
func (s *Store) Pages(ctx context.Context, runID string) ([]PageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT run_id, seq, page_id, parent_id, title, depth, path FROM pages WHERE run_id = ? ORDER BY seq",
		runID,
	)
	if err != nil {
		return nil, wrap(ErrQueryFailed, err)
	}
	defer func() { _ = rows.Close() }()

	var pages []PageRecord
	for rows.Next() {
		var p PageRecord
		var parent, path sql.NullString
		if err := rows.Scan(&p.RunID, &p.Seq, &p.PageID, &parent, &p.Title, &p.Depth, &path); err != nil {
			return nil, wrap(ErrQueryFailed, err)
		}
		p.ParentID = parent.String
		p.Path = path.String
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(ErrQueryFailed, err)
	}
	return pages, nil
}

// LastExport returns the most recent successful run that wrote pageID.
func (s *Store) LastExport(ctx context.Context, pageID string) (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+prefixed("r.", runColumns)+` FROM runs r JOIN pages p ON p.run_id = r.id
		 WHERE p.page_id = ? AND r.status = 'success' ORDER BY r.started DESC LIMIT 1`,
		pageID,
	)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrRunNotFound.WithContext("page_id", pageID)
	}
	if err != nil {
		return Run{}, wrap(ErrQueryFailed, err)
	}
	return r, nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func prefixed(prefix, columns string) string {
	parts := strings.Split(columns, ", ")
	for i := range parts {
		parts[i] = prefix + parts[i]
	}
	return strings.Join(parts, ", ")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var r Run
	var errText, output sql.NullString
	var started, finished int64
	err := row.Scan(&r.ID, &r.RootID, &r.RootTitle, &r.Mode, &r.Status, &errText,
		&r.Pages, &r.Bytes, &r.Files, &r.Skipped, &output, &started, &finished)
	if err != nil {
		return Run{}, err
	}
	r.Error = errText.String
	r.Output = output.String
	r.Started = time.Unix(0, started)
	r.Finished = time.Unix(0, finished)
	return r, nil
}
