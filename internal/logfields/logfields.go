package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyPageID     = "page_id"
	KeyParentID   = "parent_id"
	KeyTitle      = "title"
	KeyDepth      = "depth"
	KeyMode       = "mode"
	KeyPath       = "path"
	KeyChunk      = "chunk"
	KeyBytes      = "bytes"
	KeyCount      = "count"
	KeyURL        = "url"
	KeyStatus     = "status"
	KeyAttempt    = "attempt"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func PageID(id string) slog.Attr      { return slog.String(KeyPageID, id) }
func ParentID(id string) slog.Attr    { return slog.String(KeyParentID, id) }
func Title(t string) slog.Attr        { return slog.String(KeyTitle, t) }
func Depth(d int) slog.Attr           { return slog.Int(KeyDepth, d) }
func Mode(m string) slog.Attr         { return slog.String(KeyMode, m) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Chunk(n int) slog.Attr           { return slog.Int(KeyChunk, n) }
func Bytes(n int64) slog.Attr         { return slog.Int64(KeyBytes, n) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Status(code int) slog.Attr       { return slog.Int(KeyStatus, code) }
func Attempt(n int) slog.Attr         { return slog.Int(KeyAttempt, n) }
func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000)
}
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
