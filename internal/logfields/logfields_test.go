package logfields

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

// TestHelperKeyNames verifies helper key stability; key drift would break log ingestion.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name string
		key  string
		attr slog.Attr
	}{
		{"RunID", KeyRunID, RunID("r1")},
		{"PageID", KeyPageID, PageID("42")},
		{"ParentID", KeyParentID, ParentID("1")},
		{"Title", KeyTitle, Title("Home")},
		{"Depth", KeyDepth, Depth(2)},
		{"Mode", KeyMode, Mode("flat")},
		{"Path", KeyPath, Path("/tmp/x")},
		{"Chunk", KeyChunk, Chunk(3)},
		{"Bytes", KeyBytes, Bytes(10)},
		{"Count", KeyCount, Count(7)},
		{"URL", KeyURL, URL("http://example")},
		{"Status", KeyStatus, Status(500)},
		{"Attempt", KeyAttempt, Attempt(1)},
		{"Duration", KeyDurationMS, Duration(1500 * time.Microsecond)},
	}
	for _, tc := range cases {
		if tc.attr.Key != tc.key {
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.key, tc.attr.Key)
		}
	}
}

func TestDurationAndError(t *testing.T) {
	if got := Duration(1500 * time.Microsecond).Value.Float64(); got != 1.5 {
		t.Errorf("Duration value = %v, want 1.5", got)
	}
	if got := Error(nil).Value.String(); got != "" {
		t.Errorf("nil error value = %q", got)
	}
	if got := Error(errors.New("boom")).Value.String(); got != "boom" {
		t.Errorf("error value = %q", got)
	}
}
