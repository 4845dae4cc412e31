package exporter

import (
	"time"

	"git.home.luguber.info/inful/confexport/internal/config"
	"git.home.luguber.info/inful/confexport/internal/manifest"
	"git.home.luguber.info/inful/confexport/internal/notify"
)

// Run status values stored in the manifest and published to NATS.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Summary describes one export run.
type Summary struct {
	RunID     string
	RootID    string
	RootTitle string
	Mode      config.Mode
	Output    string // per-file root folder, flat file, or chunk base path
	Pages     int
	Bytes     int64
	Files     []string
	Skipped   int
	Requests  int
	Started   time.Time
	Finished  time.Time
	Err       error
}

// Status is StatusSuccess unless the run failed.
func (s *Summary) Status() string {
	if s.Err != nil {
		return StatusFailed
	}
	return StatusSuccess
}

// Duration is the wall time of the run.
func (s *Summary) Duration() time.Duration { return s.Finished.Sub(s.Started) }

func (s *Summary) errText() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

func (s *Summary) manifestRun() manifest.Run {
	return manifest.Run{
		ID:        s.RunID,
		RootID:    s.RootID,
		RootTitle: s.RootTitle,
		Mode:      string(s.Mode),
		Status:    s.Status(),
		Error:     s.errText(),
		Pages:     s.Pages,
		Bytes:     s.Bytes,
		Files:     len(s.Files),
		Skipped:   s.Skipped,
		Output:    s.Output,
		Started:   s.Started,
		Finished:  s.Finished,
	}
}

func (s *Summary) event() notify.RunEvent {
	return notify.RunEvent{
		RunID:     s.RunID,
		RootID:    s.RootID,
		RootTitle: s.RootTitle,
		Mode:      string(s.Mode),
		Status:    s.Status(),
		Error:     s.errText(),
		Pages:     s.Pages,
		Bytes:     s.Bytes,
		Files:     s.Files,
		Skipped:   s.Skipped,
		Started:   s.Started,
		Finished:  s.Finished,
	}
}
