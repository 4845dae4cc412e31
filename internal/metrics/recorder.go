package metrics

import "time"

// Endpoint labels for content API requests.
const (
	EndpointPage     = "page"
	EndpointChildren = "children"
)

// ResultLabel enumerates request and run outcomes for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultRetry    ResultLabel = "retry"
	ResultFailed   ResultLabel = "failed"
	ResultCanceled ResultLabel = "canceled"
)

// SkipReason enumerates why a page was not exported.
type SkipReason string

const (
	SkipMalformed SkipReason = "malformed"
	SkipDuplicate SkipReason = "duplicate"
)

// Recorder defines observability hooks for export runs.
type Recorder interface {
	ObserveRequest(endpoint string, d time.Duration, result ResultLabel)
	IncPageExported(mode string)
	AddBytesWritten(mode string, n int)
	IncChunkRotation()
	IncPageSkipped(reason SkipReason)
	ObserveRun(mode string, d time.Duration, result ResultLabel)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveRequest(string, time.Duration, ResultLabel) {}
func (NoopRecorder) IncPageExported(string)                            {}
func (NoopRecorder) AddBytesWritten(string, int)                       {}
func (NoopRecorder) IncChunkRotation()                                 {}
func (NoopRecorder) IncPageSkipped(SkipReason)                         {}
func (NoopRecorder) ObserveRun(string, time.Duration, ResultLabel)     {}

// OrNoop returns r, or NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
