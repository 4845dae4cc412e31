package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	registry        *prom.Registry
	requestDuration *prom.HistogramVec
	requests        *prom.CounterVec
	pagesExported   *prom.CounterVec
	bytesWritten    *prom.CounterVec
	chunkRotations  prom.Counter
	pagesSkipped    *prom.CounterVec
	runDuration     *prom.HistogramVec
	runs            *prom.CounterVec
	lastRun         prom.Gauge
}

// NewPrometheusRecorder constructs and registers export metrics on reg (a new
// registry when nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{registry: reg}
	pr.requestDuration = prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: "confexport",
		Name:      "api_request_duration_seconds",
		Help:      "Duration of content API requests",
		Buckets:   prom.DefBuckets,
	}, []string{"endpoint"})
	pr.requests = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "confexport",
		Name:      "api_requests_total",
		Help:      "Content API requests by endpoint and result",
	}, []string{"endpoint", "result"})
	pr.pagesExported = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "confexport",
		Name:      "pages_exported_total",
		Help:      "Pages written to output",
	}, []string{"mode"})
	pr.bytesWritten = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "confexport",
		Name:      "bytes_written_total",
		Help:      "Bytes written to output files",
	}, []string{"mode"})
	pr.chunkRotations = prom.NewCounter(prom.CounterOpts{
		Namespace: "confexport",
		Name:      "chunk_rotations_total",
		Help:      "Chunk files opened after the first one",
	})
	pr.pagesSkipped = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "confexport",
		Name:      "pages_skipped_total",
		Help:      "Pages not exported, by reason",
	}, []string{"reason"})
	pr.runDuration = prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: "confexport",
		Name:      "run_duration_seconds",
		Help:      "Duration of complete export runs",
		Buckets:   []float64{1, 5, 15, 60, 300, 900, 3600},
	}, []string{"mode"})
	pr.runs = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "confexport",
		Name:      "runs_total",
		Help:      "Export runs by mode and result",
	}, []string{"mode", "result"})
	pr.lastRun = prom.NewGauge(prom.GaugeOpts{
		Namespace: "confexport",
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time the last export run finished",
	})
	reg.MustRegister(pr.requestDuration, pr.requests, pr.pagesExported, pr.bytesWritten,
		pr.chunkRotations, pr.pagesSkipped, pr.runDuration, pr.runs, pr.lastRun)
	return pr
}

// Registry exposes the registry the recorder writes to.
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.registry }

func (p *PrometheusRecorder) ObserveRequest(endpoint string, d time.Duration, result ResultLabel) {
	if p == nil {
		return
	}
	p.requestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
	p.requests.WithLabelValues(endpoint, string(result)).Inc()
}

func (p *PrometheusRecorder) IncPageExported(mode string) {
	if p == nil {
		return
	}
	p.pagesExported.WithLabelValues(mode).Inc()
}

func (p *PrometheusRecorder) AddBytesWritten(mode string, n int) {
	if p == nil || n <= 0 {
		return
	}
	p.bytesWritten.WithLabelValues(mode).Add(float64(n))
}

func (p *PrometheusRecorder) IncChunkRotation() {
	if p == nil {
		return
	}
	p.chunkRotations.Inc()
}

func (p *PrometheusRecorder) IncPageSkipped(reason SkipReason) {
	if p == nil {
		return
	}
	p.pagesSkipped.WithLabelValues(string(reason)).Inc()
}

func (p *PrometheusRecorder) ObserveRun(mode string, d time.Duration, result ResultLabel) {
	if p == nil {
		return
	}
	p.runDuration.WithLabelValues(mode).Observe(d.Seconds())
	p.runs.WithLabelValues(mode, string(result)).Inc()
	p.lastRun.SetToCurrentTime()
}

// WriteTextfile writes every registered metric to path in the text exposition
// format. The file is replaced atomically.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	return prom.WriteToTextfile(path, p.registry)
}
