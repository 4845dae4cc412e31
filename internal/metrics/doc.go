// Package metrics provides export observability hooks.
//
// Components receive a Recorder and default to NoopRecorder, so metrics can be
// switched on without nil checks. PrometheusRecorder registers counters and
// histograms on a private registry; WriteTextfile dumps them in the Prometheus
// text exposition format (suitable for the node_exporter textfile collector),
// since an export run is a short-lived process with no HTTP surface.
package metrics
