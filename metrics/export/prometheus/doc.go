// Package prometheus provides a Prometheus collector for ffauth metrics.
//
// [NewPrometheusExporter] accepts an [ffauth.Engine] and returns a
// prometheus.Collector registered in its own registry, served by Handler.
// Counter names are prefixed ffauth_*_total; the single histogram is
// ffauth_authorize_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry; callers mount the Handler.
//   - Mutate engine state.
package prometheus
