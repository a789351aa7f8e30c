// Package prometheus provides Prometheus collectors for goIdentity metrics.
//
// [NewPrometheusExporter] accepts an [goIdentity.Engine] and exposes an [http.Handler]
// that renders all goIdentity counters and histograms in Prometheus text exposition
// format. Counter names are prefixed goidentity_*_total; the single histogram is
// goidentity_login_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate engine state.
package prometheus
