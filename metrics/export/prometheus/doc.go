// Package prometheus provides Prometheus collectors for goaccount metrics.
//
// [NewPrometheusExporter] accepts a [goaccount.Engine] and exposes an
// [http.Handler] that renders all goaccount counters in Prometheus text
// exposition format. Counter names are prefixed goaccount_*_total.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate engine state.
package prometheus
