// Package prometheus exposes goOIDC engine metrics as a Prometheus collector.
//
// [PrometheusExporter] implements the client_golang Collector interface and
// reads [goOIDC.Engine.MetricsSnapshot] on every scrape. Counter names are
// prefixed goidc_*_total; the single histogram is goidc_login_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global Prometheus registry. Callers register the
//     exporter themselves or mount Handler.
//   - Mutate engine state.
package prometheus
