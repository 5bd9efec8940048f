// Package otel binds goOIDC engine metrics to OpenTelemetry instruments.
//
// [NewOTelExporter] registers an Int64ObservableCounter per engine counter and
// a set of observable gauges per histogram (one per cumulative bucket, plus
// count and sum). A single callback reads [goOIDC.Engine.MetricsSnapshot] on
// each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
