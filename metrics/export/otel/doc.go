// Package otel binds engine counters and latency histograms to OpenTelemetry
// observable instruments.
//
// [NewExporter] registers an Int64ObservableCounter per counter. Each
// histogram becomes a cumulative "<name>_bucket" gauge with an "le" attribute
// per upper bound, plus a "<name>_count" gauge. A single callback reads
// [authgate.Engine.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider; callers supply the Meter.
//   - Mutate engine state.
package otel
