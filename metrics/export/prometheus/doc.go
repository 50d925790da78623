// Package prometheus exposes engine metrics through client_golang.
//
// [NewExporter] returns a prometheus.Collector. Register it on the
// application's registry next to other collectors, or mount
// [Exporter.Handler] for a standalone scrape endpoint. Counters are named
// authgate_*_total; latency histograms authgate_*_latency_seconds.
//
// # What this package must NOT do
//
//   - Register into the global default registry.
//   - Mutate engine state.
package prometheus
