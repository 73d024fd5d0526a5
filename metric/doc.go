// Package metric provides the Prometheus metrics registry and HTTP exposition
// server used by flowgraph runs.
//
// The registry carries a small set of core engine metrics (block lifecycle
// state, health, error counts, topology size) and accepts additional
// collectors from blocks, edges, the worker pool and the scheduler through
// the MetricsRegistrar interface. Registrations are keyed by owner and metric
// name; registering the same pair twice is an invalid-class error.
//
// Basic usage:
//
//	registry := metric.NewMetricsRegistry()
//	server := metric.NewServer(9090, "/metrics", registry)
//	if err := server.Start(); err != nil {
//		return err
//	}
//	defer server.Stop(5 * time.Second)
//
//	registry.CoreMetrics().RecordBlockState("src", 1)
//
// A nil *MetricsRegistry is accepted by every component that takes one and
// disables metrics for that component.
package metric
