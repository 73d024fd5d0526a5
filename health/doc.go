// Package health reports the health of flowgraph blocks and runs.
//
// A Status is healthy, degraded or unhealthy. FromBlock maps a block's
// lifecycle state onto a Status: failed blocks are unhealthy, blocks not yet
// started are degraded, running and completed blocks are healthy. Error text
// is sanitized before it is exposed.
//
// Monitor collects statuses by name, aggregates them (worst status wins) and
// serves the aggregate as JSON, so it can be mounted as the /health handler
// of the metrics server:
//
//	monitor := health.NewMonitor("flowgraph")
//	server := metric.NewServer(9090, "/metrics", registry, metric.WithHealthHandler(monitor))
package health
