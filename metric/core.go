package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric the engine exports.
const Namespace = "sigflow"

// Metrics contains engine-level metrics shared by every flowgraph run
type Metrics struct {
	BlockState        *prometheus.GaugeVec
	HealthCheckStatus *prometheus.GaugeVec
	ErrorsTotal       *prometheus.CounterVec
	GraphBlocks       prometheus.Gauge
	GraphEdges        prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all engine metrics
func NewMetrics() *Metrics {
	return &Metrics{
		BlockState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "block",
				Name:      "state",
				Help:      "Block lifecycle state (0=initialized, 1=running, 2=stopped, 3=error)",
			},
			[]string{"block"},
		),

		HealthCheckStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "health",
				Name:      "status",
				Help:      "Health check status (0=unhealthy, 1=healthy)",
			},
			[]string{"component"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors by component and class",
			},
			[]string{"component", "class"},
		),

		GraphBlocks: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "graph",
				Name:      "blocks",
				Help:      "Number of blocks in the running flowgraph",
			},
		),

		GraphEdges: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "graph",
				Name:      "edges",
				Help:      "Number of edges in the running flowgraph",
			},
		),
	}
}

func (c *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.BlockState,
		c.HealthCheckStatus,
		c.ErrorsTotal,
		c.GraphBlocks,
		c.GraphEdges,
	}
}

// RecordBlockState updates the lifecycle gauge for a block
func (c *Metrics) RecordBlockState(block string, state int) {
	c.BlockState.WithLabelValues(block).Set(float64(state))
}

// RecordError increments the error counter
func (c *Metrics) RecordError(component, class string) {
	c.ErrorsTotal.WithLabelValues(component, class).Inc()
}

// RecordHealthStatus updates health check status
func (c *Metrics) RecordHealthStatus(component string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	c.HealthCheckStatus.WithLabelValues(component).Set(value)
}

// RecordTopology sets the block and edge gauges
func (c *Metrics) RecordTopology(blocks, edges int) {
	c.GraphBlocks.Set(float64(blocks))
	c.GraphEdges.Set(float64(edges))
}
