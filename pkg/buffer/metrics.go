package buffer

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/sigflow/metric"
)

// bufferMetrics mirrors Statistics as Prometheus collectors.
type bufferMetrics struct {
	writes    prometheus.Counter
	reads     prometheus.Counter
	peeks     prometheus.Counter
	overflows prometheus.Counter
	drops     prometheus.Counter

	size        prometheus.Gauge
	utilization prometheus.Gauge
}

func newBufferMetrics(registry *metric.MetricsRegistry, name string) (*bufferMetrics, error) {
	labels := prometheus.Labels{"edge": name}
	counter := func(n, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "buffer",
			Name:        n,
			ConstLabels: labels,
			Help:        help,
		})
	}
	gauge := func(n, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "buffer",
			Name:        n,
			ConstLabels: labels,
			Help:        help,
		})
	}

	m := &bufferMetrics{
		writes:      counter("writes_total", "Total number of items written to the buffer"),
		reads:       counter("reads_total", "Total number of items consumed from the buffer"),
		peeks:       counter("peeks_total", "Total number of buffer peek calls"),
		overflows:   counter("overflows_total", "Total number of writes that found the buffer full"),
		drops:       counter("drops_total", "Total number of items discarded without being consumed"),
		size:        gauge("size", "Current number of items in buffer"),
		utilization: gauge("utilization", "Buffer utilization (0.0 to 1.0)"),
	}

	var registered []string
	rollback := func(err error) (*bufferMetrics, error) {
		for _, metricName := range registered {
			registry.Unregister(name, metricName)
		}
		return nil, err
	}

	for _, c := range []struct {
		name      string
		collector prometheus.Counter
	}{
		{"buffer_writes", m.writes},
		{"buffer_reads", m.reads},
		{"buffer_peeks", m.peeks},
		{"buffer_overflows", m.overflows},
		{"buffer_drops", m.drops},
	} {
		if err := registry.RegisterCounter(name, c.name, c.collector); err != nil {
			return rollback(err)
		}
		registered = append(registered, c.name)
	}
	if err := registry.RegisterGauge(name, "buffer_size", m.size); err != nil {
		return rollback(err)
	}
	registered = append(registered, "buffer_size")
	if err := registry.RegisterGauge(name, "buffer_utilization", m.utilization); err != nil {
		return rollback(err)
	}

	return m, nil
}

func (m *bufferMetrics) recordWrites(n, size, capacity int) {
	m.writes.Add(float64(n))
	m.updateSize(size, capacity)
}

func (m *bufferMetrics) recordReads(n, size, capacity int) {
	m.reads.Add(float64(n))
	m.updateSize(size, capacity)
}

func (m *bufferMetrics) recordPeek() {
	m.peeks.Inc()
}

func (m *bufferMetrics) recordOverflow() {
	m.overflows.Inc()
}

func (m *bufferMetrics) recordDrops(n int) {
	m.drops.Add(float64(n))
}

func (m *bufferMetrics) updateSize(size, capacity int) {
	m.size.Set(float64(size))
	m.utilization.Set(float64(size) / float64(capacity))
}
