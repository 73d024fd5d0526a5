package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/sigflow/block"
	"github.com/c360/sigflow/metric"
)

const metricsOwner = "scheduler"

// schedulerMetrics holds Prometheus metrics for flowgraph runs.
type schedulerMetrics struct {
	invocations  *prometheus.CounterVec // By block, capability and result
	samples      *prometheus.CounterVec // By block and direction (in/out)
	tags         *prometheus.CounterVec // By block and direction (in/out)
	runs         *prometheus.CounterVec // By status (completed/failed)
	runDuration  prometheus.Histogram
	rounds       prometheus.Counter
	activeBlocks prometheus.Gauge
	leftover     prometheus.Counter
}

// newSchedulerMetrics creates and registers scheduler metrics with the provided registry.
func newSchedulerMetrics(registry *metric.MetricsRegistry) (*schedulerMetrics, error) {
	if registry == nil {
		return nil, nil // Metrics disabled
	}

	m := &schedulerMetrics{
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "scheduler",
			Name:      "invocations_total",
			Help:      "Total number of block invocations",
		}, []string{"block", "capability", "result"}), // result: progress, idle, done, error

		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "scheduler",
			Name:      "samples_total",
			Help:      "Total number of samples consumed and produced by blocks",
		}, []string{"block", "direction"}),

		tags: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "scheduler",
			Name:      "tags_total",
			Help:      "Total number of tags delivered to and published by blocks",
		}, []string{"block", "direction"}),

		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "scheduler",
			Name:      "runs_total",
			Help:      "Total number of flowgraph runs by final state",
		}, []string{"status"}),

		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metric.Namespace,
			Subsystem: "scheduler",
			Name:      "run_duration_seconds",
			Help:      "Flowgraph run duration in seconds",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1.0, 5.0, 30.0},
		}),

		rounds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "scheduler",
			Name:      "rounds_total",
			Help:      "Total number of scheduling rounds",
		}),

		activeBlocks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metric.Namespace,
			Subsystem: "scheduler",
			Name:      "active_blocks",
			Help:      "Number of blocks not yet in a terminal state",
		}),

		leftover: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "scheduler",
			Name:      "leftover_samples_total",
			Help:      "Samples discarded because their consumer stopped first",
		}),
	}

	var registered []string
	rollback := func(err error) (*schedulerMetrics, error) {
		for _, name := range registered {
			registry.Unregister(metricsOwner, name)
		}
		return nil, err
	}

	vecs := []struct {
		name string
		vec  *prometheus.CounterVec
	}{
		{"invocations", m.invocations},
		{"samples", m.samples},
		{"tags", m.tags},
		{"runs", m.runs},
	}
	for _, v := range vecs {
		if err := registry.RegisterCounterVec(metricsOwner, v.name, v.vec); err != nil {
			return rollback(err)
		}
		registered = append(registered, v.name)
	}
	if err := registry.RegisterHistogram(metricsOwner, "run_duration", m.runDuration); err != nil {
		return rollback(err)
	}
	registered = append(registered, "run_duration")
	if err := registry.RegisterCounter(metricsOwner, "rounds", m.rounds); err != nil {
		return rollback(err)
	}
	registered = append(registered, "rounds")
	if err := registry.RegisterGauge(metricsOwner, "active_blocks", m.activeBlocks); err != nil {
		return rollback(err)
	}
	registered = append(registered, "active_blocks")
	if err := registry.RegisterCounter(metricsOwner, "leftover_samples", m.leftover); err != nil {
		return rollback(err)
	}

	return m, nil
}

// recordInvocation records one block invocation.
func (m *schedulerMetrics) recordInvocation(b block.Block, res block.Result, err error) {
	if m == nil {
		return
	}

	result := "idle"
	switch {
	case err != nil:
		result = "error"
	case res.Status == block.Done:
		result = "done"
	case res.Progressed():
		result = "progress"
	}

	name := b.Name()
	m.invocations.WithLabelValues(name, b.Capability().String(), result).Inc()
	if res.Consumed > 0 {
		m.samples.WithLabelValues(name, "in").Add(float64(res.Consumed))
	}
	if res.Produced > 0 {
		m.samples.WithLabelValues(name, "out").Add(float64(res.Produced))
	}
	if res.TagsIn > 0 {
		m.tags.WithLabelValues(name, "in").Add(float64(res.TagsIn))
	}
	if res.TagsOut > 0 {
		m.tags.WithLabelValues(name, "out").Add(float64(res.TagsOut))
	}
}

// recordRound records a scheduling round and the blocks still active.
func (m *schedulerMetrics) recordRound(active int) {
	if m == nil {
		return
	}
	m.rounds.Inc()
	m.activeBlocks.Set(float64(active))
}

// recordRun records a finished run.
func (m *schedulerMetrics) recordRun(state State, seconds float64, leftover int) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(state.String()).Inc()
	m.runDuration.Observe(seconds)
	m.activeBlocks.Set(0)
	if leftover > 0 {
		m.leftover.Add(float64(leftover))
	}
}
