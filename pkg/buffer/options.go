package buffer

import (
	"github.com/c360/sigflow/metric"
)

// Option configures a buffer using the functional options pattern.
type Option func(*bufferOptions)

type bufferOptions struct {
	// metricsReg is optional; when set, statistics are also exported to Prometheus
	metricsReg *metric.MetricsRegistry

	// metricsName becomes the "edge" const label and the registration owner
	metricsName string
}

// WithMetrics enables Prometheus export under the given name.
// A nil registry or empty name leaves metrics disabled.
func WithMetrics(registry *metric.MetricsRegistry, name string) Option {
	return func(opts *bufferOptions) {
		if registry != nil && name != "" {
			opts.metricsReg = registry
			opts.metricsName = name
		}
	}
}

func applyOptions(options ...Option) *bufferOptions {
	opts := &bufferOptions{}
	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}
	return opts
}
