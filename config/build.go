package config

import (
	"fmt"

	"github.com/c360/sigflow/block"
	"github.com/c360/sigflow/errors"
	"github.com/c360/sigflow/graph"
	"github.com/c360/sigflow/scheduler"
)

// Build creates every declared block through registry and binds the declared
// connections. Either the whole graph is returned or none of it.
func Build(cfg *Config, registry *block.Registry, deps block.Dependencies, opts ...graph.Option) (*graph.Graph, error) {
	if cfg == nil || registry == nil {
		return nil, errors.WrapInvalid(errors.ErrConfigInvalid, "Config", "Build", "nil config or registry")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	graphOpts := make([]graph.Option, 0, len(opts)+2)
	if cfg.Scheduler.BufferSize > 0 {
		graphOpts = append(graphOpts, graph.WithEdgeCapacity(cfg.Scheduler.BufferSize))
	}
	if deps.MetricsRegistry != nil {
		graphOpts = append(graphOpts, graph.WithMetrics(deps.MetricsRegistry))
	}
	graphOpts = append(graphOpts, opts...)
	g := graph.New(graphOpts...)

	for _, bc := range cfg.Blocks {
		b, err := registry.Create(bc.Type, bc.Name, bc.Properties, deps)
		if err != nil {
			return nil, errors.Wrap(err, "Config", "Build", fmt.Sprintf("create block %q", bc.Name))
		}
		if err := g.AddBlock(b); err != nil {
			return nil, err
		}
	}

	for _, c := range cfg.Connections {
		if len(c.To) == 1 {
			if _, err := g.ConnectRefs(c.From, c.To[0]); err != nil {
				return nil, err
			}
			continue
		}

		from, err := graph.ParsePortRef(c.From)
		if err != nil {
			return nil, err
		}
		targets := make([]graph.PortRef, len(c.To))
		for i, to := range c.To {
			if targets[i], err = graph.ParsePortRef(to); err != nil {
				return nil, err
			}
		}
		if _, err := g.Broadcast(from, targets...); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// Options converts the scheduler settings to scheduler options
func (s SchedulerConfig) Options() []scheduler.Option {
	var opts []scheduler.Option
	if s.Workers > 0 {
		opts = append(opts, scheduler.WithWorkers(s.Workers))
	}
	if s.ChunkSize > 0 {
		opts = append(opts, scheduler.WithChunkSize(s.ChunkSize))
	}
	return opts
}
