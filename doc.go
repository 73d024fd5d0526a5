// Package sigflow provides an in-process streaming dataflow runtime: typed
// blocks connected by bounded edges, carrying samples together with
// index-stamped tags.
//
// # Philosophy
//
// A flowgraph is a static description. Blocks and their connections are
// fixed before a run starts, every port is bound, and the scheduler moves
// data until no block can make progress. Blocks never see the scheduler;
// they only declare ports and a processing step.
//
//   - Ports are typed: a connection between different element types is rejected
//   - Edges are bounded: producers wait when consumers fall behind
//   - Tags travel with samples and are delivered exactly once
//   - A block failure fails the run, a finished source completes it
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│            Scheduler                │  Run state machine,
//	│  (rounds, workers, drain, metrics)  │  deadlock detection
//	└─────────────────────────────────────┘
//	           ↓ invokes
//	┌─────────────────────────────────────┐
//	│             Blocks                  │  Scalar, bulk or
//	│   (ports, strategy, lifecycle)      │  vectorized steps
//	└─────────────────────────────────────┘
//	           ↓ exchange via
//	┌─────────────────────────────────────┐
//	│             Edges                   │  Ring buffer plus
//	│     (samples + tag queue)           │  ordered tag queue
//	└─────────────────────────────────────┘
//
// # Processing Capabilities
//
// Each block attaches exactly one strategy:
//
//   - Scalar: one call per sample, the merged input tag is visible per sample
//   - Vectorized: one call per fixed-width group aligned on absolute sample
//     indices, tags are observed at group starts
//   - Bulk: one call per window; the window ends just before the next tag so
//     a bulk step only ever sees tags on its first sample
//
// The merged input tag of a step is republished on every output at the
// matching sample unless the block disables tag forwarding.
//
// # Fan-Out
//
// A producer port feeds one consumer, or several through an explicit
// broadcast. Every broadcast consumer receives every sample and tag; the
// slowest consumer bounds the producer.
//
//	            ┌────────────┐
//	            │ tag_source │
//	            └─────┬──────┘
//	                  │ broadcast
//	       ┌──────────┴──────────┐
//	       ↓                     ↓
//	┌─────────────┐       ┌─────────────┐
//	│ add_const   │       │ tag_monitor │
//	└─────────────┘       └─────────────┘
//
// # Packages
//
// Runtime:
//   - block: Block base, typed ports, strategies, lifecycle, block registry
//   - graph: Graph construction, connection validation, topology analysis
//   - scheduler: Run loop, worker pool execution, run metrics and health
//   - tag, property: Tags and the ordered property map they carry
//
// Built-in blocks:
//   - blocks/math: Constant-operand, n-ary arithmetic and bitwise blocks
//   - blocks/probe: Tag source, monitor and sink for instrumenting flowgraphs
//   - componentregistry: Registration of every built-in block type
//
// Infrastructure:
//   - config: Flowgraph files (YAML or JSON) and graph building
//   - metric: Prometheus metrics and the HTTP exposition server
//   - health: Per-block and aggregate health
//   - errors: Classified errors (transient, invalid, fatal)
//   - pkg/buffer, pkg/worker, pkg/retry: Ring buffer, worker pool, backoff
//
// # Usage
//
//	registry, _ := componentregistry.NewRegistry()
//	cfg, _ := config.NewLoader().LoadFile("flow.yaml")
//
//	g, err := config.Build(cfg, registry, block.Dependencies{Logger: logger})
//	if err != nil {
//	    return err
//	}
//
//	sched, _ := scheduler.New(g, cfg.Scheduler.Options()...)
//	if err := sched.Run(ctx); err != nil {
//	    return err // the first block failure, or a deadlock
//	}
//
// # Binary
//
//	# Run a flowgraph file
//	./bin/sigflow --config flows/tags.yaml
//
//	# Check that a flowgraph builds, without running it
//	./bin/sigflow --config flows/tags.yaml --validate
//
//	# List the registered block types
//	./bin/sigflow --list-types
package sigflow
