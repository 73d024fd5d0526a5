// Package probe provides instrumentation blocks for exercising flowgraphs:
// a TagSource that emits samples and scheduled tags, a pass-through
// TagMonitor and a TagSink that records everything it consumes.
//
// Each block runs in one of the processing modes selected by the "mode"
// property, so the same graph can be checked under scalar, vectorized and
// bulk execution. Recorded tags carry the sample count at which they were
// observed, which makes them comparable with EqualTagLists regardless of
// the chunking chosen by the scheduler.
//
// Registered types are "probe.tag_source:<T>", "probe.tag_monitor:<T>" and
// "probe.tag_sink:<T>" for every numeric sample type, e.g.
// "probe.tag_sink:float32".
package probe
