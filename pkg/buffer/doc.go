// Package buffer provides a generic, mutex-guarded circular buffer with
// always-on statistics and optional Prometheus metrics.
//
// Flowgraph edges carry their samples in it: the producer asks for Free()
// before writing, writes a batch with WriteBatch, and the consumer looks at the
// head with PeekBatch and removes what it consumed with Discard. A write that
// does not fit is refused with errors.ErrBufferFull. Nothing in the buffer
// blocks; suspension is left to the scheduler.
//
//	buf, err := buffer.NewCircularBuffer[float64](4096,
//		buffer.WithMetrics(registry, "src.out->sink.in"),
//	)
//
// Close marks the end of the stream: later writes fail with
// errors.ErrBufferClosed while buffered items stay readable. Clear discards
// what is left and counts it as dropped.
//
// # Observability
//
// Statistics count items written, consumed and dropped, refused writes and
// the size high-water mark. WithMetrics additionally exports the same values
// as sigflow_buffer_* collectors labelled with the edge name.
package buffer
