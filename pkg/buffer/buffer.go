package buffer

// Buffer is a generic bounded FIFO. Every flowgraph edge carries its samples
// in one Buffer; the producer writes committed samples and the consumer peeks,
// then discards what it consumed.
type Buffer[T any] interface {
	// WriteBatch stores the items that fit, in order, and returns how many
	// were stored. ErrBufferFull is returned when some did not fit.
	WriteBatch(items []T) (int, error)

	// PeekBatch copies up to max items from the head without removing them.
	PeekBatch(max int) []T

	// Discard removes up to n items from the head and returns how many were removed.
	Discard(n int) int

	// Size returns the current number of items.
	Size() int

	// Capacity returns the maximum number of items.
	Capacity() int

	// Free returns Capacity() - Size().
	Free() int

	// Clear removes all items and returns how many were discarded.
	Clear() int

	// Stats returns buffer statistics (always available).
	Stats() *Statistics

	// Close rejects further writes. Buffered items stay readable.
	Close() error

	// Closed reports whether Close was called.
	Closed() bool
}

// NewCircularBuffer creates a circular buffer with the given capacity.
// Statistics are always collected; Prometheus metrics are optional via WithMetrics.
// Returns an error if metrics registration fails.
func NewCircularBuffer[T any](capacity int, options ...Option) (Buffer[T], error) {
	opts := applyOptions(options...)
	return newCircularBuffer[T](capacity, opts)
}
