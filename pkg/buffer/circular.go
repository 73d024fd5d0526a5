package buffer

import (
	"sync"

	"github.com/c360/sigflow/errors"
)

// circularBuffer is a mutex-guarded ring that refuses writes past capacity.
type circularBuffer[T any] struct {
	mu       sync.RWMutex
	items    []T
	capacity int
	size     int
	head     int // next write position
	tail     int // next read position
	stats    *Statistics
	metrics  *bufferMetrics
	closed   bool
}

func newCircularBuffer[T any](capacity int, opts *bufferOptions) (*circularBuffer[T], error) {
	if capacity <= 0 {
		capacity = 1
	}

	var metrics *bufferMetrics
	if opts.metricsReg != nil {
		var err error
		metrics, err = newBufferMetrics(opts.metricsReg, opts.metricsName)
		if err != nil {
			return nil, errors.WrapTransient(err, "buffer", "newCircularBuffer", "metrics registration")
		}
	}

	return &circularBuffer[T]{
		items:    make([]T, capacity),
		capacity: capacity,
		stats:    NewStatistics(),
		metrics:  metrics,
	}, nil
}

// WriteBatch stores the prefix of items that fits.
func (cb *circularBuffer[T]) WriteBatch(items []T) (int, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.closed {
		return 0, errors.WrapInvalid(errors.ErrBufferClosed, "Buffer", "WriteBatch", "write after close")
	}

	n := min(len(items), cb.capacity-cb.size)
	first := min(n, cb.capacity-cb.head)
	copy(cb.items[cb.head:], items[:first])
	copy(cb.items, items[first:n])
	cb.head = (cb.head + n) % cb.capacity
	cb.size += n

	if n > 0 {
		cb.stats.WriteN(int64(n))
		cb.stats.UpdateSize(int64(cb.size))
		if cb.metrics != nil {
			cb.metrics.recordWrites(n, cb.size, cb.capacity)
		}
	}
	if n < len(items) {
		cb.stats.Overflow()
		if cb.metrics != nil {
			cb.metrics.recordOverflow()
		}
		return n, errors.WrapTransient(errors.ErrBufferFull, "Buffer", "WriteBatch", "reject on full buffer")
	}
	return n, nil
}

// PeekBatch copies up to max items from the head without removing them.
func (cb *circularBuffer[T]) PeekBatch(max int) []T {
	if max <= 0 {
		return nil
	}

	cb.mu.RLock()
	defer cb.mu.RUnlock()

	if cb.size == 0 {
		return nil
	}

	cb.stats.Peek()
	if cb.metrics != nil {
		cb.metrics.recordPeek()
	}

	n := min(max, cb.size)
	out := make([]T, n)
	first := min(n, cb.capacity-cb.tail)
	copy(out, cb.items[cb.tail:cb.tail+first])
	copy(out[first:], cb.items[:n-first])
	return out
}

// Discard removes up to n items from the head.
func (cb *circularBuffer[T]) Discard(n int) int {
	if n <= 0 {
		return 0
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	n = min(n, cb.size)
	var zero T
	for i := 0; i < n; i++ {
		cb.items[cb.tail] = zero
		cb.tail = (cb.tail + 1) % cb.capacity
	}
	cb.size -= n

	cb.stats.ReadN(int64(n))
	cb.stats.UpdateSize(int64(cb.size))
	if cb.metrics != nil {
		cb.metrics.recordReads(n, cb.size, cb.capacity)
	}
	return n
}

// Size returns the current number of items.
func (cb *circularBuffer[T]) Size() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.size
}

// Capacity returns the maximum number of items.
func (cb *circularBuffer[T]) Capacity() int {
	return cb.capacity
}

// Free returns the number of items that fit.
func (cb *circularBuffer[T]) Free() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.capacity - cb.size
}

// Clear drops every item. Dropped items count in the statistics.
func (cb *circularBuffer[T]) Clear() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	dropped := cb.size
	clear(cb.items)
	cb.head = 0
	cb.tail = 0
	cb.size = 0

	cb.stats.DropN(int64(dropped))
	cb.stats.UpdateSize(0)
	if cb.metrics != nil {
		cb.metrics.recordDrops(dropped)
		cb.metrics.updateSize(0, cb.capacity)
	}
	return dropped
}

// Stats returns buffer statistics.
func (cb *circularBuffer[T]) Stats() *Statistics {
	return cb.stats
}

// Close rejects further writes.
func (cb *circularBuffer[T]) Close() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.closed = true
	return nil
}

// Closed reports whether Close was called.
func (cb *circularBuffer[T]) Closed() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.closed
}
