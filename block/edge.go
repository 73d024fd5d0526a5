package block

import (
	"fmt"
	"sync"

	"github.com/c360/sigflow/errors"
	"github.com/c360/sigflow/metric"
	"github.com/c360/sigflow/pkg/buffer"
	"github.com/c360/sigflow/tag"
)

// DefaultEdgeCapacity is the sample capacity of an edge when none is configured.
const DefaultEdgeCapacity = 4096

// EdgeConfig configures one producer to consumer binding.
type EdgeConfig struct {
	// Capacity bounds the samples in flight, DefaultEdgeCapacity when <= 0
	Capacity int
	// Metrics exports the edge buffer to Prometheus when set
	Metrics *metric.MetricsRegistry
	// Name labels the edge; "src.port->dst.port" when empty
	Name string
	// Broadcast allows the producer port to feed more than one consumer
	Broadcast bool
}

// Edge is the read-only view of a binding exposed to graphs and schedulers.
type Edge interface {
	Name() string
	Source() Port
	Target() Port
	// Buffered returns samples written but not yet consumed
	Buffered() int
	// PendingTags returns tags queued but not yet delivered
	PendingTags() int
	Broadcast() bool
	Stats() *buffer.Statistics
	// DrainLeftover empties the edge and reports what was discarded
	DrainLeftover() (samples, tags int)
}

// edge carries the samples and tags of one binding. mu orders sample writes
// against tag pushes; the buffer has its own lock for statistics readers.
// A closed buffer marks a producer that will write no more.
type edge[T any] struct {
	name string
	src  *PortOut[T]
	dst  *PortIn[T]

	mu           sync.Mutex
	buf          buffer.Buffer[T]
	tags         tag.Queue
	consumerDone bool
	broadcast    bool
}

func (e *edge[T]) Name() string   { return e.name }
func (e *edge[T]) Source() Port   { return e.src }
func (e *edge[T]) Target() Port   { return e.dst }
func (e *edge[T]) Buffered() int  { return e.buf.Size() }
func (e *edge[T]) Broadcast() bool { return e.broadcast }

func (e *edge[T]) Stats() *buffer.Statistics { return e.buf.Stats() }

func (e *edge[T]) PendingTags() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tags.Len()
}

func (e *edge[T]) DrainLeftover() (int, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	samples := e.buf.Clear()
	tags := len(e.tags.Drain())
	return samples, tags
}

// CheckLink reports whether src and dst could be bound, without binding them.
func CheckLink(src, dst Port, broadcast bool) error {
	if src == nil || dst == nil {
		return errors.WrapInvalid(errors.ErrPortNotFound, "Edge", "CheckLink", "nil port")
	}
	if src.Direction() != DirectionOutput {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %s is not a producer port", errors.ErrPortNotFound, src.info()),
			"Edge", "CheckLink", "source direction")
	}
	if dst.Direction() != DirectionInput {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %s is not a consumer port", errors.ErrPortNotFound, dst.info()),
			"Edge", "CheckLink", "target direction")
	}
	if src.ElemType() != dst.ElemType() {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %s carries %s, %s expects %s", errors.ErrTypeMismatch,
				src.info(), src.ElemType(), dst.info(), dst.ElemType()),
			"Edge", "CheckLink", "element type")
	}
	if dst.Connected() {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrAlreadyConnected, dst.info()),
			"Edge", "CheckLink", "target bound")
	}
	if src.Connected() && !broadcast {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrImplicitFanOut, src.info()),
			"Edge", "CheckLink", "source bound")
	}
	return nil
}

// Link binds a producer port to a consumer port. Nothing changes when it fails.
func Link(src, dst Port, cfg EdgeConfig) (Edge, error) {
	if err := CheckLink(src, dst, cfg.Broadcast); err != nil {
		return nil, err
	}
	l, ok := src.(linker)
	if !ok {
		return nil, errors.WrapInvalid(errors.ErrPortNotFound, "Edge", "Link", "source is not a producer")
	}
	return l.link(dst, cfg)
}

type linker interface {
	link(dst Port, cfg EdgeConfig) (Edge, error)
}

func (p *PortOut[T]) link(dst Port, cfg EdgeConfig) (Edge, error) {
	in, ok := dst.(*PortIn[T])
	if !ok {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrTypeMismatch, dst.info()),
			"Edge", "Link", "consumer port type")
	}

	name := cfg.Name
	if name == "" {
		name = fmt.Sprintf("%s->%s", p.String(), in.String())
	}
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = DefaultEdgeCapacity
	}

	buf, err := buffer.NewCircularBuffer[T](capacity, buffer.WithMetrics(cfg.Metrics, name))
	if err != nil {
		return nil, errors.Wrap(err, "Edge", "Link", "edge buffer")
	}

	e := &edge[T]{name: name, src: p, dst: in, buf: buf}
	if len(p.edges) > 0 {
		e.broadcast = true
		for _, other := range p.edges {
			other.mu.Lock()
			other.broadcast = true
			other.mu.Unlock()
		}
	}
	p.edges = append(p.edges, e)
	in.edge = e
	return e, nil
}
