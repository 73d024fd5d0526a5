package block

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/c360/sigflow/errors"
	"github.com/c360/sigflow/property"
	"github.com/c360/sigflow/tag"
)

// Direction for data flow
type Direction string

// Direction constants for port data flow
const (
	DirectionInput  Direction = "input"
	DirectionOutput Direction = "output"
)

// groupSep separates a port group name from the member index, as in "in#2".
const groupSep = "#"

// Port is a typed, directional stream endpoint owned by one block.
// The set of implementations is closed: ports are created with NewInput,
// NewOutput or NewInputGroup.
type Port interface {
	// Name returns the addressable name, "in#2" for group members
	Name() string
	Direction() Direction
	// ElemType returns the sample element type
	ElemType() reflect.Type
	// Block returns the owning block's name
	Block() string
	// Index returns the position within a port group, or -1 for a plain port
	Index() int
	// Connected reports whether at least one edge is bound
	Connected() bool

	info() *portInfo
}

type portInfo struct {
	name  string
	index int
	dir   Direction
	elem  reflect.Type
	owner *Base
}

func (p *portInfo) Name() string           { return p.name }
func (p *portInfo) Direction() Direction   { return p.dir }
func (p *portInfo) ElemType() reflect.Type { return p.elem }
func (p *portInfo) Block() string          { return p.owner.name }
func (p *portInfo) Index() int             { return p.index }
func (p *portInfo) info() *portInfo        { return p }

// String renders "block.port".
func (p *portInfo) String() string {
	return p.owner.name + "." + p.name
}

func elemTypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// PortIn is a consumer port. During an invocation Span holds the readable
// window; outside an invocation it is empty.
type PortIn[T any] struct {
	portInfo
	edge *edge[T]

	window     []T
	consumeReq int
	read       int64
}

// Connected reports whether a producer is bound
func (p *PortIn[T]) Connected() bool { return p.edge != nil }

// Span returns the samples readable in this invocation
func (p *PortIn[T]) Span() []T { return p.window }

// At returns sample i of the current window
func (p *PortIn[T]) At(i int) T { return p.window[i] }

// Consume sets how many samples a bulk step consumed. Without a call the
// whole window is consumed. Scalar and vectorized steps ignore it.
func (p *PortIn[T]) Consume(n int) { p.consumeReq = n }

// Position returns the absolute index of the next unread sample
func (p *PortIn[T]) Position() int64 { return p.read }

// status reports the readable samples, the edge capacity and whether the
// producer has finished.
func (p *PortIn[T]) status() (avail, limit int, closed, connected bool) {
	if p.edge == nil {
		return 0, 0, true, false
	}
	p.edge.mu.Lock()
	defer p.edge.mu.Unlock()
	return p.edge.buf.Size(), p.edge.buf.Capacity(), p.edge.buf.Closed(), true
}

// pendingTags copies queued tags with index < limit.
func (p *PortIn[T]) pendingTags(limit int64) []tag.Tag {
	if p.edge == nil {
		return nil
	}
	p.edge.mu.Lock()
	defer p.edge.mu.Unlock()
	return p.edge.tags.Before(limit)
}

func (p *PortIn[T]) prepare(n int) {
	p.consumeReq = -1
	if p.edge == nil || n == 0 {
		p.window = p.window[:0]
		return
	}
	p.window = p.edge.buf.PeekBatch(n)
}

func (p *PortIn[T]) requested(n int) int {
	if p.consumeReq < 0 || p.consumeReq > n {
		return n
	}
	return p.consumeReq
}

func (p *PortIn[T]) commit(n int, tagsThrough int64, popTags bool) {
	p.window = nil
	if p.edge == nil {
		return
	}
	p.edge.mu.Lock()
	p.edge.buf.Discard(n)
	if popTags {
		p.edge.tags.PopDue(tagsThrough)
	}
	p.edge.mu.Unlock()
	p.read += int64(n)
}

func (p *PortIn[T]) markConsumerDone() {
	if p.edge == nil {
		return
	}
	p.edge.mu.Lock()
	p.edge.consumerDone = true
	p.edge.mu.Unlock()
}

func (p *PortIn[T]) position() int64 { return p.read }

// PortOut is a producer port. During an invocation Span holds the writable
// region; only the published prefix becomes visible downstream.
type PortOut[T any] struct {
	portInfo
	edges []*edge[T]

	span       []T
	publishReq int
	cursor     int
	written    int64
	staged     []tag.Tag
}

// Connected reports whether at least one consumer is bound
func (p *PortOut[T]) Connected() bool { return len(p.edges) > 0 }

// Span returns the writable region of this invocation
func (p *PortOut[T]) Span() []T { return p.span }

// Set writes sample i of the current region
func (p *PortOut[T]) Set(i int, v T) { p.span[i] = v }

// Publish commits the first n samples of a bulk step. Without a call the
// whole region is committed. Scalar and vectorized steps ignore it.
func (p *PortOut[T]) Publish(n int) { p.publishReq = n }

// PublishTag attaches m to the sample at offset from the current step's
// first output sample. Offset 0 marks the sample about to be produced.
func (p *PortOut[T]) PublishTag(m property.Map, offset int64) error {
	if offset < 0 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %d", errors.ErrNegativeOffset, offset),
			"PortOut", "PublishTag", p.String())
	}
	p.staged = append(p.staged, tag.Tag{
		Index: p.written + int64(p.cursor) + offset,
		Map:   m.Clone(),
	})
	return nil
}

// Position returns the absolute index of the next sample to be written
func (p *PortOut[T]) Position() int64 { return p.written }

// space returns the free room and the smallest capacity shared by every live
// consumer. dead is true when the port has consumers and all of them are done.
func (p *PortOut[T]) space() (free, limit int, connected, dead bool) {
	if len(p.edges) == 0 {
		return 0, 0, false, false
	}
	free, limit = -1, -1
	dead = true
	for _, e := range p.edges {
		e.mu.Lock()
		if !e.consumerDone {
			dead = false
			if f := e.buf.Free(); free < 0 || f < free {
				free = f
			}
			if c := e.buf.Capacity(); limit < 0 || c < limit {
				limit = c
			}
		}
		e.mu.Unlock()
	}
	return max(free, 0), max(limit, 0), true, dead
}

func (p *PortOut[T]) prepare(n int) {
	p.publishReq = -1
	p.cursor = 0
	p.staged = p.staged[:0]
	if cap(p.span) < n {
		p.span = make([]T, n)
	}
	p.span = p.span[:n]
}

func (p *PortOut[T]) setCursor(i int) { p.cursor = i }

func (p *PortOut[T]) forward(t tag.Tag) {
	p.staged = append(p.staged, tag.Tag{
		Index: p.written + int64(p.cursor),
		Map:   t.Map.Clone(),
	})
}

func (p *PortOut[T]) requested(n int) int {
	if p.publishReq < 0 || p.publishReq > n {
		return n
	}
	return p.publishReq
}

// commit writes n samples and the staged tags to every live edge. Samples and
// tags land under the same edge lock so a consumer never sees one without the other.
func (p *PortOut[T]) commit(n int) (int, error) {
	var (
		tags     = p.staged
		firstErr error
	)
	for _, e := range p.edges {
		e.mu.Lock()
		if e.consumerDone {
			e.mu.Unlock()
			continue
		}
		if n > 0 {
			if _, err := e.buf.WriteBatch(p.span[:n]); err != nil && firstErr == nil {
				firstErr = errors.WrapFatal(err, "PortOut", "commit", e.name)
			}
		}
		for _, t := range tags {
			if len(p.edges) > 1 {
				t = t.Clone()
			}
			e.tags.Push(t)
		}
		e.mu.Unlock()
	}

	p.written += int64(n)
	p.staged = p.staged[:0]
	var zero T
	for i := range p.span {
		p.span[i] = zero
	}
	p.span = p.span[:0]
	return len(tags), firstErr
}

func (p *PortOut[T]) close() {
	for _, e := range p.edges {
		e.mu.Lock()
		_ = e.buf.Close()
		e.mu.Unlock()
	}
}

func (p *PortOut[T]) position() int64 { return p.written }

// inputPort and outputPort are the type-erased views Invoke works with.
type inputPort interface {
	Port
	status() (avail, limit int, closed, connected bool)
	pendingTags(limit int64) []tag.Tag
	prepare(n int)
	requested(n int) int
	commit(n int, tagsThrough int64, popTags bool)
	markConsumerDone()
	position() int64
}

type outputPort interface {
	Port
	space() (free, limit int, connected, dead bool)
	prepare(n int)
	setCursor(i int)
	forward(t tag.Tag)
	requested(n int) int
	commit(n int) (int, error)
	close()
	position() int64
}

// NewInput creates and registers a consumer port on b.
func NewInput[T any](b *Base, name string) *PortIn[T] {
	p := &PortIn[T]{portInfo: portInfo{name: name, index: -1, dir: DirectionInput, elem: elemTypeOf[T](), owner: b}}
	b.addPort(p, name)
	b.inputs = append(b.inputs, p)
	return p
}

// NewOutput creates and registers a producer port on b.
func NewOutput[T any](b *Base, name string) *PortOut[T] {
	p := &PortOut[T]{portInfo: portInfo{name: name, index: -1, dir: DirectionOutput, elem: elemTypeOf[T](), owner: b}}
	b.addPort(p, name)
	b.outputs = append(b.outputs, p)
	return p
}

// NewInputGroup creates n consumer ports addressable as name#0 .. name#(n-1).
// The arity is fixed for the block's lifetime.
func NewInputGroup[T any](b *Base, name string, n int) ([]*PortIn[T], error) {
	if n < 1 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %s needs at least one port, got %d", errors.ErrConfigInvalid, name, n),
			"Block", "NewInputGroup", b.name)
	}
	ports := make([]*PortIn[T], n)
	group := make([]Port, n)
	for i := range ports {
		member := name + groupSep + strconv.Itoa(i)
		p := &PortIn[T]{portInfo: portInfo{name: member, index: i, dir: DirectionInput, elem: elemTypeOf[T](), owner: b}}
		b.addPort(p, "")
		b.inputs = append(b.inputs, p)
		ports[i] = p
		group[i] = p
	}
	b.groups[name] = group
	return ports, nil
}

// splitPortName splits "in#2" into ("in", 2, true).
func splitPortName(name string) (string, int, bool, error) {
	base, idx, found := strings.Cut(name, groupSep)
	if !found {
		return name, 0, false, nil
	}
	i, err := strconv.Atoi(idx)
	if err != nil || i < 0 {
		return base, 0, true, fmt.Errorf("bad port index %q", idx)
	}
	return base, i, true, nil
}
